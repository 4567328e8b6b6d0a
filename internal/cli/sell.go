package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kassa/internal/cart"
	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/money"
	"github.com/roach88/kassa/internal/receipt"
)

// saleResult is the printed form of a committed sale.
type saleResult struct {
	TransactionID string            `json:"transaction_id"`
	BusinessDate  string            `json:"business_date"`
	Total         model.Money       `json:"total"`
	Payment       model.PaymentType `json:"payment"`
	Items         int               `json:"items"`
	ReceiptURL    string            `json:"receipt_url"`
	QRFile        string            `json:"qr_file,omitempty"`

	display string
}

func (r saleResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sale %s (%s)\n", r.TransactionID, r.BusinessDate)
	fmt.Fprintf(&b, "total:   %s, %s\n", r.display, r.Payment)
	fmt.Fprintf(&b, "receipt: %s", r.ReceiptURL)
	if r.QRFile != "" {
		fmt.Fprintf(&b, "\nqr:      %s", r.QRFile)
	}
	return b.String()
}

// NewSellCommand creates the sell command.
func NewSellCommand(rootOpts *RootOptions) *cobra.Command {
	var payment, qrFile string

	cmd := &cobra.Command{
		Use:   "sell <barcode[:qty]>...",
		Short: "Check out a sale",
		Long: `Build a cart from scanned barcodes and commit it as one sale.

Each argument is a barcode, optionally followed by :<quantity>. Repeating a
barcode adds to its line. Prints the receipt link.

Example:
  kassa sell 4780000000017:2 4780000000024 --pay cash --qr receipt.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scans, err := parseScans(args)
			if err != nil {
				return rootOpts.formatter(cmd).Fail("sale failed", err)
			}
			return run(cmd, rootOpts, "sale failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				return sell(ctx, a, out, scans, model.PaymentType(payment), qrFile)
			})
		},
	}

	cmd.Flags().StringVar(&payment, "pay", string(model.PaymentCash), "payment type (cash|card)")
	cmd.Flags().StringVar(&qrFile, "qr", "", "write the receipt QR code to this PNG file")

	return cmd
}

type scan struct {
	barcode string
	qty     int
}

func parseScans(args []string) ([]scan, error) {
	scans := make([]scan, 0, len(args))
	for _, arg := range args {
		barcode, qtyText, hasQty := strings.Cut(arg, ":")
		qty := 1
		if hasQty {
			n, err := strconv.Atoi(qtyText)
			if err != nil || n < 1 {
				return nil, usageError("bad quantity in %q", arg)
			}
			qty = n
		}
		if barcode == "" {
			return nil, usageError("empty barcode in %q", arg)
		}
		scans = append(scans, scan{barcode: barcode, qty: qty})
	}
	return scans, nil
}

func sell(ctx context.Context, a *app, out *OutputFormatter, scans []scan, payment model.PaymentType, qrFile string) error {
	s, err := a.shops.Active(ctx)
	if err != nil {
		return err
	}

	c := cart.New()
	for _, sc := range scans {
		p, err := a.catalog.Lookup(ctx, s, sc.barcode)
		if err != nil {
			return err
		}
		c.Add(p)
		if sc.qty > 1 {
			c.AdjustQuantity(p.ID, sc.qty-1)
		}
	}
	out.VerboseLog("cart: %d lines, %d units, total %d", c.Len(), c.Units(), c.Total())

	sale, err := a.checkout.Checkout(ctx, s, c, payment)
	if err != nil {
		return err
	}

	link, err := receipt.URL(a.cfg.Receipt.Origin, receipt.Build(*s, sale.Transaction, sale.Items))
	if err != nil {
		return err
	}

	res := saleResult{
		TransactionID: sale.Transaction.ID,
		BusinessDate:  sale.Transaction.BusinessDate,
		Total:         sale.Transaction.Total,
		Payment:       sale.Transaction.PaymentType,
		Items:         len(sale.Items),
		ReceiptURL:    link,
		display:       money.Format(sale.Transaction.Total, s.Currency, s.Language),
	}

	if qrFile != "" {
		png, err := receipt.QR(link, a.cfg.Receipt.QRSize, a.cfg.Receipt.QRMargin)
		if err != nil {
			return err
		}
		if err := os.WriteFile(qrFile, png, 0o644); err != nil {
			// The sale is committed; only the image is missing.
			return fmt.Errorf("%w: qr %s (sale %s committed): %w", errWrite, qrFile, sale.Transaction.ID, err)
		}
		res.QRFile = qrFile
	}

	return out.Success(res)
}

