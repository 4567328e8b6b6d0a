package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/money"
	"github.com/roach88/kassa/internal/receipt"
)

// decodedReceipt is the printed form of a decoded receipt.
type decodedReceipt struct {
	receipt.Payload

	cur, lang string
}

func (r decodedReceipt) String() string {
	f := func(m model.Money) string { return money.Format(m, r.cur, r.lang) }
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", r.Shop, r.Date)
	for _, it := range r.Items {
		fmt.Fprintf(&b, "  %-24s %3d x %s = %s\n", it.Name, it.Quantity, f(it.Price), f(it.Subtotal()))
	}
	fmt.Fprintf(&b, "total %s, %s", f(r.Total), r.Payment)
	return b.String()
}

// NewReceiptCommand creates the receipt command group.
func NewReceiptCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Inspect receipt links",
	}

	var currency, language string
	decode := &cobra.Command{
		Use:   "decode <url|json>",
		Short: "Decode and verify a receipt link or payload",
		Long: `Decode a receipt link (or its bare JSON payload) and check it strictly.
Works without a database: receipts are self-contained.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			p, err := decodeReceipt(args[0])
			if err != nil {
				return out.Fail("receipt rejected", err)
			}
			return out.Success(decodedReceipt{Payload: p, cur: currency, lang: language})
		},
	}
	decode.Flags().StringVar(&currency, "currency", "", "currency code to print with amounts")
	decode.Flags().StringVar(&language, "language", "en", "language for digit grouping")
	cmd.AddCommand(decode)

	return cmd
}

func decodeReceipt(arg string) (receipt.Payload, error) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "{") {
		return receipt.Decode(arg)
	}
	return receipt.FromURL(arg)
}
