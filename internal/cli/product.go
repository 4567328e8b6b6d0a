package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kassa/internal/catalog"
	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/money"
)

// productResult is the printed form of a product.
type productResult struct {
	ID      string      `json:"id"`
	Barcode string      `json:"barcode,omitempty"`
	Name    string      `json:"name"`
	Price   model.Money `json:"price"`

	display string
}

func newProductResult(p model.Product, shop *model.Shop) productResult {
	return productResult{
		ID:      p.ID,
		Barcode: p.Barcode,
		Name:    p.Name,
		Price:   p.Price,
		display: money.Format(p.Price, shop.Currency, shop.Language),
	}
}

func (r productResult) String() string {
	barcode := r.Barcode
	if barcode == "" {
		barcode = "-"
	}
	return fmt.Sprintf("%-14s %-24s %s", barcode, r.Name, r.display)
}

type productList []productResult

func (l productList) String() string {
	if len(l) == 0 {
		return "no products"
	}
	lines := make([]string, len(l))
	for i, p := range l {
		lines[i] = p.String()
	}
	return strings.Join(lines, "\n")
}

// NewProductCommand creates the product command group.
func NewProductCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage catalog products",
	}
	cmd.AddCommand(newProductAddCommand(rootOpts))
	cmd.AddCommand(newProductSearchCommand(rootOpts))
	cmd.AddCommand(newProductEditCommand(rootOpts))
	return cmd
}

func newProductAddCommand(rootOpts *RootOptions) *cobra.Command {
	var in catalog.Input
	var price int64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		Long: `Add a product to the catalog. The barcode may be omitted for
manually keyed items. The name may be omitted for a scanned barcode that is
not in the catalog yet; it then reads "Product <barcode>".

Example:
  kassa product add --barcode 4780000000017 --name Latte --price 10000
  kassa product add --barcode 4780000000031 --price 7000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Price = model.Money(price)
			return run(cmd, rootOpts, "add product failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Active(ctx)
				if err != nil {
					return err
				}
				var p model.Product
				switch {
				case strings.TrimSpace(in.Name) != "":
					p, err = a.catalog.Add(ctx, s, in)
				case strings.TrimSpace(in.Barcode) != "":
					p, err = a.catalog.AddUnknown(ctx, s, in.Barcode, "", in.Price)
				default:
					return usageError("--name or --barcode is required")
				}
				if err != nil {
					return err
				}
				return out.Success(newProductResult(p, s))
			})
		},
	}

	cmd.Flags().StringVar(&in.Barcode, "barcode", "", "product barcode")
	cmd.Flags().StringVar(&in.Name, "name", "", "product name")
	cmd.Flags().Int64Var(&price, "price", 0, "price in whole currency units")

	return cmd
}

func newProductSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search [term]",
		Short: "Search products by name prefix or barcode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			return run(cmd, rootOpts, "search failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Active(ctx)
				if err != nil {
					return err
				}
				found, err := a.catalog.Search(ctx, s, term)
				if err != nil {
					return err
				}
				list := make(productList, len(found))
				for i, p := range found {
					list[i] = newProductResult(p, s)
				}
				return out.Success(list)
			})
		},
	}
}

func newProductEditCommand(rootOpts *RootOptions) *cobra.Command {
	var barcode, name string
	var price int64

	cmd := &cobra.Command{
		Use:   "edit <product-id>",
		Short: "Edit a product",
		Long: `Edit a product's barcode, name or price. Only the given flags change.
Past sales keep the name and price they were sold with.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch catalog.Patch
			if cmd.Flags().Changed("barcode") {
				patch.Barcode = &barcode
			}
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("price") {
				p := model.Money(price)
				patch.Price = &p
			}
			return run(cmd, rootOpts, "edit product failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Active(ctx)
				if err != nil {
					return err
				}
				p, err := a.catalog.Edit(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return out.Success(newProductResult(p, s))
			})
		},
	}

	cmd.Flags().StringVar(&barcode, "barcode", "", "product barcode")
	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().Int64Var(&price, "price", 0, "price in whole currency units")

	return cmd
}

// importResult summarises a catalog import.
type importResult struct {
	Imported int `json:"imported"`
}

func (r importResult) String() string {
	return fmt.Sprintf("imported %d products", r.Imported)
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Bulk catalog operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import products from a YAML file",
		Long: `Import products from a YAML file in one batch. Either every product
is added or none is.

File format:
  products:
    - barcode: "4780000000017"
      name: Latte
      price: 10000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return rootOpts.formatter(cmd).Fail("failed to read catalog", err)
			}
			return run(cmd, rootOpts, "catalog import failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Active(ctx)
				if err != nil {
					return err
				}
				products, err := a.catalog.Import(ctx, s, data)
				if err != nil {
					return err
				}
				return out.Success(importResult{Imported: len(products)})
			})
		},
	})
	return cmd
}
