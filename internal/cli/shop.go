package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/shop"
)

// shopResult is the printed form of a shop.
type shopResult struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Language string `json:"language"`
	Synced   bool   `json:"synced"`
}

func newShopResult(s *model.Shop) shopResult {
	return shopResult{ID: s.ID, Name: s.Name, Currency: s.Currency, Language: s.Language, Synced: s.Synced}
}

func (r shopResult) String() string {
	return fmt.Sprintf("%s (%s, %s) id=%s", r.Name, r.Currency, r.Language, r.ID)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var in shop.Input

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Onboard the shop on this device",
		Long: `Create the single shop this device sells for.

Example:
  kassa init --name "Cafe" --currency UZS --language uz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, "onboarding failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Onboard(ctx, in)
				if err != nil {
					return err
				}
				return out.Success(newShopResult(s))
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "shop name (required)")
	cmd.Flags().StringVar(&in.Currency, "currency", "UZS", "ISO 4217 currency code")
	cmd.Flags().StringVar(&in.Language, "language", "uz", "BCP 47 language tag")
	cmd.Flags().StringVar(&in.OwnerID, "owner", "", "owner account id")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// NewShopCommand creates the shop command group.
func NewShopCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "Show or edit the shop",
	}
	cmd.AddCommand(newShopShowCommand(rootOpts))
	cmd.AddCommand(newShopSetCommand(rootOpts))
	return cmd
}

func newShopShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the shop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, "show shop failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Active(ctx)
				if err != nil {
					return err
				}
				return out.Success(newShopResult(s))
			})
		},
	}
}

func newShopSetCommand(rootOpts *RootOptions) *cobra.Command {
	var name, currency, language string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change shop settings",
		Long: `Change the shop name, currency or language. Only the given flags change.

Example:
  kassa shop set --name "Cafe Central"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var set shop.Settings
			if cmd.Flags().Changed("name") {
				set.Name = &name
			}
			if cmd.Flags().Changed("currency") {
				set.Currency = &currency
			}
			if cmd.Flags().Changed("language") {
				set.Language = &language
			}
			return run(cmd, rootOpts, "update shop failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Active(ctx)
				if err != nil {
					return err
				}
				s, err = a.shops.UpdateSettings(ctx, s, set)
				if err != nil {
					return err
				}
				return out.Success(newShopResult(s))
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "shop name")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO 4217 currency code")
	cmd.Flags().StringVar(&language, "language", "", "BCP 47 language tag")

	return cmd
}
