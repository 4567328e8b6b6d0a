package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// syncResult summarises a manual sync.
type syncResult struct {
	Queued    int `json:"queued"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

func (r syncResult) String() string {
	return fmt.Sprintf("queued %d, delivered %d, failed %d", r.Queued, r.Delivered, r.Failed)
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send unsynced records to the remote",
		Long: `Queue every unsynced shop, product, sale and daily report and deliver them
to the configured remote once. Records that fail stay unsynced for the next run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, "sync failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				if a.forwarder == nil {
					return usageError("no remote configured (set remote.kind)")
				}
				a.prepareRemote(ctx)

				queued, err := a.forwarder.Resend(ctx, a.store)
				if err != nil {
					return err
				}
				stats, err := a.forwarder.Drain(ctx)
				if err != nil {
					return err
				}
				res := syncResult{Queued: queued, Delivered: stats.Delivered, Failed: stats.Failed}
				if stats.Failed > 0 {
					_ = out.Success(res)
					return NewExitError(ExitFailure, fmt.Sprintf("%d records not delivered", stats.Failed))
				}
				return out.Success(res)
			})
		},
	}
}
