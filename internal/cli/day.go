package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kassa/internal/daybook"
	"github.com/roach88/kassa/internal/export"
	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/money"
)

// statsResult is the printed form of a day's live stats.
type statsResult struct {
	BusinessDate string `json:"business_date"`
	daybook.Stats

	cur, lang string
}

func (r statsResult) String() string {
	f := func(m model.Money) string { return money.Format(m, r.cur, r.lang) }
	return fmt.Sprintf("%s: %d sales, total %s (cash %s, card %s)",
		r.BusinessDate, r.Count, f(r.Total), f(r.CashTotal), f(r.CardTotal))
}

// reportResult is the printed form of a closed day.
type reportResult struct {
	model.DailyReport

	cur, lang string
}

func (r reportResult) String() string {
	return fmt.Sprintf("%s closed: %d sales, total %s (report %s)",
		r.BusinessDate, r.TransactionCount, money.Format(r.TotalSales, r.cur, r.lang), r.ID)
}

type reportList []reportResult

func (l reportList) String() string {
	if len(l) == 0 {
		return "no closed days"
	}
	lines := make([]string, len(l))
	for i, r := range l {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show sales totals for a business day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, "stats failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Active(ctx)
				if err != nil {
					return err
				}
				day := dateOrToday(a, date)
				st, err := a.daybook.LiveStats(ctx, s, day)
				if err != nil {
					return err
				}
				return out.Success(statsResult{BusinessDate: day, Stats: st, cur: s.Currency, lang: s.Language})
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "business date YYYY-MM-DD (default today)")
	return cmd
}

// NewCloseCommand creates the close command.
func NewCloseCommand(rootOpts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close a business day",
		Long: `Freeze the day's totals into a daily report. A day can be closed once.
Sales stay in place; closing does not reset anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, "close day failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Active(ctx)
				if err != nil {
					return err
				}
				day := dateOrToday(a, date)
				st, err := a.daybook.LiveStats(ctx, s, day)
				if err != nil {
					return err
				}
				r, err := a.daybook.CloseDay(ctx, s, day, st)
				if err != nil {
					return err
				}
				return out.Success(reportResult{DailyReport: r, cur: s.Currency, lang: s.Language})
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "business date YYYY-MM-DD (default today)")
	return cmd
}

// cashCountResult is the printed form of a drawer reconciliation.
type cashCountResult struct {
	BusinessDate string `json:"business_date"`
	daybook.Reconciliation
	Balanced bool `json:"balanced"`

	cur, lang string
}

func (r cashCountResult) String() string {
	f := func(m model.Money) string { return money.Format(m, r.cur, r.lang) }
	status := "balanced"
	switch {
	case r.Difference > 0:
		status = "surplus " + f(r.Difference)
	case r.Difference < 0:
		status = "shortage " + f(-r.Difference)
	}
	return fmt.Sprintf("%s: counted %s, expected %s, %s", r.BusinessDate, f(r.Counted), f(r.Expected), status)
}

// NewCashCountCommand creates the cash-count command.
func NewCashCountCommand(rootOpts *RootOptions) *cobra.Command {
	var date string
	var notes map[string]int
	var coins int64

	cmd := &cobra.Command{
		Use:   "cash-count",
		Short: "Reconcile the cash drawer against cash sales",
		Long: `Count the drawer and compare it with the day's cash sales.

Example:
  kassa cash-count --note 50000=3 --note 10000=2 --coins 1500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := parseCashCount(notes, coins)
			if err != nil {
				return rootOpts.formatter(cmd).Fail("cash count failed", err)
			}
			return run(cmd, rootOpts, "cash count failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Active(ctx)
				if err != nil {
					return err
				}
				day := dateOrToday(a, date)
				st, err := a.daybook.LiveStats(ctx, s, day)
				if err != nil {
					return err
				}
				rec := count.Reconcile(st.CashTotal)
				return out.Success(cashCountResult{
					BusinessDate:   day,
					Reconciliation: rec,
					Balanced:       rec.Balanced(),
					cur:            s.Currency,
					lang:           s.Language,
				})
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "business date YYYY-MM-DD (default today)")
	cmd.Flags().StringToIntVar(&notes, "note", nil, "banknotes counted as denomination=count (repeatable)")
	cmd.Flags().Int64Var(&coins, "coins", 0, "total value of coins")
	return cmd
}

func parseCashCount(notes map[string]int, coins int64) (daybook.CashCount, error) {
	count := daybook.CashCount{Notes: make(map[model.Money]int, len(notes)), Coins: model.Money(coins)}
	for denom, n := range notes {
		v, err := strconv.ParseInt(denom, 10, 64)
		if err != nil {
			return daybook.CashCount{}, usageError("bad denomination %q", denom)
		}
		count.Notes[model.Money(v)] += n
	}
	if err := count.Validate(); err != nil {
		return daybook.CashCount{}, err
	}
	return count, nil
}

// NewReportCommand creates the report command group.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "List or export closed days",
	}
	cmd.AddCommand(newReportListCommand(rootOpts))
	cmd.AddCommand(newReportExportCommand(rootOpts))
	return cmd
}

func newReportListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List closed days, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, "list reports failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Active(ctx)
				if err != nil {
					return err
				}
				reports, err := a.daybook.Reports(ctx, s)
				if err != nil {
					return err
				}
				list := make(reportList, len(reports))
				for i, r := range reports {
					list[i] = reportResult{DailyReport: r, cur: s.Currency, lang: s.Language}
				}
				return out.Success(list)
			})
		},
	}
}

// exportResult summarises a report export.
type exportResult struct {
	File    string `json:"file"`
	Reports int    `json:"reports"`
}

func (r exportResult) String() string {
	return fmt.Sprintf("wrote %d reports to %s", r.Reports, r.File)
}

func newReportExportCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export closed days as an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, "export failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, err := a.shops.Active(ctx)
				if err != nil {
					return err
				}
				reports, err := a.daybook.Reports(ctx, s)
				if err != nil {
					return err
				}

				f, err := os.Create(file)
				if err != nil {
					return fmt.Errorf("%w: %w", errWrite, err)
				}
				if err := export.DailyReports(f, s, reports); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("%w: %w", errWrite, err)
				}
				return out.Success(exportResult{File: file, Reports: len(reports)})
			})
		},
	}

	cmd.Flags().StringVarP(&file, "output", "o", "daily-reports.xlsx", "output file")
	return cmd
}

func dateOrToday(a *app, date string) string {
	if date == "" {
		return a.daybook.Today()
	}
	return date
}
