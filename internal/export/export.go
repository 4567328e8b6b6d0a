// Package export writes closed-day reports as an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/kassa/internal/model"
)

// SheetName is the name of the single worksheet.
const SheetName = "Daily reports"

var columns = []string{"Business date", "Transactions", "Total", "Cash", "Card", "Closed at"}

// DailyReports writes reports to w, one row per closed day in the given
// order, followed by a totals row. Amounts are written as integers in the
// shop's currency unit.
func DailyReports(w io.Writer, shop *model.Shop, reports []model.DailyReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
		if shop != nil && (c == "Total" || c == "Cash" || c == "Card") {
			header[i] = fmt.Sprintf("%s (%s)", c, shop.Currency)
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}

	var sum model.DailyReport
	for i, r := range reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		row := []any{
			r.BusinessDate,
			r.TransactionCount,
			int64(r.TotalSales),
			int64(r.CashTotal),
			int64(r.CardTotal),
			model.FormatTime(r.ClosedAt),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("export: row %d: %w", i, err)
		}
		sum.TransactionCount += r.TransactionCount
		sum.TotalSales += r.TotalSales
		sum.CashTotal += r.CashTotal
		sum.CardTotal += r.CardTotal
	}

	last := len(reports) + 2
	totalCell, err := excelize.CoordinatesToCellName(1, last)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	totals := []any{"Total", sum.TransactionCount, int64(sum.TotalSales), int64(sum.CashTotal), int64(sum.CardTotal)}
	if err := f.SetSheetRow(SheetName, totalCell, &totals); err != nil {
		return fmt.Errorf("export: totals: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SetCellStyle(SheetName, totalCell, fmt.Sprintf("%s%d", lastCol, last), bold); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, 16); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}
