package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportCashFlowExcel renders an assembled cash flow report as an xlsx
// workbook: one summary sheet of period rows plus a detail sheet of the
// settled income items behind them.
func ExportCashFlowExcel(report *CashFlowResponse) (*excelize.File, error) {

	f := excelize.NewFile()
	sheetName := "Cash Flow"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	// Add headers
	headers := []string{"Period", "From", "To", "Inflows", "Outflows", "Net", "Cumulative"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheetName, cell, h)
	}

	// Add data
	for i, row := range report.Rows {
		rowNo := i + 2
		f.SetCellValue(sheetName, "A"+fmt.Sprint(rowNo), row.Label)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(rowNo), row.StartDate)
		f.SetCellValue(sheetName, "C"+fmt.Sprint(rowNo), row.EndDate)
		f.SetCellValue(sheetName, "D"+fmt.Sprint(rowNo), row.Inflows.InexactFloat64())
		f.SetCellValue(sheetName, "E"+fmt.Sprint(rowNo), row.Outflows.InexactFloat64())
		f.SetCellValue(sheetName, "F"+fmt.Sprint(rowNo), row.Net.InexactFloat64())
		f.SetCellValue(sheetName, "G"+fmt.Sprint(rowNo), row.Cumulative.InexactFloat64())
	}

	// Summary rows below the table
	summaryRow := len(report.Rows) + 3
	f.SetCellValue(sheetName, "A"+fmt.Sprint(summaryRow), "Opening Balance")
	f.SetCellValue(sheetName, "B"+fmt.Sprint(summaryRow), report.OpeningBalance.InexactFloat64())
	f.SetCellValue(sheetName, "A"+fmt.Sprint(summaryRow+1), "Closing Balance")
	f.SetCellValue(sheetName, "B"+fmt.Sprint(summaryRow+1), report.ClosingBalance.InexactFloat64())

	detailSheet := "Income Detail"
	if _, err := f.NewSheet(detailSheet); err != nil {
		return nil, err
	}
	detailHeaders := []string{"Settlement Date", "Source", "Entry Date", "Gross", "Fee", "Net"}
	for i, h := range detailHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(detailSheet, cell, h)
	}
	rowNo := 2
	for _, row := range report.Rows {
		for _, item := range row.IncomeItems {
			f.SetCellValue(detailSheet, "A"+fmt.Sprint(rowNo), item.SettlementDate)
			f.SetCellValue(detailSheet, "B"+fmt.Sprint(rowNo), item.IncomeSourceName)
			f.SetCellValue(detailSheet, "C"+fmt.Sprint(rowNo), item.OriginalEntryDate)
			f.SetCellValue(detailSheet, "D"+fmt.Sprint(rowNo), item.GrossAmount.InexactFloat64())
			f.SetCellValue(detailSheet, "E"+fmt.Sprint(rowNo), item.FeeAmount.InexactFloat64())
			f.SetCellValue(detailSheet, "F"+fmt.Sprint(rowNo), item.NetAmount.InexactFloat64())
			rowNo++
		}
	}

	return f, nil
}
