package analytics

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportMetricsXLSX writes the correlated metrics as a spreadsheet. Undefined
// ratios are exported as the literal "-" so they cannot be mistaken for zero.
func ExportMetricsXLSX(metrics []Metric, w io.Writer) error {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	// Add headers
	f.SetCellValue(sheetName, "A1", "AdID")
	f.SetCellValue(sheetName, "B1", "AdName")
	f.SetCellValue(sheetName, "C1", "Spend")
	f.SetCellValue(sheetName, "D1", "Leads")
	f.SetCellValue(sheetName, "E1", "Sales")
	f.SetCellValue(sheetName, "F1", "Revenue")
	f.SetCellValue(sheetName, "G1", "CPA")
	f.SetCellValue(sheetName, "H1", "ROAS")
	f.SetCellValue(sheetName, "I1", "CPL")

	// Add data
	for i, m := range metrics {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, m.AdID)
		f.SetCellValue(sheetName, "B"+row, m.AdName)
		f.SetCellValue(sheetName, "C"+row, m.Spend.InexactFloat64())
		if !m.HasData {
			f.SetCellValue(sheetName, "D"+row, "-")
			f.SetCellValue(sheetName, "E"+row, "-")
			f.SetCellValue(sheetName, "F"+row, "-")
		} else {
			f.SetCellValue(sheetName, "D"+row, m.Leads)
			f.SetCellValue(sheetName, "E"+row, m.Sales)
			f.SetCellValue(sheetName, "F"+row, m.Revenue.InexactFloat64())
		}
		f.SetCellValue(sheetName, "G"+row, ratioCell(m.CPA))
		f.SetCellValue(sheetName, "H"+row, ratioCell(m.ROAS))
		f.SetCellValue(sheetName, "I"+row, ratioCell(m.CPL))
	}

	return f.Write(w)
}

func ratioCell(value *decimal.Decimal) interface{} {
	if value == nil {
		return "-"
	}
	return value.InexactFloat64()
}
