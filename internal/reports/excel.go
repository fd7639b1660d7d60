package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/loanwise/platform/internal/domain/predictions"
)

// SheetName is the worksheet holding the report.
const SheetName = "Loan Prediction Report"

const (
	excelHeaderRow = 5
	excelFirstRow  = 6
)

// Excel writes r as a single-sheet workbook.
func Excel(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	styles, err := newExcelStyles(f, r.Result)
	if err != nil {
		return err
	}

	if err := f.MergeCell(SheetName, "A1", "B1"); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	if err := f.SetCellValue(SheetName, "A1", Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "B1", styles.title); err != nil {
		return err
	}

	if err := f.MergeCell(SheetName, "A3", "B3"); err != nil {
		return fmt.Errorf("merge result: %w", err)
	}
	if err := f.SetCellValue(SheetName, "A3", r.ResultLine()); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A3", "B3", styles.result); err != nil {
		return err
	}

	header := fmt.Sprintf("A%d", excelHeaderRow)
	if err := f.SetSheetRow(SheetName, header, &[]any{"Field", "Value"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, header, fmt.Sprintf("B%d", excelHeaderRow), styles.header); err != nil {
		return err
	}

	row := excelFirstRow
	for _, field := range r.Fields {
		cell := fmt.Sprintf("A%d", row)
		if err := f.SetSheetRow(SheetName, cell, &[]any{field.Label, field.Value}); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}
	if row > excelFirstRow {
		if err := f.SetCellStyle(SheetName, fmt.Sprintf("A%d", excelFirstRow), fmt.Sprintf("B%d", row-1), styles.data); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "B", 25); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type excelStyles struct {
	title, header, data, result int
}

func newExcelStyles(f *excelize.File, result predictions.Result) (excelStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	resultFill, resultFont := "#FFC7CE", "#9C0006"
	if result == predictions.ResultEligible {
		resultFill, resultFont = "#C6EFCE", "#006100"
	}

	defs := []*excelize.Style{
		{
			Font:      &excelize.Font{Bold: true, Size: 16, Color: "#FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4F81BD"}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		},
		{
			Font:      &excelize.Font{Bold: true, Size: 12},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
			Border:    border,
		},
		{
			Font:      &excelize.Font{Size: 11},
			Alignment: &excelize.Alignment{Horizontal: "left"},
			Border:    border,
		},
		{
			Font:      &excelize.Font{Bold: true, Size: 14, Color: resultFont},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{resultFill}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		},
	}

	var s excelStyles
	targets := []*int{&s.title, &s.header, &s.data, &s.result}
	for i, d := range defs {
		id, err := f.NewStyle(d)
		if err != nil {
			return excelStyles{}, fmt.Errorf("excel style %d: %w", i, err)
		}
		*targets[i] = id
	}
	return s, nil
}
