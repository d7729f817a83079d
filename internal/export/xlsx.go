package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kingrea/field-audit/internal/audit"
)

// SheetName is the worksheet holding the findings table.
const SheetName = "Informe"

// WriteXLSX writes the findings table as a single-sheet workbook.
func WriteXLSX(w io.Writer, report audit.SavedReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export: xlsx sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("export: xlsx header: %w", err)
	}

	for i, row := range rows(report) {
		values := make([]interface{}, len(row))
		values[0] = i + 1
		for j := 1; j < len(row); j++ {
			values[j] = row[j]
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("export: xlsx row %d: %w", i+1, err)
		}
	}

	for i, width := range ColumnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("export: xlsx width: %w", err)
		}
	}

	if err := styleSheet(f, report); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: xlsx write: %w", err)
	}
	return nil
}

func styleSheet(f *excelize.File, report audit.SavedReport) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"0070C0"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("export: xlsx style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("export: xlsx style: %w", err)
	}
	if len(report.Findings) == 0 {
		return nil
	}

	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("export: xlsx style: %w", err)
	}
	lastRow := len(report.Findings) + 1
	if err := f.SetCellStyle(SheetName, "A2", fmt.Sprintf("%s%d", lastCol, lastRow), bodyStyle); err != nil {
		return fmt.Errorf("export: xlsx style: %w", err)
	}

	ratingStyles := map[audit.Rating]int{}
	for i, finding := range report.Findings {
		id, ok := ratingStyles[finding.Rating]
		if !ok {
			id, err = f.NewStyle(&excelize.Style{
				Font:      &excelize.Font{Bold: true, Color: ratingTextColor(finding.Rating)},
				Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{RatingColor(finding.Rating)}},
				Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			})
			if err != nil {
				return fmt.Errorf("export: xlsx style: %w", err)
			}
			ratingStyles[finding.Rating] = id
		}
		cell, _ := excelize.CoordinatesToCellName(ratingColumn+1, i+2)
		if err := f.SetCellStyle(SheetName, cell, cell, id); err != nil {
			return fmt.Errorf("export: xlsx style: %w", err)
		}
	}
	return nil
}
