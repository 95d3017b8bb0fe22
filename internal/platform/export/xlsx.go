package export

import (
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/clinicadmin/clinicadmin/internal/platform/normalize"
)

const (
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	minColWidth = 10
	maxColWidth = 60
)

// WriteXLSX writes t as a single-sheet workbook with a bold, frozen header
// row. Cells holding a recognizable date are written as dates.
func WriteXLSX(w io.Writer, sheet string, t Table) error {
	if sheet == "" {
		sheet = "Export"
	}
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("export xlsx: create sheet: %w", err)
	}
	if sheet != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("export xlsx: header style: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return fmt.Errorf("export xlsx: date style: %w", err)
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("export xlsx: header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("export xlsx: header style %s: %w", cell, err)
		}
		widths[i] = utf8.RuneCountInString(h)
	}

	for r, row := range t.Rows {
		for c, text := range row {
			if text == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("export xlsx: %w", err)
			}
			if d, err := normalize.TryParseDate(text); err == nil {
				if err := f.SetCellValue(sheet, cell, d); err != nil {
					return fmt.Errorf("export xlsx: cell %s: %w", cell, err)
				}
				if err := f.SetCellStyle(sheet, cell, cell, dateStyle); err != nil {
					return fmt.Errorf("export xlsx: cell style %s: %w", cell, err)
				}
			} else if err := f.SetCellValue(sheet, cell, text); err != nil {
				return fmt.Errorf("export xlsx: cell %s: %w", cell, err)
			}
			if c < len(widths) {
				widths[c] = max(widths[c], utf8.RuneCountInString(text))
			}
		}
	}

	for i, wd := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		width := float64(min(max(wd+2, minColWidth), maxColWidth))
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("export xlsx: column width: %w", err)
		}
	}

	if len(t.Headers) > 0 {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("export xlsx: freeze header: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export xlsx: write: %w", err)
	}
	return nil
}

// AttachmentXLSX sends t as a .xlsx download.
func AttachmentXLSX(c echo.Context, name, sheet string, t Table) error {
	c.Response().Header().Set(echo.HeaderContentType, MIMEXLSX)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, Filename(name, ".xlsx")))
	c.Response().WriteHeader(http.StatusOK)
	return WriteXLSX(c.Response(), sheet, t)
}
