package service

import (
	"fmt"
	"unicode/utf8"

	"datatable-web/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultSheetName = "Data"
	minColumnWidth   = 10
	maxColumnWidth   = 50
)

type ExcelService struct{}

func NewExcelService() *ExcelService {
	return &ExcelService{}
}

// Export renders rows into a single-sheet workbook artifact
func (s *ExcelService) Export(rows []models.Row, columns []models.ColumnDef, opts models.ExportOptions) (*models.Artifact, error) {
	f, err := s.BuildWorkbook(rows, columns, opts.Styles.Excel)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return &models.Artifact{
		FileName:    opts.FileNameBase + ".xlsx",
		ContentType: XLSXContentType,
		Data:        buf.Bytes(),
	}, nil
}

// BuildWorkbook writes headers in row 1 and one row per record below. The
// caller owns the returned file.
func (s *ExcelService) BuildWorkbook(rows []models.Row, columns []models.ColumnDef, style models.ExcelStyle) (*excelize.File, error) {
	f := excelize.NewFile()

	sheetName := style.SheetName
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	widths := make([]int, len(columns))

	// Write headers
	for i, col := range columns {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		if err := f.SetCellValue(sheetName, cell, col.Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header %s: %w", cell, err)
		}
		widths[i] = utf8.RuneCountInString(col.Header)
	}

	// Write data
	for rowIdx, row := range rows {
		excelRow := rowIdx + 2
		for colIdx, col := range columns {
			value := row[col.Field]
			text := FormatValue(value)
			if n := utf8.RuneCountInString(text); n > widths[colIdx] {
				widths[colIdx] = n
			}
			if value == nil {
				continue
			}
			if b, ok := value.([]byte); ok {
				value = string(b)
			}

			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), excelRow)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if len(columns) > 0 {
		headerStyle, err := f.NewStyle(headerCellStyle(style))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create header style: %w", err)
		}
		if err := f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(columns)-1)), headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to style header row: %w", err)
		}
	}

	// Set column widths for better readability
	for i, width := range widths {
		colName := getColumnName(i)
		colWidth := float64(ClampColumnWidth(width))
		if columns[i].Width > 0 {
			colWidth = columns[i].Width
		}
		if err := f.SetColWidth(sheetName, colName, colName, colWidth); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set width of column %s: %w", colName, err)
		}
	}

	return f, nil
}

// ClampColumnWidth bounds an auto-sized width to [10, 50] character units
func ClampColumnWidth(width int) int {
	if width < minColumnWidth {
		return minColumnWidth
	}
	if width > maxColumnWidth {
		return maxColumnWidth
	}
	return width
}

func headerCellStyle(style models.ExcelStyle) *excelize.Style {
	bold := true
	if style.HeaderBold != nil {
		bold = *style.HeaderBold
	}

	s := &excelize.Style{
		Font: &excelize.Font{Bold: bold},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	}
	if style.HeaderFill != "" {
		s.Fill = excelize.Fill{Type: "pattern", Color: []string{style.HeaderFill}, Pattern: 1}
	}
	return s
}

func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
