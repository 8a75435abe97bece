package service

import (
	"bytes"
	"io"
	"strings"

	"datatable-web/internal/models"
)

const CSVContentType = "text/csv;charset=utf-8;"

type CSVService struct{}

func NewCSVService() *CSVService {
	return &CSVService{}
}

// Write emits a header line and one line per row. Every cell is quoted,
// with embedded quotes doubled.
func (s *CSVService) Write(w io.Writer, rows []models.Row, columns []models.ColumnDef) error {
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Header
	}
	if err := writeCSVLine(w, headers); err != nil {
		return err
	}

	cells := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			cells[i] = FormatValue(row[col.Field])
		}
		if err := writeCSVLine(w, cells); err != nil {
			return err
		}
	}
	return nil
}

// Export renders rows into a CSV artifact
func (s *CSVService) Export(rows []models.Row, columns []models.ColumnDef, opts models.ExportOptions) (*models.Artifact, error) {
	var buf bytes.Buffer
	if err := s.Write(&buf, rows, columns); err != nil {
		return nil, err
	}
	return &models.Artifact{
		FileName:    opts.FileNameBase + ".csv",
		ContentType: CSVContentType,
		Data:        buf.Bytes(),
	}, nil
}

func writeCSVLine(w io.Writer, cells []string) error {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
