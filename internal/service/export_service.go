package service

import (
	"fmt"
	"time"

	"datatable-web/internal/models"
	"datatable-web/internal/utils"

	"github.com/sirupsen/logrus"
)

// ExportFunc serializes a final row set into a downloadable artifact
type ExportFunc func(rows []models.Row, columns []models.ColumnDef, opts models.ExportOptions) (*models.Artifact, error)

type ExportService struct {
	exporters map[models.ExportType]ExportFunc
	labels    utils.Labeler
	logger    *logrus.Logger
}

func NewExportService(labels utils.Labeler, logger *logrus.Logger, now func() time.Time) *ExportService {
	if labels == nil {
		labels = utils.NewLabels(nil)
	}
	if logger == nil {
		logger = utils.GetLogger()
	}

	csvService := NewCSVService()
	excelService := NewExcelService()
	pdfService := NewPDFService(labels, now)
	quickBooksService := NewQuickBooksService(logger)

	return &ExportService{
		exporters: map[models.ExportType]ExportFunc{
			models.ExportCSV:        csvService.Export,
			models.ExportExcel:      excelService.Export,
			models.ExportPDF:        pdfService.Export,
			models.ExportQuickBooks: quickBooksService.Export,
			models.ExportFMCSA:      pdfService.ExportFMCSA,
		},
		labels: labels,
		logger: logger,
	}
}

// Supports reports whether an exporter exists for t
func (s *ExportService) Supports(t models.ExportType) bool {
	_, ok := s.exporters[t]
	return ok
}

// Export serializes rows with the exporter registered for t. Column headers
// are resolved through the label catalog first.
func (s *ExportService) Export(t models.ExportType, rows []models.Row, columns []models.ColumnDef, opts models.ExportOptions) (*models.Artifact, error) {
	export, ok := s.exporters[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExport, t)
	}

	start := time.Now()
	artifact, err := export(rows, ResolveColumns(columns, s.labels), opts)
	if err != nil {
		s.logger.WithError(err).WithField("type", t).Error("Export failed")
		return nil, fmt.Errorf("failed to export %s: %w", t, err)
	}

	s.logger.WithFields(logrus.Fields{
		"type":     t,
		"rows":     len(rows),
		"file":     artifact.FileName,
		"bytes":    len(artifact.Data),
		"duration": time.Since(start).String(),
	}).Info("Export generated")

	return artifact, nil
}

// ResolveColumns returns a copy of columns with headers looked up by
// HeaderKey, falling back to Header and then the field name
func ResolveColumns(columns []models.ColumnDef, labels utils.Labeler) []models.ColumnDef {
	resolved := make([]models.ColumnDef, len(columns))
	for i, col := range columns {
		fallback := col.Header
		if fallback == "" {
			fallback = col.Field
		}
		col.Header = labels.Lookup(col.HeaderKey, fallback, nil)
		resolved[i] = col
	}
	return resolved
}
