package service

import (
	"bytes"
	"fmt"
	"time"

	"datatable-web/internal/models"
	"datatable-web/internal/utils"

	"github.com/go-pdf/fpdf"
)

const PDFContentType = "application/pdf"

const (
	pdfFontFamily    = "Helvetica"
	pdfMargin        = 10.0
	pdfMinColWeight  = 4
	pdfMaxColWeight  = 40
	pdfLineHeightPts = 1.8
)

// pdfProfile is the set of defaults a report variant starts from
type pdfProfile struct {
	orientation   string
	titleKey      string
	titleFallback string
	titleFontSize float64
	fontSize      float64
	headerFill    [3]int
	headerText    [3]int
	bodyText      [3]int
	stripeFill    [3]int
	preamble      bool
	fileSuffix    string
}

var genericPDFProfile = pdfProfile{
	orientation:   "L",
	titleKey:      "export.pdf.title",
	titleFallback: "Report",
	titleFontSize: 14,
	fontSize:      8,
	headerFill:    [3]int{41, 128, 185},
	headerText:    [3]int{255, 255, 255},
	bodyText:      [3]int{33, 33, 33},
	stripeFill:    [3]int{245, 245, 245},
	fileSuffix:    ".pdf",
}

var fmcsaPDFProfile = pdfProfile{
	orientation:   "P",
	titleKey:      "export.fmcsa.title",
	titleFallback: "FMCSA Compliance Report",
	titleFontSize: 14,
	fontSize:      9,
	headerFill:    [3]int{0, 51, 102},
	headerText:    [3]int{255, 255, 255},
	bodyText:      [3]int{0, 0, 0},
	stripeFill:    [3]int{235, 241, 247},
	preamble:      true,
	fileSuffix:    "-fmcsa.pdf",
}

type PDFService struct {
	labels   utils.Labeler
	now      func() time.Time
	compress bool
}

func NewPDFService(labels utils.Labeler, now func() time.Time) *PDFService {
	if labels == nil {
		labels = utils.NewLabels(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &PDFService{labels: labels, now: now, compress: true}
}

// Export renders the generic landscape report
func (s *PDFService) Export(rows []models.Row, columns []models.ColumnDef, opts models.ExportOptions) (*models.Artifact, error) {
	return s.render(genericPDFProfile, rows, columns, opts.Styles.PDF, opts.FileNameBase)
}

// ExportFMCSA renders the portrait compliance report with its title and
// generation timestamp preamble
func (s *PDFService) ExportFMCSA(rows []models.Row, columns []models.ColumnDef, opts models.ExportOptions) (*models.Artifact, error) {
	return s.render(fmcsaPDFProfile, rows, columns, opts.Styles.FMCSA, opts.FileNameBase)
}

func (s *PDFService) render(profile pdfProfile, rows []models.Row, columns []models.ColumnDef, style models.PDFStyle, base string) (*models.Artifact, error) {
	pdf := s.buildDocument(profile, rows, columns, style)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	return &models.Artifact{
		FileName:    base + profile.fileSuffix,
		ContentType: PDFContentType,
		Data:        buf.Bytes(),
	}, nil
}

func (s *PDFService) buildDocument(profile pdfProfile, rows []models.Row, columns []models.ColumnDef, style models.PDFStyle) *fpdf.Fpdf {
	orientation := profile.orientation
	switch style.Orientation {
	case "landscape", "L", "l":
		orientation = "L"
	case "portrait", "P", "p":
		orientation = "P"
	}

	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetCompression(s.compress)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	now := s.now()
	pdf.SetCreationDate(now)

	title := s.title(profile, style)
	pdf.SetTitle(title, true)
	pdf.AddPage()

	titleSize := profile.titleFontSize
	if style.TitleFontSize > 0 {
		titleSize = style.TitleFontSize
	}
	pdf.SetFont(pdfFontFamily, "B", titleSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, ptToMM(titleSize)*1.5, tr(title), "", 1, "L", false, 0, "")

	if profile.preamble {
		generated := s.labels.Lookup("export.fmcsa.generated", "Generated: {{timestamp}}", map[string]interface{}{
			"timestamp": now.Format("2006-01-02 15:04"),
		})
		pdf.SetFont(pdfFontFamily, "", profile.fontSize)
		pdf.CellFormat(0, ptToMM(profile.fontSize)*pdfLineHeightPts, tr(generated), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	fontSize := profile.fontSize
	if style.FontSize > 0 {
		fontSize = style.FontSize
	}
	headerFill := colorOr(style.HeaderFill, profile.headerFill)
	headerText := colorOr(style.HeaderTextColor, profile.headerText)
	bodyText := colorOr(style.BodyTextColor, profile.bodyText)
	stripe := colorOr(style.StripeFill, profile.stripeFill)

	pageW, pageH := pdf.GetPageSize()
	widths := pdfColumnWidths(rows, columns, pageW-2*pdfMargin)
	lineH := ptToMM(fontSize) * pdfLineHeightPts

	drawHeader := func() {
		pdf.SetFont(pdfFontFamily, "B", fontSize)
		pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
		pdf.SetTextColor(headerText[0], headerText[1], headerText[2])
		for i, col := range columns {
			pdf.CellFormat(widths[i], lineH, fitText(pdf, tr(col.Header), widths[i]), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(pdfFontFamily, "", fontSize)
		pdf.SetTextColor(bodyText[0], bodyText[1], bodyText[2])
	}

	drawHeader()
	for rowIdx, row := range rows {
		if pdf.GetY()+lineH > pageH-pdfMargin {
			pdf.AddPage()
			drawHeader()
		}
		fill := rowIdx%2 == 1
		if fill {
			pdf.SetFillColor(stripe[0], stripe[1], stripe[2])
		}
		for i, col := range columns {
			text := fitText(pdf, tr(FormatValue(row[col.Field])), widths[i])
			pdf.CellFormat(widths[i], lineH, text, "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf
}

func (s *PDFService) title(profile pdfProfile, style models.PDFStyle) string {
	fallback := profile.titleFallback
	if style.Title != "" {
		fallback = style.Title
	}
	key := style.TitleKey
	if key == "" {
		if style.Title != "" {
			return style.Title
		}
		key = profile.titleKey
	}
	return s.labels.Lookup(key, fallback, nil)
}

// pdfColumnWidths splits the usable width in proportion to the longest value
// of each column
func pdfColumnWidths(rows []models.Row, columns []models.ColumnDef, usable float64) []float64 {
	weights := make([]int, len(columns))
	total := 0
	for i, col := range columns {
		w := len(col.Header)
		for _, row := range rows {
			if n := len(FormatValue(row[col.Field])); n > w {
				w = n
			}
		}
		if w < pdfMinColWeight {
			w = pdfMinColWeight
		}
		if w > pdfMaxColWeight {
			w = pdfMaxColWeight
		}
		weights[i] = w
		total += w
	}

	widths := make([]float64, len(columns))
	if total == 0 {
		return widths
	}
	for i, w := range weights {
		widths[i] = usable * float64(w) / float64(total)
	}
	return widths
}

// fitText truncates text with an ellipsis so it fits inside a cell. text is
// already translated to the single-byte font encoding.
func fitText(pdf *fpdf.Fpdf, text string, width float64) string {
	const padding = 2.0
	if pdf.GetStringWidth(text) <= width-padding {
		return text
	}
	for n := len(text) - 1; n > 0; n-- {
		candidate := text[:n] + "..."
		if pdf.GetStringWidth(candidate) <= width-padding {
			return candidate
		}
	}
	return ""
}

func colorOr(custom []int, fallback [3]int) [3]int {
	if len(custom) != 3 {
		return fallback
	}
	return [3]int{custom[0], custom[1], custom[2]}
}

func ptToMM(pt float64) float64 {
	return pt * 25.4 / 72
}
