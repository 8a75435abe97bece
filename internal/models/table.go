package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Row is one record of tabular data keyed by field name
type Row map[string]interface{}

type FilterType string

const (
	FilterSelect FilterType = "select"
	FilterText   FilterType = "text"
	FilterDate   FilterType = "date"
)

// AllFilterTypes lists every filter type the evaluator must handle
var AllFilterTypes = []FilterType{FilterSelect, FilterText, FilterDate}

type PresetType string

const (
	PresetLastNDays     PresetType = "lastNDays"
	PresetQuarterToDate PresetType = "quarterToDate"
	PresetLastNYears    PresetType = "lastNYears"
)

type DataSourceMode string

const (
	ModeMock DataSourceMode = "mock"
	ModeAPI  DataSourceMode = "api"
	ModeSQL  DataSourceMode = "sql"
)

type ExportType string

const (
	ExportCSV        ExportType = "csv"
	ExportExcel      ExportType = "excel"
	ExportPDF        ExportType = "pdf"
	ExportQuickBooks ExportType = "quickbooks"
	ExportFMCSA      ExportType = "fmcsa"
)

// AllExportTypes lists every export type the export service must handle
var AllExportTypes = []ExportType{ExportCSV, ExportExcel, ExportPDF, ExportQuickBooks, ExportFMCSA}

type ColumnDef struct {
	Field     string  `json:"field"`
	Header    string  `json:"header"`
	HeaderKey string  `json:"headerKey,omitempty"`
	Width     float64 `json:"width,omitempty"`

	// Renderer is a display-only transform; exporters always emit raw values
	Renderer func(Row) string `json:"-"`
}

type FilterOption struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	LabelKey string `json:"labelKey,omitempty"`
}

type PresetSpec struct {
	Type PresetType `json:"type"`
	N    int        `json:"n,omitempty"`
}

type PresetOption struct {
	Key      string     `json:"key"`
	Label    string     `json:"label,omitempty"`
	LabelKey string     `json:"labelKey,omitempty"`
	Preset   PresetSpec `json:"preset"`
}

// FilterDef describes how a field may be filtered. Which of the optional
// fields apply depends on Type.
type FilterDef struct {
	Type     FilterType `json:"type"`
	Field    string     `json:"field"`
	Label    string     `json:"label,omitempty"`
	LabelKey string     `json:"labelKey,omitempty"`

	// select
	Options            []FilterOption `json:"options,omitempty"`
	Multiple           bool           `json:"multiple,omitempty"`
	IncludeEmptyOption bool           `json:"includeEmptyOption,omitempty"`

	// date
	Presets []PresetOption `json:"presets,omitempty"`
}

// FilterValue is the current value of one filter. Select filters use
// Selected (or Text for a single value), text filters use Text and date
// filters use Start, End and Preset.
type FilterValue struct {
	Selected []string    `json:"selected,omitempty"`
	Text     string      `json:"text,omitempty"`
	Start    string      `json:"start,omitempty"`
	End      string      `json:"end,omitempty"`
	Preset   *PresetSpec `json:"preset,omitempty"`
}

// UnmarshalJSON accepts a bare string, an array of strings or an object.
func (v *FilterValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = FilterValue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FilterValue{Text: s}
		return nil
	case '[':
		var values []interface{}
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		selected := make([]string, 0, len(values))
		for _, item := range values {
			if item == nil {
				continue
			}
			selected = append(selected, fmt.Sprint(item))
		}
		*v = FilterValue{Selected: selected}
		return nil
	case '{':
		type plain FilterValue
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*v = FilterValue(p)
		return nil
	default:
		// numbers and booleans select a single option
		*v = FilterValue{Text: string(data)}
		return nil
	}
}

// IsEmpty reports whether the value carries no constraint at all
func (v FilterValue) IsEmpty() bool {
	if strings.TrimSpace(v.Text) != "" || v.Start != "" || v.End != "" || v.Preset != nil {
		return false
	}
	for _, s := range v.Selected {
		if s != "" {
			return false
		}
	}
	return true
}

// FilterState maps a filter field to its current value
type FilterState map[string]FilterValue

type DataSourceSpec struct {
	Mode     DataSourceMode    `json:"mode"`
	MockData []Row             `json:"mockData,omitempty"`
	URL      string            `json:"url,omitempty"`
	Method   string            `json:"method,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	RowsPath string            `json:"rowsPath,omitempty"`
	// TotalPath locates the total row count in server-paginated responses.
	// Defaults to a top-level "total" property.
	TotalPath string `json:"totalPath,omitempty"`
	Query    string            `json:"query,omitempty"`

	Transform func(payload interface{}) []Row `json:"-"`
}

type ServerFlags struct {
	Filtering  bool `json:"filtering"`
	Sorting    bool `json:"sorting"`
	Pagination bool `json:"pagination"`
}

type SortState struct {
	Field     string `json:"field,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Active reports whether a sort field is set
func (s SortState) Active() bool {
	return s.Field != ""
}

// Desc reports whether the sort runs in descending order
func (s SortState) Desc() bool {
	return strings.EqualFold(s.Direction, "desc")
}

// PaginationState uses a zero-based page index
type PaginationState struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type ExcelStyle struct {
	SheetName  string `json:"sheetName,omitempty"`
	HeaderBold *bool  `json:"headerBold,omitempty"`
	HeaderFill string `json:"headerFill,omitempty"`
}

type PDFStyle struct {
	Title           string  `json:"title,omitempty"`
	TitleKey        string  `json:"titleKey,omitempty"`
	TitleFontSize   float64 `json:"titleFontSize,omitempty"`
	FontSize        float64 `json:"fontSize,omitempty"`
	Orientation     string  `json:"orientation,omitempty"`
	HeaderFill      []int   `json:"headerFill,omitempty"`
	HeaderTextColor []int   `json:"headerTextColor,omitempty"`
	BodyTextColor   []int   `json:"bodyTextColor,omitempty"`
	StripeFill      []int   `json:"stripeFill,omitempty"`
}

type ExportStyles struct {
	Excel ExcelStyle `json:"excel"`
	PDF   PDFStyle   `json:"pdf"`
	FMCSA PDFStyle   `json:"fmcsa"`
}

type ExportOptions struct {
	Types             []ExportType      `json:"types"`
	FileNameBase      string            `json:"fileNameBase"`
	Styles            ExportStyles      `json:"styles"`
	QuickBooksMapping map[string]string `json:"quickBooksMapping,omitempty"`
}

// TableConfig is the declarative description of one table view
type TableConfig struct {
	Name       string         `json:"name"`
	Title      string         `json:"title,omitempty"`
	TitleKey   string         `json:"titleKey,omitempty"`
	RowKey     string         `json:"rowKey,omitempty"`
	DataSource DataSourceSpec `json:"dataSource"`
	Server     ServerFlags    `json:"server"`
	Columns    []ColumnDef    `json:"columns"`
	Filters    []FilterDef    `json:"filters"`
	Export     ExportOptions  `json:"export"`
}

// HasExport reports whether the table offers the given export type
func (c *TableConfig) HasExport(t ExportType) bool {
	for _, configured := range c.Export.Types {
		if configured == t {
			return true
		}
	}
	return false
}

// Artifact is a produced export file
type Artifact struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}
