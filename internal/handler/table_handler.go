package handler

import (
	"time"

	"datatable-web/internal/config"
	"datatable-web/internal/middleware"
	"datatable-web/internal/models"
	"datatable-web/internal/service"
	"datatable-web/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type TableHandler struct {
	tables   *config.TableRegistry
	fetcher  service.RowFetcher
	exporter *service.ExportService
	labels   utils.Labeler
	logger   *logrus.Logger
	now      func() time.Time
}

func NewTableHandler(
	tables *config.TableRegistry,
	fetcher service.RowFetcher,
	exporter *service.ExportService,
	labels utils.Labeler,
	logger *logrus.Logger,
) *TableHandler {
	return &TableHandler{
		tables:   tables,
		fetcher:  fetcher,
		exporter: exporter,
		labels:   labels,
		logger:   logger,
		now:      time.Now,
	}
}

type tableSummary struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

type columnView struct {
	Field  string `json:"field"`
	Header string `json:"header"`
}

type filterView struct {
	Type     models.FilterType     `json:"type"`
	Field    string                `json:"field"`
	Label    string                `json:"label"`
	Multiple bool                  `json:"multiple,omitempty"`
	Options  []models.FilterOption `json:"options,omitempty"`
	Presets  []models.PresetOption `json:"presets,omitempty"`
}

type tableDescription struct {
	Name    string              `json:"name"`
	Title   string              `json:"title"`
	RowKey  string              `json:"row_key"`
	Server  models.ServerFlags  `json:"server"`
	Columns []columnView        `json:"columns"`
	Filters []filterView        `json:"filters"`
	Exports []models.ExportType `json:"exports"`
}

type rowsPayload struct {
	Table   string       `json:"table"`
	Title   string       `json:"title"`
	Rows    []models.Row `json:"rows"`
	Loading bool         `json:"loading"`
	Error   string       `json:"error,omitempty"`
}

func (h *TableHandler) newView(table *models.TableConfig, opts ...service.TableViewOption) *service.TableView {
	opts = append([]service.TableViewOption{service.WithClock(h.now)}, opts...)
	return service.NewTableView(table, h.fetcher, h.exporter, h.labels, h.logger, opts...)
}

// pageMeta builds the pagination block for a snapshot. A server-paginated
// source without a reported total only tells us whether a next page exists.
func pageMeta(params utils.PaginationParams, snapshot service.TableSnapshot) utils.PaginationMeta {
	meta := utils.CalculatePagination(params.Page, params.Limit, int64(snapshot.Total))
	if snapshot.HasMore && !meta.HasMore {
		meta.HasMore = true
		meta.LastPage = meta.CurrentPage + 1
	}
	return meta
}

func (h *TableHandler) summaries() []tableSummary {
	summaries := make([]tableSummary, 0)
	for _, name := range h.tables.Names() {
		table, err := h.tables.Get(name)
		if err != nil {
			continue
		}
		summaries = append(summaries, tableSummary{Name: name, Title: h.newView(table).Title()})
	}
	return summaries
}

func (h *TableHandler) ListTables(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, "Tables retrieved successfully", h.summaries())
}

func (h *TableHandler) GetTable(c *fiber.Ctx) error {
	table := middleware.Table(c)
	return utils.SuccessResponse(c, "Table retrieved successfully", h.describe(table))
}

func (h *TableHandler) describe(table *models.TableConfig) tableDescription {
	desc := tableDescription{
		Name:    table.Name,
		Title:   h.newView(table).Title(),
		RowKey:  table.RowKey,
		Server:  table.Server,
		Columns: make([]columnView, 0, len(table.Columns)),
		Filters: make([]filterView, 0, len(table.Filters)),
		Exports: make([]models.ExportType, 0, len(table.Export.Types)),
	}

	for _, col := range service.ResolveColumns(table.Columns, h.labels) {
		desc.Columns = append(desc.Columns, columnView{Field: col.Field, Header: col.Header})
	}

	for _, f := range table.Filters {
		fallback := f.Label
		if fallback == "" {
			fallback = f.Field
		}
		view := filterView{
			Type:     f.Type,
			Field:    f.Field,
			Label:    h.labels.Lookup(f.LabelKey, fallback, nil),
			Multiple: f.Multiple,
		}
		if f.IncludeEmptyOption {
			view.Options = append(view.Options, models.FilterOption{
				Value: "",
				Label: h.labels.Lookup("filters.all", "All", nil),
			})
		}
		for _, opt := range f.Options {
			opt.Label = h.labels.Lookup(opt.LabelKey, opt.Label, nil)
			view.Options = append(view.Options, opt)
		}
		for _, p := range f.Presets {
			p.Label = h.labels.Lookup(p.LabelKey, p.Label, nil)
			view.Presets = append(view.Presets, p)
		}
		desc.Filters = append(desc.Filters, view)
	}

	for _, t := range table.Export.Types {
		if h.exporter.Supports(t) {
			desc.Exports = append(desc.Exports, t)
		}
	}
	return desc
}

func (h *TableHandler) GetRows(c *fiber.Ctx) error {
	table := middleware.Table(c)

	params, err := utils.GetPaginationParams(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", err)
	}

	view := h.newView(table)
	if err := view.SetState(c.UserContext(), params.Filters, params.SortState(), params.PaginationState()); err != nil {
		snapshot := view.Snapshot()
		return utils.ErrorResponse(c, fiber.StatusBadGateway, snapshot.Error, err)
	}

	snapshot := view.Snapshot()
	pagination := pageMeta(params, snapshot)

	return utils.PaginatedResponseBuilder(c, "Rows retrieved successfully", rowsPayload{
		Table:   table.Name,
		Title:   view.Title(),
		Rows:    snapshot.Rows,
		Loading: snapshot.Loading,
		Error:   snapshot.Error,
	}, pagination)
}

type pageRow struct {
	Key   string
	Cells []string
}

// Index renders the list of configured tables
func (h *TableHandler) Index(c *fiber.Ctx) error {
	return c.Render("tables/list", fiber.Map{
		"Title":  h.labels.Lookup("tables.title", "Tables", nil),
		"Tables": h.summaries(),
	})
}

// Page renders one table as HTML. Column renderers apply here only.
func (h *TableHandler) Page(c *fiber.Ctx) error {
	table := middleware.Table(c)

	params, err := utils.GetPaginationParams(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	view := h.newView(table)
	// a failed fetch still renders, with the error banner
	_ = view.SetState(c.UserContext(), params.Filters, params.SortState(), params.PaginationState())
	snapshot := view.Snapshot()

	columns := service.ResolveColumns(table.Columns, h.labels)
	rows := make([]pageRow, 0, len(snapshot.Rows))
	for _, row := range snapshot.Rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if col.Renderer != nil {
				cells[i] = col.Renderer(row)
			} else {
				cells[i] = service.FormatValue(row[col.Field])
			}
		}
		rows = append(rows, pageRow{Key: service.FormatValue(row[table.RowKey]), Cells: cells})
	}

	return c.Render("tables/index", fiber.Map{
		"Title":        view.Title(),
		"Table":        h.describe(table),
		"Rows":         rows,
		"Error":        snapshot.Error,
		"Loading":      snapshot.Loading,
		"Pagination":   pageMeta(params, snapshot),
		"LimitOptions": utils.GetLimitOptions(),
		"Params":       params,
	})
}
