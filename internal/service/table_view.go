package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"datatable-web/internal/models"
	"datatable-web/internal/utils"

	"github.com/sirupsen/logrus"
)

// RowFetcher loads rows for a table view
type RowFetcher interface {
	FetchRows(ctx context.Context, req FetchRequest) ([]models.Row, error)
}

// PageFetcher is implemented by fetchers that also report the total row
// count of a server-paginated source
type PageFetcher interface {
	FetchPage(ctx context.Context, req FetchRequest) (FetchResult, error)
}

const (
	exportPageSize = 500
	maxExportPages = 1000
)

// TableSnapshot is the state a presentation layer renders
type TableSnapshot struct {
	Rows     []models.Row `json:"rows"`
	Total    int          `json:"total"`
	HasMore  bool         `json:"has_more"`
	Loading  bool         `json:"loading"`
	Error    string       `json:"error,omitempty"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// TableView owns the current rows, loading flag and error message of one
// configured table, together with the filter, sort, pagination and
// selection state that drive them. Every setter replaces state wholesale.
type TableView struct {
	cfg      *models.TableConfig
	fetcher  RowFetcher
	filters  *FilterService
	exporter *ExportService
	labels   utils.Labeler
	logger   *logrus.Logger
	now      func() time.Time

	mu         sync.Mutex
	source     models.DataSourceSpec
	state      models.FilterState
	sort       models.SortState
	pagination models.PaginationState
	selection  []string
	rows       []models.Row
	total      int
	allPages   bool
	loading    bool
	errMsg     string
	token      uint64
	lastKey    string
	cancel     context.CancelFunc
}

type TableViewOption func(*TableView)

func WithClock(now func() time.Time) TableViewOption {
	return func(v *TableView) { v.now = now }
}

func WithPageSize(size int) TableViewOption {
	return func(v *TableView) { v.pagination.PageSize = size }
}

// WithAllPages makes a server-paginated view walk every page on refresh, so
// the rows cover the whole filtered set. Used for exports.
func WithAllPages() TableViewOption {
	return func(v *TableView) { v.allPages = true }
}

func NewTableView(cfg *models.TableConfig, fetcher RowFetcher, exporter *ExportService, labels utils.Labeler, logger *logrus.Logger, opts ...TableViewOption) *TableView {
	if labels == nil {
		labels = utils.NewLabels(nil)
	}
	if logger == nil {
		logger = utils.GetLogger()
	}
	if exporter == nil {
		exporter = NewExportService(labels, logger, nil)
	}

	v := &TableView{
		cfg:        cfg,
		fetcher:    fetcher,
		filters:    NewFilterService(logger),
		exporter:   exporter,
		labels:     labels,
		logger:     logger,
		now:        time.Now,
		source:     cfg.DataSource,
		state:      models.FilterState{},
		pagination: models.PaginationState{PageSize: utils.DefaultLimit},
		rows:       []models.Row{},
		total:      -1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Title resolves the table title through the label catalog
func (v *TableView) Title() string {
	fallback := v.cfg.Title
	if fallback == "" {
		fallback = v.cfg.Name
	}
	return v.labels.Lookup(v.cfg.TitleKey, fallback, nil)
}

// Config returns the table configuration the view was built from
func (v *TableView) Config() *models.TableConfig {
	return v.cfg
}

// SetFilters replaces the filter state and refreshes when it changed
func (v *TableView) SetFilters(ctx context.Context, state models.FilterState) error {
	next := make(models.FilterState, len(state))
	for field, value := range state {
		next[field] = value
	}

	v.mu.Lock()
	v.state = next
	// filtered rows shift, so go back to the first page
	v.pagination.Page = 0
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// SetState replaces filter, sort and pagination state together and
// refreshes once
func (v *TableView) SetState(ctx context.Context, state models.FilterState, sortState models.SortState, page models.PaginationState) error {
	next := make(models.FilterState, len(state))
	for field, value := range state {
		next[field] = value
	}
	if page.Page < 0 {
		page.Page = 0
	}

	v.mu.Lock()
	v.state = next
	v.sort = sortState
	v.pagination = page
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// SetSort replaces the sort state and refreshes when it changed
func (v *TableView) SetSort(ctx context.Context, sortState models.SortState) error {
	v.mu.Lock()
	v.sort = sortState
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// SetPagination replaces the pagination state and refreshes when it changed
func (v *TableView) SetPagination(ctx context.Context, page models.PaginationState) error {
	if page.Page < 0 {
		page.Page = 0
	}
	v.mu.Lock()
	v.pagination = page
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// SetDataSource swaps the data source and refreshes when it changed
func (v *TableView) SetDataSource(ctx context.Context, source models.DataSourceSpec) error {
	v.mu.Lock()
	v.source = source
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// SetSelection replaces the selected row keys. It does not refetch.
func (v *TableView) SetSelection(keys []string) {
	selection := make([]string, len(keys))
	copy(selection, keys)

	v.mu.Lock()
	v.selection = selection
	v.mu.Unlock()
}

// Refresh fetches rows unless the inputs equal those of the last request
func (v *TableView) Refresh(ctx context.Context) error {
	return v.refresh(ctx, false)
}

// Reload fetches rows even if the inputs did not change
func (v *TableView) Reload(ctx context.Context) error {
	return v.refresh(ctx, true)
}

func (v *TableView) refresh(ctx context.Context, force bool) error {
	v.mu.Lock()
	req := v.fetchRequestLocked()
	key, err := refreshKey(req)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	if !force && key == v.lastKey {
		v.mu.Unlock()
		return nil
	}

	if v.cancel != nil {
		v.cancel()
	}
	v.token++
	token := v.token
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.lastKey = key
	v.loading = true
	v.mu.Unlock()

	result, err := v.fetch(fetchCtx, req)
	cancel()

	v.mu.Lock()
	defer v.mu.Unlock()

	if token != v.token {
		v.logger.WithField("table", v.cfg.Name).Debug("Discarding superseded fetch result")
		return nil
	}

	v.cancel = nil
	v.loading = false
	if err != nil {
		// previous rows stay visible; the same inputs may be retried
		v.lastKey = ""
		v.errMsg = v.labels.Lookup("table.errors.fetch", "Failed to load data: {{error}}", map[string]interface{}{
			"error": err.Error(),
		})
		v.logger.WithError(err).WithField("table", v.cfg.Name).Error("Failed to fetch rows")
		return err
	}

	if result.Rows == nil {
		result.Rows = []models.Row{}
	}
	v.rows = result.Rows
	v.total = result.Total
	v.errMsg = ""
	return nil
}

func (v *TableView) fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	if v.allPages && req.Server.Pagination {
		return v.fetchAllPages(ctx, req)
	}
	return fetchPage(ctx, v.fetcher, req)
}

func fetchPage(ctx context.Context, fetcher RowFetcher, req FetchRequest) (FetchResult, error) {
	if pf, ok := fetcher.(PageFetcher); ok {
		return pf.FetchPage(ctx, req)
	}
	rows, err := fetcher.FetchRows(ctx, req)
	if err != nil {
		return FetchResult{}, err
	}
	return FetchResult{Rows: rows, Total: -1}, nil
}

// fetchAllPages requests consecutive pages until the reported total is
// reached, or, without a total, until a short page comes back
func (v *TableView) fetchAllPages(ctx context.Context, req FetchRequest) (FetchResult, error) {
	size := req.Pagination.PageSize
	if size <= 0 {
		size = exportPageSize
	}

	all := []models.Row{}
	for page := 0; page < maxExportPages; page++ {
		req.Pagination = models.PaginationState{Page: page, PageSize: size}
		result, err := fetchPage(ctx, v.fetcher, req)
		if err != nil {
			return FetchResult{}, err
		}
		all = append(all, result.Rows...)

		done := len(result.Rows) == 0
		if result.Total >= 0 {
			done = done || len(all) >= result.Total
		} else {
			done = done || len(result.Rows) < size
		}
		if done {
			return FetchResult{Rows: all, Total: len(all)}, nil
		}
	}
	return FetchResult{}, fmt.Errorf("table %q has more than %d pages of %d rows", v.cfg.Name, maxExportPages, size)
}

func (v *TableView) fetchRequestLocked() FetchRequest {
	return FetchRequest{
		Source:     v.source,
		Filters:    v.cfg.Filters,
		State:      v.state,
		Sort:       v.sort,
		Pagination: v.pagination,
		Server:     v.cfg.Server,
	}
}

// refreshKey serializes the inputs that trigger a refetch so changes are
// detected by value
func refreshKey(req FetchRequest) (string, error) {
	data, err := json.Marshal(struct {
		Source     models.DataSourceSpec  `json:"source"`
		State      models.FilterState     `json:"state"`
		Sort       models.SortState       `json:"sort"`
		Pagination models.PaginationState `json:"pagination"`
	}{req.Source, req.State, req.Sort, req.Pagination})
	if err != nil {
		return "", fmt.Errorf("failed to serialize view state: %w", err)
	}
	return string(data), nil
}

// Snapshot returns the current page of visible rows along with the total
// row count, loading flag and error message. Concerns handled in server
// mode are taken as already applied to the fetched rows.
func (v *TableView) Snapshot() TableSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := TableSnapshot{
		Loading:  v.loading,
		Error:    v.errMsg,
		Page:     v.pagination.Page,
		PageSize: v.pagination.PageSize,
	}

	visible := v.visibleRowsLocked()
	if v.cfg.Server.Pagination && !v.allPages {
		// the fetched rows are one remote page
		offset := v.pagination.Page * v.pagination.PageSize
		snap.Rows = visible
		if v.total >= 0 {
			snap.Total = v.total
			snap.HasMore = offset+len(visible) < v.total
		} else {
			snap.Total = offset + len(visible)
			snap.HasMore = v.pagination.PageSize > 0 && len(visible) >= v.pagination.PageSize
		}
		return snap
	}

	snap.Rows = PaginateRows(visible, v.pagination)
	snap.Total = len(visible)
	snap.HasMore = v.pagination.PageSize > 0 && (v.pagination.Page+1)*v.pagination.PageSize < len(visible)
	return snap
}

// FilteredRows returns every row passing the current filters, in display
// order, across all pages
func (v *TableView) FilteredRows() []models.Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visibleRowsLocked()
}

func (v *TableView) visibleRowsLocked() []models.Row {
	rows := v.rows
	if !v.cfg.Server.Filtering {
		rows = v.filters.Apply(rows, v.cfg.Filters, v.state, v.now())
	}
	if !v.cfg.Server.Sorting {
		rows = SortRows(rows, v.sort)
	}
	return rows
}

// ExportTargets returns the selected rows when a selection exists and the
// filtered rows otherwise
func (v *TableView) ExportTargets() []models.Row {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.selection) > 0 {
		rows := v.rows
		if !v.cfg.Server.Sorting {
			rows = SortRows(rows, v.sort)
		}
		return SelectRows(rows, v.cfg.RowKey, v.selection)
	}
	return v.visibleRowsLocked()
}

// Export serializes the export targets. Types the table does not offer, or
// that no exporter handles, are ignored and yield a nil artifact.
func (v *TableView) Export(t models.ExportType) (*models.Artifact, error) {
	if !v.cfg.HasExport(t) || !v.exporter.Supports(t) {
		v.logger.WithField("table", v.cfg.Name).WithField("type", t).Warn("Ignoring unsupported export type")
		return nil, nil
	}
	return v.exporter.Export(t, v.ExportTargets(), v.cfg.Columns, v.cfg.Export)
}
