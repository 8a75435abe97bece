package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"datatable-web/internal/models"
	"datatable-web/internal/utils"

	"github.com/sirupsen/logrus"
)

// QueryTimeFormat is the normalized timestamp used for date bounds in
// outbound query strings
const QueryTimeFormat = "2006-01-02T15:04:05.000Z"

// RowQuerier runs a read-only query and returns its rows
type RowQuerier interface {
	QueryRows(ctx context.Context, query string) ([]models.Row, error)
}

// FetchRequest is everything a fetch depends on
type FetchRequest struct {
	Source     models.DataSourceSpec
	Filters    []models.FilterDef
	State      models.FilterState
	Sort       models.SortState
	Pagination models.PaginationState
	Server     models.ServerFlags
}

// FetchResult is one fetched batch of rows. Total is the row count the
// source reports across all pages, or -1 when it reports none.
type FetchResult struct {
	Rows  []models.Row
	Total int
}

type DataSourceAdapter struct {
	client  *http.Client
	querier RowQuerier
	timeout time.Duration
	now     func() time.Time
	logger  *logrus.Logger
}

type AdapterOption func(*DataSourceAdapter)

func WithHTTPClient(client *http.Client) AdapterOption {
	return func(a *DataSourceAdapter) { a.client = client }
}

func WithRowQuerier(q RowQuerier) AdapterOption {
	return func(a *DataSourceAdapter) { a.querier = q }
}

func WithFetchTimeout(d time.Duration) AdapterOption {
	return func(a *DataSourceAdapter) { a.timeout = d }
}

func WithAdapterClock(now func() time.Time) AdapterOption {
	return func(a *DataSourceAdapter) { a.now = now }
}

func NewDataSourceAdapter(logger *logrus.Logger, opts ...AdapterOption) *DataSourceAdapter {
	if logger == nil {
		logger = utils.GetLogger()
	}
	a := &DataSourceAdapter{
		client:  http.DefaultClient,
		timeout: 15 * time.Second,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchRows loads the rows described by req.Source
func (a *DataSourceAdapter) FetchRows(ctx context.Context, req FetchRequest) ([]models.Row, error) {
	result, err := a.FetchPage(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// FetchPage loads the rows described by req.Source together with the total
// the source reports, if any
func (a *DataSourceAdapter) FetchPage(ctx context.Context, req FetchRequest) (FetchResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var rows []models.Row
	var err error
	switch req.Source.Mode {
	case models.ModeMock:
		rows = req.Source.MockData
	case models.ModeAPI:
		return a.fetchAPI(ctx, req)
	case models.ModeSQL:
		rows, err = a.fetchSQL(ctx, req.Source)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMode, req.Source.Mode)
	}
	if err != nil {
		return FetchResult{}, err
	}
	return FetchResult{Rows: rows, Total: -1}, nil
}

func (a *DataSourceAdapter) fetchAPI(ctx context.Context, req FetchRequest) (FetchResult, error) {
	target, err := BuildRequestURL(req, a.now())
	if err != nil {
		return FetchResult{}, err
	}

	method := strings.ToUpper(req.Source.Method)
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return FetchResult{}, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Source.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return FetchResult{}, fmt.Errorf("failed to fetch rows: %w", err)
	}
	defer resp.Body.Close()

	a.logger.WithFields(logrus.Fields{
		"method":  method,
		"url":     target,
		"status":  resp.StatusCode,
		"latency": time.Since(start).String(),
	}).Debug("Fetched rows from api")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FetchResult{}, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, fmt.Errorf("failed to read response: %w", err)
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		a.logger.WithError(err).WithField("url", target).Warn("Response is not JSON, treating as empty")
		return FetchResult{Rows: []models.Row{}, Total: -1}, nil
	}

	return FetchResult{
		Rows:  ExtractRows(payload, req.Source),
		Total: ExtractTotal(payload, req.Source),
	}, nil
}

func (a *DataSourceAdapter) fetchSQL(ctx context.Context, source models.DataSourceSpec) ([]models.Row, error) {
	if source.Query == "" {
		return nil, ErrMissingQuery
	}
	if a.querier == nil {
		return nil, ErrNoQuerier
	}
	rows, err := a.querier.QueryRows(ctx, source.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	return rows, nil
}

// BuildRequestURL encodes the server-mode concerns of req into the query
// string of the configured url. Existing query parameters are kept.
func BuildRequestURL(req FetchRequest, now time.Time) (string, error) {
	if req.Source.URL == "" {
		return "", ErrMissingURL
	}
	u, err := url.Parse(req.Source.URL)
	if err != nil {
		return "", fmt.Errorf("invalid data source url: %w", err)
	}
	q := u.Query()

	if req.Server.Filtering {
		for _, def := range req.Filters {
			value, ok := req.State[def.Field]
			if !ok || value.IsEmpty() {
				continue
			}
			encodeFilter(q, def, value, now)
		}
	}

	if req.Server.Sorting && req.Sort.Active() {
		dir := "asc"
		if req.Sort.Desc() {
			dir = "desc"
		}
		q.Set("sortBy", req.Sort.Field)
		q.Set("sortDir", dir)
	}

	if req.Server.Pagination {
		page := req.Pagination.Page
		if page < 0 {
			page = 0
		}
		q.Set("page", strconv.Itoa(page+1))
		if req.Pagination.PageSize > 0 {
			q.Set("pageSize", strconv.Itoa(req.Pagination.PageSize))
		}
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

func encodeFilter(q url.Values, def models.FilterDef, value models.FilterValue, now time.Time) {
	switch def.Type {
	case models.FilterSelect:
		if selected := SelectedValues(value); len(selected) > 0 {
			q.Set(def.Field, strings.Join(selected, ","))
		}
	case models.FilterText:
		if strings.TrimSpace(value.Text) != "" {
			q.Set(def.Field, value.Text)
		}
	case models.FilterDate:
		bounds := EffectiveBounds(value, now)
		if bounds.Start != nil {
			q.Set(def.Field+"From", bounds.Start.UTC().Format(QueryTimeFormat))
		}
		if bounds.End != nil {
			q.Set(def.Field+"To", bounds.End.UTC().Format(QueryTimeFormat))
		}
	}
}

// ExtractRows normalizes a decoded response payload into rows. The
// configured transform wins, then rowsPath, then a bare array, then a "data"
// property. Anything else yields no rows.
func ExtractRows(payload interface{}, source models.DataSourceSpec) []models.Row {
	if source.Transform != nil {
		rows := source.Transform(payload)
		if rows == nil {
			return []models.Row{}
		}
		return rows
	}

	if source.RowsPath != "" {
		return toRows(lookupPath(payload, source.RowsPath))
	}

	if list, ok := payload.([]interface{}); ok {
		return toRows(list)
	}
	if obj, ok := payload.(map[string]interface{}); ok {
		return toRows(obj["data"])
	}
	return []models.Row{}
}

// ExtractTotal reads the reported row count from totalPath, or from a
// top-level "total" property. It returns -1 when no count is present.
func ExtractTotal(payload interface{}, source models.DataSourceSpec) int {
	path := source.TotalPath
	if path == "" {
		path = "total"
	}

	switch v := lookupPath(payload, path).(type) {
	case float64:
		if v >= 0 {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return -1
}

func lookupPath(payload interface{}, path string) interface{} {
	current := payload
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = obj[part]
	}
	return current
}

func toRows(v interface{}) []models.Row {
	list, ok := v.([]interface{})
	if !ok {
		return []models.Row{}
	}

	rows := make([]models.Row, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]interface{}); ok {
			rows = append(rows, models.Row(obj))
		}
	}
	return rows
}
