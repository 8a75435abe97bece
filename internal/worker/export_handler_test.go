package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"datatable-web/internal/config"
	"datatable-web/internal/models"
	"datatable-web/internal/repository"
	"datatable-web/internal/service"
	"datatable-web/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingFetcher struct{}

func (failingFetcher) FetchRows(context.Context, service.FetchRequest) ([]models.Row, error) {
	return nil, errors.New("upstream unavailable")
}

func newTestHandler(t *testing.T, fetcher service.RowFetcher) (*ExportTaskHandler, *repository.ExportRepository) {
	t.Helper()
	return newTestHandlerFor(t, inspectionsTable(), fetcher)
}

func inspectionsTable() *models.TableConfig {
	return &models.TableConfig{
		Name: "inspections",
		DataSource: models.DataSourceSpec{
			Mode: models.ModeMock,
			MockData: []models.Row{
				{"id": 1, "carrier": "Acme", "status": "Active"},
				{"id": 2, "carrier": "Blue Line", "status": "Inactive"},
				{"id": 3, "carrier": "Northwind", "status": "Active"},
			},
		},
		Columns: []models.ColumnDef{
			{Field: "id", Header: "ID"},
			{Field: "carrier", Header: "Carrier"},
		},
		Filters: []models.FilterDef{{Type: models.FilterSelect, Field: "status"}},
		Export:  models.ExportOptions{Types: []models.ExportType{models.ExportCSV}},
	}
}

func newTestHandlerFor(t *testing.T, table *models.TableConfig, fetcher service.RowFetcher) (*ExportTaskHandler, *repository.ExportRepository) {
	t.Helper()

	tables, err := config.NewTableRegistry(table)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := repository.NewExportRepository(client, time.Hour)

	logger, _ := test.NewNullLogger()
	labels := utils.NewLabels(nil)
	if fetcher == nil {
		fetcher = service.NewDataSourceAdapter(logger)
	}
	handler := NewExportTaskHandler(tables, fetcher, service.NewExportService(labels, logger, nil), store, labels, logger)
	return handler, store
}

func queueJob(t *testing.T, store *repository.ExportRepository, req models.ExportRequest) *asynq.Task {
	t.Helper()
	require.NoError(t, store.SaveJob(context.Background(), &models.ExportJob{
		ID:     req.JobID,
		Table:  req.Table,
		Type:   req.Type,
		Status: models.ExportStatusQueued,
	}))
	task, err := NewExportTask(req)
	require.NoError(t, err)
	return task
}

func TestExportTaskCompletes(t *testing.T) {
	handler, store := newTestHandler(t, nil)
	ctx := context.Background()

	task := queueJob(t, store, models.ExportRequest{
		JobID:   "job-1",
		Table:   "inspections",
		Type:    models.ExportCSV,
		Filters: models.FilterState{"status": {Text: "Active"}},
		Sort:    models.SortState{Field: "carrier", Direction: "desc"},
	})
	assert.Equal(t, TypeExportGenerate, task.Type())

	require.NoError(t, handler.Handle(ctx, task))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusCompleted, job.Status)
	assert.Equal(t, "inspections.csv", job.FileName)

	artifact, err := store.GetArtifact(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "\"ID\",\"Carrier\"\n\"3\",\"Northwind\"\n\"1\",\"Acme\"\n", string(artifact.Data))
}

func TestExportTaskUsesSelection(t *testing.T) {
	handler, store := newTestHandler(t, nil)
	ctx := context.Background()

	task := queueJob(t, store, models.ExportRequest{
		JobID:    "job-2",
		Table:    "inspections",
		Type:     models.ExportCSV,
		Filters:  models.FilterState{"status": {Text: "Active"}},
		Selected: []string{"2"},
	})
	require.NoError(t, handler.Handle(ctx, task))

	artifact, err := store.GetArtifact(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, "\"ID\",\"Carrier\"\n\"2\",\"Blue Line\"\n", string(artifact.Data))
}

func TestExportTaskFailures(t *testing.T) {
	tests := []struct {
		name    string
		fetcher service.RowFetcher
		req     models.ExportRequest
	}{
		{
			name: "unknown table",
			req:  models.ExportRequest{JobID: "job-3", Table: "trucks", Type: models.ExportCSV},
		},
		{
			name: "type not offered",
			req:  models.ExportRequest{JobID: "job-4", Table: "inspections", Type: models.ExportPDF},
		},
		{
			name:    "fetch error",
			fetcher: failingFetcher{},
			req:     models.ExportRequest{JobID: "job-5", Table: "inspections", Type: models.ExportCSV},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, store := newTestHandler(t, tt.fetcher)
			ctx := context.Background()

			err := handler.Handle(ctx, queueJob(t, store, tt.req))
			require.Error(t, err)
			assert.True(t, errors.Is(err, asynq.SkipRetry))

			job, err := store.GetJob(ctx, tt.req.JobID)
			require.NoError(t, err)
			assert.Equal(t, models.ExportStatusFailed, job.Status)
			assert.NotEmpty(t, job.Error)

			_, err = store.GetArtifact(ctx, tt.req.JobID)
			assert.ErrorIs(t, err, repository.ErrExportNotFound)
		})
	}
}

func TestExportTaskBadPayload(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	err := handler.Handle(context.Background(), asynq.NewTask(TypeExportGenerate, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

// pagingFetcher returns one page of rows per call, as a server-paginated
// api would
type pagingFetcher struct {
	rows  []models.Row
	calls int
}

func (f *pagingFetcher) FetchRows(_ context.Context, req service.FetchRequest) ([]models.Row, error) {
	f.calls++
	return service.PaginateRows(f.rows, req.Pagination), nil
}

func TestExportTaskWalksServerPages(t *testing.T) {
	rows := make([]models.Row, 1000)
	for i := range rows {
		rows[i] = models.Row{"id": i + 1, "carrier": "Carrier"}
	}
	fetcher := &pagingFetcher{rows: rows}

	table := inspectionsTable()
	table.DataSource = models.DataSourceSpec{Mode: models.ModeAPI, URL: "https://api.example.com/inspections"}
	table.Server = models.ServerFlags{Pagination: true}
	handler, store := newTestHandlerFor(t, table, fetcher)
	ctx := context.Background()

	task := queueJob(t, store, models.ExportRequest{JobID: "job-paged", Table: "inspections", Type: models.ExportCSV})
	require.NoError(t, handler.Handle(ctx, task))

	artifact, err := store.GetArtifact(ctx, "job-paged")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(artifact.Data), "\n"), "\n")
	assert.Len(t, lines, 1001)
	assert.Equal(t, `"1000","Carrier"`, lines[1000])
	assert.Equal(t, 3, fetcher.calls)
}
