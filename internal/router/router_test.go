package router

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"datatable-web/internal/config"
	"datatable-web/internal/models"
	"datatable-web/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	tables, err := config.NewTableRegistry(&models.TableConfig{
		Name:       "carriers",
		DataSource: models.DataSourceSpec{MockData: []models.Row{{"id": 1, "name": "Acme"}}},
		Columns:    []models.ColumnDef{{Field: "name", Header: "Name"}},
		Export:     models.ExportOptions{Types: []models.ExportType{models.ExportCSV}},
	})
	require.NoError(t, err)

	app := fiber.New()
	Setup(app, Dependencies{
		Config: &config.Config{AppName: "Data Table", FetchTimeout: time.Second, ExportTTL: time.Hour},
		Tables: tables,
		Labels: utils.NewLabels(nil),
	})
	return app
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["tables"])
}

func TestRoutesRegistered(t *testing.T) {
	app := newTestApp(t)

	registered := make(map[string]bool)
	for _, r := range app.GetRoutes(true) {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /",
		"GET /tables/:name",
		"GET /api/v1/tables",
		"GET /api/v1/tables/:name",
		"GET /api/v1/tables/:name/rows",
		"POST /api/v1/tables/:name/export",
		"POST /api/v1/tables/:name/export/jobs",
		"GET /api/v1/exports/:id",
		"GET /api/v1/exports/:id/download",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestBackgroundExportsNeedRedis(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/tables/carriers/export/jobs", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/tables/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
