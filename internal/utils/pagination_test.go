package utils

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"datatable-web/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatePagination(t *testing.T) {
	meta := CalculatePagination(2, 25, 60)
	assert.Equal(t, PaginationMeta{
		CurrentPage: 2,
		PerPage:     25,
		Total:       60,
		LastPage:    3,
		From:        26,
		To:          50,
		HasMore:     true,
	}, meta)

	meta = CalculatePagination(3, 25, 60)
	assert.Equal(t, 51, meta.From)
	assert.Equal(t, 60, meta.To)
	assert.False(t, meta.HasMore)
}

func TestGetPaginationParams(t *testing.T) {
	app := fiber.New()
	var got PaginationParams
	app.Get("/rows", func(c *fiber.Ctx) error {
		params, err := GetPaginationParams(c)
		if err != nil {
			return ErrorResponse(c, fiber.StatusBadRequest, "bad", err)
		}
		got = params
		return c.SendStatus(fiber.StatusOK)
	})

	q := url.Values{}
	q.Set("page", "3")
	q.Set("limit", "50")
	q.Set("sort_by", "name")
	q.Set("sort_dir", "desc")
	q.Set("filters", `{"status":["Active"],"name":"acme"}`)

	resp, err := app.Test(httptest.NewRequest("GET", "/rows?"+q.Encode(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, 3, got.Page)
	assert.Equal(t, 50, got.Limit)
	assert.Equal(t, models.SortState{Field: "name", Direction: "desc"}, got.SortState())
	assert.Equal(t, models.PaginationState{Page: 2, PageSize: 50}, got.PaginationState())
	assert.Equal(t, []string{"Active"}, got.Filters["status"].Selected)
	assert.Equal(t, "acme", got.Filters["name"].Text)
}

func TestGetPaginationParamsDefaults(t *testing.T) {
	app := fiber.New()
	var got PaginationParams
	app.Get("/rows", func(c *fiber.Ctx) error {
		got, _ = GetPaginationParams(c)
		return nil
	})

	_, err := app.Test(httptest.NewRequest("GET", "/rows?page=-4&limit=7&sort_dir=sideways", nil))
	require.NoError(t, err)

	assert.Equal(t, 1, got.Page)
	assert.Equal(t, DefaultLimit, got.Limit)
	assert.Equal(t, "asc", got.SortDir)
	assert.Equal(t, models.SortState{}, got.SortState())
}

func TestGetPaginationParamsRejectsBadFilters(t *testing.T) {
	app := fiber.New()
	app.Get("/rows", func(c *fiber.Ctx) error {
		if _, err := GetPaginationParams(c); err != nil {
			return ErrorResponse(c, fiber.StatusBadRequest, "bad", err)
		}
		return nil
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/rows?filters=%7Bnope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
