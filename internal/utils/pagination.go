package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"datatable-web/internal/models"

	"github.com/gofiber/fiber/v2"
)

const DefaultLimit = 25

// PaginationParams represents the table query parameters of a rows request
type PaginationParams struct {
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
	SortBy  string             `json:"sort_by"`
	SortDir string             `json:"sort_dir"`
	Filters models.FilterState `json:"filters"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
	From        int   `json:"from"`
	To          int   `json:"to"`
	HasMore     bool  `json:"has_more"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// GetPaginationParams extracts paging, sorting and filter parameters from
// the query string. Filters are passed as a JSON object in "filters".
func GetPaginationParams(c *fiber.Ctx) (PaginationParams, error) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(DefaultLimit)))
	sortBy := c.Query("sort_by", "")
	sortDir := c.Query("sort_dir", "asc")

	if page < 1 {
		page = 1
	}

	isValidLimit := false
	for _, validLimit := range GetLimitOptions() {
		if limit == validLimit {
			isValidLimit = true
			break
		}
	}
	if !isValidLimit {
		limit = DefaultLimit
	}

	if sortDir != "asc" && sortDir != "desc" {
		sortDir = "asc"
	}

	params := PaginationParams{
		Page:    page,
		Limit:   limit,
		SortBy:  sortBy,
		SortDir: sortDir,
	}

	if raw := c.Query("filters", ""); raw != "" {
		var filters models.FilterState
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return params, fmt.Errorf("invalid filters parameter: %w", err)
		}
		params.Filters = filters
	}

	return params, nil
}

// SortState converts the sort parameters into table sort state
func (p PaginationParams) SortState() models.SortState {
	if p.SortBy == "" {
		return models.SortState{}
	}
	return models.SortState{Field: p.SortBy, Direction: p.SortDir}
}

// PaginationState converts the 1-based page into table pagination state
func (p PaginationParams) PaginationState() models.PaginationState {
	return models.PaginationState{Page: p.Page - 1, PageSize: p.Limit}
}

// CalculatePagination calculates pagination metadata
func CalculatePagination(page, limit int, total int64) PaginationMeta {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	lastPage := int(math.Ceil(float64(total) / float64(limit)))
	from := (page-1)*limit + 1
	to := page * limit

	if total == 0 {
		from = 0
		to = 0
	} else if to > int(total) {
		to = int(total)
	}
	if from > int(total) {
		from = 0
		to = 0
	}

	return PaginationMeta{
		CurrentPage: page,
		PerPage:     limit,
		Total:       total,
		LastPage:    lastPage,
		From:        from,
		To:          to,
		HasMore:     page < lastPage,
	}
}

// PaginatedResponseBuilder creates a paginated response
func PaginatedResponseBuilder(c *fiber.Ctx, message string, data interface{}, pagination PaginationMeta) error {
	response := PaginatedResponse{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: pagination,
	}

	return c.JSON(response)
}

// GetLimitOptions returns available limit options
func GetLimitOptions() []int {
	return []int{10, 25, 50, 100}
}
