package service

import (
	"sort"
	"strconv"
	"strings"

	"datatable-web/internal/models"
)

// SortRows returns a sorted copy of rows. Numbers compare numerically,
// everything else case-insensitively; empty values sort first ascending.
// The sort is stable so equal rows keep their fetched order.
func SortRows(rows []models.Row, sortState models.SortState) []models.Row {
	if !sortState.Active() || len(rows) < 2 {
		return rows
	}

	sorted := make([]models.Row, len(rows))
	copy(sorted, rows)

	desc := sortState.Desc()
	sort.SliceStable(sorted, func(i, j int) bool {
		c := compareValues(sorted[i][sortState.Field], sorted[j][sortState.Field])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return sorted
}

func compareValues(a, b interface{}) int {
	as, bs := FormatValue(a), FormatValue(b)
	switch {
	case as == "" && bs == "":
		return 0
	case as == "":
		return -1
	case bs == "":
		return 1
	}

	af, aErr := strconv.ParseFloat(as, 64)
	bf, bErr := strconv.ParseFloat(bs, 64)
	if aErr == nil && bErr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}

	return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
}

// PaginateRows returns the rows of a zero-based page. A non-positive page
// size returns every row.
func PaginateRows(rows []models.Row, page models.PaginationState) []models.Row {
	if page.PageSize <= 0 {
		return rows
	}
	p := page.Page
	if p < 0 {
		p = 0
	}

	start := p * page.PageSize
	if start >= len(rows) {
		return []models.Row{}
	}
	end := start + page.PageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// SelectRows keeps the rows whose key field is in keys, preserving the order
// of rows
func SelectRows(rows []models.Row, keyField string, keys []string) []models.Row {
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	selected := make([]models.Row, 0, len(keys))
	for _, row := range rows {
		if _, ok := wanted[FormatValue(row[keyField])]; ok {
			selected = append(selected, row)
		}
	}
	return selected
}
