package service

import (
	"strings"
	"time"

	"datatable-web/internal/models"
	"datatable-web/internal/utils"

	"github.com/sirupsen/logrus"
)

type filterMatcher func(s *FilterService, row models.Row, def models.FilterDef, value models.FilterValue, now time.Time) bool

// filterMatchers has one entry per models.AllFilterTypes member
var filterMatchers = map[models.FilterType]filterMatcher{
	models.FilterSelect: (*FilterService).matchSelect,
	models.FilterText:   (*FilterService).matchText,
	models.FilterDate:   (*FilterService).matchDate,
}

type FilterService struct {
	logger *logrus.Logger
}

func NewFilterService(logger *logrus.Logger) *FilterService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &FilterService{logger: logger}
}

// Apply returns the rows passing every active filter, in their original order
func (s *FilterService) Apply(rows []models.Row, defs []models.FilterDef, state models.FilterState, now time.Time) []models.Row {
	if !hasActiveFilter(defs, state) {
		return rows
	}

	filtered := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		if s.Passes(row, defs, state, now) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// Passes reports whether row satisfies every filter definition that has a
// value in state. Filters without a value and unknown filter types pass.
func (s *FilterService) Passes(row models.Row, defs []models.FilterDef, state models.FilterState, now time.Time) bool {
	for _, def := range defs {
		value, ok := state[def.Field]
		if !ok || value.IsEmpty() {
			continue
		}

		match, known := filterMatchers[def.Type]
		if !known {
			s.logger.WithField("type", def.Type).WithField("field", def.Field).Debug("Ignoring filter of unknown type")
			continue
		}
		if !match(s, row, def, value, now) {
			return false
		}
	}
	return true
}

func (s *FilterService) matchSelect(row models.Row, def models.FilterDef, value models.FilterValue, _ time.Time) bool {
	selected := SelectedValues(value)
	if len(selected) == 0 {
		return true
	}

	cell := FormatValue(row[def.Field])
	for _, v := range selected {
		if v == cell {
			return true
		}
	}
	return false
}

func (s *FilterService) matchText(row models.Row, def models.FilterDef, value models.FilterValue, _ time.Time) bool {
	query := strings.TrimSpace(value.Text)
	if query == "" {
		return true
	}
	cell := strings.ToLower(FormatValue(row[def.Field]))
	return strings.Contains(cell, strings.ToLower(query))
}

func (s *FilterService) matchDate(row models.Row, def models.FilterDef, value models.FilterValue, now time.Time) bool {
	bounds := EffectiveBounds(value, now)
	if bounds.IsZero() {
		return true
	}

	t, ok := ParseDateValue(row[def.Field], now.Location())
	if !ok {
		return false
	}
	if bounds.Start != nil && t.Before(*bounds.Start) {
		return false
	}
	if bounds.End != nil && t.After(*bounds.End) {
		return false
	}
	return true
}

// SelectedValues normalizes a select filter value into its non-empty
// selected set. A single value in Text counts as a one-element set and the
// empty option ("") means no constraint.
func SelectedValues(value models.FilterValue) []string {
	var selected []string
	for _, v := range value.Selected {
		if v != "" {
			selected = append(selected, v)
		}
	}
	if value.Text != "" {
		selected = append(selected, value.Text)
	}
	return selected
}

// EffectiveBounds resolves a date filter value. A preset that resolves to
// concrete bounds takes precedence over explicit start/end; otherwise start
// is read as start of day and end as end of day. Unparseable explicit bounds
// are ignored.
func EffectiveBounds(value models.FilterValue, now time.Time) DateBounds {
	if value.Preset != nil {
		if bounds := ResolvePreset(value.Preset, now); !bounds.IsZero() {
			return bounds
		}
	}

	var bounds DateBounds
	if t, ok := parseDateString(value.Start, now.Location()); ok {
		start := startOfDay(t)
		bounds.Start = &start
	}
	if t, ok := parseDateString(value.End, now.Location()); ok {
		end := endOfDay(t)
		bounds.End = &end
	}
	return bounds
}

func hasActiveFilter(defs []models.FilterDef, state models.FilterState) bool {
	for _, def := range defs {
		if value, ok := state[def.Field]; ok && !value.IsEmpty() {
			return true
		}
	}
	return false
}
