package service

import (
	"testing"
	"time"

	"datatable-web/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var filterNow = time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

func filterDefs() []models.FilterDef {
	return []models.FilterDef{
		{Type: models.FilterSelect, Field: "status"},
		{Type: models.FilterText, Field: "name"},
		{Type: models.FilterDate, Field: "created"},
	}
}

func newTestFilterService() *FilterService {
	logger, _ := test.NewNullLogger()
	return NewFilterService(logger)
}

func rowIDs(rows []models.Row) []interface{} {
	ids := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row["id"])
	}
	return ids
}

func TestFilterMatchersCoverEveryFilterType(t *testing.T) {
	for _, ft := range models.AllFilterTypes {
		_, ok := filterMatchers[ft]
		assert.True(t, ok, "no matcher for filter type %q", ft)
	}
	assert.Len(t, filterMatchers, len(models.AllFilterTypes))
}

func TestApplyConjunction(t *testing.T) {
	svc := newTestFilterService()
	rows := []models.Row{
		{"id": 1, "status": "Active", "name": "Acme Freight", "created": "2024-05-10"},
		// fails status only
		{"id": 2, "status": "Inactive", "name": "Acme Logistics", "created": "2024-05-10"},
		// fails name only
		{"id": 3, "status": "Active", "name": "Northwind", "created": "2024-05-10"},
		// fails date only
		{"id": 4, "status": "Active", "name": "acme haulers", "created": "2023-01-01"},
	}
	state := models.FilterState{
		"status":  {Selected: []string{"Active"}},
		"name":    {Text: "ACME"},
		"created": {Start: "2024-05-01", End: "2024-05-31"},
	}

	got := svc.Apply(rows, filterDefs(), state, filterNow)

	assert.Equal(t, []interface{}{1}, rowIDs(got))
	for _, row := range rows {
		assert.Equal(t, row["id"] == 1, svc.Passes(row, filterDefs(), state, filterNow), "row %v", row["id"])
	}
}

func TestApplyEmptyStateIsNoop(t *testing.T) {
	svc := newTestFilterService()
	rows := []models.Row{
		{"id": 3, "status": "x", "created": "not a date"},
		{"id": 1, "status": "y"},
		{"id": 2},
	}

	states := []models.FilterState{
		nil,
		{},
		{
			"status":  {Selected: []string{""}},
			"name":    {Text: "   "},
			"created": {},
		},
	}
	for _, state := range states {
		got := svc.Apply(rows, filterDefs(), state, filterNow)
		assert.Equal(t, rows, got)
	}
}

func TestMatchSelect(t *testing.T) {
	svc := newTestFilterService()
	defs := []models.FilterDef{{Type: models.FilterSelect, Field: "status"}}
	rows := []models.Row{
		{"id": 1, "status": "Active"},
		{"id": 2, "status": "Pending"},
		{"id": 3, "status": "Inactive"},
		{"id": 4, "status": 7},
	}

	tests := []struct {
		name  string
		value models.FilterValue
		want  []interface{}
	}{
		{"single value", models.FilterValue{Text: "Active"}, []interface{}{1}},
		{"multiple values", models.FilterValue{Selected: []string{"Active", "Pending"}}, []interface{}{1, 2}},
		{"numbers compare as strings", models.FilterValue{Text: "7"}, []interface{}{4}},
		{"empty option is no constraint", models.FilterValue{Selected: []string{""}}, []interface{}{1, 2, 3, 4}},
		{"exact match only", models.FilterValue{Text: "active"}, []interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Apply(rows, defs, models.FilterState{"status": tt.value}, filterNow)
			assert.Equal(t, tt.want, rowIDs(got))
		})
	}
}

func TestMatchText(t *testing.T) {
	svc := newTestFilterService()
	defs := []models.FilterDef{{Type: models.FilterText, Field: "name"}}
	rows := []models.Row{
		{"id": 1, "name": "Summit Carriers, Inc."},
		{"id": 2, "name": "Blue Line"},
		{"id": 3},
	}

	got := svc.Apply(rows, defs, models.FilterState{"name": {Text: "carriers"}}, filterNow)
	assert.Equal(t, []interface{}{1}, rowIDs(got))

	got = svc.Apply(rows, defs, models.FilterState{"name": {Text: "  line "}}, filterNow)
	assert.Equal(t, []interface{}{2}, rowIDs(got))
}

func TestMatchDateStrictness(t *testing.T) {
	svc := newTestFilterService()
	defs := []models.FilterDef{{Type: models.FilterDate, Field: "created"}}
	rows := []models.Row{
		{"id": 1, "created": "2024-05-10"},
		{"id": 2, "created": "garbage"},
		{"id": 3},
		{"id": 4, "created": "2024-05-20T10:00:00Z"},
	}

	t.Run("inactive filter keeps unparseable dates", func(t *testing.T) {
		got := svc.Apply(rows, defs, models.FilterState{"created": {}}, filterNow)
		assert.Equal(t, []interface{}{1, 2, 3, 4}, rowIDs(got))
	})

	t.Run("start only excludes unparseable dates", func(t *testing.T) {
		got := svc.Apply(rows, defs, models.FilterState{"created": {Start: "2024-05-01"}}, filterNow)
		assert.Equal(t, []interface{}{1, 4}, rowIDs(got))
	})

	t.Run("end bound is inclusive through end of day", func(t *testing.T) {
		got := svc.Apply(rows, defs, models.FilterState{"created": {End: "2024-05-10"}}, filterNow)
		assert.Equal(t, []interface{}{1}, rowIDs(got))
	})

	t.Run("start bound is inclusive from start of day", func(t *testing.T) {
		got := svc.Apply(rows, defs, models.FilterState{"created": {Start: "2024-05-20"}}, filterNow)
		assert.Equal(t, []interface{}{4}, rowIDs(got))
	})
}

func TestPresetOverridesExplicitBounds(t *testing.T) {
	svc := newTestFilterService()
	defs := []models.FilterDef{{Type: models.FilterDate, Field: "created"}}
	rows := []models.Row{
		{"id": 1, "created": "2024-05-14"},
		{"id": 2, "created": "2020-01-01"},
	}
	state := models.FilterState{"created": {
		Start:  "2019-01-01",
		End:    "2020-12-31",
		Preset: &models.PresetSpec{Type: models.PresetLastNDays, N: 7},
	}}

	got := svc.Apply(rows, defs, state, filterNow)
	assert.Equal(t, []interface{}{1}, rowIDs(got))

	// an unknown preset falls back to the explicit range
	state["created"] = models.FilterValue{
		Start:  "2019-01-01",
		End:    "2020-12-31",
		Preset: &models.PresetSpec{Type: "bogus"},
	}
	got = svc.Apply(rows, defs, state, filterNow)
	assert.Equal(t, []interface{}{2}, rowIDs(got))
}

func TestUnknownFilterTypePasses(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	svc := NewFilterService(logger)

	defs := []models.FilterDef{{Type: "range", Field: "amount"}}
	rows := []models.Row{{"id": 1, "amount": 10}}

	got := svc.Apply(rows, defs, models.FilterState{"amount": {Text: "5-8"}}, filterNow)
	assert.Equal(t, rows, got)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Ignoring filter of unknown type", hook.LastEntry().Message)
}

func TestEffectiveBounds(t *testing.T) {
	bounds := EffectiveBounds(models.FilterValue{Start: "2024-01-02", End: "nope"}, filterNow)
	require.NotNil(t, bounds.Start)
	assert.Nil(t, bounds.End)
	assert.Equal(t, time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), *bounds.Start)

	assert.True(t, EffectiveBounds(models.FilterValue{}, filterNow).IsZero())
}
