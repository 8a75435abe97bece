package service

import (
	"time"

	"datatable-web/internal/models"
)

// DateBounds is an inclusive range; a nil bound is unconstrained
type DateBounds struct {
	Start *time.Time
	End   *time.Time
}

// IsZero reports whether neither bound is set
func (b DateBounds) IsZero() bool {
	return b.Start == nil && b.End == nil
}

// ResolvePreset turns a relative preset into concrete bounds anchored at now.
// Unknown or nil presets resolve to no bounds.
func ResolvePreset(preset *models.PresetSpec, now time.Time) DateBounds {
	if preset == nil {
		return DateBounds{}
	}

	end := endOfDay(now)
	var start time.Time

	switch preset.Type {
	case models.PresetLastNDays:
		n := preset.N
		if n < 1 {
			n = 1
		}
		start = startOfDay(now.AddDate(0, 0, -(n - 1)))
	case models.PresetQuarterToDate:
		firstMonth := time.Month((int(now.Month())-1)/3*3 + 1)
		start = time.Date(now.Year(), firstMonth, 1, 0, 0, 0, 0, now.Location())
	case models.PresetLastNYears:
		n := preset.N
		if n < 0 {
			n = 0
		}
		start = startOfDay(addYears(now, -n))
	default:
		return DateBounds{}
	}

	return DateBounds{Start: &start, End: &end}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// addYears clamps to the last day of the month instead of overflowing,
// so Feb 29 minus one year is Feb 28.
func addYears(t time.Time, years int) time.Time {
	shifted := t.AddDate(years, 0, 0)
	if shifted.Day() != t.Day() {
		shifted = shifted.AddDate(0, 0, -shifted.Day())
	}
	return shifted
}
