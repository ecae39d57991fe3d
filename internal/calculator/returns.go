package calculator

import (
	"sort"
	"time"

	"FundRadar/internal/model"
)

// Return horizons in calendar days.
const (
	Horizon7d  = 7
	Horizon30d = 30
	Horizon90d = 90
)

// HorizonReturn computes the percent return of the latest price against the
// last point dated on or before asOf minus days. ok is false when the series
// does not reach that far back.
func HorizonReturn(s *model.ObservationSeries, asOf time.Time, days int) (pct float64, ok bool) {
	target := model.NewDate(asOf).AddDate(0, 0, -days)
	pts := s.Points
	i := sort.Search(len(pts), func(i int) bool { return pts[i].Date.After(target) }) - 1
	if i < 0 {
		return 0, false
	}
	return PercentChange(s.LatestPrice(), pts[i].Price)
}

// YTDReturn measures from the first point on or after January 1 of asOf's year.
func YTDReturn(s *model.ObservationSeries, asOf time.Time) (pct float64, ok bool) {
	yearStart := time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	pts := s.Points
	i := sort.Search(len(pts), func(i int) bool { return !pts[i].Date.Before(yearStart) })
	if i == len(pts) {
		return 0, false
	}
	return PercentChange(s.LatestPrice(), pts[i].Price)
}

// DailyChange compares the last two points regardless of the calendar gap between them.
func DailyChange(s *model.ObservationSeries) (pct float64, ok bool) {
	n := len(s.Points)
	if n < 2 {
		return 0, false
	}
	return PercentChange(s.Points[n-1].Price, s.Points[n-2].Price)
}

// PercentChange returns (current-reference)/reference*100 rounded to 2 places.
func PercentChange(current, reference float64) (float64, bool) {
	if reference == 0 {
		return 0, false
	}
	return Round((current-reference)/reference*100, 2), true
}
