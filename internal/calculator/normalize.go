package calculator

import (
	"errors"
	"math"
	"sort"

	"FundRadar/internal/model"
)

// MinAnalyzablePoints is the smallest cleaned series that yields a record.
const MinAnalyzablePoints = 2

// ErrNotAnalyzable is returned when fewer than MinAnalyzablePoints valid prices remain.
var ErrNotAnalyzable = errors.New("not enough valid prices")

type entry struct {
	point model.PricePoint
	raw   model.RawObservation
}

// Normalize cleans one fund's raw rows: rows without a positive finite price
// are dropped, a repeated date keeps the last row seen for it, and the result
// is sorted by date ascending.
func Normalize(code string, rows []model.RawObservation) (*model.ObservationSeries, error) {
	entries := make([]entry, 0, len(rows))
	byDate := make(map[int64]int, len(rows))

	for _, r := range rows {
		if !validPrice(r.Price) {
			continue
		}
		day := model.NewDate(r.Date).Time
		e := entry{point: model.PricePoint{Date: day, Price: *r.Price}, raw: r}
		if idx, ok := byDate[day.Unix()]; ok {
			entries[idx] = e
			continue
		}
		byDate[day.Unix()] = len(entries)
		entries = append(entries, e)
	}

	if len(entries) < MinAnalyzablePoints {
		return nil, ErrNotAnalyzable
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].point.Date.Before(entries[j].point.Date)
	})

	series := &model.ObservationSeries{
		Code:   code,
		Points: make([]model.PricePoint, len(entries)),
		Latest: entries[len(entries)-1].raw,
	}
	for i, e := range entries {
		series.Points[i] = e.point
	}
	return series, nil
}

func validPrice(p *float64) bool {
	if p == nil {
		return false
	}
	v := *p
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
