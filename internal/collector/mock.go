package collector

import (
	"context"
	"math"
	"time"

	"FundRadar/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Rows  []model.RawObservation
	Err   error
	Calls int

	// Codes are used to generate synthetic history when Rows is nil.
	Codes []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistory(_ context.Context, start, end time.Time) ([]model.RawObservation, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Rows != nil {
		return m.Rows, nil
	}
	return generateMockRows(m.Codes, start, end), nil
}

var mockCompositions = []map[string]float64{
	{"stock": 85, "reverse_repo": 10, "other": 5},
	{"government_bond": 45, "private_sector_bonds": 20, "reverse_repo": 35},
	{"precious_metals": 90, "term_deposit_tl": 10},
	{"stock": 35, "government_bond": 25, "exchange_traded_fund": 20, "repo": 20},
}

// generateMockRows produces one row per weekday per code, with a slow drift
// and a small oscillation whose size grows with the code's position.
func generateMockRows(codes []string, start, end time.Time) []model.RawObservation {
	if len(codes) == 0 {
		codes = []string{"MCK", "MDB", "MGL", "MMX"}
	}
	var rows []model.RawObservation
	for ci, code := range codes {
		base := 1.0 + float64(ci)
		drift := 0.0005 * float64(ci%3-1)
		wobble := 0.002 * float64(ci+1)
		i := 0
		for d := model.NewDate(start).Time; !d.After(end); d = d.AddDate(0, 0, 1) {
			if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
				continue
			}
			p := base * (1 + drift*float64(i) + wobble*math.Sin(float64(i)))
			rows = append(rows, model.RawObservation{
				Code:          code,
				Date:          d,
				Price:         model.Float(p),
				Title:         code + " MOCK FUND",
				Composition:   mockCompositions[ci%len(mockCompositions)],
				InvestorCount: model.Float(float64(1000 * (ci + 1))),
				MarketValue:   model.Float(1e7 * float64(ci+1)),
			})
			i++
		}
	}
	return rows
}
