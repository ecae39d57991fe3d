package pipeline

import (
	"math"
	"sort"
	"time"

	"FundRadar/internal/calculator"
	"FundRadar/internal/model"
	"FundRadar/internal/strategy"
)

// Derive normalizes one fund's rows and builds its record. It returns
// calculator.ErrNotAnalyzable when the fund has fewer than two valid prices.
func Derive(code string, rows []model.RawObservation, asOf time.Time) (*model.DerivedMetrics, error) {
	series, err := calculator.Normalize(code, rows)
	if err != nil {
		return nil, err
	}
	rec := Assemble(series, asOf)
	return &rec, nil
}

// Assemble combines returns, risk, category and signal for a normalized series.
func Assemble(s *model.ObservationSeries, asOf time.Time) model.DerivedMetrics {
	r7 := optional(calculator.HorizonReturn(s, asOf, calculator.Horizon7d))
	r30 := optional(calculator.HorizonReturn(s, asOf, calculator.Horizon30d))

	latest := s.Latest
	title := latest.Title
	if title == "" {
		title = s.Code
	}

	return model.DerivedMetrics{
		Code:           s.Code,
		Title:          title,
		Category:       strategy.Classify(latest.Composition, latest.TypeLabel),
		LatestPrice:    calculator.Round(s.LatestPrice(), 6),
		DailyChangePct: optional(calculator.DailyChange(s)),
		Return7dPct:    r7,
		Return30dPct:   r30,
		Return90dPct:   optional(calculator.HorizonReturn(s, asOf, calculator.Horizon90d)),
		ReturnYTDPct:   optional(calculator.YTDReturn(s, asOf)),
		RiskTier:       strategy.RiskTier(calculator.DailyReturns(s.Prices())),
		Signal:         strategy.GenerateSignal(r7, r30),
		InvestorCount:  investorCount(latest.InvestorCount),
		PortfolioValue: portfolioValue(latest.MarketValue),
	}
}

// Rank orders records by 30-day return, highest first. Records without a
// 30-day return go last; ties fall back to the fund code.
func Rank(records []model.DerivedMetrics) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Return30dPct, records[j].Return30dPct
		switch {
		case a == nil && b == nil:
			return records[i].Code < records[j].Code
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		default:
			return records[i].Code < records[j].Code
		}
	})
}

// BuildSnapshot ranks the records and wraps them with the run date.
func BuildSnapshot(asOf time.Time, records []model.DerivedMetrics) *model.Snapshot {
	if records == nil {
		records = []model.DerivedMetrics{}
	}
	Rank(records)
	return &model.Snapshot{
		AsOf:        model.NewDate(asOf),
		RecordCount: len(records),
		Records:     records,
	}
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func investorCount(v *float64) int64 {
	if v == nil || *v < 0 {
		return 0
	}
	return int64(*v)
}

func portfolioValue(v *float64) float64 {
	if v == nil || *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return calculator.Round(*v, 0)
}
