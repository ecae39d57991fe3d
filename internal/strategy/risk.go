package strategy

import "FundRadar/internal/calculator"

// Risk tier bounds. A tier applies while the volatility is below MaxStdDev;
// anything at or above the last bound is tier HighestRiskTier.
var RiskTiers = []struct {
	MaxStdDev float64
	Tier      int
}{
	{0.003, 1},
	{0.007, 2},
	{0.015, 3},
	{0.025, 4},
}

const (
	HighestRiskTier = 5
	NeutralRiskTier = 3

	// MinReturnsForRisk is the number of daily returns needed before the
	// volatility is trusted.
	MinReturnsForRisk = 5
)

// mapRiskTier maps a standard deviation of daily returns to a tier.
func mapRiskTier(stdDev float64) int {
	for _, t := range RiskTiers {
		if stdDev < t.MaxStdDev {
			return t.Tier
		}
	}
	return HighestRiskTier
}

// RiskTier scores the volatility of the full daily-return series.
func RiskTier(dailyReturns []float64) int {
	if len(dailyReturns) < MinReturnsForRisk {
		return NeutralRiskTier
	}
	return mapRiskTier(calculator.StdDev(dailyReturns))
}
