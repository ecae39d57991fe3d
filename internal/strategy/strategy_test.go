package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"FundRadar/internal/model"
)

func TestMapRiskTier_AllBoundaries(t *testing.T) {
	tests := []struct {
		stdDev float64
		tier   int
	}{
		{0, 1},
		{0.0029, 1},
		{0.003, 2},
		{0.0069, 2},
		{0.007, 3},
		{0.0149, 3},
		{0.015, 4},
		{0.0249, 4},
		{0.025, 5},
		{0.4, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tier, mapRiskTier(tt.stdDev), "stdDev %.4f", tt.stdDev)
	}
}

func TestRiskTier_ShortSeriesIsNeutral(t *testing.T) {
	assert.Equal(t, NeutralRiskTier, RiskTier(nil))
	assert.Equal(t, NeutralRiskTier, RiskTier([]float64{0.5, -0.5, 0.5, -0.5}))
}

func TestRiskTier_FromVolatility(t *testing.T) {
	flat := []float64{0.001, 0.001, 0.001, 0.001, 0.001}
	assert.Equal(t, 1, RiskTier(flat))

	wild := []float64{0.05, -0.05, 0.05, -0.05, 0.05, -0.05}
	assert.Equal(t, HighestRiskTier, RiskTier(wild))

	// Alternating +/-0.01 has a sample std of about 0.0107.
	mid := []float64{0.01, -0.01, 0.01, -0.01, 0.01, -0.01}
	assert.Equal(t, 3, RiskTier(mid))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		composition map[string]float64
		typeLabel   string
		want        model.Category
	}{
		{"dominant equity", map[string]float64{"stock": 60}, "", model.CategoryEquity},
		{"equity split across fields", map[string]float64{"stock": 30, "foreign_equity": 25}, "", model.CategoryEquity},
		{"leading without runner-up", map[string]float64{"stock": 30, "government_bond": 10}, "", model.CategoryEquity},
		{"leading with runner-up", map[string]float64{"stock": 30, "government_bond": 16}, "", model.CategoryMixed},
		{"runner-up at threshold", map[string]float64{"stock": 30, "treasury_bill": 15}, "", model.CategoryMixed},
		{"equity thirty with bond twenty", map[string]float64{"stock": 30, "government_bond": 20}, "", model.CategoryMixed},
		{"no dominant bucket", map[string]float64{"stock": 20, "precious_metals": 20, "repo": 20, "exchange_traded_fund": 20}, "", model.CategoryVariable},
		{"money market", map[string]float64{"reverse_repo": 40, "tmm": 35, "term_deposit_tl": 20}, "", model.CategoryMoneyMarket},
		{"precious metals", map[string]float64{"precious_metals": 80, "repo": 5}, "", model.CategoryPreciousMetals},
		{"participation", map[string]float64{"participation_account": 30, "government_lease_certificates": 40}, "", model.CategoryParticipation},
		{"fund of funds", map[string]float64{"fund_participation_certificate": 55}, "", model.CategoryFundOfFunds},
		{"etf", map[string]float64{"foreign_exchange_traded_funds": 51}, "", model.CategoryETF},
		{"all zero", map[string]float64{"stock": 0, "government_bond": 0}, "Hisse Senedi Fonu", model.CategoryOther},
		{"empty map", map[string]float64{}, "", model.CategoryOther},
		{"malformed weights", map[string]float64{"stock": math.NaN(), "repo": math.Inf(1), "tmm": -10}, "", model.CategoryOther},
		{"unknown fields only", map[string]float64{"derivatives": 70}, "", model.CategoryOther},
		{"field names are case-insensitive", map[string]float64{" Stock ": 70}, "", model.CategoryEquity},
		{"type label fallback", nil, "Borçlanma Araçları Fonu", model.CategoryDebt},
		{"foreign equity type label", nil, "Yabancı Hisse Senedi Fonu", model.CategoryEquity},
		{"unknown type label", nil, "Serbest Fon", model.CategoryOther},
		{"nothing at all", nil, "", model.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.composition, tt.typeLabel))
		})
	}
}

func TestClassify_TieBreakIsDeterministic(t *testing.T) {
	// Equity and Debt tie at 50: the earlier bucket wins every time.
	composition := map[string]float64{"government_bond": 50, "stock": 50}
	for i := 0; i < 20; i++ {
		assert.Equal(t, model.CategoryEquity, Classify(composition, ""))
	}

	// Debt and ETF tie at 30 with nothing else above 15: Mixed.
	assert.Equal(t, model.CategoryMixed, Classify(map[string]float64{"exchange_traded_fund": 30, "eurobonds": 30}, ""))
}

func TestBucketWeights(t *testing.T) {
	sums := BucketWeights(map[string]float64{
		"stock":           10,
		"foreign_equity":  5,
		"repo":            7,
		"reverse_repo":    3,
		"government_bond": -4,
	})
	assert.Equal(t, 15.0, sums[bucketEquity])
	assert.Equal(t, 10.0, sums[bucketMoneyMarket])
	assert.Equal(t, 0.0, sums[bucketDebt])
}

func TestGenerateSignal(t *testing.T) {
	f := model.Float
	tests := []struct {
		name     string
		g7, g30  *float64
		expected model.Signal
	}{
		{"all conditions", f(1), f(2), model.SignalBuy},
		{"no conditions", f(-1), f(-2), model.SignalSell},
		{"missing 7d", nil, f(5), model.SignalHold},
		{"missing 30d", f(5), nil, model.SignalHold},
		{"both missing", nil, nil, model.SignalHold},
		{"lagging short term", f(0.1), f(2), model.SignalHold},
		{"recovering", f(1), f(-2), model.SignalHold},
		{"flat", f(0), f(0), model.SignalSell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateSignal(tt.g7, tt.g30))
		})
	}
}
