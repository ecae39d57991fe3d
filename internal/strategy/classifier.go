package strategy

import (
	"math"
	"sort"
	"strings"

	"FundRadar/internal/model"
)

// Classification thresholds, in percent of portfolio.
const (
	DominantWeight  = 50.0
	LeadingWeight   = 25.0
	SecondaryWeight = 15.0
)

type bucket int

const (
	bucketEquity bucket = iota
	bucketPreciousMetals
	bucketMoneyMarket
	bucketDebt
	bucketParticipation
	bucketETF
	bucketFundOfFunds
	bucketCount
)

// bucketLabels is also the tie-break order: the earlier bucket wins.
var bucketLabels = [bucketCount]model.Category{
	bucketEquity:         model.CategoryEquity,
	bucketPreciousMetals: model.CategoryPreciousMetals,
	bucketMoneyMarket:    model.CategoryMoneyMarket,
	bucketDebt:           model.CategoryDebt,
	bucketParticipation:  model.CategoryParticipation,
	bucketETF:            model.CategoryETF,
	bucketFundOfFunds:    model.CategoryFundOfFunds,
}

// compositionBuckets assigns composition field names to asset-class buckets.
// Fields not listed here (derivatives, other, real_estate_certificate, ...)
// count toward no bucket.
var compositionBuckets = map[string]bucket{
	"stock":          bucketEquity,
	"foreign_equity": bucketEquity,

	"precious_metals":     bucketPreciousMetals,
	"precious_metals_byf": bucketPreciousMetals,
	"precious_metals_kba": bucketPreciousMetals,
	"precious_metals_kks": bucketPreciousMetals,

	"repo":            bucketMoneyMarket,
	"reverse_repo":    bucketMoneyMarket,
	"tmm":             bucketMoneyMarket,
	"term_deposit":    bucketMoneyMarket,
	"term_deposit_tl": bucketMoneyMarket,
	"term_deposit_d":  bucketMoneyMarket,
	"term_deposit_au": bucketMoneyMarket,
	"bank_bills":      bucketMoneyMarket,

	"government_bond":                         bucketDebt,
	"treasury_bill":                           bucketDebt,
	"private_sector_bonds":                    bucketDebt,
	"commercial_paper":                        bucketDebt,
	"eurobonds":                               bucketDebt,
	"fx_payable_bills":                        bucketDebt,
	"foreign_currency_bills":                  bucketDebt,
	"government_bonds_and_bills_fx":           bucketDebt,
	"public_domestic_debt_instruments":        bucketDebt,
	"foreign_debt_instruments":                bucketDebt,
	"foreign_domestic_debt_instruments":       bucketDebt,
	"foreign_private_sector_debt_instruments": bucketDebt,
	"private_sector_foreign_debt_instruments": bucketDebt,
	"asset_backed_securities":                 bucketDebt,

	"participation_account":                          bucketParticipation,
	"participation_account_tl":                       bucketParticipation,
	"participation_account_d":                        bucketParticipation,
	"participation_account_au":                       bucketParticipation,
	"government_lease_certificates":                  bucketParticipation,
	"government_lease_certificates_tl":               bucketParticipation,
	"government_lease_certificates_d":                bucketParticipation,
	"government_lease_certificates_foreign":          bucketParticipation,
	"private_sector_lease_certificates":              bucketParticipation,
	"private_sector_international_lease_certificate": bucketParticipation,

	"exchange_traded_fund":          bucketETF,
	"foreign_exchange_traded_funds": bucketETF,

	"fund_participation_certificate":                bucketFundOfFunds,
	"foreign_investment_fund_participation_shares":  bucketFundOfFunds,
	"real_estate_investment_fund_participation":     bucketFundOfFunds,
	"venture_capital_investment_fund_participation": bucketFundOfFunds,
}

// fundTypeLabels maps TEFAS fund type names to categories. Used only when a
// fund carries no composition data at all.
var fundTypeLabels = []struct {
	Label    string
	Category model.Category
}{
	{"yabancı hisse senedi fonu", model.CategoryEquity},
	{"hisse senedi fonu", model.CategoryEquity},
	{"endeks fonu", model.CategoryEquity},
	{"karma fon", model.CategoryMixed},
	{"değişken fon", model.CategoryVariable},
	{"borçlanma araçları fonu", model.CategoryDebt},
	{"para piyasası fonu", model.CategoryMoneyMarket},
	{"kıymetli madenler fonu", model.CategoryPreciousMetals},
	{"katılım fonu", model.CategoryParticipation},
	{"fon sepeti fonu", model.CategoryFundOfFunds},
	{"borsa yatırım fonu", model.CategoryETF},
}

// BucketWeights sums the composition into per-bucket weights. Negative,
// NaN and infinite weights count as zero.
func BucketWeights(composition map[string]float64) [bucketCount]float64 {
	var sums [bucketCount]float64
	for field, w := range composition {
		b, ok := compositionBuckets[strings.ToLower(strings.TrimSpace(field))]
		if !ok || math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			continue
		}
		sums[b] += w
	}
	return sums
}

// Classify derives a category from the latest composition weights.
func Classify(composition map[string]float64, typeLabel string) model.Category {
	if composition == nil {
		return classifyTypeLabel(typeLabel)
	}

	sums := BucketWeights(composition)
	order := make([]bucket, bucketCount)
	total := 0.0
	for i := range order {
		order[i] = bucket(i)
		total += sums[i]
	}
	if total <= 0 {
		return model.CategoryOther
	}

	sort.SliceStable(order, func(i, j int) bool { return sums[order[i]] > sums[order[j]] })
	top, second := sums[order[0]], sums[order[1]]

	switch {
	case top >= DominantWeight:
		return bucketLabels[order[0]]
	case top >= LeadingWeight:
		if second >= SecondaryWeight {
			return model.CategoryMixed
		}
		return bucketLabels[order[0]]
	default:
		return model.CategoryVariable
	}
}

func classifyTypeLabel(raw string) model.Category {
	label := strings.ToLower(raw)
	if label == "" {
		return model.CategoryOther
	}
	for _, t := range fundTypeLabels {
		if strings.Contains(label, t.Label) {
			return t.Category
		}
	}
	return model.CategoryOther
}
