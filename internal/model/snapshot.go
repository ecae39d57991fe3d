package model

import "time"

// Signal is the momentum action derived from short and medium horizon returns.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Category is the composition-based classification of a fund.
type Category string

const (
	CategoryEquity         Category = "Equity"
	CategoryPreciousMetals Category = "Precious Metals"
	CategoryMoneyMarket    Category = "Money Market"
	CategoryDebt           Category = "Debt"
	CategoryParticipation  Category = "Participation"
	CategoryETF            Category = "ETF"
	CategoryFundOfFunds    Category = "Fund of Funds"
	CategoryMixed          Category = "Mixed"
	CategoryVariable       Category = "Variable"
	CategoryOther          Category = "Other"
)

// DerivedMetrics is the per-fund output record. Return fields are nil when
// the history does not reach far enough back.
type DerivedMetrics struct {
	Code           string   `json:"kod"`
	Title          string   `json:"isim"`
	Category       Category `json:"kategori"`
	LatestPrice    float64  `json:"fiyat"`
	DailyChangePct *float64 `json:"gunluk_degisim"`
	Return7dPct    *float64 `json:"getiri_1h"`
	Return30dPct   *float64 `json:"getiri_1a"`
	Return90dPct   *float64 `json:"getiri_3a"`
	ReturnYTDPct   *float64 `json:"getiri_ytd"`
	RiskTier       int      `json:"risk"`
	Signal         Signal   `json:"sinyal"`
	InvestorCount  int64    `json:"yatirimci"`
	PortfolioValue float64  `json:"portfoy_tl"`
}

// Snapshot is the ranked output of one run.
type Snapshot struct {
	AsOf        Date             `json:"guncelleme"`
	RecordCount int              `json:"fon_sayisi"`
	Records     []DerivedMetrics `json:"fonlar"`
}

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate truncates t to its calendar date in t's location, stored as UTC midnight.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
