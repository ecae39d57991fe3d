package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"FundRadar/internal/model"
)

const (
	DefaultTefasBaseURL = "https://www.tefas.gov.tr"

	historyInfoPath       = "/api/DB/BindHistoryInfo"
	historyAllocationPath = "/api/DB/BindHistoryAllocation"

	tefasDateLayout = "02.01.2006"
)

// tefasLocation is the zone TEFAS stamps its TARIH midnights in.
var tefasLocation = loadTefasLocation()

func loadTefasLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		return time.FixedZone("TRT", 3*60*60)
	}
	return loc
}

// allocationFields maps TEFAS allocation column codes to composition field names.
var allocationFields = map[string]string{
	"BB":    "bank_bills",
	"BYF":   "exchange_traded_fund",
	"D":     "other",
	"DB":    "fx_payable_bills",
	"DT":    "government_bond",
	"DÖT":   "foreign_currency_bills",
	"EUT":   "eurobonds",
	"FB":    "commercial_paper",
	"FKB":   "fund_participation_certificate",
	"GAS":   "real_estate_certificate",
	"GSYKB": "venture_capital_investment_fund_participation",
	"GYKB":  "real_estate_investment_fund_participation",
	"HB":    "treasury_bill",
	"HS":    "stock",
	"KBA":   "government_bonds_and_bills_fx",
	"KH":    "participation_account",
	"KHAU":  "participation_account_au",
	"KHD":   "participation_account_d",
	"KHTL":  "participation_account_tl",
	"KKS":   "government_lease_certificates",
	"KKSD":  "government_lease_certificates_d",
	"KKSTL": "government_lease_certificates_tl",
	"KKSYD": "government_lease_certificates_foreign",
	"KM":    "precious_metals",
	"KMBYF": "precious_metals_byf",
	"KMKBA": "precious_metals_kba",
	"KMKKS": "precious_metals_kks",
	"KİBD":  "public_domestic_debt_instruments",
	"OKSYD": "private_sector_international_lease_certificate",
	"OSKS":  "private_sector_lease_certificates",
	"OST":   "private_sector_bonds",
	"R":     "repo",
	"T":     "derivatives",
	"TPP":   "tmm",
	"TR":    "reverse_repo",
	"VDM":   "asset_backed_securities",
	"VM":    "term_deposit",
	"VMAU":  "term_deposit_au",
	"VMD":   "term_deposit_d",
	"VMTL":  "term_deposit_tl",
	"VİNT":  "futures_cash_collateral",
	"YBA":   "foreign_debt_instruments",
	"YBKB":  "foreign_domestic_debt_instruments",
	"YBOSB": "foreign_private_sector_debt_instruments",
	"YBYF":  "foreign_exchange_traded_funds",
	"YHS":   "foreign_equity",
	"YMK":   "foreign_securities",
	"YYF":   "foreign_investment_fund_participation_shares",
	"ÖSDB":  "private_sector_foreign_debt_instruments",
}

// TefasConfig configures a TefasFetcher.
type TefasConfig struct {
	BaseURL           string
	FundKind          string // YAT, EMK or BYF
	ChunkDays         int
	RequestsPerSecond float64
	Proxy             string
	Timeout           time.Duration
}

// TefasFetcher implements Fetcher against the TEFAS history endpoints.
type TefasFetcher struct {
	BaseURL   string
	FundKind  string
	ChunkDays int
	Client    *http.Client

	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewTefasFetcher creates a fetcher with optional proxy support.
func NewTefasFetcher(cfg TefasConfig, log zerolog.Logger) *TefasFetcher {
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTefasBaseURL
	}
	if cfg.FundKind == "" {
		cfg.FundKind = "YAT"
	}
	if cfg.ChunkDays <= 0 {
		cfg.ChunkDays = 60
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &TefasFetcher{
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		FundKind:  cfg.FundKind,
		ChunkDays: cfg.ChunkDays,
		Client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		log:     log.With().Str("component", "tefas").Logger(),
	}
}

func (f *TefasFetcher) Name() string { return "tefas" }

// tefasResponse is the envelope of both history endpoints.
type tefasResponse struct {
	Data []map[string]any `json:"data"`
}

type rowKey struct {
	code string
	day  int64
}

// FetchHistory pulls price and allocation history for every fund of the
// configured kind and joins them per (code, date).
func (f *TefasFetcher) FetchHistory(ctx context.Context, start, end time.Time) ([]model.RawObservation, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("tefas: end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	var rows []model.RawObservation
	for _, chunk := range splitRange(start, end, f.ChunkDays) {
		info, err := f.post(ctx, historyInfoPath, chunk[0], chunk[1])
		if err != nil {
			return nil, fmt.Errorf("fetch history info %s..%s: %w", chunk[0].Format("2006-01-02"), chunk[1].Format("2006-01-02"), err)
		}
		alloc, err := f.post(ctx, historyAllocationPath, chunk[0], chunk[1])
		if err != nil {
			return nil, fmt.Errorf("fetch history allocation %s..%s: %w", chunk[0].Format("2006-01-02"), chunk[1].Format("2006-01-02"), err)
		}
		joined := joinRows(info, alloc)
		f.log.Info().
			Str("from", chunk[0].Format("2006-01-02")).
			Str("to", chunk[1].Format("2006-01-02")).
			Int("info_rows", len(info)).
			Int("allocation_rows", len(alloc)).
			Int("observations", len(joined)).
			Msg("tefas chunk fetched")
		rows = append(rows, joined...)
	}
	return rows, nil
}

func (f *TefasFetcher) post(ctx context.Context, path string, start, end time.Time) ([]map[string]any, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	form := url.Values{
		"fontip":      {f.FundKind},
		"sfontur":     {""},
		"fonkod":      {""},
		"fongrup":     {""},
		"bastarih":    {start.Format(tefasDateLayout)},
		"bittarih":    {end.Format(tefasDateLayout)},
		"fonturkod":   {""},
		"fonunvantip": {""},
		"kurucukod":   {""},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Origin", f.BaseURL)
	req.Header.Set("Referer", f.BaseURL+"/TarihselVeriler.aspx")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("post %s: status %d, body: %s", path, resp.StatusCode, string(body))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var out tefasResponse
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out.Data, nil
}

// joinRows merges info rows with allocation rows of the same fund and date.
// Info rows drive the result; allocation rows without a matching info row
// are ignored.
func joinRows(info, alloc []map[string]any) []model.RawObservation {
	compositions := make(map[rowKey]map[string]float64, len(alloc))
	for _, a := range alloc {
		key, ok := keyOf(a)
		if !ok {
			continue
		}
		composition := make(map[string]float64)
		for col, raw := range a {
			field, known := allocationFields[col]
			if !known {
				continue
			}
			if v, ok := ParseNumeric(raw); ok {
				composition[field] = v
			}
		}
		compositions[key] = composition
	}

	rows := make([]model.RawObservation, 0, len(info))
	for _, r := range info {
		key, ok := keyOf(r)
		if !ok {
			continue
		}
		obs := model.RawObservation{
			Code:          key.code,
			Date:          time.Unix(key.day, 0).UTC(),
			Price:         ParseOptional(r["FIYAT"]),
			Title:         stringField(r["FONUNVAN"]),
			TypeLabel:     stringField(r["FONTURACIKLAMA"]),
			InvestorCount: ParseOptional(r["KISISAYISI"]),
			MarketValue:   ParseOptional(r["PORTFOYBUYUKLUK"]),
		}
		if c, found := compositions[key]; found {
			obs.Composition = c
		}
		rows = append(rows, obs)
	}
	return rows
}

func keyOf(r map[string]any) (rowKey, bool) {
	code := strings.ToUpper(stringField(r["FONKODU"]))
	if code == "" {
		return rowKey{}, false
	}
	ms, ok := ParseNumeric(r["TARIH"])
	if !ok {
		return rowKey{}, false
	}
	day := model.NewDate(time.UnixMilli(int64(ms)).In(tefasLocation))
	return rowKey{code: code, day: day.Unix()}, true
}

func stringField(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// splitRange cuts [start, end] into inclusive windows of at most days days.
func splitRange(start, end time.Time, days int) [][2]time.Time {
	start = model.NewDate(start).Time
	end = model.NewDate(end).Time
	var chunks [][2]time.Time
	for s := start; !s.After(end); {
		e := s.AddDate(0, 0, days-1)
		if e.After(end) {
			e = end
		}
		chunks = append(chunks, [2]time.Time{s, e})
		s = e.AddDate(0, 0, 1)
	}
	return chunks
}
