package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want float64
		ok   bool
	}{
		{"nil", nil, 0, false},
		{"float", 1.25, 1.25, true},
		{"int", 7, 7, true},
		{"json number", json.Number("3.5"), 3.5, true},
		{"numeric string", " 12.5 ", 12.5, true},
		{"comma decimal", "12,5", 12.5, true},
		{"grouped comma decimal", "1.234,56", 1234.56, true},
		{"empty string", "", 0, false},
		{"dash", "-", 0, false},
		{"garbage", "abc", 0, false},
		{"nan string", "NaN", 0, false},
		{"bool", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumeric(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
	assert.Nil(t, ParseOptional("x"))
	require.NotNil(t, ParseOptional("2"))
}

func TestSplitRange(t *testing.T) {
	start := time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	chunks := splitRange(start, end, 30)
	require.Len(t, chunks, 3)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), chunks[0][0])
	assert.Equal(t, time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC), chunks[0][1])
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), chunks[1][0])
	assert.Equal(t, end, chunks[2][1])

	assert.Len(t, splitRange(end, end, 60), 1)
}

func tefasServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "YAT", r.PostForm.Get("fontip"))
		assert.Equal(t, "02.03.2026", r.PostForm.Get("bastarih"))
		assert.Equal(t, "06.03.2026", r.PostForm.Get("bittarih"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case historyInfoPath:
			_, _ = w.Write([]byte(`{"data":[
				{"TARIH":"1772409600000","FONKODU":"aak","FONUNVAN":"ATA PORTFÖY HİSSE","FIYAT":1.2345,"KISISAYISI":1500,"PORTFOYBUYUKLUK":"2500000,75"},
				{"TARIH":"1772755200000","FONKODU":"AAK","FONUNVAN":"ATA PORTFÖY HİSSE","FIYAT":"1,30","KISISAYISI":null,"PORTFOYBUYUKLUK":2600000},
				{"TARIH":"1772755200000","FONKODU":"","FIYAT":1}
			]}`))
		case historyAllocationPath:
			_, _ = w.Write([]byte(`{"data":[
				{"TARIH":1772409600000,"FONKODU":"AAK","HS":82.5,"TR":"12,5","DT":null,"XYZ":4}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestTefasFetcher_JoinsInfoAndAllocation(t *testing.T) {
	var hits int32
	srv := tefasServer(t, &hits)
	defer srv.Close()

	f := NewTefasFetcher(TefasConfig{BaseURL: srv.URL, RequestsPerSecond: 100}, zerolog.Nop())
	rows, err := f.FetchHistory(context.Background(),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "AAK", first.Code)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), first.Date)
	require.NotNil(t, first.Price)
	assert.Equal(t, 1.2345, *first.Price)
	assert.Equal(t, 1500.0, *first.InvestorCount)
	assert.InDelta(t, 2500000.75, *first.MarketValue, 1e-9)
	assert.Equal(t, map[string]float64{"stock": 82.5, "reverse_repo": 12.5}, first.Composition)

	second := rows[1]
	assert.Equal(t, 1.30, *second.Price)
	assert.Nil(t, second.InvestorCount)
	assert.Nil(t, second.Composition)
}

func TestJoinRows_DatesFollowIstanbulCalendar(t *testing.T) {
	info := []map[string]any{
		// 2026-03-01T21:00Z is midnight of 2 March in Istanbul.
		{"TARIH": "1772398800000", "FONKODU": "AAK", "FIYAT": 1.25},
		// 2026-01-01T21:00Z is midnight of 2 January in Istanbul.
		{"TARIH": "1767301200000", "FONKODU": "AAK", "FIYAT": 1.10},
	}
	alloc := []map[string]any{
		// A UTC-midnight stamp for the same day joins with the Istanbul one.
		{"TARIH": "1772409600000", "FONKODU": "AAK", "HS": 90},
	}

	rows := joinRows(info, alloc)
	require.Len(t, rows, 2)

	assert.Equal(t, "2026-03-02", rows[0].Date.Format("2006-01-02"))
	assert.Equal(t, time.Monday, rows[0].Date.Weekday())
	assert.Equal(t, map[string]float64{"stock": 90}, rows[0].Composition)

	assert.Equal(t, "2026-01-02", rows[1].Date.Format("2006-01-02"))
	assert.Nil(t, rows[1].Composition)
}

func TestTefasFetcher_StatusErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewTefasFetcher(TefasConfig{BaseURL: srv.URL, RequestsPerSecond: 100}, zerolog.Nop())
	_, err := f.FetchHistory(context.Background(), time.Now().AddDate(0, 0, -3), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestTefasFetcher_RejectsInvertedRange(t *testing.T) {
	f := NewTefasFetcher(TefasConfig{}, zerolog.Nop())
	_, err := f.FetchHistory(context.Background(), time.Now(), time.Now().AddDate(0, 0, -1))
	assert.Error(t, err)
}

func TestMockFetcher(t *testing.T) {
	boom := errors.New("boom")
	m := &MockFetcher{Err: boom}
	_, err := m.FetchHistory(context.Background(), time.Now(), time.Now())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.Calls)

	gen := &MockFetcher{Codes: []string{"AAA", "BBB"}}
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // Monday
	rows, err := gen.FetchHistory(context.Background(), start, start.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Len(t, rows, 10)
	for _, r := range rows {
		assert.NotEqual(t, time.Saturday, r.Date.Weekday())
		assert.NotEqual(t, time.Sunday, r.Date.Weekday())
		require.NotNil(t, r.Price)
		assert.Greater(t, *r.Price, 0.0)
	}
}
