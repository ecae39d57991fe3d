package model

import "time"

// RawObservation is one provider row: one fund, one date. Fields that the
// provider did not send, or sent in a form that could not be parsed, are nil.
type RawObservation struct {
	Code  string
	Date  time.Time
	Price *float64

	// Composition holds asset-class weights in percent keyed by field name
	// (stock, foreign_equity, precious_metals, ...). A nil map means the
	// provider sent no allocation data for this row.
	Composition map[string]float64

	Title         string
	TypeLabel     string
	InvestorCount *float64
	MarketValue   *float64
}

// PricePoint is one cleaned entry of a normalized series.
type PricePoint struct {
	Date  time.Time
	Price float64
}

// ObservationSeries is the normalized history of one fund: ascending dates,
// one entry per date, every price positive and finite.
type ObservationSeries struct {
	Code   string
	Points []PricePoint

	// Latest is the raw observation behind the last point; it carries the
	// composition and descriptive fields used by the snapshot.
	Latest RawObservation
}

// Len returns the number of cleaned points.
func (s *ObservationSeries) Len() int { return len(s.Points) }

// LatestPrice returns the price of the most recent point.
func (s *ObservationSeries) LatestPrice() float64 {
	return s.Points[len(s.Points)-1].Price
}

// Prices returns the cleaned prices in date order.
func (s *ObservationSeries) Prices() []float64 {
	prices := make([]float64, len(s.Points))
	for i, p := range s.Points {
		prices[i] = p.Price
	}
	return prices
}

// Float returns a pointer to v, for optional fields.
func Float(v float64) *float64 { return &v }
