// Package models provides domain models for the daily report.
package models

import (
	"fmt"
	"time"
)

// Instrument is a tracked trading symbol.
type Instrument string

const (
	BTCUSD Instrument = "BTCUSD"
	GBPJPY Instrument = "GBPJPY"
	XAUUSD Instrument = "XAUUSD"
)

// TrackedInstruments lists the instruments in report order.
var TrackedInstruments = []Instrument{BTCUSD, GBPJPY, XAUUSD}

// IsTracked reports whether name is one of the tracked instruments.
func IsTracked(name string) bool {
	for _, inst := range TrackedInstruments {
		if string(inst) == name {
			return true
		}
	}
	return false
}

// DateLayout is the ISO calendar date layout used for filtering and file names.
const DateLayout = "2006-01-02"

// PriceSnapshot maps a tracked instrument to its bid price.
type PriceSnapshot map[Instrument]float64

// Value is an optional numeric reading. Calendar entries are published before the
// figure is released, so actual (and sometimes forecast) may be absent.
type Value struct {
	Float float64
	Valid bool
}

// Some returns a present Value.
func Some(f float64) Value {
	return Value{Float: f, Valid: true}
}

func (v Value) String() string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%g", v.Float)
}

// EconomicEvent is a scheduled macro release from the economic calendar.
type EconomicEvent struct {
	Date     string `json:"date"`
	Country  string `json:"country"`
	Title    string `json:"title"`
	Actual   Value  `json:"actual"`
	Forecast Value  `json:"forecast"`
}

// Beat reports whether the released figure came in above forecast.
func (e EconomicEvent) Beat() bool {
	return e.Actual.Valid && e.Forecast.Valid && e.Actual.Float > e.Forecast.Float
}

// SentimentEntry is the community long/short positioning for one symbol.
type SentimentEntry struct {
	Name            string  `json:"name"`
	LongPercentage  float64 `json:"longPercentage"`
	ShortPercentage float64 `json:"shortPercentage"`
}

// SentimentLabel classifies an analysis score.
type SentimentLabel string

const (
	Bullish SentimentLabel = "Bullish"
	Bearish SentimentLabel = "Bearish"
	Neutral SentimentLabel = "Neutral"
)

// AssetAnalysis is the scored outcome for one instrument.
type AssetAnalysis struct {
	Symbol    Instrument     `json:"symbol"`
	Price     float64        `json:"price"`
	Score     float64        `json:"score"`
	Sentiment SentimentLabel `json:"sentiment"`
	Drivers   []string       `json:"drivers"`
}

// Report is the assembled daily report.
type Report struct {
	Date     time.Time       `json:"date"`
	Analyses []AssetAnalysis `json:"analyses"`
	Text     string          `json:"text"`
}

// Day returns the report date in DateLayout.
func (r *Report) Day() string {
	return r.Date.Format(DateLayout)
}

// RunRecord is a persisted report generation.
type RunRecord struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	GeneratedAt time.Time       `json:"generated_at"`
	OutputPath  string          `json:"output_path"`
	Analyses    []AssetAnalysis `json:"analyses"`
	Text        string          `json:"text"`
}
