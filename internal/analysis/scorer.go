// Package analysis provides the heuristic sentiment scoring of tracked instruments.
package analysis

import (
	"strings"

	"fxbrief/internal/models"
	"fxbrief/pkg/utils"
)

// Classification thresholds. Both bounds are exclusive: ±0.3 is Neutral.
const (
	BullishThreshold = 0.3
	BearishThreshold = -0.3
)

// Community sentiment contribution.
const (
	CommunityBullishDelta = 0.2
	CommunityBearishDelta = -0.2
)

// EventRule adds Delta when an event for Country whose title contains
// TitleContains beats its forecast, for Symbol only.
type EventRule struct {
	Symbol        models.Instrument
	Country       string
	TitleContains string
	Delta         float64
	Driver        DriverKey
}

func (r EventRule) matches(symbol models.Instrument, ev models.EconomicEvent) bool {
	return r.Symbol == symbol &&
		ev.Country == r.Country &&
		strings.Contains(ev.Title, r.TitleContains)
}

// DefaultRules returns the fixed macro rule table.
func DefaultRules() []EventRule {
	return []EventRule{
		{Symbol: models.BTCUSD, Country: "US", TitleContains: "CPI", Delta: -0.5, Driver: DriverUSInflationBTC},
		{Symbol: models.GBPJPY, Country: "UK", TitleContains: "Retail", Delta: 0.5, Driver: DriverUKRetailGBP},
		{Symbol: models.XAUUSD, Country: "US", TitleContains: "CPI", Delta: -0.3, Driver: DriverUSInflationGold},
	}
}

// Scorer derives a directional score per instrument from today's events and
// community positioning.
type Scorer struct {
	rules  []EventRule
	locale Locale
}

// NewScorer creates a scorer with the default rules and French wording.
func NewScorer() *Scorer {
	return NewScorerWithLocale(French)
}

// NewScorerWithLocale creates a scorer with the default rules and the given wording.
func NewScorerWithLocale(locale Locale) *Scorer {
	return &Scorer{
		rules:  DefaultRules(),
		locale: locale,
	}
}

// Locale returns the wording used for drivers.
func (s *Scorer) Locale() Locale {
	return s.locale
}

// Analyze scores one instrument. Drivers are ordered event rules first (in
// event order), then sentiment entries (in entry order). Every qualifying
// event applies its delta, including repeats of the same release.
func (s *Scorer) Analyze(symbol models.Instrument, price float64, events []models.EconomicEvent, sentiment []models.SentimentEntry) models.AssetAnalysis {
	var score float64
	drivers := make([]string, 0)

	for _, ev := range events {
		for _, rule := range s.rules {
			if rule.matches(symbol, ev) && ev.Beat() {
				score += rule.Delta
				drivers = append(drivers, s.locale.Driver(rule.Driver))
			}
		}
	}

	for _, entry := range sentiment {
		if entry.Name != string(symbol) {
			continue
		}
		// A tie counts as bearish.
		if entry.LongPercentage > entry.ShortPercentage {
			score += CommunityBullishDelta
			drivers = append(drivers, s.locale.Driver(DriverCommunityBullish))
		} else {
			score += CommunityBearishDelta
			drivers = append(drivers, s.locale.Driver(DriverCommunityBearish))
		}
	}

	score = utils.NormalizeScore(score)

	return models.AssetAnalysis{
		Symbol:    symbol,
		Price:     price,
		Score:     score,
		Sentiment: Classify(score),
		Drivers:   drivers,
	}
}

// Classify maps a score to its label.
func Classify(score float64) models.SentimentLabel {
	score = utils.NormalizeScore(score)
	switch {
	case score > BullishThreshold:
		return models.Bullish
	case score < BearishThreshold:
		return models.Bearish
	default:
		return models.Neutral
	}
}
