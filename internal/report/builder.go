// Package report assembles, writes and orchestrates the daily report.
package report

import (
	"fmt"
	"strings"
	"time"

	"fxbrief/internal/analysis"
	apperrors "fxbrief/internal/errors"
	"fxbrief/internal/models"
	"fxbrief/pkg/utils"
)

// Builder scores each tracked instrument and renders the report text.
type Builder struct {
	scorer *analysis.Scorer
}

// NewBuilder creates a builder around scorer.
func NewBuilder(scorer *analysis.Scorer) *Builder {
	return &Builder{scorer: scorer}
}

// Build analyses BTCUSD, GBPJPY and XAUUSD in that order. A tracked instrument
// with no price aborts the build.
func (b *Builder) Build(day time.Time, prices models.PriceSnapshot, events []models.EconomicEvent, sentiment []models.SentimentEntry) (*models.Report, error) {
	analyses := make([]models.AssetAnalysis, 0, len(models.TrackedInstruments))
	for _, sym := range models.TrackedInstruments {
		price, ok := prices[sym]
		if !ok {
			return nil, apperrors.NewMissingDataError("price", string(sym))
		}
		analyses = append(analyses, b.scorer.Analyze(sym, price, events, sentiment))
	}

	return &models.Report{
		Date:     day,
		Analyses: analyses,
		Text:     Render(day, analyses, b.scorer.Locale()),
	}, nil
}

// Render formats analyses as the report text:
//
//	<title with date>
//
//	Actif: BTCUSD
//	Prix actuel: 65000
//	Sentiment: Neutre (score: -0.3)
//	Facteurs clés:
//	  - ...
//	<blank>
func Render(day time.Time, analyses []models.AssetAnalysis, locale analysis.Locale) string {
	lines := []string{
		fmt.Sprintf(locale.Title, day.Format(models.DateLayout)),
		"",
	}

	for _, a := range analyses {
		lines = append(lines,
			fmt.Sprintf("%s: %s", locale.Asset, a.Symbol),
			fmt.Sprintf("%s: %s", locale.Price, utils.FormatPrice(a.Price)),
			fmt.Sprintf("%s: %s (score: %s)", locale.Score, locale.Label(a.Sentiment), utils.FormatScore(a.Score)),
			locale.Factors+":",
		)
		for _, d := range a.Drivers {
			lines = append(lines, "  - "+d)
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
