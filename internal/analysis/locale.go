package analysis

import (
	"fmt"

	apperrors "fxbrief/internal/errors"
	"fxbrief/internal/models"
)

// DriverKey identifies a rationale independently of its wording.
type DriverKey string

const (
	DriverUSInflationBTC   DriverKey = "us_inflation_btc"
	DriverUKRetailGBP      DriverKey = "uk_retail_gbp"
	DriverUSInflationGold  DriverKey = "us_inflation_gold"
	DriverCommunityBullish DriverKey = "community_bullish"
	DriverCommunityBearish DriverKey = "community_bearish"
)

// Locale holds the wording of drivers, labels and report headings.
type Locale struct {
	Code    string
	Labels  map[models.SentimentLabel]string
	Drivers map[DriverKey]string

	Title   string // format verb receives the date
	Asset   string
	Price   string
	Score   string
	Factors string
}

// French is the default report language.
var French = Locale{
	Code: "fr",
	Labels: map[models.SentimentLabel]string{
		models.Bullish: "Haussier",
		models.Bearish: "Baissier",
		models.Neutral: "Neutre",
	},
	Drivers: map[DriverKey]string{
		DriverUSInflationBTC:   "Inflation US plus forte → pression sur BTC",
		DriverUKRetailGBP:      "Ventes UK meilleures → GBP soutenu",
		DriverUSInflationGold:  "Inflation US → USD fort → Gold sous pression",
		DriverCommunityBullish: "Sentiment haussier de la communauté",
		DriverCommunityBearish: "Sentiment baissier de la communauté",
	},
	Title:   "Rapport fondamental quotidien – %s",
	Asset:   "Actif",
	Price:   "Prix actuel",
	Score:   "Sentiment",
	Factors: "Facteurs clés",
}

// English wording.
var English = Locale{
	Code: "en",
	Labels: map[models.SentimentLabel]string{
		models.Bullish: "Bullish",
		models.Bearish: "Bearish",
		models.Neutral: "Neutral",
	},
	Drivers: map[DriverKey]string{
		DriverUSInflationBTC:   "Stronger US inflation → pressure on BTC",
		DriverUKRetailGBP:      "Better UK retail sales → GBP supported",
		DriverUSInflationGold:  "US inflation → strong USD → gold under pressure",
		DriverCommunityBullish: "Bullish community sentiment",
		DriverCommunityBearish: "Bearish community sentiment",
	},
	Title:   "Daily fundamental report – %s",
	Asset:   "Asset",
	Price:   "Current price",
	Score:   "Sentiment",
	Factors: "Key drivers",
}

// LocaleFor returns the locale for a language code.
func LocaleFor(code string) (Locale, error) {
	switch code {
	case "", "fr":
		return French, nil
	case "en":
		return English, nil
	}
	return Locale{}, apperrors.NewConfigurationError("report.locale", fmt.Sprintf("unsupported locale %q", code))
}

// Label returns the localized sentiment label.
func (l Locale) Label(s models.SentimentLabel) string {
	if v, ok := l.Labels[s]; ok {
		return v
	}
	return string(s)
}

// Driver returns the localized rationale for key.
func (l Locale) Driver(key DriverKey) string {
	if v, ok := l.Drivers[key]; ok {
		return v
	}
	return string(key)
}
