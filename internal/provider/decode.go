package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "fxbrief/internal/errors"
	"fxbrief/internal/models"
)

// number accepts a JSON number or a numeric string ("3.5", "3.5%", "250K",
// "1.2B"). K, M and B scale by thousands, millions and billions.
// present is false when the key was absent; valid is false for null, empty
// or non-numeric content.
type number struct {
	value   float64
	present bool
	valid   bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	n.present = true
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		s = strings.ReplaceAll(s, ",", "")
		scale := 1.0
		if k := len(s); k > 0 {
			if m, ok := magnitudes[s[k-1]]; ok {
				s, scale = strings.TrimSpace(s[:k-1]), m
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			n.value, n.valid = f*scale, true
		}
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	n.value, n.valid = f, true
	return nil
}

var magnitudes = map[byte]float64{
	'K': 1e3, 'k': 1e3,
	'M': 1e6, 'm': 1e6,
	'B': 1e9, 'b': 1e9,
}

func (n number) toValue() models.Value {
	if !n.valid {
		return models.Value{}
	}
	return models.Some(n.value)
}

// envelope carries the status fields every endpoint returns.
type envelope struct {
	Error   *bool  `json:"error"`
	Message string `json:"message"`
}

func (e envelope) failed() bool {
	return e.Error != nil && *e.Error
}

type loginResponse struct {
	envelope
	Session *string `json:"session"`
}

type marketResponse struct {
	envelope
	Symbols *[]marketSymbol `json:"symbols"`
}

type marketSymbol struct {
	Name *string `json:"name"`
	Bid  number  `json:"bid"`
}

type calendarResponse struct {
	envelope
	Calendar *[]calendarEvent `json:"calendar"`
}

type calendarEvent struct {
	Date     *string `json:"date"`
	Country  *string `json:"country"`
	Title    *string `json:"title"`
	Actual   number  `json:"actual"`
	Forecast number  `json:"forecast"`
}

type outlookResponse struct {
	envelope
	Symbols *[]outlookSymbol `json:"symbols"`
}

type outlookSymbol struct {
	Name            *string `json:"name"`
	LongPercentage  number  `json:"longPercentage"`
	ShortPercentage number  `json:"shortPercentage"`
}

// decodeSession extracts the session token, or the provider's refusal.
func decodeSession(r loginResponse) (string, error) {
	if r.Error == nil {
		return "", apperrors.NewParseError(endpointLogin, []string{"error"}, nil)
	}
	if *r.Error {
		return "", apperrors.NewAuthenticationError(r.Message)
	}
	if r.Session == nil || *r.Session == "" {
		return "", apperrors.NewParseError(endpointLogin, []string{"session"}, nil)
	}
	return *r.Session, nil
}

// decodePrices keeps the bid of tracked instruments only. Untracked rows are
// not inspected beyond their name.
func decodePrices(r marketResponse) (models.PriceSnapshot, error) {
	if r.failed() {
		return nil, apperrors.NewProviderError(endpointMarket, r.Message)
	}
	if r.Symbols == nil {
		return nil, apperrors.NewParseError(endpointMarket, []string{"symbols"}, nil)
	}

	var missing []string
	prices := make(models.PriceSnapshot)
	for i, s := range *r.Symbols {
		if s.Name == nil {
			missing = append(missing, fmt.Sprintf("symbols[%d].name", i))
			continue
		}
		if !models.IsTracked(*s.Name) {
			continue
		}
		if !s.Bid.valid {
			missing = append(missing, fmt.Sprintf("symbols[%d].bid", i))
			continue
		}
		prices[models.Instrument(*s.Name)] = s.Bid.value
	}

	if len(missing) > 0 {
		return nil, apperrors.NewParseError(endpointMarket, missing, nil)
	}
	return prices, nil
}

// decodeEvents keeps the entries dated on day. Only kept entries are checked
// for country, title, actual and forecast; actual and forecast may be blank
// for figures not yet released.
func decodeEvents(r calendarResponse, day time.Time) ([]models.EconomicEvent, error) {
	if r.failed() {
		return nil, apperrors.NewProviderError(endpointCalendar, r.Message)
	}
	if r.Calendar == nil {
		return nil, apperrors.NewParseError(endpointCalendar, []string{"calendar"}, nil)
	}

	prefix := day.Format(models.DateLayout)

	var missing []string
	events := make([]models.EconomicEvent, 0)
	for i, ev := range *r.Calendar {
		if ev.Date == nil {
			missing = append(missing, fmt.Sprintf("calendar[%d].date", i))
			continue
		}
		if !strings.HasPrefix(*ev.Date, prefix) {
			continue
		}

		var fields []string
		if ev.Country == nil {
			fields = append(fields, fmt.Sprintf("calendar[%d].country", i))
		}
		if ev.Title == nil {
			fields = append(fields, fmt.Sprintf("calendar[%d].title", i))
		}
		if !ev.Actual.present {
			fields = append(fields, fmt.Sprintf("calendar[%d].actual", i))
		}
		if !ev.Forecast.present {
			fields = append(fields, fmt.Sprintf("calendar[%d].forecast", i))
		}
		if len(fields) > 0 {
			missing = append(missing, fields...)
			continue
		}

		events = append(events, models.EconomicEvent{
			Date:     *ev.Date,
			Country:  *ev.Country,
			Title:    *ev.Title,
			Actual:   ev.Actual.toValue(),
			Forecast: ev.Forecast.toValue(),
		})
	}

	if len(missing) > 0 {
		return nil, apperrors.NewParseError(endpointCalendar, missing, nil)
	}
	return events, nil
}

// decodeOutlook returns every entry; filtering by symbol happens in scoring.
// Percentages are required only for tracked instruments: an untracked row
// without them is dropped.
func decodeOutlook(r outlookResponse) ([]models.SentimentEntry, error) {
	if r.failed() {
		return nil, apperrors.NewProviderError(endpointOutlook, r.Message)
	}
	if r.Symbols == nil {
		return nil, apperrors.NewParseError(endpointOutlook, []string{"symbols"}, nil)
	}

	var missing []string
	entries := make([]models.SentimentEntry, 0, len(*r.Symbols))
	for i, s := range *r.Symbols {
		var fields []string
		if s.Name == nil {
			missing = append(missing, fmt.Sprintf("symbols[%d].name", i))
			continue
		}
		if !s.LongPercentage.valid {
			fields = append(fields, fmt.Sprintf("symbols[%d].longPercentage", i))
		}
		if !s.ShortPercentage.valid {
			fields = append(fields, fmt.Sprintf("symbols[%d].shortPercentage", i))
		}
		if len(fields) > 0 {
			if !models.IsTracked(*s.Name) {
				continue
			}
			missing = append(missing, fields...)
			continue
		}

		entries = append(entries, models.SentimentEntry{
			Name:            *s.Name,
			LongPercentage:  s.LongPercentage.value,
			ShortPercentage: s.ShortPercentage.value,
		})
	}

	if len(missing) > 0 {
		return nil, apperrors.NewParseError(endpointOutlook, missing, nil)
	}
	return entries, nil
}
