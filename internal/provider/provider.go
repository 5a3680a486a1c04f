// Package provider provides the market data provider interface and its Myfxbook implementation.
package provider

import (
	"context"
	"time"

	"fxbrief/internal/models"
)

// Provider defines the operations the report needs from the data provider.
// Every fetch requires the token returned by Login.
type Provider interface {
	// Session
	Login(ctx context.Context) (string, error)
	Logout(ctx context.Context, session string) error

	// Market Data
	FetchPrices(ctx context.Context, session string) (models.PriceSnapshot, error)
	FetchEvents(ctx context.Context, session string, day time.Time) ([]models.EconomicEvent, error)
	FetchOutlook(ctx context.Context, session string) ([]models.SentimentEntry, error)
}
