// Package store provides persistence of generated reports.
package store

import (
	"context"
	"time"

	"fxbrief/internal/models"
)

// RunStore defines the interface for report run history.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.RunRecord) error
	ListRuns(ctx context.Context, filter RunFilter) ([]models.RunRecord, error)
	// GetRun looks a run up by ULID, or by date for the latest run of that day.
	GetRun(ctx context.Context, idOrDate string) (*models.RunRecord, error)
	ScoreHistory(ctx context.Context, symbol models.Instrument, limit int) ([]ScorePoint, error)
	Close() error
}

// RunFilter represents filters for querying runs.
type RunFilter struct {
	Since time.Time
	Limit int
}

// ScorePoint is one instrument's score in a past run.
type ScorePoint struct {
	RunID     string
	Date      string
	Price     float64
	Score     float64
	Sentiment models.SentimentLabel
}
