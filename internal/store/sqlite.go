package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "fxbrief/internal/errors"
	"fxbrief/internal/models"
	"fxbrief/pkg/utils"
)

// SQLiteStore implements RunStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the history database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Runs are written serially; one connection avoids lock contention.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per generated report
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		generated_at DATETIME NOT NULL,
		output_path TEXT NOT NULL,
		report_text TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Per-instrument analysis of a run, in report order
	CREATE TABLE IF NOT EXISTS run_analyses (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		price REAL NOT NULL,
		score REAL NOT NULL,
		sentiment TEXT NOT NULL,
		drivers TEXT NOT NULL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date);
	CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at);
	CREATE INDEX IF NOT EXISTS idx_run_analyses_symbol ON run_analyses(symbol);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its analyses in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, date, generated_at, output_path, report_text)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Date, run.GeneratedAt.UTC(), run.OutputPath, run.Text)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "insert run %s: %v", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_analyses (run_id, position, symbol, price, score, sentiment, drivers)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, a := range run.Analyses {
		drivers, err := json.Marshal(a.Drivers)
		if err != nil {
			return fmt.Errorf("failed to encode drivers: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, string(a.Symbol), a.Price, a.Score, string(a.Sentiment), string(drivers)); err != nil {
			return apperrors.Wrapf(apperrors.ErrDatabaseError, "insert analysis %s: %v", a.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]models.RunRecord, error) {
	query := "SELECT id, date, generated_at, output_path, report_text FROM runs WHERE 1=1"
	args := []interface{}{}

	if !filter.Since.IsZero() {
		query += " AND generated_at >= ?"
		args = append(args, filter.Since.UTC())
	}

	query += " ORDER BY generated_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunRecord
	for rows.Next() {
		var r models.RunRecord
		if err := rows.Scan(&r.ID, &r.Date, &r.GeneratedAt, &r.OutputPath, &r.Text); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		analyses, err := s.analysesFor(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Analyses = analyses
	}
	return runs, nil
}

// GetRun returns a run by ULID, or the latest run of a YYYY-MM-DD date.
func (s *SQLiteStore) GetRun(ctx context.Context, idOrDate string) (*models.RunRecord, error) {
	query := "SELECT id, date, generated_at, output_path, report_text FROM runs WHERE id = ?"
	if !utils.IsID(idOrDate) {
		if _, err := time.Parse(models.DateLayout, idOrDate); err != nil {
			return nil, fmt.Errorf("%q is neither a run id nor a %s date", idOrDate, models.DateLayout)
		}
		query = "SELECT id, date, generated_at, output_path, report_text FROM runs WHERE date = ? ORDER BY generated_at DESC, id DESC LIMIT 1"
	}

	var r models.RunRecord
	err := s.db.QueryRowContext(ctx, query, idOrDate).Scan(&r.ID, &r.Date, &r.GeneratedAt, &r.OutputPath, &r.Text)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrDataNotFound, "run %s", idOrDate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	r.Analyses, err = s.analysesFor(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ScoreHistory returns the recorded scores of symbol, newest first.
func (s *SQLiteStore) ScoreHistory(ctx context.Context, symbol models.Instrument, limit int) ([]ScorePoint, error) {
	query := `
		SELECT r.id, r.date, a.price, a.score, a.sentiment
		FROM run_analyses a JOIN runs r ON r.id = a.run_id
		WHERE a.symbol = ?
		ORDER BY r.generated_at DESC, r.id DESC`
	args := []interface{}{string(symbol)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query score history: %w", err)
	}
	defer rows.Close()

	var points []ScorePoint
	for rows.Next() {
		var p ScorePoint
		var sentiment string
		if err := rows.Scan(&p.RunID, &p.Date, &p.Price, &p.Score, &sentiment); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		p.Sentiment = models.SentimentLabel(sentiment)
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLiteStore) analysesFor(ctx context.Context, runID string) ([]models.AssetAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, price, score, sentiment, drivers
		FROM run_analyses WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []models.AssetAnalysis
	for rows.Next() {
		var a models.AssetAnalysis
		var symbol, sentiment, drivers string
		if err := rows.Scan(&symbol, &a.Price, &a.Score, &sentiment, &drivers); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		a.Symbol = models.Instrument(symbol)
		a.Sentiment = models.SentimentLabel(sentiment)
		if err := json.Unmarshal([]byte(drivers), &a.Drivers); err != nil {
			return nil, fmt.Errorf("failed to decode drivers: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}
