package report

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "fxbrief/internal/errors"
	"fxbrief/internal/logging"
	"fxbrief/internal/models"
	"fxbrief/internal/provider"
	"fxbrief/pkg/utils"
)

// logoutTimeout bounds the best-effort logout, which runs even after the
// caller's context is cancelled.
const logoutTimeout = 10 * time.Second

// Recorder persists finished runs.
type Recorder interface {
	SaveRun(ctx context.Context, run *models.RunRecord) error
}

// Notifier delivers finished reports and failures.
type Notifier interface {
	SendReport(ctx context.Context, r *models.Report) error
	SendError(ctx context.Context, err error, context string) error
}

// GeneratorConfig wires a Generator. Recorder and Notifier are optional.
type GeneratorConfig struct {
	Provider provider.Provider
	Builder  *Builder
	Sink     *Sink
	Recorder Recorder
	Notifier Notifier
	Logger   zerolog.Logger
	Clock    func() time.Time
}

// Result describes one completed generation.
type Result struct {
	RunID  string
	Report *models.Report
	Path   string
}

// Generator runs one report generation from login to logout.
type Generator struct {
	provider provider.Provider
	builder  *Builder
	sink     *Sink
	recorder Recorder
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewGenerator creates a generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Generator{
		provider: cfg.Provider,
		builder:  cfg.Builder,
		sink:     cfg.Sink,
		recorder: cfg.Recorder,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		now:      now,
	}
}

// Generate logs in, fetches prices, events and community outlook in turn,
// scores the instruments, writes the report and logs out. Any failure aborts
// the run; once a session is open it is always closed.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	started := g.now()
	runID := utils.NewIDAt(started)
	logger := logging.WithRunID(g.logger, runID)
	ctx = logging.WithLogger(ctx, logger)
	day := started

	result, err := g.generate(ctx, logger, runID, day)
	if err != nil {
		logger.Error().Err(err).Msg("Report generation failed")
		g.notifyError(ctx, logger, err)
		return nil, err
	}

	logger.Info().
		Str("path", result.Path).
		Dur("elapsed", g.now().Sub(started)).
		Msg("Report generated")
	return result, nil
}

func (g *Generator) generate(ctx context.Context, logger zerolog.Logger, runID string, day time.Time) (*Result, error) {
	session, err := g.provider.Login(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "login")
	}
	defer g.logout(ctx, logger, session)

	prices, err := g.provider.FetchPrices(ctx, session)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching prices")
	}
	logger.Debug().Int("count", len(prices)).Msg("Prices fetched")

	events, err := g.provider.FetchEvents(ctx, session, day)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching calendar")
	}
	logger.Debug().Int("count", len(events)).Msg("Calendar fetched")

	sentiment, err := g.provider.FetchOutlook(ctx, session)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching community outlook")
	}
	logger.Debug().Int("count", len(sentiment)).Msg("Community outlook fetched")

	rep, err := g.builder.Build(day, prices, events, sentiment)
	if err != nil {
		return nil, apperrors.Wrap(err, "building report")
	}
	for _, a := range rep.Analyses {
		logging.LogAnalysis(logger, a)
	}

	path, err := g.sink.Write(rep)
	if err != nil {
		return nil, err
	}

	g.record(ctx, logger, &models.RunRecord{
		ID:          runID,
		Date:        rep.Day(),
		GeneratedAt: g.now(),
		OutputPath:  path,
		Analyses:    rep.Analyses,
		Text:        rep.Text,
	})
	g.notifyReport(ctx, logger, rep)

	return &Result{RunID: runID, Report: rep, Path: path}, nil
}

// logout never fails the run.
func (g *Generator) logout(ctx context.Context, logger zerolog.Logger, session string) {
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()

	if err := g.provider.Logout(lctx, session); err != nil {
		logger.Warn().Err(err).Msg("Logout failed, session left to expire")
	}
}

func (g *Generator) record(ctx context.Context, logger zerolog.Logger, run *models.RunRecord) {
	if g.recorder == nil {
		return
	}
	if err := g.recorder.SaveRun(ctx, run); err != nil {
		logger.Warn().Err(err).Msg("Failed to record run history")
	}
}

func (g *Generator) notifyReport(ctx context.Context, logger zerolog.Logger, rep *models.Report) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.SendReport(ctx, rep); err != nil {
		logger.Warn().Err(err).Msg("Failed to send report notification")
	}
}

func (g *Generator) notifyError(ctx context.Context, logger zerolog.Logger, runErr error) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.SendError(ctx, runErr, "daily report"); err != nil {
		logger.Warn().Err(err).Msg("Failed to send error notification")
	}
}
