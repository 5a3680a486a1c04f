// Package schedule repeats report generation on a cron schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"fxbrief/internal/resilience"
)

// Task is one scheduled unit of work.
type Task func(ctx context.Context) error

// Option configures a Runner.
type Option func(*options)

type options struct {
	seconds bool
	runNow  bool
	timeout time.Duration
	loc     *time.Location
	breaker *resilience.CircuitBreaker
}

// WithSeconds accepts a leading seconds field in the cron expression.
func WithSeconds() Option {
	return func(o *options) { o.seconds = true }
}

// WithRunNow runs the task once as soon as Run starts.
func WithRunNow() Option {
	return func(o *options) { o.runNow = true }
}

// WithTimeout bounds each task execution.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLocation evaluates the schedule in loc instead of time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

// WithBreaker skips activations while cb is open.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(o *options) { o.breaker = cb }
}

// Runner executes a Task on a cron schedule. Executions never overlap: a tick
// that fires while the previous run is still going is skipped.
type Runner struct {
	spec   string
	task   Task
	opts   options
	logger zerolog.Logger
	cron   *cron.Cron
	entry  cron.EntryID
	ctx    context.Context

	mu   sync.Mutex
	runs int
}

// NewRunner creates a runner for spec, a standard 5-field cron expression.
func NewRunner(spec string, task Task, logger zerolog.Logger, opts ...Option) (*Runner, error) {
	o := options{timeout: 30 * time.Minute, loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}

	cl := cronLogger{logger: logger}
	cronOpts := []cron.Option{
		cron.WithLocation(o.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	}
	if o.seconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	r := &Runner{
		spec:   spec,
		task:   task,
		opts:   o,
		logger: logger.With().Str("component", "scheduler").Logger(),
		cron:   cron.New(cronOpts...),
		ctx:    context.Background(),
	}

	id, err := r.cron.AddFunc(spec, func() { r.execute(r.ctx) })
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	r.entry = id

	return r, nil
}

// Run starts the schedule and blocks until ctx is cancelled. A run in
// progress at cancellation sees its context cancelled and is waited for.
func (r *Runner) Run(ctx context.Context) error {
	r.ctx = ctx
	r.cron.Start()
	r.logger.Info().
		Str("schedule", r.spec).
		Time("next", r.Next()).
		Msg("Report scheduler started")

	var wg sync.WaitGroup
	if r.opts.runNow {
		// Goes through the same chain so it is skipped if a tick is running.
		job := r.cron.Entry(r.entry).WrappedJob
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Run()
		}()
	}

	<-ctx.Done()

	stopped := r.cron.Stop()
	<-stopped.Done()
	wg.Wait()
	r.logger.Info().Int("runs", r.Runs()).Msg("Report scheduler stopped")
	return nil
}

// Next returns the next scheduled activation, or the zero time before Run.
func (r *Runner) Next() time.Time {
	return r.cron.Entry(r.entry).Next
}

// Runs returns how many executions have started.
func (r *Runner) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func (r *Runner) execute(parent context.Context) {
	if parent.Err() != nil {
		return
	}

	r.mu.Lock()
	r.runs++
	n := r.runs
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, r.opts.timeout)
	defer cancel()

	started := time.Now()
	logger := r.logger.With().Int("run", n).Logger()
	logger.Info().Msg("Starting scheduled report")

	run := r.task
	if cb := r.opts.breaker; cb != nil {
		run = func(ctx context.Context) error { return cb.Execute(ctx, r.task) }
	}

	err := run(ctx)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		stats := r.opts.breaker.Stats()
		logger.Warn().
			AnErr("last_error", stats.LastError).
			Time("retry_at", r.opts.breaker.RetryAt()).
			Msg("Skipping scheduled report after repeated failures")
		return
	}
	if err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(started)).Msg("Scheduled report failed")
		return
	}

	logger.Info().
		Dur("duration", time.Since(started)).
		Time("next", r.Next()).
		Msg("Scheduled report completed")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

// Info is routine scheduler chatter; keep it at debug.
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
