package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	apperrors "fxbrief/internal/errors"
	"fxbrief/internal/resilience"
	"fxbrief/internal/schedule"
)

func newScheduleCmd(app *App) *cobra.Command {
	opts := &runOptions{}
	var spec string
	var now bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate reports on a cron schedule",
		Long: `Generate a report at every activation of a standard 5-field cron expression
(default from schedule.cron, "0 7 * * 1-5"). Each activation is an independent
run with its own session. Activations that fire while a run is still in
progress are skipped. After schedule.max_failures failed runs in a row, or one
rejected login, activations are skipped for schedule.cooldown. Stops on
interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if spec == "" {
				spec = app.Config.Schedule.Cron
			}
			if spec == "" {
				return apperrors.NewConfigurationError("schedule.cron", "is required")
			}

			gen, cleanup, err := app.newGenerator(cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			defer cleanup()

			task := func(ctx context.Context) error {
				_, err := gen.Generate(ctx)
				return err
			}

			var runnerOpts []schedule.Option
			if now {
				runnerOpts = append(runnerOpts, schedule.WithRunNow())
			}
			if cb := newRunBreaker(app.Config.Schedule.MaxFailures, app.Config.Schedule.Cooldown); cb != nil {
				runnerOpts = append(runnerOpts, schedule.WithBreaker(cb))
			}
			runner, err := schedule.NewRunner(spec, task, app.Logger, runnerOpts...)
			if err != nil {
				return apperrors.NewConfigurationError("schedule.cron", err.Error())
			}

			return runner.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", "cron expression (overrides schedule.cron)")
	cmd.Flags().BoolVar(&now, "now", false, "also generate a report immediately")
	addRunFlags(cmd, opts)
	return cmd
}

// newRunBreaker returns nil when maxFailures is 0. Rejected credentials and
// invalid settings open it on the first failure.
func newRunBreaker(maxFailures int, cooldown time.Duration) *resilience.CircuitBreaker {
	if maxFailures <= 0 {
		return nil
	}
	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = maxFailures
	if cooldown > 0 {
		cfg.Cooldown = cooldown
	}
	cfg.Permanent = func(err error) bool {
		return errors.Is(err, apperrors.ErrInvalidCredentials) || errors.Is(err, apperrors.ErrConfigInvalid)
	}
	return resilience.NewCircuitBreaker("myfxbook", cfg)
}
