package cli

import (
	"io"

	"github.com/spf13/cobra"

	"fxbrief/internal/analysis"
	"fxbrief/internal/notify"
	"fxbrief/internal/provider"
	"fxbrief/internal/report"
	"fxbrief/internal/store"
)

type runOptions struct {
	outputDir string
	locale    string
	noHistory bool
	noNotify  bool
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "directory for rapport_<date>.txt (overrides report.output_dir)")
	cmd.Flags().StringVar(&opts.locale, "locale", "", "report language: fr or en (overrides report.locale)")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "do not record this run in the history database")
	cmd.Flags().BoolVar(&opts.noNotify, "no-notify", false, "do not send notifications")
}

func newRunCmd(app *App) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate today's report",
		Long: `Generate today's report: log in, fetch market data, score the tracked
instruments, write rapport_<date>.txt and print it, then log out.

A report for the same day is overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, app, opts)
		},
	}
	addRunFlags(cmd, opts)
	return cmd
}

// runReport performs one generation. The report text goes to stdout; the
// summary line goes to stderr so stdout stays identical to the file.
func runReport(cmd *cobra.Command, app *App, opts *runOptions) error {
	gen, cleanup, err := app.newGenerator(cmd.OutOrStdout(), opts)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := gen.Generate(cmd.Context())
	if err != nil {
		return err
	}

	app.Logger.Info().Str("run_id", res.RunID).Str("path", res.Path).Msg("Report saved")
	return nil
}

// newGenerator wires the provider, scorer, sink, history and notifiers from
// the loaded configuration. The returned cleanup closes the history store.
func (a *App) newGenerator(stdout io.Writer, opts *runOptions) (*report.Generator, func(), error) {
	cfg := a.Config
	cleanup := func() {}

	localeCode := cfg.Report.Locale
	if opts.locale != "" {
		localeCode = opts.locale
	}
	locale, err := analysis.LocaleFor(localeCode)
	if err != nil {
		return nil, cleanup, err
	}

	client, err := provider.NewMyfxbookClient(provider.MyfxbookConfig{
		BaseURL:     cfg.Provider.BaseURL,
		Timeout:     cfg.Provider.Timeout,
		Credentials: cfg.Credentials.Myfxbook,
	}, a.Logger)
	if err != nil {
		return nil, cleanup, err
	}

	outputDir := cfg.Report.OutputDir
	if opts.outputDir != "" {
		outputDir = opts.outputDir
	}

	genCfg := report.GeneratorConfig{
		Provider: client,
		Builder:  report.NewBuilder(analysis.NewScorerWithLocale(locale)),
		Sink:     report.NewSink(outputDir, stdout),
		Logger:   a.Logger,
	}

	if cfg.History.Enabled && !opts.noHistory {
		st, err := store.NewSQLiteStore(cfg.HistoryPath())
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to open history store, run will not be recorded")
		} else {
			genCfg.Recorder = st
			cleanup = func() { st.Close() }
			a.Logger.Debug().Str("path", cfg.HistoryPath()).Msg("History store opened")
		}
	}

	if !opts.noNotify {
		genCfg.Notifier = notify.New(cfg.Notifications)
	}

	return report.NewGenerator(genCfg), cleanup, nil
}
