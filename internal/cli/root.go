// Package cli provides the command-line interface for the report generator.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fxbrief/internal/config"
	"fxbrief/internal/logging"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-16"
)

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI. logger is used until the
// configuration is loaded and replaced by one built from it.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	app := &App{Logger: logger}
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:   "fxbrief",
		Short: "Daily fundamental report for BTCUSD, GBPJPY and XAUUSD",
		Long: `fxbrief logs in to Myfxbook, fetches prices, today's economic calendar and the
community outlook, scores BTCUSD, GBPJPY and XAUUSD, and writes a plain-text
report to rapport_<date>.txt and stdout.

Running fxbrief without a command generates one report.
Credentials come from credentials.toml or MYFXBOOK_EMAIL / MYFXBOOK_PASSWORD.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, app, opts)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/fxbrief)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	addRunFlags(rootCmd, opts)

	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newScheduleCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// setup loads configuration and rebuilds the logger from it.
func (a *App) setup(cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")

	if cmd.Annotations[skipConfig] == "" {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		a.Config = cfg

		logCfg := logging.DefaultLogConfig()
		logCfg.Level = cfg.Logging.Level
		logCfg.Console = cfg.Logging.Console
		logCfg.File = cfg.Logging.File
		logCfg.FilePath = cfg.LogPath()
		logCfg.ConsoleOut = cmd.ErrOrStderr()
		if debug {
			logCfg.Level = "debug"
		}
		a.Logger = logging.NewLoggerWithConfig(logCfg)
	}

	if debug {
		logging.SetDebugLevel()
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}
	a.Logger.Debug().Str("command", cmd.CommandPath()).Msg("Command starting")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("fxbrief v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}
