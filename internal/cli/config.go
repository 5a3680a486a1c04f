package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"fxbrief/internal/config"
	"fxbrief/internal/security"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and check the configuration in config.toml and credentials.toml.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration directory path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": dir})
			}
			output.Println(dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			// Settings were validated on load; credentials are only checked on use.
			if err := app.Config.Credentials.Myfxbook.Validate(); err != nil {
				if !output.IsJSON() {
					output.Error("Configuration validation failed: %v", err)
				}
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	line := func(label string, value interface{}) {
		output.Printf("  %s %v\n", PadRight(label+":", 17), value)
	}

	output.Bold("Files")
	line("Config", filepath.Join(cfg.Dir, "config.toml"))
	line("Credentials", filepath.Join(cfg.Dir, "credentials.toml"))
	line("Log", cfg.LogPath())
	output.Println()

	output.Bold("Provider")
	line("Base URL", cfg.Provider.BaseURL)
	line("Timeout", cfg.Provider.Timeout)
	line("Email", orNotSet(security.MaskEmail(cfg.Credentials.Myfxbook.Email)))
	line("Password", orNotSet(security.MaskCredential(cfg.Credentials.Myfxbook.Password)))
	output.Println()

	output.Bold("Report")
	line("Output dir", cfg.Report.OutputDir)
	line("Locale", cfg.Report.Locale)
	output.Println()

	output.Bold("History")
	line("Enabled", cfg.History.Enabled)
	line("Database", cfg.HistoryPath())
	output.Println()

	output.Bold("Schedule")
	line("Cron", cfg.Schedule.Cron)
	line("Max failures", cfg.Schedule.MaxFailures)
	line("Cooldown", cfg.Schedule.Cooldown)
	output.Println()

	output.Bold("Notifications")
	line("Enabled", cfg.Notifications.Enabled)
	line("Level", cfg.Notifications.Level)
	line("Webhook", cfg.Notifications.Webhook.Enabled)
	if cfg.Notifications.Webhook.URL != "" {
		line("Webhook URL", TruncateString(cfg.Notifications.Webhook.URL, 48))
	}
	line("Telegram", cfg.Notifications.Telegram.Enabled)
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
