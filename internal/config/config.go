// Package config provides configuration management for the report generator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	apperrors "fxbrief/internal/errors"
)

// Environment variables that override file values.
const (
	EnvEmail     = "MYFXBOOK_EMAIL"
	EnvPassword  = "MYFXBOOK_PASSWORD"
	EnvOutputDir = "FXBRIEF_OUTPUT_DIR"
	EnvLocale    = "FXBRIEF_LOCALE"
)

// Config holds all application configuration.
type Config struct {
	Provider      ProviderConfig     `mapstructure:"provider"`
	Report        ReportConfig       `mapstructure:"report"`
	History       HistoryConfig      `mapstructure:"history"`
	Schedule      ScheduleConfig     `mapstructure:"schedule"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Credentials   Credentials        `mapstructure:"-" validate:"-" json:"-"` // Loaded separately
	Dir           string             `mapstructure:"-" validate:"-"`
}

// ProviderConfig holds data provider settings.
type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir" validate:"required"`
	Locale    string `mapstructure:"locale" validate:"oneof=fr en"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ScheduleConfig holds the cron schedule for repeated runs.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`

	// Consecutive failed runs before activations are skipped for Cooldown; 0 disables.
	MaxFailures int           `mapstructure:"max_failures" validate:"gte=0"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level" validate:"omitempty,oneof=all reports_only errors_only"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url" validate:"required_if=Enabled true"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token" validate:"required_if=Enabled true"`
	ChatID   string `mapstructure:"chat_id" validate:"required_if=Enabled true"`
}

// Credentials holds API credentials.
type Credentials struct {
	Myfxbook MyfxbookCredentials `mapstructure:"myfxbook"`
}

// MyfxbookCredentials holds the account used to open a provider session.
type MyfxbookCredentials struct {
	Email    string `mapstructure:"email" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field paths the way they appear in the TOML files.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that both credentials are present. It is called before any
// network call so a missing secret never reaches the provider.
func (c MyfxbookCredentials) Validate() error {
	if err := validate.Struct(c); err != nil {
		return toConfigurationError("myfxbook", err)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/fxbrief"
	}
	return filepath.Join(home, ".config", "fxbrief")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
// Missing files are replaced by templates and defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{Dir: configDir}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.base_url", "https://www.myfxbook.com")
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("report.output_dir", ".")
	v.SetDefault("report.locale", "fr")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("schedule.cron", "0 7 * * 1-5")
	v.SetDefault("schedule.max_failures", 3)
	v.SetDefault("schedule.cooldown", "6h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.level", "all")
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// First run: leave a template behind and carry on with defaults.
		_ = writeTemplate(configDir, "config", configTemplate, 0644)
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		_ = writeTemplate(configDir, "credentials", credentialsTemplate, 0600)
		return nil
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvEmail); v != "" {
		cfg.Credentials.Myfxbook.Email = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Credentials.Myfxbook.Password = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		cfg.Report.OutputDir = v
	}
	if v := os.Getenv(EnvLocale); v != "" {
		cfg.Report.Locale = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return toConfigurationError("", err)
	}

	if c.Provider.Timeout <= 0 {
		return apperrors.NewConfigurationError("provider.timeout", "must be positive")
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return apperrors.NewConfigurationError("schedule.cron", err.Error())
		}
	}
	if c.Schedule.MaxFailures > 0 && c.Schedule.Cooldown <= 0 {
		return apperrors.NewConfigurationError("schedule.cooldown", "must be positive when max_failures is set")
	}

	return nil
}

// HistoryPath returns the SQLite file backing the run history.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.Dir, "history.db")
}

// LogPath returns the rotating log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Dir, "logs", "fxbrief.log")
}

// toConfigurationError reports the first failing field of a validator error.
func toConfigurationError(prefix string, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return apperrors.NewConfigurationError(prefix, err.Error())
	}

	fe := verrs[0]
	// Namespace is "<Struct>.<tag path>"; drop the root type name.
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	if prefix != "" {
		field = prefix + "." + field
	}

	return apperrors.NewConfigurationError(field, describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		switch fe.Field() {
		case "email":
			return "is required (set " + EnvEmail + ")"
		case "password":
			return "is required (set " + EnvPassword + ")"
		}
		return "is required"
	case "required_if":
		return "is required when enabled"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("must be a valid URL, got %q", fe.Value())
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}
