package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# fxbrief configuration

[provider]
# Myfxbook API host
base_url = "https://www.myfxbook.com"
# HTTP client timeout per request
timeout = "30s"

[report]
# Directory receiving rapport_<date>.txt
output_dir = "."
# Report language: "fr" or "en"
locale = "fr"

[history]
# Keep a SQLite journal of generated reports
enabled = true
# Empty means <config dir>/history.db
path = ""

[schedule]
# Standard 5-field cron expression used by "fxbrief schedule"
cron = "0 7 * * 1-5"
# After this many failed runs in a row, skip activations for cooldown.
# 0 disables the guard.
max_failures = 3
cooldown = "6h"

[logging]
level = "info"
console = true
file = true

[notifications]
# Send the finished report to the channels below
enabled = false
# "all", "reports_only" or "errors_only"
level = "all"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""
`

const credentialsTemplate = `# fxbrief credentials
# WARNING: Keep this file secure! Do not commit to version control.
# MYFXBOOK_EMAIL and MYFXBOOK_PASSWORD take precedence over these values.

[myfxbook]
email = ""
password = ""
`

// writeTemplate writes a commented template on first run. An existing file is left alone.
func writeTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}
	return nil
}
