package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fxbrief/internal/errors"
	"fxbrief/internal/models"
)

// fakeMyfxbook serves the five API endpoints with fixed data dated today.
type fakeMyfxbook struct {
	server    *httptest.Server
	hits      int32
	logouts   int32
	rejectPwd bool
}

func newFakeMyfxbook(t *testing.T) *fakeMyfxbook {
	t.Helper()
	f := &fakeMyfxbook{}
	today := time.Now().Format(models.DateLayout)

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		switch r.URL.Path {
		case "/api/login.json":
			if f.rejectPwd {
				fmt.Fprint(w, `{"error":true,"message":"Invalid email or password."}`)
				return
			}
			fmt.Fprint(w, `{"error":false,"message":"","session":"sess-42"}`)
		case "/api/logout.json":
			atomic.AddInt32(&f.logouts, 1)
			fmt.Fprint(w, `{"error":false,"message":""}`)
		case "/api/get-market.json":
			fmt.Fprint(w, `{"error":false,"message":"","symbols":[
				{"name":"BTCUSD","bid":65000},
				{"name":"GBPJPY","bid":191.234},
				{"name":"XAUUSD","bid":2345.67},
				{"name":"EURUSD","bid":1.0845}
			]}`)
		case "/api/get-economic-calendar.json":
			fmt.Fprintf(w, `{"error":false,"message":"","calendar":[
				{"date":"%[1]s 12:30:00.0","country":"US","title":"CPI YoY","actual":"3.5%%","forecast":"3.0%%"},
				{"date":"%[1]s 06:00:00.0","country":"UK","title":"Retail Sales MoM","actual":0.6,"forecast":0.2},
				{"date":"2000-01-01 06:00:00.0","title":"Old"}
			]}`, today)
		case "/api/get-community-outlook.json":
			fmt.Fprint(w, `{"error":false,"message":"","symbols":[
				{"name":"BTCUSD","longPercentage":60,"shortPercentage":40},
				{"name":"GBPJPY","longPercentage":55,"shortPercentage":45},
				{"name":"XAUUSD","longPercentage":30,"shortPercentage":70}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

type testEnv struct {
	configDir string
	outputDir string
	api       *fakeMyfxbook
}

func newTestEnv(t *testing.T, withCredentials bool) *testEnv {
	t.Helper()
	env := &testEnv{
		configDir: t.TempDir(),
		outputDir: t.TempDir(),
		api:       newFakeMyfxbook(t),
	}

	for _, key := range []string{"MYFXBOOK_EMAIL", "MYFXBOOK_PASSWORD", "FXBRIEF_OUTPUT_DIR", "FXBRIEF_LOCALE"} {
		t.Setenv(key, "")
	}
	if withCredentials {
		t.Setenv("MYFXBOOK_EMAIL", "trader@example.com")
		t.Setenv("MYFXBOOK_PASSWORD", "hunter2")
	}

	cfg := fmt.Sprintf(`
[provider]
base_url = %q
timeout = "5s"

[report]
output_dir = %q

[logging]
console = false
file = false
`, env.api.server.URL, env.outputDir)
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, "config.toml"), []byte(cfg), 0644))
	return env
}

func (e *testEnv) exec(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd(zerolog.Nop())
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *testEnv) reportPath() string {
	return filepath.Join(e.outputDir, "rapport_"+time.Now().Format(models.DateLayout)+".txt")
}

func TestRoot_GeneratesReport(t *testing.T) {
	env := newTestEnv(t, true)

	stdout, _, err := env.exec(t)
	require.NoError(t, err)

	data, err := os.ReadFile(env.reportPath())
	require.NoError(t, err)
	assert.Equal(t, string(data), stdout)

	assert.True(t, strings.HasPrefix(stdout, "Rapport fondamental quotidien – "))
	assert.Contains(t, stdout, "Actif: BTCUSD\nPrix actuel: 65000\nSentiment: Neutre (score: -0.3)\n")
	assert.Contains(t, stdout, "Actif: GBPJPY\nPrix actuel: 191.234\nSentiment: Haussier (score: 0.7)\n")
	assert.Contains(t, stdout, "Actif: XAUUSD\nPrix actuel: 2345.67\nSentiment: Baissier (score: -0.5)\n")
	assert.Equal(t, int32(1), atomic.LoadInt32(&env.api.logouts))
}

func TestRun_RecordsHistory(t *testing.T) {
	env := newTestEnv(t, true)

	report, _, err := env.exec(t, "run", "--locale", "en", "--no-notify")
	require.NoError(t, err)
	assert.Contains(t, report, "Sentiment: Bullish (score: 0.7)")

	out, _, err := env.exec(t, "--json", "history", "list")
	require.NoError(t, err)
	var runs []models.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, env.reportPath(), runs[0].OutputPath)
	require.Len(t, runs[0].Analyses, 3)
	assert.Equal(t, models.Bearish, runs[0].Analyses[2].Sentiment)

	shown, _, err := env.exec(t, "history", "show", runs[0].Date)
	require.NoError(t, err)
	assert.Equal(t, report, shown)

	shown, _, err = env.exec(t, "history", "show", runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, report, shown)

	out, _, err = env.exec(t, "--json", "history", "scores", "btcusd")
	require.NoError(t, err)
	assert.Contains(t, out, `"Score": -0.3`)
}

func TestRun_NoHistory(t *testing.T) {
	env := newTestEnv(t, true)

	_, _, err := env.exec(t, "run", "--no-history")
	require.NoError(t, err)

	out, _, err := env.exec(t, "--json", "history", "list")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestRun_LoginRejected(t *testing.T) {
	env := newTestEnv(t, true)
	env.api.rejectPwd = true

	stdout, _, err := env.exec(t, "run")

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "Invalid email or password.")
	assert.Empty(t, stdout)
	assert.NoFileExists(t, env.reportPath())
	assert.Zero(t, atomic.LoadInt32(&env.api.logouts))
}

func TestRun_MissingCredentialsSendsNothing(t *testing.T) {
	env := newTestEnv(t, false)

	_, _, err := env.exec(t, "run")

	var ce *apperrors.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "myfxbook.email", ce.Field)
	assert.Zero(t, atomic.LoadInt32(&env.api.hits))
	assert.FileExists(t, filepath.Join(env.configDir, "credentials.toml"))
}

func TestHistoryShow_NotFound(t *testing.T) {
	env := newTestEnv(t, true)

	_, _, err := env.exec(t, "history", "show", "2001-02-03")
	assert.ErrorIs(t, err, apperrors.ErrDataNotFound)
}

func TestHistoryScores_UnknownSymbol(t *testing.T) {
	env := newTestEnv(t, true)

	_, _, err := env.exec(t, "history", "scores", "EURUSD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BTCUSD, GBPJPY, XAUUSD")
}

func TestConfigValidate(t *testing.T) {
	env := newTestEnv(t, true)
	out, _, err := env.exec(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	env = newTestEnv(t, false)
	_, _, err = env.exec(t, "config", "validate")
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

func TestConfigShow_HidesSecrets(t *testing.T) {
	env := newTestEnv(t, true)

	out, _, err := env.exec(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, env.api.server.URL)
	assert.Contains(t, out, "tra***")
	assert.NotContains(t, out, "hunter2")

	out, _, err = env.exec(t, "--json", "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "trader@example.com")
}

func TestConfigPathAndVersionSkipLoading(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")

	cmd := NewRootCmd(zerolog.Nop())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", dir, "config", "path"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, dir+"\n", out.String())
	assert.NoDirExists(t, dir)

	cmd = NewRootCmd(zerolog.Nop())
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json", "version"})
	require.NoError(t, cmd.Execute())
	assert.JSONEq(t, fmt.Sprintf(`{"version":%q,"build_date":%q}`, Version, BuildDate), out.String())
}

func TestSchedule_InvalidCron(t *testing.T) {
	env := newTestEnv(t, true)

	_, _, err := env.exec(t, "schedule", "--cron", "every morning")

	var ce *apperrors.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "schedule.cron", ce.Field)
	assert.Zero(t, atomic.LoadInt32(&env.api.hits))
}

func TestSchedule_RunNowUntilCancelled(t *testing.T) {
	env := newTestEnv(t, true)

	cmd := NewRootCmd(zerolog.Nop())
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", env.configDir, "schedule", "--cron", "0 0 1 1 *", "--now", "--no-notify"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&env.api.logouts) == 1 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.FileExists(t, env.reportPath())
}
