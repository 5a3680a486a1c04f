package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxbrief/internal/config"
	"fxbrief/internal/models"
)

type capture struct {
	mu     sync.Mutex
	paths  []string
	bodies []map[string]interface{}
}

func (c *capture) server(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)

		c.mu.Lock()
		c.paths = append(c.paths, r.URL.Path)
		c.bodies = append(c.bodies, body)
		c.mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testReport() *models.Report {
	return &models.Report{
		Date: time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC),
		Analyses: []models.AssetAnalysis{
			{Symbol: models.BTCUSD, Price: 65000, Score: -0.3, Sentiment: models.Neutral},
			{Symbol: models.GBPJPY, Price: 191.2, Score: 0.7, Sentiment: models.Bullish},
		},
		Text: "Rapport fondamental quotidien – 2026-10-16\n<b>\n",
	}
}

func TestNew_DisabledIsNoOp(t *testing.T) {
	n := New(config.NotificationConfig{Enabled: false})
	_, ok := n.(*NoOpNotifier)
	assert.True(t, ok)
	assert.NoError(t, n.SendReport(context.Background(), testReport()))
}

func TestWebhook_SendReport(t *testing.T) {
	c := &capture{}
	srv := c.server(t, http.StatusNoContent)

	mn := NewMultiNotifier(config.NotificationConfig{
		Enabled: true,
		Webhook: config.WebhookConfig{Enabled: true, URL: srv.URL + "/hook"},
	})

	require.NoError(t, mn.SendReport(context.Background(), testReport()))

	require.Len(t, c.bodies, 1)
	body := c.bodies[0]
	assert.Equal(t, "report", body["type"])
	assert.Equal(t, testReport().Text, body["message"])
	assert.Contains(t, body["title"], "BTCUSD -0.3")

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "2026-10-16", data["date"])
	btc := data["analyses"].(map[string]interface{})["BTCUSD"].(map[string]interface{})
	assert.Equal(t, "Neutral", btc["sentiment"])
}

func TestWebhook_StatusError(t *testing.T) {
	c := &capture{}
	srv := c.server(t, http.StatusInternalServerError)

	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: srv.URL})
	err := w.Send(context.Background(), Notification{Type: NotificationError})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestTelegram_EscapesAndHidesToken(t *testing.T) {
	c := &capture{}
	srv := c.server(t, http.StatusOK)

	tg := NewTelegramNotifier(config.TelegramConfig{Enabled: true, BotToken: "123:secret", ChatID: "42"})
	tg.baseURL = srv.URL

	require.NoError(t, tg.Send(context.Background(), Notification{Title: "a<b", Message: "x & y"}))
	require.Len(t, c.paths, 1)
	assert.Equal(t, "/bot123:secret/sendMessage", c.paths[0])
	assert.Equal(t, "42", c.bodies[0]["chat_id"])
	assert.Equal(t, "<b>a&lt;b</b>\n\n<pre>x &amp; y</pre>", c.bodies[0]["text"])

	tg.baseURL = "http://127.0.0.1:1"
	err := tg.Send(context.Background(), Notification{Title: "t"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}

func TestTelegram_LongMessageKeepsTitleOnly(t *testing.T) {
	c := &capture{}
	srv := c.server(t, http.StatusOK)

	tg := NewTelegramNotifier(config.TelegramConfig{Enabled: true, BotToken: "t", ChatID: "1"})
	tg.baseURL = srv.URL

	require.NoError(t, tg.Send(context.Background(), Notification{Title: "title", Message: strings.Repeat("x", 5000)}))
	assert.Equal(t, "<b>title</b>", c.bodies[0]["text"])
}

type recordingChannel struct {
	name string
	err  error
	got  []Notification
}

func (r *recordingChannel) Name() string    { return r.name }
func (r *recordingChannel) IsEnabled() bool { return true }
func (r *recordingChannel) Send(ctx context.Context, n Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func TestMultiNotifier_LevelFilter(t *testing.T) {
	ch := &recordingChannel{name: "rec"}
	mn := NewMultiNotifier(config.NotificationConfig{Enabled: true, Level: string(LevelErrorsOnly)})
	mn.AddChannel(ch)

	require.NoError(t, mn.SendReport(context.Background(), testReport()))
	require.NoError(t, mn.SendError(context.Background(), errors.New("boom"), "daily report"))

	require.Len(t, ch.got, 1)
	assert.Equal(t, NotificationError, ch.got[0].Type)
	assert.Contains(t, ch.got[0].Message, "Error: boom")
	assert.False(t, ch.got[0].Timestamp.IsZero())
}

func TestMultiNotifier_TriesEveryChannel(t *testing.T) {
	failing := &recordingChannel{name: "first", err: errors.New("down")}
	ok := &recordingChannel{name: "second"}
	mn := NewMultiNotifier(config.NotificationConfig{Enabled: true})
	mn.AddChannel(failing)
	mn.AddChannel(ok)

	err := mn.SendError(context.Background(), errors.New("boom"), "ctx")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "first: down")
	assert.Len(t, ok.got, 1)
}
