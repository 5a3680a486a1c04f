package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxbrief/internal/analysis"
	apperrors "fxbrief/internal/errors"
	"fxbrief/internal/models"
)

var testDay = time.Date(2026, 10, 16, 7, 0, 0, 0, time.Local)

// fakeProvider serves canned data and records the call sequence.
type fakeProvider struct {
	calls     []string
	loginErr  error
	pricesErr error
	eventsErr error
	logoutErr error

	prices    models.PriceSnapshot
	events    []models.EconomicEvent
	sentiment []models.SentimentEntry
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		prices: models.PriceSnapshot{
			models.BTCUSD: 65000,
			models.GBPJPY: 191.234,
			models.XAUUSD: 2345.67,
		},
		events: []models.EconomicEvent{
			{Date: "2026-10-16 12:30", Country: "US", Title: "CPI YoY", Actual: models.Some(3.5), Forecast: models.Some(3.0)},
			{Date: "2026-10-16 06:00", Country: "UK", Title: "Retail Sales MoM", Actual: models.Some(0.6), Forecast: models.Some(0.2)},
		},
		sentiment: []models.SentimentEntry{
			{Name: "BTCUSD", LongPercentage: 60, ShortPercentage: 40},
			{Name: "GBPJPY", LongPercentage: 55, ShortPercentage: 45},
			{Name: "XAUUSD", LongPercentage: 30, ShortPercentage: 70},
		},
	}
}

func (f *fakeProvider) Login(ctx context.Context) (string, error) {
	f.calls = append(f.calls, "login")
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "sess-1", nil
}

func (f *fakeProvider) Logout(ctx context.Context, session string) error {
	f.calls = append(f.calls, "logout:"+session)
	return f.logoutErr
}

func (f *fakeProvider) FetchPrices(ctx context.Context, session string) (models.PriceSnapshot, error) {
	f.calls = append(f.calls, "prices")
	return f.prices, f.pricesErr
}

func (f *fakeProvider) FetchEvents(ctx context.Context, session string, day time.Time) ([]models.EconomicEvent, error) {
	f.calls = append(f.calls, "events:"+day.Format(models.DateLayout))
	return f.events, f.eventsErr
}

func (f *fakeProvider) FetchOutlook(ctx context.Context, session string) ([]models.SentimentEntry, error) {
	f.calls = append(f.calls, "outlook")
	return f.sentiment, nil
}

type fakeRecorder struct{ runs []*models.RunRecord }

func (r *fakeRecorder) SaveRun(ctx context.Context, run *models.RunRecord) error {
	r.runs = append(r.runs, run)
	return nil
}

type fakeNotifier struct {
	reports []*models.Report
	errs    []error
}

func (n *fakeNotifier) SendReport(ctx context.Context, r *models.Report) error {
	n.reports = append(n.reports, r)
	return nil
}

func (n *fakeNotifier) SendError(ctx context.Context, err error, _ string) error {
	n.errs = append(n.errs, err)
	return nil
}

func TestBuild_FixedOrderAndSections(t *testing.T) {
	p := newFakeProvider()
	b := NewBuilder(analysis.NewScorer())

	rep, err := b.Build(testDay, p.prices, p.events, p.sentiment)
	require.NoError(t, err)

	require.Len(t, rep.Analyses, 3)
	assert.Equal(t, models.BTCUSD, rep.Analyses[0].Symbol)
	assert.Equal(t, models.GBPJPY, rep.Analyses[1].Symbol)
	assert.Equal(t, models.XAUUSD, rep.Analyses[2].Symbol)

	want := strings.Join([]string{
		"Rapport fondamental quotidien – 2026-10-16",
		"",
		"Actif: BTCUSD",
		"Prix actuel: 65000",
		"Sentiment: Neutre (score: -0.3)",
		"Facteurs clés:",
		"  - Inflation US plus forte → pression sur BTC",
		"  - Sentiment haussier de la communauté",
		"",
		"Actif: GBPJPY",
		"Prix actuel: 191.234",
		"Sentiment: Haussier (score: 0.7)",
		"Facteurs clés:",
		"  - Ventes UK meilleures → GBP soutenu",
		"  - Sentiment haussier de la communauté",
		"",
		"Actif: XAUUSD",
		"Prix actuel: 2345.67",
		"Sentiment: Baissier (score: -0.5)",
		"Facteurs clés:",
		"  - Inflation US → USD fort → Gold sous pression",
		"  - Sentiment baissier de la communauté",
		"",
	}, "\n")
	assert.Equal(t, want, rep.Text)
}

func TestBuild_EnglishNoDrivers(t *testing.T) {
	b := NewBuilder(analysis.NewScorerWithLocale(analysis.English))
	prices := newFakeProvider().prices

	rep, err := b.Build(testDay, prices, nil, nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rep.Text, "Daily fundamental report – 2026-10-16\n\n"))
	assert.Equal(t, 3, strings.Count(rep.Text, "Key drivers:\n"))
	assert.NotContains(t, rep.Text, "  - ")
	assert.Equal(t, 3, strings.Count(rep.Text, "Sentiment: Neutral (score: 0)"))
}

func TestBuild_MissingPrice(t *testing.T) {
	b := NewBuilder(analysis.NewScorer())

	_, err := b.Build(testDay, models.PriceSnapshot{models.BTCUSD: 1, models.XAUUSD: 2}, nil, nil)

	var me *apperrors.MissingDataError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "GBPJPY", me.Symbol)
}

func TestSink_WritesFileAndStdoutIdentically(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	sink := NewSink(dir, &out)
	rep := &models.Report{Date: testDay, Text: "line one\nline two\n"}

	path, err := sink.Write(rep)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rapport_2026-10-16.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, rep.Text, string(data))
	assert.Equal(t, rep.Text, out.String())
}

func TestSink_SameDayOverwrites(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, &bytes.Buffer{})

	_, err := sink.Write(&models.Report{Date: testDay, Text: "a much longer first version\n"})
	require.NoError(t, err)
	path, err := sink.Write(&models.Report{Date: testDay, Text: "second\n"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))
}

func newTestGenerator(t *testing.T, p *fakeProvider, rec Recorder, n Notifier) (*Generator, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	out := &bytes.Buffer{}
	g := NewGenerator(GeneratorConfig{
		Provider: p,
		Builder:  NewBuilder(analysis.NewScorer()),
		Sink:     NewSink(dir, out),
		Recorder: rec,
		Notifier: n,
		Logger:   zerolog.Nop(),
		Clock:    func() time.Time { return testDay },
	})
	return g, out, dir
}

func TestGenerate_HappyPath(t *testing.T) {
	p := newFakeProvider()
	rec := &fakeRecorder{}
	n := &fakeNotifier{}
	g, out, dir := newTestGenerator(t, p, rec, n)

	res, err := g.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"login", "prices", "events:2026-10-16", "outlook", "logout:sess-1"}, p.calls)
	assert.Equal(t, filepath.Join(dir, "rapport_2026-10-16.txt"), res.Path)
	assert.Equal(t, res.Report.Text, out.String())
	assert.NotEmpty(t, res.RunID)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, res.RunID, rec.runs[0].ID)
	assert.Equal(t, "2026-10-16", rec.runs[0].Date)
	require.Len(t, n.reports, 1)
	assert.Empty(t, n.errs)
}

func TestGenerate_IdempotentForSameInputs(t *testing.T) {
	p := newFakeProvider()
	g, _, _ := newTestGenerator(t, p, nil, nil)

	first, err := g.Generate(context.Background())
	require.NoError(t, err)
	a, err := os.ReadFile(first.Path)
	require.NoError(t, err)

	second, err := g.Generate(context.Background())
	require.NoError(t, err)
	b, err := os.ReadFile(second.Path)
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, a, b)
}

func TestGenerate_LoginFailureSkipsFetchesAndLogout(t *testing.T) {
	p := newFakeProvider()
	p.loginErr = apperrors.NewAuthenticationError("Invalid email or password.")
	n := &fakeNotifier{}
	g, out, dir := newTestGenerator(t, p, nil, n)

	_, err := g.Generate(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.Equal(t, []string{"login"}, p.calls)
	assert.Empty(t, out.String())
	assert.NoFileExists(t, filepath.Join(dir, "rapport_2026-10-16.txt"))
	assert.Len(t, n.errs, 1)
}

func TestGenerate_FetchFailureStillLogsOut(t *testing.T) {
	p := newFakeProvider()
	p.eventsErr = apperrors.NewProviderError("get-economic-calendar", "Invalid session.")
	rec := &fakeRecorder{}
	g, _, _ := newTestGenerator(t, p, rec, nil)

	_, err := g.Generate(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrProviderRejected)
	assert.Equal(t, []string{"login", "prices", "events:2026-10-16", "logout:sess-1"}, p.calls)
	assert.Empty(t, rec.runs)
}

func TestGenerate_MissingPriceStillLogsOut(t *testing.T) {
	p := newFakeProvider()
	delete(p.prices, models.XAUUSD)
	g, _, _ := newTestGenerator(t, p, nil, nil)

	_, err := g.Generate(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrDataNotFound)
	assert.Equal(t, "logout:sess-1", p.calls[len(p.calls)-1])
}

func TestGenerate_LogoutFailureIsNotFatal(t *testing.T) {
	p := newFakeProvider()
	p.logoutErr = apperrors.ErrConnectionFailed
	g, _, _ := newTestGenerator(t, p, nil, nil)

	res, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res.Report)
}
