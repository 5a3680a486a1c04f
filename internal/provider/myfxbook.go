package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fxbrief/internal/config"
	apperrors "fxbrief/internal/errors"
	"fxbrief/internal/logging"
	"fxbrief/internal/models"
	"fxbrief/internal/security"
)

// DefaultBaseURL is the public Myfxbook host.
const DefaultBaseURL = "https://www.myfxbook.com"

// Endpoint names used in errors and logs.
const (
	endpointLogin    = "login"
	endpointLogout   = "logout"
	endpointMarket   = "get-market"
	endpointCalendar = "get-economic-calendar"
	endpointOutlook  = "get-community-outlook"
)

// maxBodyBytes bounds a single response; the calendar is the largest payload.
const maxBodyBytes = 32 << 20

// MyfxbookConfig holds configuration for the Myfxbook client.
type MyfxbookConfig struct {
	BaseURL     string
	Timeout     time.Duration
	Credentials config.MyfxbookCredentials
	HTTPClient  *http.Client
}

// MyfxbookClient implements Provider against the Myfxbook JSON API.
type MyfxbookClient struct {
	baseURL     string
	credentials config.MyfxbookCredentials
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewMyfxbookClient creates a client. Credentials are checked here so a
// missing email or password fails before any request is sent.
func NewMyfxbookClient(cfg MyfxbookConfig, logger zerolog.Logger) (*MyfxbookClient, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &MyfxbookClient{
		baseURL:     baseURL,
		credentials: cfg.Credentials,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// Login opens a session and returns its token.
func (c *MyfxbookClient) Login(ctx context.Context) (string, error) {
	var resp loginResponse
	params := url.Values{
		"email":    {c.credentials.Email},
		"password": {c.credentials.Password},
	}
	if err := c.get(ctx, endpointLogin, params, &resp); err != nil {
		return "", err
	}

	session, err := decodeSession(resp)
	if err != nil {
		return "", err
	}

	c.log(ctx).Info().Msg("Session opened")
	return session, nil
}

// Logout closes the session. The response body is not consulted.
func (c *MyfxbookClient) Logout(ctx context.Context, session string) error {
	var resp envelope
	if err := c.get(ctx, endpointLogout, url.Values{"session": {session}}, &resp); err != nil {
		return err
	}
	c.log(ctx).Info().Msg("Session closed")
	return nil
}

// FetchPrices returns the bid of each tracked instrument.
func (c *MyfxbookClient) FetchPrices(ctx context.Context, session string) (models.PriceSnapshot, error) {
	var resp marketResponse
	if err := c.get(ctx, endpointMarket, url.Values{"session": {session}}, &resp); err != nil {
		return nil, err
	}
	return decodePrices(resp)
}

// FetchEvents returns calendar events dated on day.
func (c *MyfxbookClient) FetchEvents(ctx context.Context, session string, day time.Time) ([]models.EconomicEvent, error) {
	var resp calendarResponse
	if err := c.get(ctx, endpointCalendar, url.Values{"session": {session}}, &resp); err != nil {
		return nil, err
	}
	return decodeEvents(resp, day)
}

// FetchOutlook returns the community long/short positioning for every symbol.
func (c *MyfxbookClient) FetchOutlook(ctx context.Context, session string) ([]models.SentimentEntry, error) {
	var resp outlookResponse
	if err := c.get(ctx, endpointOutlook, url.Values{"session": {session}}, &resp); err != nil {
		return nil, err
	}
	return decodeOutlook(resp)
}

// log prefers the logger attached to ctx so calls made during a generation
// carry its run_id.
func (c *MyfxbookClient) log(ctx context.Context) zerolog.Logger {
	return logging.WithOperation(logging.FromContextOr(ctx, c.logger), "myfxbook")
}

func (c *MyfxbookClient) get(ctx context.Context, endpoint string, params url.Values, out interface{}) (err error) {
	path := "/api/" + endpoint + ".json"
	logger := c.log(ctx)
	start := time.Now()
	defer func() {
		logging.LogAPICall(logger, http.MethodGet, path, time.Since(start), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrConnectionFailed, "%s: %v", endpoint, redact(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrConnectionFailed, "%s: %v", endpoint, redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return apperrors.Wrapf(apperrors.ErrConnectionFailed, "%s: http %d: %s",
			endpoint, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return apperrors.NewParseError(endpoint, nil, err)
	}
	return nil
}

// redact masks the password and session token carried in the query string of URL errors.
func redact(err error) error {
	if uerr, ok := err.(*url.Error); ok {
		return fmt.Errorf("%s %s: %w", uerr.Op, security.MaskString(uerr.URL), uerr.Err)
	}
	return err
}
