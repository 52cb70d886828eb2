package apifootball

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/metrics"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/resilience"
	"github.com/mastermhp/Live-Baz-sub000/internal/usecase"
)

const (
	defaultBaseURL       = "https://v3.football.api-sports.io"
	defaultTimezone      = "UTC"
	defaultRatePerMinute = 30
	defaultWorkers       = 4
	maxWindowDays        = 14
	apiKeyHeader         = "x-apisports-key"
	responseBodyLimit    = 6 << 20
)

var errProviderTransient = crerr.New("api-football transient failure")

var tracer = otel.Tracer("livebaz/external/apifootball")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timezone       string
	Timeout        time.Duration
	MaxRetries     int
	RatePerMinute  int
	Workers        int
	Logger         *logging.Logger
	Metrics        *metrics.Pipeline
	CircuitBreaker resilience.CircuitBreakerConfig
	Now            func() time.Time
}

// Client reads fixtures from API-Football. Every call is bounded by the
// HTTP timeout, the shared rate limiter and the circuit breaker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timezone   string
	maxRetries int
	workers    int
	limiter    *rate.Limiter
	logger     *logging.Logger
	metrics    *metrics.Pipeline
	breaker    *resilience.CircuitBreaker
	flight     resilience.Flight[[]byte]
	now        func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timezone := strings.TrimSpace(cfg.Timezone)
	if timezone == "" {
		timezone = defaultTimezone
	}
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = defaultRatePerMinute
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	breaker := resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker)
	if breaker != nil {
		breaker.OnStateChange = func(from, to resilience.CircuitState) {
			logger.Warn("api-football circuit state changed", "from", from.String(), "to", to.String())
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timezone:   timezone,
		maxRetries: max(cfg.MaxRetries, 0),
		workers:    workers,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), max(perMinute/10, 1)),
		logger:     logger,
		metrics:    cfg.Metrics,
		breaker:    breaker,
		now:        now,
	}
}

// FetchLive returns every fixture currently in play.
func (c *Client) FetchLive(ctx context.Context) ([]match.ProviderFixture, error) {
	ctx, span := tracer.Start(ctx, "apifootball.FetchLive")
	defer span.End()

	items, err := c.fetchFixtures(ctx, map[string]string{"live": "all"})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: live fixtures: %w", usecase.ErrFetchFailure, err)
	}
	span.SetAttributes(attribute.Int("apifootball.fixtures", len(items)))
	return items, nil
}

// FetchUpcoming returns fixtures from today through windowDays-1 days ahead.
func (c *Client) FetchUpcoming(ctx context.Context, windowDays int) ([]match.ProviderFixture, error) {
	ctx, span := tracer.Start(ctx, "apifootball.FetchUpcoming", trace.WithAttributes(attribute.Int("apifootball.window_days", windowDays)))
	defer span.End()

	today := c.today()
	days := clampDays(windowDays)
	dates := make([]time.Time, 0, days)
	for offset := 0; offset < days; offset++ {
		dates = append(dates, today.AddDate(0, 0, offset))
	}

	items, err := c.fetchByDates(ctx, dates)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: upcoming fixtures: %w", usecase.ErrFetchFailure, err)
	}
	return items, nil
}

// FetchFinished returns fixtures from the last lookbackDays days, today included.
func (c *Client) FetchFinished(ctx context.Context, lookbackDays int) ([]match.ProviderFixture, error) {
	ctx, span := tracer.Start(ctx, "apifootball.FetchFinished", trace.WithAttributes(attribute.Int("apifootball.lookback_days", lookbackDays)))
	defer span.End()

	today := c.today()
	days := clampDays(lookbackDays)
	dates := make([]time.Time, 0, days)
	for offset := 0; offset < days; offset++ {
		dates = append(dates, today.AddDate(0, 0, -offset))
	}

	items, err := c.fetchByDates(ctx, dates)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: finished fixtures: %w", usecase.ErrFetchFailure, err)
	}
	return items, nil
}

// fetchByDates issues one request per date on a bounded worker pool. Any
// failed date fails the whole call so a partial provider set never reaches
// the merge step.
func (c *Client) fetchByDates(ctx context.Context, dates []time.Time) ([]match.ProviderFixture, error) {
	pool, err := ants.NewPool(min(c.workers, len(dates)))
	if err != nil {
		return nil, crerr.Wrap(err, "create fetch worker pool")
	}
	defer pool.Release()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string][]match.ProviderFixture, len(dates))
		errs    []error
	)
	for _, date := range dates {
		day := date.Format("2006-01-02")
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			items, fetchErr := c.fetchFixtures(ctx, map[string]string{"date": day})
			mu.Lock()
			defer mu.Unlock()
			if fetchErr != nil {
				errs = append(errs, crerr.Wrapf(fetchErr, "date=%s", day))
				return
			}
			results[day] = items
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, crerr.Wrapf(submitErr, "submit date=%s", day))
			mu.Unlock()
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, stderrors.Join(errs...)
	}

	days := make([]string, 0, len(results))
	for day := range results {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([]match.ProviderFixture, 0)
	for _, day := range days {
		out = append(out, results[day]...)
	}
	return out, nil
}

type fixturesEnvelope struct {
	Errors   any                     `json:"errors"`
	Results  int                     `json:"results"`
	Response []match.ProviderFixture `json:"response"`
}

func (c *Client) fetchFixtures(ctx context.Context, query map[string]string) ([]match.ProviderFixture, error) {
	params := map[string]string{"timezone": c.timezone}
	for key, value := range query {
		params[key] = value
	}

	var envelope fixturesEnvelope
	err := c.doJSON(ctx, "/fixtures", params, &envelope)
	c.metrics.ProviderRequest("fixtures", err)
	if err != nil {
		return nil, err
	}
	if msg := providerErrorMessage(envelope.Errors); msg != "" {
		return nil, crerr.Newf("provider rejected request: %s", msg)
	}
	return envelope.Response, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, _, err := c.flight.Do(fullURL, func() ([]byte, error) {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "api-football circuit breaker rejected request", "state", c.breaker.State().String())
			return nil, fmt.Errorf("%w: match provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
		body, reqErr := c.executeRequest(ctx, fullURL)
		c.breaker.Report(isCircuitFailure(reqErr))
		return body, reqErr
	})
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return crerr.Wrap(err, "decode provider payload")
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, crerr.Wrap(err, "wait for provider rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set(apiKeyHeader, c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errProviderTransient, redactKey(err.Error(), c.apiKey))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errProviderTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errProviderTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * 500 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.New("provider request failed")
	}
	c.logger.WarnContext(ctx, "api-football request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) today() time.Time {
	now := c.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func clampDays(days int) int {
	if days < 1 {
		return 1
	}
	if days > maxWindowDays {
		return maxWindowDays
	}
	return days
}

// providerErrorMessage flattens the "errors" field, which the provider sends
// as an empty list on success and as a list or object of messages otherwise.
func providerErrorMessage(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+": "+fmt.Sprint(v[key]))
		}
		return strings.Join(parts, "; ")
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errProviderTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func redactKey(value, key string) string {
	value = strings.TrimSpace(value)
	if key == "" {
		return value
	}
	return strings.ReplaceAll(value, key, "REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
