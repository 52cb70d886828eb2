package analytics

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/metrics"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/resilience"
)

var errAnalyticsTransient = crerr.New("analytics transient failure")

type PublisherConfig struct {
	Endpoint       string
	Token          string
	ServiceName    string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// CounterBatch is one periodic push of pipeline counters.
type CounterBatch struct {
	Service     string         `json:"service"`
	WindowStart time.Time      `json:"windowStart"`
	WindowEnd   time.Time      `json:"windowEnd"`
	Counters    metrics.Totals `json:"counters"`
}

// Publisher posts counter batches to the analytics collaborator.
type Publisher struct {
	client   *http.Client
	endpoint string
	token    string
	service  string
	logger   *logging.Logger
	breaker  *resilience.CircuitBreaker
}

func NewPublisher(cfg PublisherConfig, logger *logging.Logger) *Publisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	breaker := resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker)
	if breaker != nil {
		breaker.OnStateChange = func(from, to resilience.CircuitState) {
			logger.Warn("analytics circuit state changed", "from", from.String(), "to", to.String())
		}
	}

	return &Publisher{
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimSpace(cfg.Endpoint),
		token:    strings.TrimSpace(cfg.Token),
		service:  strings.TrimSpace(cfg.ServiceName),
		logger:   logger,
		breaker:  breaker,
	}
}

func (p *Publisher) PublishCounters(ctx context.Context, windowStart, windowEnd time.Time, counters metrics.Totals) error {
	endpoint, err := validateHTTPURL(p.endpoint)
	if err != nil {
		return crerr.Wrap(err, "invalid ANALYTICS_ENDPOINT")
	}
	batch := CounterBatch{
		Service:     p.service,
		WindowStart: windowStart.UTC(),
		WindowEnd:   windowEnd.UTC(),
		Counters:    counters,
	}

	body, err := sonic.Marshal(batch)
	if err != nil {
		return crerr.Wrap(err, "marshal counter batch")
	}
	curlPreview := buildCurlPreview(endpoint, string(body), p.token != "")

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("analytics.endpoint", endpoint),
			attribute.Int64("analytics.events_published", batch.Counters.EventsPublished),
			attribute.String("analytics.request_curl_preview", curlPreview),
		)
	}
	p.logger.DebugContext(ctx, "analytics publish request", "endpoint", endpoint, "curl_preview", curlPreview)

	if err := p.breaker.Allow(); err != nil {
		p.logger.WarnContext(ctx, "analytics circuit breaker rejected request", "state", p.breaker.State().String())
		return crerr.Wrap(err, "analytics is temporarily unavailable")
	}
	err = p.post(ctx, endpoint, body)
	p.breaker.Report(stderrors.Is(err, errAnalyticsTransient))
	return err
}

func (p *Publisher) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return crerr.Wrap(err, "create analytics request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post counters endpoint=%s: %v", errAnalyticsTransient, endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if isRetryableStatus(resp.StatusCode) {
			return fmt.Errorf("%w: post counters status=%d body=%s", errAnalyticsTransient, resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return crerr.Newf("post counters status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

func validateHTTPURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}
	return candidate, nil
}

func buildCurlPreview(endpoint, body string, withToken bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}

	appendPart("curl -X POST")
	appendPart(shellQuote(endpoint))
	appendPart("-H")
	appendPart(shellQuote("Content-Type: application/json"))
	if withToken {
		appendPart("-H")
		appendPart(shellQuote("Authorization: Bearer ***"))
	}
	appendPart("-d")
	appendPart(shellQuote(truncateForLog(body, 2048)))

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func truncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}
