package feedclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
)

// Fetcher loads the current list for one class.
type Fetcher interface {
	Fetch(ctx context.Context, class match.Class, windowDays int) ([]match.Record, error)
}

type feedEnvelope struct {
	Data *struct {
		Class    match.Class    `json:"class"`
		Degraded bool           `json:"degraded"`
		Matches  []match.Record `json:"matches"`
	} `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPFetcher reads GET /v1/matches/{class} from the feed API.
type HTTPFetcher struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, class match.Class, windowDays int) ([]match.Record, error) {
	endpoint := f.baseURL + "/v1/matches/" + url.PathEscape(string(class))
	if windowDays > 0 {
		endpoint += "?window=" + strconv.Itoa(windowDays)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s matches: %w", class, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s matches: %w", class, err)
	}

	var envelope feedEnvelope
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s matches (status %d): %w", class, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if envelope.Error != nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		return nil, fmt.Errorf("fetch %s matches: status %d: %s", class, resp.StatusCode, msg)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("fetch %s matches: empty data", class)
	}
	if envelope.Data.Matches == nil {
		return []match.Record{}, nil
	}
	return envelope.Data.Matches, nil
}
