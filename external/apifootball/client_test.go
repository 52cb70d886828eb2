package apifootball

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/resilience"
	"github.com/mastermhp/Live-Baz-sub000/internal/usecase"
)

const liveFixturesBody = `{
  "get": "fixtures",
  "errors": [],
  "results": 1,
  "response": [{
    "fixture": {
      "id": 1208021,
      "referee": "Anthony Taylor",
      "timestamp": 1767380400,
      "venue": {"name": "Example Park", "city": "London"},
      "status": {"short": "2H", "elapsed": 71}
    },
    "league": {"id": 39, "name": "Premier League", "logo": "https://media.example/39.png"},
    "teams": {
      "home": {"id": 42, "name": "Arsenal", "logo": "a.png"},
      "away": {"id": 49, "name": "Chelsea", "logo": "c.png"}
    },
    "goals": {"home": 2, "away": null},
    "statistics": [{
      "team": {"id": 42},
      "statistics": [{"type": "Ball Possession", "value": "61%"}, {"type": "Total Shots", "value": 14}]
    }]
  }]
}`

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:       baseURL,
		APIKey:        "secret-key",
		Timeout:       2 * time.Second,
		RatePerMinute: 60000,
		Now: func() time.Time {
			return time.Date(2026, 1, 2, 18, 30, 0, 0, time.UTC)
		},
	})
}

func TestClient_FetchLive(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fixtures" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("live") != "all" {
			t.Errorf("expected live=all, got %q", r.URL.RawQuery)
		}
		if r.Header.Get(apiKeyHeader) != "secret-key" {
			t.Errorf("missing api key header")
		}
		_, _ = w.Write([]byte(liveFixturesBody))
	}))
	defer server.Close()

	items, err := newTestClient(server.URL).FetchLive(context.Background())
	if err != nil {
		t.Fatalf("fetch live: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 fixture, got %d", len(items))
	}
	item := items[0]
	if item.Fixture.ID != 1208021 || item.Fixture.Status.Short != "2H" {
		t.Fatalf("unexpected fixture: %+v", item.Fixture)
	}
	if item.Goals.Home == nil || *item.Goals.Home != 2 || item.Goals.Away != nil {
		t.Fatalf("unexpected goals: %+v", item.Goals)
	}
	if item.Fixture.Venue == nil || item.Fixture.Venue.Name == nil || *item.Fixture.Venue.Name != "Example Park" {
		t.Fatalf("unexpected venue: %+v", item.Fixture.Venue)
	}
	if len(item.Statistics) != 1 || len(item.Statistics[0].Statistics) != 2 {
		t.Fatalf("unexpected statistics: %+v", item.Statistics)
	}

	record, err := usecase.NormalizeMatch(usecase.ProviderRawMatch(item))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if record.Score.Home != 2 || record.Score.Away != 0 || record.Statistics.Home.Possession != 61 {
		t.Fatalf("unexpected normalized record: %+v", record)
	}
}

func TestClient_FetchUpcomingRequestsEveryDay(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		dates []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		dates = append(dates, r.URL.Query().Get("date"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"errors": [], "results": 0, "response": []}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).FetchUpcoming(context.Background(), 3); err != nil {
		t.Fatalf("fetch upcoming: %v", err)
	}

	want := map[string]bool{"2026-01-02": true, "2026-01-03": true, "2026-01-04": true}
	if len(dates) != len(want) {
		t.Fatalf("unexpected request count: %v", dates)
	}
	for _, date := range dates {
		if !want[date] {
			t.Fatalf("unexpected date requested: %s", date)
		}
	}
}

func TestClient_FetchFinishedLooksBack(t *testing.T) {
	t.Parallel()

	var sawYesterday atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") == "2026-01-01" {
			sawYesterday.Store(true)
		}
		_, _ = w.Write([]byte(`{"errors": [], "response": []}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).FetchFinished(context.Background(), 2); err != nil {
		t.Fatalf("fetch finished: %v", err)
	}
	if !sawYesterday.Load() {
		t.Fatalf("expected a request for the previous day")
	}
}

func TestClient_ProviderErrorsAreFetchFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"errors object": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"errors": {"token": "Error/Missing application key."}, "response": []}`))
		},
		"non-2xx": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		},
		"malformed body": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"response": [`))
		},
	}
	for name, handler := range cases {
		handler := handler
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(handler)
			defer server.Close()

			_, err := newTestClient(server.URL).FetchLive(context.Background())
			if !errors.Is(err, usecase.ErrFetchFailure) {
				t.Fatalf("expected ErrFetchFailure, got %v", err)
			}
		})
	}
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"errors": [], "response": []}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 1, RatePerMinute: 60000})
	if _, err := client.FetchLive(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestClient_CircuitOpensAfterTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:       server.URL,
		RatePerMinute: 60000,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})
	for i := 0; i < 2; i++ {
		if _, err := client.FetchLive(context.Background()); err == nil {
			t.Fatalf("expected failure on call %d", i)
		}
	}

	_, err := client.FetchLive(context.Background())
	if !errors.Is(err, usecase.ErrDependencyUnavailable) || !errors.Is(err, usecase.ErrFetchFailure) {
		t.Fatalf("expected open circuit error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("open circuit must not reach the provider, calls=%d", calls.Load())
	}
}

func TestProviderErrorMessage(t *testing.T) {
	t.Parallel()

	if msg := providerErrorMessage([]any{}); msg != "" {
		t.Fatalf("expected empty message, got %q", msg)
	}
	if msg := providerErrorMessage(map[string]any{}); msg != "" {
		t.Fatalf("expected empty message, got %q", msg)
	}
	if msg := providerErrorMessage(map[string]any{"rateLimit": "Too many requests"}); msg != "rateLimit: Too many requests" {
		t.Fatalf("unexpected message: %q", msg)
	}
}
