package analytics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/metrics"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/resilience"
)

func TestPublisher_PublishCounters(t *testing.T) {
	t.Parallel()

	var got CounterBatch
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			t.Errorf("missing bearer token")
		}
		raw, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(raw, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	publisher := NewPublisher(PublisherConfig{Endpoint: server.URL, Token: "token-1", ServiceName: "live-baz"}, nil)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := publisher.PublishCounters(context.Background(), start, start.Add(time.Minute), metrics.Totals{Cycles: 4, GoalEvents: 1})
	if err != nil {
		t.Fatalf("publish counters: %v", err)
	}
	if got.Service != "live-baz" || got.Counters.Cycles != 4 || got.Counters.GoalEvents != 1 {
		t.Fatalf("unexpected batch: %+v", got)
	}
	if !got.WindowEnd.Equal(start.Add(time.Minute)) {
		t.Fatalf("unexpected window end: %s", got.WindowEnd)
	}
}

func TestPublisher_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	for _, endpoint := range []string{"", "ftp://collector", "http://"} {
		err := NewPublisher(PublisherConfig{Endpoint: endpoint}, nil).PublishCounters(context.Background(), time.Now(), time.Now(), metrics.Totals{})
		if err == nil {
			t.Fatalf("expected error for endpoint %q", endpoint)
		}
	}
}

func TestPublisher_CircuitOpensOnTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	publisher := NewPublisher(PublisherConfig{
		Endpoint: server.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, nil)

	if err := publisher.PublishCounters(context.Background(), time.Now(), time.Now(), metrics.Totals{}); err == nil {
		t.Fatalf("expected transient failure")
	}
	err := publisher.PublishCounters(context.Background(), time.Now(), time.Now(), metrics.Totals{})
	if err == nil || !strings.Contains(err.Error(), "temporarily unavailable") {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
}

func TestBuildCurlPreviewMasksToken(t *testing.T) {
	t.Parallel()

	preview := buildCurlPreview("https://collector.example/v1/counters", `{"a":1}`, true)
	if !strings.Contains(preview, "Bearer ***") || strings.Contains(preview, "token") {
		t.Fatalf("unexpected preview: %s", preview)
	}
}
