package resilience

import (
	"errors"
	"testing"
	"time"
)

func newTestBreaker(threshold int, openTimeout time.Duration, probes int) (*CircuitBreaker, *time.Time) {
	now := time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)
	b := NewCircuitBreaker(CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: threshold,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   probes,
	})
	b.now = func() time.Time { return now }
	return b, &now
}

func TestCircuitBreaker_OpensAfterThresholdAndRecovers(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(2, 5*time.Second, 1)
	var transitions []string
	b.OnStateChange = func(from, to CircuitState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	for i := 0; i < 2; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("call %d: expected allow while closed: %v", i, err)
		}
		b.Report(true)
	}
	if state := b.State(); state != CircuitOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	*now = now.Add(6 * time.Second)
	if state := b.State(); state != CircuitHalfOpen {
		t.Fatalf("expected half-open once the timeout passed, got %s", state)
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected second concurrent probe to be rejected, got %v", err)
	}

	b.Report(false)
	if state := b.State(); state != CircuitClosed {
		t.Fatalf("expected closed after successful probe, got %s", state)
	}

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(1, time.Second, 1)
	_ = b.Allow()
	b.Report(true)

	*now = now.Add(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe: %v", err)
	}
	b.Report(true)
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected reopened circuit, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(2, time.Second, 1)
	_ = b.Allow()
	b.Report(true)
	_ = b.Allow()
	b.Report(false)
	_ = b.Allow()
	b.Report(true)
	if state := b.State(); state != CircuitClosed {
		t.Fatalf("expected closed: failures were not consecutive, got %s", state)
	}
}

func TestCircuitBreaker_NilAndDisabled(t *testing.T) {
	t.Parallel()

	var b *CircuitBreaker
	if err := b.Allow(); err != nil {
		t.Fatalf("nil breaker must admit: %v", err)
	}
	b.Report(true)
	if b.State() != CircuitClosed {
		t.Fatalf("nil breaker must report closed")
	}
	if NewCircuitBreakerFromConfig(CircuitBreakerConfig{Enabled: false}) != nil {
		t.Fatalf("disabled config must yield a nil breaker")
	}
	if NewCircuitBreakerFromConfig(DefaultCircuitBreakerConfig()) == nil {
		t.Fatalf("enabled config must yield a breaker")
	}
}
