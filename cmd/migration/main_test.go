package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
)

func TestParseSteps(t *testing.T) {
	t.Parallel()

	if steps, err := parseSteps(nil); err != nil || steps != 1 {
		t.Fatalf("expected default of 1 step, got %d err=%v", steps, err)
	}
	if steps, err := parseSteps([]string{" 3 "}); err != nil || steps != 3 {
		t.Fatalf("expected 3 steps, got %d err=%v", steps, err)
	}
	if _, err := parseSteps([]string{"0"}); err == nil {
		t.Fatalf("expected error for zero steps")
	}
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	if _, err := parseVersion("-1"); err == nil {
		t.Fatalf("expected error for negative version")
	}
	if v, err := parseVersion("1"); err != nil || v != 1 {
		t.Fatalf("unexpected version %d err=%v", v, err)
	}
}

func TestWithPreparedBinaryFlag(t *testing.T) {
	t.Parallel()

	got := withPreparedBinaryFlag("postgres://u:p@localhost:5432/livebaz?sslmode=disable", true)
	if !strings.Contains(got, "disable_prepared_binary_result=yes") {
		t.Fatalf("expected flag appended, got %q", got)
	}
	dsn := "host=localhost dbname=livebaz"
	if got := withPreparedBinaryFlag(dsn, true); got != dsn {
		t.Fatalf("expected key/value dsn unchanged, got %q", got)
	}
}

func TestRun_RequiresCommand(t *testing.T) {
	t.Parallel()

	if err := run(nil, logging.NewNop()); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}
