package postgres

import (
	"database/sql"
	"testing"
)

func TestOptionalText(t *testing.T) {
	t.Parallel()

	if got := optionalText("   "); got != nil {
		t.Fatalf("expected nil for blank value, got %q", *got)
	}
	if got := optionalText(" 1208021 "); got == nil || *got != "1208021" {
		t.Fatalf("unexpected value: %v", got)
	}
}

func TestOptionalInt(t *testing.T) {
	t.Parallel()

	if got := optionalInt(sql.NullInt64{}); got != nil {
		t.Fatalf("expected nil, got %d", *got)
	}
	if got := optionalInt(sql.NullInt64{Valid: true}); got == nil || *got != 0 {
		t.Fatalf("expected pointer to 0, got %v", got)
	}
}

func TestToArgs(t *testing.T) {
	t.Parallel()

	args := toArgs([]string{"live", "1h"})
	if len(args) != 2 || args[0] != "live" || args[1] != "1h" {
		t.Fatalf("unexpected args %v", args)
	}
}
