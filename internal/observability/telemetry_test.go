package observability

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mastermhp/Live-Baz-sub000/internal/config"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
)

func TestSetup_AllDisabled(t *testing.T) {
	t.Parallel()

	tel, err := Setup(config.Config{UptraceEnabled: true, UptraceDSN: " "}, logging.NewNop())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if got := tel.Running(); len(got) != 0 {
		t.Fatalf("expected nothing running, got %v", got)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetup_PprofServesAndStops(t *testing.T) {
	t.Parallel()

	tel, err := Setup(config.Config{PprofEnabled: true, PprofAddr: "127.0.0.1:0"}, logging.NewNop())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if got := tel.Running(); len(got) != 1 || got[0] != "pprof" {
		t.Fatalf("expected pprof running, got %v", got)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(tel.Running()) != 0 {
		t.Fatalf("expected shutdown to clear running backends")
	}
}

func TestSetup_PprofAddressInUseFails(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	if _, err := Setup(config.Config{PprofEnabled: true, PprofAddr: ln.Addr().String()}, logging.NewNop()); err == nil {
		t.Fatalf("expected bind conflict to fail setup")
	}
}

func TestDebugMux_ServesIndex(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	debugMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
