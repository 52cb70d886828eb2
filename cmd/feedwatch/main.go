// feedwatch follows the live feed from a terminal. It keeps one view per
// requested class, polls the HTTP API and, unless -poll-only is set, applies
// pushed updates from the websocket between polls.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	"github.com/mastermhp/Live-Baz-sub000/internal/feedclient"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/resilience"
)

var (
	apiURL     = flag.String("api", envOr("FEEDWATCH_API_URL", "http://localhost:8080"), "Base URL of the feed API")
	classes    = flag.String("classes", "live", "Comma separated classes to watch: live, upcoming, finished")
	windowDays = flag.Int("window", 0, "Day window for upcoming/finished lists, 0 for the server default")
	pollOnly   = flag.Bool("poll-only", false, "Disable the websocket and only poll")
	attempts   = flag.Int("reconnect-attempts", 5, "Reconnect attempts before falling back to polling, 0 for unlimited")
	verbose    = flag.Bool("verbose", false, "Debug logging")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	level := logging.LevelWarn
	if *verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewJSON(level)
	defer func() { _ = logger.Sync() }()

	watched, err := parseClasses(*classes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := feedclient.NewHTTPFetcher(*apiURL, 10*time.Second)

	var manager *feedclient.ConnectionManager
	if !*pollOnly {
		wsURL, err := websocketURL(*apiURL)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		backoff := resilience.DefaultBackoff()
		backoff.MaxAttempts = *attempts
		manager = feedclient.NewConnectionManager(feedclient.ManagerConfig{
			URL:     wsURL,
			Backoff: backoff,
			Logger:  logger.With("component", "ws"),
		})
	}

	var outMu sync.Mutex
	views := make([]*feedclient.ClassView, 0, len(watched))
	for _, class := range watched {
		view := feedclient.NewClassView(feedclient.ViewConfig{
			Class:      class,
			WindowDays: *windowDays,
			Logger:     logger.With("class", string(class)),
			OnChange: func(v feedclient.View) {
				outMu.Lock()
				defer outMu.Unlock()
				render(os.Stdout, v)
			},
		}, fetcher, manager)
		views = append(views, view)
	}

	for _, view := range views {
		view.Start(ctx)
	}
	if manager != nil {
		manager.Start(ctx)
	}

	<-ctx.Done()

	for _, view := range views {
		view.Stop()
	}
	if manager != nil {
		manager.Close()
	}
}

func parseClasses(raw string) ([]match.Class, error) {
	seen := make(map[match.Class]struct{})
	var out []match.Class
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		class, ok := match.ParseClass(part)
		if !ok {
			return nil, fmt.Errorf("unknown class %q", strings.TrimSpace(part))
		}
		if _, dup := seen[class]; dup {
			continue
		}
		seen[class] = struct{}{}
		out = append(out, class)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one class is required")
	}
	return out, nil
}

// websocketURL maps http(s)://host/prefix to ws(s)://host/prefix/v1/ws.
func websocketURL(apiBase string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(apiBase))
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("api url must be http or https, got %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/v1/ws"
	return parsed.String(), nil
}

func render(w io.Writer, view feedclient.View) {
	flags := string(view.Mode)
	if view.Stale {
		flags += ",stale"
	}
	if view.IsLoading {
		flags += ",loading"
	}
	fmt.Fprintf(w, "== %s [%s] %d matches @ %s\n",
		view.Class, flags, len(view.Matches), view.UpdatedAt.Local().Format(time.TimeOnly))
	if view.LastError != nil {
		fmt.Fprintf(w, "   last error: %v\n", view.LastError)
	}
	for _, record := range view.Matches {
		fmt.Fprintf(w, "   %-24s %-20s %d-%d %-20s %s\n",
			truncate(record.CompetitionName, 24),
			truncate(record.Home.Name, 20),
			record.Score.Home, record.Score.Away,
			truncate(record.Away.Name, 20),
			clock(record),
		)
	}
}

func clock(record match.Record) string {
	if minute, ok := record.ElapsedMinute(); ok && record.Status == match.StatusLive {
		return fmt.Sprintf("%d'", minute)
	}
	if record.Status == match.StatusUpcoming && !record.StartTime.IsZero() {
		return record.StartTime.Local().Format("Mon 15:04")
	}
	return string(record.Status)
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
