package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/id"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/metrics"
	"github.com/mastermhp/Live-Baz-sub000/internal/realtime"
	"github.com/mastermhp/Live-Baz-sub000/internal/usecase"
)

const (
	localMatchIDPrefix = "local-"
	connIDPrefix       = "conn-"
)

type MatchReader interface {
	List(ctx context.Context, class match.Class, windowDays int) (usecase.MatchFeedView, error)
	GetByID(ctx context.Context, matchID string) (match.Record, error)
}

type IngestionTrigger interface {
	Trigger(ctx context.Context, class match.Class) (usecase.CycleReport, error)
}

// Subscriptions is the membership side of the broker.
type Subscriptions interface {
	Join(conn realtime.Connection, topic string) error
	Leave(conn realtime.Connection, topic string)
	Disconnect(conn realtime.Connection)
}

type HandlerDeps struct {
	Matches       MatchReader
	Ingestion     IngestionTrigger
	LocalMatches  match.Writer
	Subscriptions Subscriptions
	Metrics       *metrics.Pipeline
	Logger        *logging.Logger
	IDs           id.Generator
	WS            WSConfig
}

type WSConfig struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
	AllowedOrigins []string
}

func (c WSConfig) withDefaults() WSConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	return c
}

type Handler struct {
	matches       MatchReader
	ingestion     IngestionTrigger
	localMatches  match.Writer
	subscriptions Subscriptions
	metrics       *metrics.Pipeline
	logger        *logging.Logger
	ids           id.Generator
	validator     *validator.Validate
	ws            WSConfig
	upgrader      websocket.Upgrader
	started       time.Time
}

func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ws := deps.WS.withDefaults()
	ids := deps.IDs
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}

	return &Handler{
		matches:       deps.Matches,
		ingestion:     deps.Ingestion,
		localMatches:  deps.LocalMatches,
		subscriptions: deps.Subscriptions,
		metrics:       deps.Metrics,
		logger:        logger,
		ids:           ids,
		validator:     validator.New(),
		ws:            ws,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(ws.AllowedOrigins),
		},
		started: time.Now(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(h.started).Seconds()),
	})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
