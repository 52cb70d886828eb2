package httpapi

import (
	"net/http"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
)

type RouterConfig struct {
	Logger             *logging.Logger
	SwaggerEnabled     bool
	CORSAllowedOrigins []string
	InternalJobToken   string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg)
	registerFeedRoutes(mux, handler)
	registerInternalRoutes(mux, handler, RequireInternalJobToken(cfg.InternalJobToken))

	return chain(mux,
		RequestTracing(),
		RequestLogging(logger),
		CORS(cfg.CORSAllowedOrigins),
		recoverPanic(logger),
	)
}
