package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, cfg RouterConfig) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if !cfg.SwaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerFeedRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches/by-id/{matchID}", handler.GetMatchByID)
	mux.HandleFunc("GET /v1/matches/{class}", handler.ListMatches)
	mux.HandleFunc("GET /v1/ws", handler.ServeWS)
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, guard Middleware) {
	mux.Handle("POST /v1/internal/ingestion/{class}/trigger", guard(http.HandlerFunc(handler.TriggerIngestion)))
	mux.Handle("PUT /v1/internal/local-matches", guard(http.HandlerFunc(handler.UpsertLocalMatch)))
	mux.Handle("DELETE /v1/internal/local-matches/{matchID}", guard(http.HandlerFunc(handler.DeleteLocalMatch)))
}
