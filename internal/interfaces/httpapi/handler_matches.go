package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	"github.com/mastermhp/Live-Baz-sub000/internal/usecase"
)

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatches")
	defer span.End()

	class, ok := match.ParseClass(r.PathValue("class"))
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: unknown class %q", usecase.ErrInvalidInput, r.PathValue("class")))
		return
	}

	windowDays := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("window")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(ctx, w, fmt.Errorf("%w: window must be a non-negative integer", usecase.ErrInvalidInput))
			return
		}
		windowDays = parsed
	}

	view, err := h.matches.List(ctx, class, windowDays)
	if err != nil {
		h.logger.WarnContext(ctx, "list matches failed", "class", class, "window", windowDays, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, view)
}

func (h *Handler) GetMatchByID(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatchByID")
	defer span.End()

	matchID := r.PathValue("matchID")
	record, err := h.matches.GetByID(ctx, matchID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, record)
}
