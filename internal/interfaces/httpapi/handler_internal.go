package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	"github.com/mastermhp/Live-Baz-sub000/internal/usecase"
)

type triggerResponse struct {
	Class           match.Class `json:"class"`
	Cycle           uint64      `json:"cycle"`
	Degraded        bool        `json:"degraded"`
	Baseline        bool        `json:"baseline"`
	ProviderRecords int         `json:"providerRecords"`
	LocalRecords    int         `json:"localRecords"`
	Merged          int         `json:"merged"`
	Events          int         `json:"events"`
	ElapsedMS       int64       `json:"elapsedMs"`
}

func (h *Handler) TriggerIngestion(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.TriggerIngestion")
	defer span.End()

	if h.ingestion == nil {
		writeError(ctx, w, fmt.Errorf("%w: ingestion scheduler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	class, ok := match.ParseClass(r.PathValue("class"))
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: unknown class %q", usecase.ErrInvalidInput, r.PathValue("class")))
		return
	}

	report, err := h.ingestion.Trigger(ctx, class)
	if err != nil {
		h.logger.WarnContext(ctx, "ingestion trigger failed", "class", class, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, triggerResponse{
		Class:           report.Class,
		Cycle:           report.Cycle,
		Degraded:        report.Degraded,
		Baseline:        report.Baseline,
		ProviderRecords: report.ProviderRecords,
		LocalRecords:    report.LocalRecords,
		Merged:          report.Merged,
		Events:          report.Events,
		ElapsedMS:       report.Elapsed.Milliseconds(),
	})
}

type localTeamRequest struct {
	ID   string `json:"id" validate:"omitempty,max=64"`
	Name string `json:"name" validate:"required,max=120"`
	Logo string `json:"logo" validate:"omitempty,url"`
}

type upsertLocalMatchRequest struct {
	ID        string           `json:"id" validate:"omitempty,max=64"`
	FixtureID string           `json:"fixtureId" validate:"omitempty,max=64"`
	League    localTeamRequest `json:"league" validate:"required"`
	HomeTeam  localTeamRequest `json:"homeTeam" validate:"required"`
	AwayTeam  localTeamRequest `json:"awayTeam" validate:"required"`
	Status    string           `json:"status" validate:"required,max=32"`
	HomeScore *int             `json:"homeScore" validate:"omitempty,min=0"`
	AwayScore *int             `json:"awayScore" validate:"omitempty,min=0"`
	Minute    *int             `json:"minute" validate:"omitempty,min=0,max=150"`
	Venue     string           `json:"venue" validate:"omitempty,max=200"`
	Referee   string           `json:"referee" validate:"omitempty,max=200"`
	Date      string           `json:"date" validate:"required"`
}

type localMatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UpsertLocalMatch writes an editor document. A missing id is generated.
func (h *Handler) UpsertLocalMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpsertLocalMatch")
	defer span.End()

	if h.localMatches == nil {
		writeError(ctx, w, fmt.Errorf("%w: local match store is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req upsertLocalMatchRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if !usecase.ValidLocalDate(req.Date) {
		writeError(ctx, w, fmt.Errorf("%w: unreadable date %q", usecase.ErrInvalidInput, req.Date))
		return
	}

	doc := localDocumentFromRequest(req)
	if doc.ID == "" {
		doc.ID = h.ids.NewID(localMatchIDPrefix)
	}
	if err := h.localMatches.Upsert(ctx, doc); err != nil {
		h.logger.ErrorContext(ctx, "upsert local match failed", "match_id", doc.ID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, localMatchResponse{ID: doc.ID, Status: doc.Status})
}

func (h *Handler) DeleteLocalMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteLocalMatch")
	defer span.End()

	if h.localMatches == nil {
		writeError(ctx, w, fmt.Errorf("%w: local match store is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if matchID == "" {
		writeError(ctx, w, fmt.Errorf("%w: match id is required", usecase.ErrInvalidInput))
		return
	}

	deleted, err := h.localMatches.Delete(ctx, matchID)
	if err != nil {
		h.logger.ErrorContext(ctx, "delete local match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}
	if !deleted {
		writeError(ctx, w, fmt.Errorf("%w: local match id=%s", usecase.ErrNotFound, matchID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeJSONBody(r *http.Request, out any) error {
	decoder := sonic.ConfigDefault.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func localDocumentFromRequest(req upsertLocalMatchRequest) match.LocalDocument {
	return match.LocalDocument{
		ID:        strings.TrimSpace(req.ID),
		FixtureID: strings.TrimSpace(req.FixtureID),
		League:    match.LeagueRef{ID: strings.TrimSpace(req.League.ID), Name: strings.TrimSpace(req.League.Name), Logo: req.League.Logo},
		HomeTeam:  match.TeamRef{ID: strings.TrimSpace(req.HomeTeam.ID), Name: strings.TrimSpace(req.HomeTeam.Name), Logo: req.HomeTeam.Logo},
		AwayTeam:  match.TeamRef{ID: strings.TrimSpace(req.AwayTeam.ID), Name: strings.TrimSpace(req.AwayTeam.Name), Logo: req.AwayTeam.Logo},
		Status:    strings.TrimSpace(req.Status),
		HomeScore: req.HomeScore,
		AwayScore: req.AwayScore,
		Minute:    req.Minute,
		Venue:     strings.TrimSpace(req.Venue),
		Referee:   strings.TrimSpace(req.Referee),
		Date:      strings.TrimSpace(req.Date),
	}
}
