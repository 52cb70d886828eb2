package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/stretchr/testify/mock"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/competition"
	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	matchmock "github.com/mastermhp/Live-Baz-sub000/internal/mocks/domain/match"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/id"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/usecase"
)

const testJobToken = "secret-token"

type fakeMatches struct {
	view      usecase.MatchFeedView
	gotClass  match.Class
	gotWindow int
	records   map[string]match.Record
}

func (f *fakeMatches) List(_ context.Context, class match.Class, windowDays int) (usecase.MatchFeedView, error) {
	f.gotClass = class
	f.gotWindow = windowDays
	view := f.view
	view.Class = class
	return view, nil
}

func (f *fakeMatches) GetByID(_ context.Context, matchID string) (match.Record, error) {
	record, ok := f.records[matchID]
	if !ok {
		return match.Record{}, fmt.Errorf("%w: match id=%s", usecase.ErrNotFound, matchID)
	}
	return record, nil
}

type fakeTrigger struct {
	report usecase.CycleReport
	err    error
	calls  []match.Class
}

func (f *fakeTrigger) Trigger(_ context.Context, class match.Class) (usecase.CycleReport, error) {
	f.calls = append(f.calls, class)
	report := f.report
	report.Class = class
	return report, f.err
}

func newTestRouter(deps HandlerDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	return NewRouter(NewHandler(deps), RouterConfig{
		Logger:           deps.Logger,
		InternalJobToken: testJobToken,
		Metrics:          http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics\n")) }),
	})
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if err := sonic.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

func TestListMatches(t *testing.T) {
	t.Parallel()

	reader := &fakeMatches{view: usecase.MatchFeedView{
		GeneratedAt:  time.Date(2026, 1, 2, 18, 30, 0, 0, time.UTC),
		Matches:      []match.Record{{ID: "1", Status: match.StatusUpcoming}},
		Competitions: []competition.Group{},
	}}
	router := newTestRouter(HandlerDeps{Matches: reader})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/Upcoming?window=3", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if reader.gotClass != match.ClassUpcoming || reader.gotWindow != 3 {
		t.Fatalf("unexpected list args class=%s window=%d", reader.gotClass, reader.gotWindow)
	}

	var view usecase.MatchFeedView
	decodeData(t, rec, &view)
	if view.Class != match.ClassUpcoming || len(view.Matches) != 1 || view.Matches[0].ID != "1" {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestListMatches_RejectsBadInput(t *testing.T) {
	t.Parallel()

	router := newTestRouter(HandlerDeps{Matches: &fakeMatches{}})
	for _, target := range []string{"/v1/matches/weekly", "/v1/matches/live?window=-1", "/v1/matches/live?window=abc"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestGetMatchByID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(HandlerDeps{Matches: &fakeMatches{records: map[string]match.Record{
		"9": {ID: "9", Status: match.StatusLive, Score: match.Score{Home: 1}},
	}}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/by-id/9", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var record match.Record
	decodeData(t, rec, &record)
	if record.ID != "9" || record.Score.Home != 1 {
		t.Fatalf("unexpected record: %+v", record)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/by-id/404", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	t.Parallel()

	router := newTestRouter(HandlerDeps{})
	for _, target := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", target, rec.Code)
		}
	}
}

func TestTriggerIngestion_RequiresToken(t *testing.T) {
	t.Parallel()

	trigger := &fakeTrigger{}
	router := newTestRouter(HandlerDeps{Ingestion: trigger})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/internal/ingestion/live/trigger", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/ingestion/live/trigger", nil)
	req.Header.Set("X-Internal-Job-Token", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}
	if len(trigger.calls) != 0 {
		t.Fatalf("expected no trigger calls, got %v", trigger.calls)
	}
}

func TestTriggerIngestion(t *testing.T) {
	t.Parallel()

	trigger := &fakeTrigger{report: usecase.CycleReport{Cycle: 4, Merged: 7, Events: 2, Elapsed: 1500 * time.Millisecond}}
	router := newTestRouter(HandlerDeps{Ingestion: trigger})

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/ingestion/finished/trigger", nil)
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body triggerResponse
	decodeData(t, rec, &body)
	if body.Class != match.ClassFinished || body.Cycle != 4 || body.Merged != 7 || body.ElapsedMS != 1500 {
		t.Fatalf("unexpected trigger response: %+v", body)
	}
}

func TestTriggerIngestion_PropagatesErrors(t *testing.T) {
	t.Parallel()

	trigger := &fakeTrigger{err: fmt.Errorf("%w: unknown class", usecase.ErrInvalidInput)}
	router := newTestRouter(HandlerDeps{Ingestion: trigger})

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/ingestion/live/trigger", nil)
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpsertLocalMatch(t *testing.T) {
	t.Parallel()

	store := matchmock.NewStore(t)
	router := newTestRouter(HandlerDeps{LocalMatches: store})

	store.On("Upsert", mock.Anything, mock.MatchedBy(func(doc match.LocalDocument) bool {
		return doc.ID == "m-1" && doc.HomeTeam.Name == "Persib" && doc.HomeScore != nil && *doc.HomeScore == 2
	})).Return(nil).Once()

	body := []byte(`{"id":" m-1 ","league":{"id":"274","name":"Liga 1"},"homeTeam":{"name":"Persib"},"awayTeam":{"name":"Persija"},"status":"live","homeScore":2,"awayScore":1,"minute":67,"date":"2026-01-02T12:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPut, "/v1/internal/local-matches", bytes.NewReader(body))
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp localMatchResponse
	decodeData(t, rec, &resp)
	if resp.ID != "m-1" || resp.Status != "live" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestUpsertLocalMatch_GeneratesID(t *testing.T) {
	t.Parallel()

	store := matchmock.NewStore(t)
	router := newTestRouter(HandlerDeps{LocalMatches: store, IDs: &id.SequenceGenerator{}})
	store.On("Upsert", mock.Anything, mock.MatchedBy(func(doc match.LocalDocument) bool {
		return doc.ID == "local-1"
	})).Return(nil).Once()

	body := []byte(`{"league":{"name":"Liga 1"},"homeTeam":{"name":"A"},"awayTeam":{"name":"B"},"status":"scheduled","date":"2026-01-05"}`)
	req := httptest.NewRequest(http.MethodPut, "/v1/internal/local-matches", bytes.NewReader(body))
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestUpsertLocalMatch_Validation(t *testing.T) {
	t.Parallel()

	store := matchmock.NewStore(t)
	router := newTestRouter(HandlerDeps{LocalMatches: store})

	bodies := []string{
		``,
		`{"league":{"name":"L"},"homeTeam":{"name":"A"},"awayTeam":{"name":"B"},"status":"live"}`,
		`{"league":{"name":"L"},"homeTeam":{"name":""},"awayTeam":{"name":"B"},"status":"live","date":"2026-01-02"}`,
		`{"league":{"name":"L"},"homeTeam":{"name":"A"},"awayTeam":{"name":"B"},"status":"live","date":"yesterday"}`,
		`{"league":{"name":"L"},"homeTeam":{"name":"A"},"awayTeam":{"name":"B"},"status":"live","date":"2026-01-02","homeScore":-1}`,
		`{"league":{"name":"L"},"homeTeam":{"name":"A"},"awayTeam":{"name":"B"},"status":"live","date":"2026-01-02","extra":true}`,
	}
	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPut, "/v1/internal/local-matches", bytes.NewReader([]byte(body)))
		req.Header.Set("X-Internal-Job-Token", testJobToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestDeleteLocalMatch(t *testing.T) {
	t.Parallel()

	store := matchmock.NewStore(t)
	router := newTestRouter(HandlerDeps{LocalMatches: store})
	store.On("Delete", mock.Anything, "m-1").Return(true, nil).Once()
	store.On("Delete", mock.Anything, "m-2").Return(false, nil).Once()
	store.On("Delete", mock.Anything, "m-3").Return(false, errors.New("db down")).Once()

	cases := map[string]int{
		"m-1": http.StatusNoContent,
		"m-2": http.StatusNotFound,
		"m-3": http.StatusInternalServerError,
	}
	for matchID, want := range cases {
		req := httptest.NewRequest(http.MethodDelete, "/v1/internal/local-matches/"+matchID, nil)
		req.Header.Set("X-Internal-Job-Token", testJobToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", matchID, want, rec.Code)
		}
	}
}

func TestInternalRoutes_UnconfiguredDependencies(t *testing.T) {
	t.Parallel()

	router := newTestRouter(HandlerDeps{})
	req := httptest.NewRequest(http.MethodDelete, "/v1/internal/local-matches/m-1", nil)
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
