package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/mastermhp/Live-Baz-sub000/internal/realtime"
	"github.com/mastermhp/Live-Baz-sub000/internal/usecase"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["apiVersion"] != envelopeVersion {
		t.Fatalf("expected apiVersion %s, got %v", envelopeVersion, body["apiVersion"])
	}
	return body
}

func TestWriteSuccess(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusOK, map[string]string{"status": "ok"})

	body := decodeEnvelope(t, rec)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected status %d or content type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if _, ok := body["data"]; !ok {
		t.Fatalf("expected data key")
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("did not expect error key")
	}
}

func TestWriteError_ClassifiedMessageIsKept(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("%w: bad payload", usecase.ErrInvalidInput))

	body := decodeEnvelope(t, rec)
	errObj, _ := body["error"].(map[string]any)
	if rec.Code != http.StatusBadRequest || errObj["status"] != "INVALID_ARGUMENT" {
		t.Fatalf("unexpected error response %d %v", rec.Code, errObj)
	}
	if errObj["message"] != "invalid input: bad payload" {
		t.Fatalf("expected original message, got %v", errObj["message"])
	}
}

func TestWriteError_UnclassifiedMessageIsHidden(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, errors.New("pq: password authentication failed"))

	body := decodeEnvelope(t, rec)
	errObj, _ := body["error"].(map[string]any)
	if rec.Code != http.StatusInternalServerError || errObj["message"] != "internal server error" {
		t.Fatalf("expected masked 500, got %d %v", rec.Code, errObj)
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{name: "fetch failure", err: fmt.Errorf("%w: provider timeout", usecase.ErrFetchFailure), status: http.StatusBadGateway, reason: "upstreamFailure"},
		{name: "open circuit", err: fmt.Errorf("%w: %w", usecase.ErrFetchFailure, usecase.ErrDependencyUnavailable), status: http.StatusServiceUnavailable, reason: "dependencyUnavailable"},
		{name: "invalid topic", err: fmt.Errorf("%w: \"weekly\"", realtime.ErrInvalidTopic), status: http.StatusBadRequest, reason: "invalidTopic"},
		{name: "not found", err: fmt.Errorf("%w: match id=9", usecase.ErrNotFound), status: http.StatusNotFound, reason: "notFound"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, reason: "internalError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := classifyError(tt.err)
			if got.HTTPStatus != tt.status || got.Reason != tt.reason {
				t.Fatalf("classifyError(%v)=%+v want status=%d reason=%s", tt.err, got, tt.status, tt.reason)
			}
		})
	}
}
