package httpapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mastermhp/Live-Baz-sub000/internal/realtime"
	"github.com/mastermhp/Live-Baz-sub000/internal/usecase"
)

const (
	envelopeVersion = "2.0"
	errorDomain     = "livebaz"
)

// envelope follows the Google JSON style guide: exactly one of Data and
// Error is set.
type envelope struct {
	APIVersion string     `json:"apiVersion"`
	Data       any        `json:"data,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
	Errors  []errorItem `json:"errors,omitempty"`
}

type errorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type errorClass struct {
	HTTPStatus int
	Reason     string
	Status     string
}

var internalErrorClass = errorClass{http.StatusInternalServerError, "internalError", "INTERNAL"}

// errorClasses is matched in order with errors.Is.
var errorClasses = []struct {
	target error
	class  errorClass
}{
	{usecase.ErrInvalidInput, errorClass{http.StatusBadRequest, "invalidInput", "INVALID_ARGUMENT"}},
	{realtime.ErrInvalidTopic, errorClass{http.StatusBadRequest, "invalidTopic", "INVALID_ARGUMENT"}},
	{usecase.ErrNotFound, errorClass{http.StatusNotFound, "notFound", "NOT_FOUND"}},
	{usecase.ErrUnauthorized, errorClass{http.StatusUnauthorized, "unauthorized", "UNAUTHENTICATED"}},
	{usecase.ErrDependencyUnavailable, errorClass{http.StatusServiceUnavailable, "dependencyUnavailable", "UNAVAILABLE"}},
	{usecase.ErrFetchFailure, errorClass{http.StatusBadGateway, "upstreamFailure", "UNAVAILABLE"}},
}

func classifyError(err error) errorClass {
	for _, c := range errorClasses {
		if errors.Is(err, c.target) {
			return c.class
		}
	}
	return internalErrorClass
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	body.APIVersion = envelopeVersion
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(body)
}

func writeSuccess(_ context.Context, w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, envelope{Data: data})
}

// writeError maps err onto its HTTP class. Unclassified errors are reported
// on the active span and their message is replaced.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	class := classifyError(err)
	message := err.Error()
	if class == internalErrorClass {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "internal error")
		message = "internal server error"
	}
	writeErrorBody(w, class, message)
}

func writeInternalError(_ context.Context, w http.ResponseWriter) {
	writeErrorBody(w, internalErrorClass, "internal server error")
}

func writeErrorBody(w http.ResponseWriter, class errorClass, message string) {
	writeEnvelope(w, class.HTTPStatus, envelope{Error: &errorBody{
		Code:    class.HTTPStatus,
		Message: message,
		Status:  class.Status,
		Errors:  []errorItem{{Domain: errorDomain, Reason: class.Reason, Message: message}},
	}})
}
