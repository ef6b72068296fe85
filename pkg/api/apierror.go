// Package api holds the HTTP building blocks shared by the riskmate surfaces:
// RFC 7807 problem responses, request body validation and rate limiting.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ProblemDetail is an RFC 7807 problem document. Every non-2xx API response has
// this shape.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// TraceID echoes X-Request-ID.
	TraceID string `json:"trace_id,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

func newProblem(w http.ResponseWriter, status int, title, detail string) *ProblemDetail {
	if title == "" {
		title = http.StatusText(status)
	}
	return &ProblemDetail{
		Type:    "urn:riskmate:problem:" + strconv.Itoa(status),
		Title:   title,
		Status:  status,
		Detail:  detail,
		TraceID: w.Header().Get("X-Request-ID"),
	}
}

// WriteError writes a problem response. An empty title uses the status text.
func WriteError(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, newProblem(w, status, title, detail))
}

// WriteErrorR is WriteError with the request path as the problem instance.
func WriteErrorR(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	p := newProblem(w, status, title, detail)
	p.Instance = r.URL.Path
	writeProblem(w, p)
}

func writeProblem(w http.ResponseWriter, p *ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func orDefault(detail, fallback string) string {
	if detail == "" {
		return fallback
	}
	return detail
}

func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, "", detail)
}

func WriteUnauthorized(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusUnauthorized, "", orDefault(detail, "Authentication required"))
}

func WriteForbidden(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusForbidden, "", orDefault(detail, "Insufficient permissions"))
}

func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, "", detail)
}

func WriteConflict(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusConflict, "", detail)
}

// WriteUnprocessable is for well-formed requests the service refuses, such as
// signing an unsealed run.
func WriteUnprocessable(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusUnprocessableEntity, "", detail)
}

// WriteTooManyRequests sets Retry-After in seconds.
func WriteTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	WriteError(w, http.StatusTooManyRequests, "", "Rate limit exceeded. Retry after the specified interval.")
}

// WriteInternal logs err and returns a generic 500. err never reaches the client.
func WriteInternal(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err, "request_id", w.Header().Get("X-Request-ID"))
	WriteError(w, http.StatusInternalServerError, "", "An unexpected error occurred. Please try again later.")
}

// WriteJSON writes v as a JSON response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
