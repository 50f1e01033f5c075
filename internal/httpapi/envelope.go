package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"clasharmies.app/internal/apperr"
	"clasharmies.app/internal/audit"
	"clasharmies.app/internal/obs"
)

var (
	errRateLimited   = apperr.RateLimited("Rate limit exceeded")
	errRouteNotFound = apperr.NotFound(apperr.CodeNotFound, "Resource not found")
)

// Envelope is the uniform response shape. Success responses carry data (and
// optionally pagination); failures carry error. Every response carries the
// request id so clients can quote it in bug reports.
type Envelope struct {
	Success    bool          `json:"success"`
	Data       any           `json:"data,omitempty"`
	Message    string        `json:"message,omitempty"`
	Error      *apperr.Error `json:"error,omitempty"`
	Pagination *Pagination   `json:"pagination,omitempty"`
	Timestamp  string        `json:"timestamp"`
	RequestID  string        `json:"requestId"`
}

// Pagination describes the window a list response covers.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination derives the full block from the requested window and the
// total item count.
func NewPagination(page, limit, total int) *Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func respond(w http.ResponseWriter, r *http.Request, code int, data any, message string) {
	writeEnvelope(w, code, Envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID(r),
	})
}

func respondPage(w http.ResponseWriter, r *http.Request, data any, page *Pagination) {
	writeEnvelope(w, http.StatusOK, Envelope{
		Success:    true,
		Data:       data,
		Pagination: page,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RequestID:  requestID(r),
	})
}

// fail classifies err and renders it. Internal failures are logged with the
// request id; the client sees only the sanitized envelope.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.Classify(err)
	if appErr.Status == http.StatusTooManyRequests {
		obs.CountRateLimited(r.URL.Path)
	}
	if appErr.Status >= http.StatusInternalServerError {
		obs.LogRequest(map[string]any{
			"level":      "error",
			"msg":        "request_failed",
			"request_id": requestID(r),
			"method":     r.Method,
			"path":       r.URL.Path,
			"error":      appErr.Message,
			"details":    appErr.Details,
		})
	}
	writeEnvelope(w, appErr.Status, Envelope{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID(r),
	})
}

func writeEnvelope(w http.ResponseWriter, code int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}

// requestID prefers the id attached by the RequestID middleware; responses
// written outside the middleware chain still get a usable one.
func requestID(r *http.Request) string {
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		return rid
	}
	return uuid.NewString()
}
