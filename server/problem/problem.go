// Package problem writes RFC 7807 problem+json error responses.
package problem

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// TypeBase prefixes the problem type URI; the status code is appended.
const TypeBase = "https://sigdesk.local/errors/"

// Detail is an RFC 7807 problem document.
type Detail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func (p *Detail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// Write sends a problem response for status with the standard title.
func Write(w http.ResponseWriter, r *http.Request, status int, detail string) {
	p := &Detail{
		Type:   fmt.Sprintf("%s%d", TypeBase, status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
	if r != nil {
		p.Instance = r.URL.Path
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

// BadRequest writes a 400 problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	Write(w, r, http.StatusBadRequest, detail)
}

// Unauthorized writes a 401 problem with a Bearer challenge.
func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	if detail == "" {
		detail = "Authentication required"
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="sigdesk"`)
	Write(w, r, http.StatusUnauthorized, detail)
}

// Forbidden writes a 403 problem.
func Forbidden(w http.ResponseWriter, r *http.Request, detail string) {
	Write(w, r, http.StatusForbidden, detail)
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Write(w, r, http.StatusNotFound, detail)
}

// MethodNotAllowed writes a 405 problem.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusMethodNotAllowed, "The HTTP method is not supported for this endpoint")
}

// BadGateway writes a 502 problem for upstream failures.
func BadGateway(w http.ResponseWriter, r *http.Request, detail string) {
	Write(w, r, http.StatusBadGateway, detail)
}

// Internal logs err and writes a 500 problem without exposing it.
func Internal(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if logger != nil {
		logger.Error("internal server error", "error", err)
	}
	Write(w, r, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
}
