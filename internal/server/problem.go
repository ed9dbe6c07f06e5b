package server

import (
	"encoding/json"
	"net/http"
)

// problemBase prefixes the type URI of every problem this server emits.
const problemBase = "https://wavesight.dev/problems/"

// Problem type URIs, per RFC 7807.
const (
	ProblemTypeNotFound     = problemBase + "not-found"
	ProblemTypeBadRequest   = problemBase + "bad-request"
	ProblemTypeInternal     = problemBase + "internal-error"
	ProblemTypeUnauthorized = problemBase + "unauthorized"
	ProblemTypeForbidden    = problemBase + "forbidden"
	ProblemTypeRateLimited  = problemBase + "rate-limited"
	ProblemTypeConflict     = problemBase + "conflict"
	ProblemTypeReadOnly     = problemBase + "read-only"
)

// Problem is an RFC 7807 problem details document.
type Problem struct {
	Type     string `json:"type" example:"https://wavesight.dev/problems/bad-request"`
	Title    string `json:"title" example:"Bad Request"`
	Status   int    `json:"status" example:"400"`
	Detail   string `json:"detail,omitempty" example:"timestamp is required"`
	Instance string `json:"instance,omitempty" example:"/api/v1/telemetry/ingest"`
}

// WriteProblem sends p as application/problem+json with p.Status.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func reply(w http.ResponseWriter, typ, title string, status int, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     typ,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, detail, instance string) {
	reply(w, ProblemTypeNotFound, "Not Found", http.StatusNotFound, detail, instance)
}

// BadRequest writes a 400 problem.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	reply(w, ProblemTypeBadRequest, "Bad Request", http.StatusBadRequest, detail, instance)
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, detail, instance string) {
	reply(w, ProblemTypeInternal, "Internal Server Error", http.StatusInternalServerError, detail, instance)
}

// RateLimited writes a 429 problem.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	reply(w, ProblemTypeRateLimited, "Too Many Requests", http.StatusTooManyRequests, detail, instance)
}
