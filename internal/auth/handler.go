package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Handler provides HTTP handlers for credential management.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an auth Handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers credential management routes on the mux. Every
// route requires the management token.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/keys", h.handleCreateKey)
	mux.HandleFunc("GET /api/v1/auth/keys", h.handleListKeys)
	mux.HandleFunc("DELETE /api/v1/auth/keys/{id}", h.handleRevokeKey)
	mux.HandleFunc("POST /api/v1/auth/tokens", h.handleIssueToken)
}

// Middleware returns the bearer authentication middleware.
func (h *Handler) Middleware() func(http.Handler) http.Handler {
	return Middleware(h.service)
}

// requireAdmin gates management handlers on the management token.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	p := PrincipalFromContext(r.Context())
	if p == nil || p.Kind != PrincipalAdmin {
		writeAuthError(w, http.StatusForbidden, "management token required")
		return false
	}
	return true
}

// handleCreateKey mints a new agent key. The raw key appears in this
// response and nowhere else.
//
//	@Summary		Create agent key
//	@Description	Creates an ingest credential for a field agent. The raw key is returned once; only its hash is stored.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateKeyRequest	true	"Key name"
//	@Success		201		{object}	CreatedKey
//	@Failure		400		{object}	map[string]any
//	@Failure		403		{object}	map[string]any
//	@Router			/auth/keys [post]
func (h *Handler) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeAuthError(w, http.StatusBadRequest, "name is required")
		return
	}

	key, raw, err := h.service.CreateAgentKey(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("create agent key", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "failed to create key")
		return
	}
	writeJSON(w, http.StatusCreated, CreatedKey{AgentKey: *key, Key: raw})
}

// handleListKeys lists agent keys (hashes excluded).
//
//	@Summary		List agent keys
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		AgentKey
//	@Failure		403	{object}	map[string]any
//	@Router			/auth/keys [get]
func (h *Handler) handleListKeys(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	keys, err := h.service.ListAgentKeys(r.Context())
	if err != nil {
		h.logger.Error("list agent keys", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "failed to list keys")
		return
	}
	if keys == nil {
		keys = []AgentKey{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// handleRevokeKey revokes an agent key.
//
//	@Summary		Revoke agent key
//	@Tags			auth
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Key ID"
//	@Success		204	{string}	string	"no content"
//	@Failure		403	{object}	map[string]any
//	@Failure		404	{object}	map[string]any
//	@Router			/auth/keys/{id} [delete]
func (h *Handler) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id := r.PathValue("id")
	if err := h.service.RevokeAgentKey(r.Context(), id); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			writeAuthError(w, http.StatusNotFound, "no such key")
			return
		}
		h.logger.Error("revoke agent key", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "failed to revoke key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleIssueToken mints a subscriber access token.
//
//	@Summary		Issue subscriber token
//	@Description	Mints an HS256 access token for the query and stream surfaces.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		TokenRequest	true	"Token subject"
//	@Success		200		{object}	TokenGrant
//	@Failure		400		{object}	map[string]any
//	@Failure		403		{object}	map[string]any
//	@Router			/auth/tokens [post]
func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject == "" {
		writeAuthError(w, http.StatusBadRequest, "subject is required")
		return
	}

	grant, err := h.service.IssueSubscriberToken(req.Subject)
	if err != nil {
		h.logger.Error("issue subscriber token", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAuthError writes an RFC 7807 problem response.
func writeAuthError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://wavesight.dev/problems/auth-error",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
