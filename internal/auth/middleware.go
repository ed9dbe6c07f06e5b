package auth

import (
	"context"
	"net/http"
	"strings"
)

// PrincipalKind classifies an authenticated caller.
type PrincipalKind string

const (
	PrincipalAdmin      PrincipalKind = "admin"
	PrincipalAgent      PrincipalKind = "agent"
	PrincipalSubscriber PrincipalKind = "subscriber"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	Kind PrincipalKind
	Name string
}

// principalKey is a context key for the authenticated principal.
type principalKey struct{}

// PrincipalFromContext returns the authenticated principal. Returns nil when
// the request was not authenticated (auth disabled, public path).
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// Middleware validates bearer credentials on API routes: the management
// token, agent keys, and subscriber tokens all pass. Non-API paths (healthz,
// readyz, metrics) are skipped, as are WebSocket paths, which authenticate
// via query token in their own handler.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			if strings.HasPrefix(r.URL.Path, "/api/v1/stream") {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			principal, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
