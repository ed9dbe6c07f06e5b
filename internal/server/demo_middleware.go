package server

import "net/http"

// demoSafeMethods are the request methods a demo deployment accepts.
var demoSafeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// DemoMiddleware locks the API read-only for public demo deployments.
// Mutating methods get a 405 problem instead of reaching a handler.
func DemoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !demoSafeMethods[r.Method] {
			reply(w, ProblemTypeReadOnly, "Method Not Allowed", http.StatusMethodNotAllowed,
				"demo mode allows read-only access", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}
