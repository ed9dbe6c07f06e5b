package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/HerbHall/wavesight/pkg/plugin"
)

// fakeSource hands the server a fixed plugin list and route table.
type fakeSource struct {
	list   []plugin.Plugin
	routes map[string][]plugin.Route
}

func (f *fakeSource) AllRoutes() map[string][]plugin.Route {
	if f.routes == nil {
		return map[string][]plugin.Route{}
	}
	return f.routes
}

func (f *fakeSource) All() []plugin.Plugin { return f.list }

// metaPlugin carries metadata and does nothing.
type metaPlugin struct{ info plugin.PluginInfo }

func (p *metaPlugin) Info() plugin.PluginInfo                        { return p.info }
func (p *metaPlugin) Init(context.Context, plugin.Dependencies) error { return nil }
func (p *metaPlugin) Start(context.Context) error                    { return nil }
func (p *metaPlugin) Stop(context.Context) error                     { return nil }

func buildServer(ready ReadinessChecker, opts Options) *Server {
	src := &fakeSource{
		list: []plugin.Plugin{
			&metaPlugin{info: plugin.PluginInfo{
				Name:        "telemetry",
				Version:     "0.3.0",
				Description: "measurement ingest and smoothing",
			}},
		},
	}
	return New("127.0.0.1:0", src, zap.NewNop(), ready, opts)
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var m map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return m
}

func TestProbes(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		srv := buildServer(nil, Options{})
		rec := hit(srv.mux, httptest.NewRequest("GET", "/healthz", http.NoBody))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if got := decodeObject(t, rec)["status"]; got != "alive" {
			t.Errorf("status field = %q, want alive", got)
		}
	})

	t.Run("readyz when ready", func(t *testing.T) {
		srv := buildServer(func(context.Context) error { return nil }, Options{})
		rec := hit(srv.mux, httptest.NewRequest("GET", "/readyz", http.NoBody))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if got := decodeObject(t, rec)["status"]; got != "ready" {
			t.Errorf("status field = %q, want ready", got)
		}
	})

	t.Run("readyz when not ready", func(t *testing.T) {
		srv := buildServer(func(context.Context) error {
			return errors.New("database unreachable")
		}, Options{})
		rec := hit(srv.mux, httptest.NewRequest("GET", "/readyz", http.NoBody))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		body := decodeObject(t, rec)
		if body["status"] != "not ready" {
			t.Errorf("status field = %q, want not ready", body["status"])
		}
		if !strings.Contains(body["error"], "database unreachable") {
			t.Errorf("error field = %q, want the checker's reason", body["error"])
		}
	})

	t.Run("readyz without a hook", func(t *testing.T) {
		srv := buildServer(nil, Options{})
		if rec := hit(srv.mux, httptest.NewRequest("GET", "/readyz", http.NoBody)); rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})
}

func TestAPIHealth(t *testing.T) {
	srv := buildServer(nil, Options{})
	rec := hit(srv.mux, httptest.NewRequest("GET", "/api/v1/health", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Service != "wavesight" {
		t.Errorf("body = %+v, want status ok and service wavesight", body)
	}
	if len(body.Version) == 0 {
		t.Error("version map is empty")
	}
}

func TestAPIPlugins(t *testing.T) {
	srv := buildServer(nil, Options{})
	rec := hit(srv.mux, httptest.NewRequest("GET", "/api/v1/plugins", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var out []PluginResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d plugins, want 1", len(out))
	}
	if out[0].Name != "telemetry" || out[0].Version != "0.3.0" {
		t.Errorf("plugin = %+v, want telemetry 0.3.0", out[0])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := buildServer(nil, Options{})
	rec := hit(srv.mux, httptest.NewRequest("GET", "/metrics", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("runtime metrics missing from /metrics output")
	}
}

func TestFullChainHeaders(t *testing.T) {
	srv := buildServer(nil, Options{})
	rec := hit(srv.httpServer.Handler, httptest.NewRequest("GET", "/healthz", http.NoBody))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	for _, header := range []string{"X-WaveSight-Version", "X-Request-ID"} {
		if rec.Header().Get(header) == "" {
			t.Errorf("%s header missing", header)
		}
	}
}

func TestPluginRouteMounting(t *testing.T) {
	src := &fakeSource{
		routes: map[string][]plugin.Route{
			"telemetry": {{
				Method: "POST",
				Path:   "/ingest",
				Handler: func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusAccepted)
				},
			}},
		},
	}
	srv := New("127.0.0.1:0", src, zap.NewNop(), nil, Options{})

	rec := hit(srv.mux, httptest.NewRequest("POST", "/api/v1/telemetry/ingest", http.NoBody))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("mounted route: status = %d, want 202", rec.Code)
	}

	rec = hit(srv.mux, httptest.NewRequest("POST", "/api/v1/telemetry/other", http.NoBody))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unmounted route: status = %d, want 404", rec.Code)
	}
}

// streamStub mounts one extra route, the way the WebSocket handler
// does.
type streamStub struct {
	mounted bool
}

func (s *streamStub) RegisterRoutes(mux *http.ServeMux) {
	s.mounted = true
	mux.HandleFunc("GET /api/v1/stream", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
}

func TestExtraRouteMounting(t *testing.T) {
	stub := &streamStub{}
	srv := New("127.0.0.1:0", &fakeSource{}, zap.NewNop(), nil, Options{
		ExtraRoutes: []SimpleRouteRegistrar{stub},
	})

	if !stub.mounted {
		t.Fatal("extra route registrar never ran")
	}
	rec := hit(srv.mux, httptest.NewRequest("GET", "/api/v1/stream", http.NoBody))
	if rec.Code != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d, want 101", rec.Code)
	}
}

func TestDemoModeBlocksWrites(t *testing.T) {
	src := &fakeSource{
		routes: map[string][]plugin.Route{
			"telemetry": {{
				Method: "POST",
				Path:   "/ingest",
				Handler: func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusAccepted)
				},
			}},
		},
	}
	srv := New("127.0.0.1:0", src, zap.NewNop(), nil, Options{DemoMode: true})

	rec := hit(srv.httpServer.Handler, httptest.NewRequest("POST", "/api/v1/telemetry/ingest", http.NoBody))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", rec.Code)
	}

	rec = hit(srv.httpServer.Handler, httptest.NewRequest("GET", "/api/v1/health", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", rec.Code)
	}
}
