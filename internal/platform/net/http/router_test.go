package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vidbrief/internal/modkit/httpkit"
	"vidbrief/internal/platform/config"
	phttp "vidbrief/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

type echoIn struct {
	Name string `json:"name" validate:"required"`
}

func TestAdaptChiRoutesAndMiddleware(t *testing.T) {
	m := chi.NewRouter()
	r := phttp.AdaptChi(m)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Root", "1")
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api", func(api phttp.Router) {
		api.Group(func(g phttp.Router) {
			httpkit.Get(g, "/ping", func(*http.Request) (any, error) { return map[string]string{"ok": "pong"}, nil })
			httpkit.PostJSON(g, "/echo", func(_ *http.Request, in echoIn) (any, error) { return in, nil })
		})
	})
	r.Handle("/std", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "std") }))

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		r.Mux().ServeHTTP(rec, req)
		return rec
	}

	if rec := do("GET", "/api/ping", ""); rec.Code != 200 || rec.Header().Get("X-Root") != "1" {
		t.Fatalf("GET /api/ping: %d %q", rec.Code, rec.Body.String())
	}
	if rec := do("POST", "/api/echo", `{"name":"x"}`); rec.Code != 200 || !strings.Contains(rec.Body.String(), `"name":"x"`) {
		t.Fatalf("POST /api/echo: %d %q", rec.Code, rec.Body.String())
	}
	if rec := do("POST", "/api/echo", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /api/echo invalid: %d", rec.Code)
	}
	if rec := do("GET", "/std", ""); rec.Body.String() != "std" {
		t.Fatalf("GET /std: %q", rec.Body.String())
	}
}

func TestServerRunStopsOnCancel(t *testing.T) {
	t.Setenv("T_PORT", "127.0.0.1:0")
	optCalled := false
	srv := phttp.NewServer(config.New().Prefix("T_"), func(*chi.Mux) { optCalled = true })
	if !optCalled {
		t.Fatalf("option hook not called")
	}
	if srv.Addr() != "127.0.0.1:0" {
		t.Fatalf("addr = %q", srv.Addr())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, time.Second) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestServerPortForms(t *testing.T) {
	t.Setenv("P_PORT", "9001")
	if got := phttp.NewServer(config.New().Prefix("P_")).Addr(); got != ":9001" {
		t.Fatalf("bare port addr = %q", got)
	}
	if got := phttp.NewServer(config.New().Prefix("UNSET_")).Addr(); got != ":8000" {
		t.Fatalf("default addr = %q", got)
	}
}
