package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vidbrief/internal/modkit/swaggerkit"
	"vidbrief/internal/platform/config"
	phttp "vidbrief/internal/platform/net/http"
	mediamod "vidbrief/internal/services/media/module"

	"github.com/go-chi/chi/v5"
)

func TestMountServesEveryRoute(t *testing.T) {
	swaggerkit.Reset()
	t.Cleanup(swaggerkit.Reset)

	r := phttp.AdaptChi(chi.NewRouter())
	app := Mount(r, Options{
		Root:          config.New(),
		Config:        config.New().Prefix("VIDBRIEF_API_TEST_"),
		EnableSwagger: true,
		Media:         &mediamod.Options{CacheBackend: mediamod.CacheNone, WarmTimeout: time.Second},
	})
	if app.Media == nil || len(app.Modules) != 2 {
		t.Fatalf("app = %+v", app)
	}

	cases := []struct {
		method, path, body string
		status             int
		contains           string
	}{
		{"GET", "/health", "", 200, ""},
		{"GET", "/api/v1/meta/health", "", 200, `"service":"vidbrief-api"`},
		{"GET", "/api/v1/meta/ready", "", 200, `"status":"degraded"`},
		{"GET", "/api/v1/media/providers", "", 200, `"strategies":["probe","local"]`},
		{"GET", "/api/docs/doc.json", "", 200, `/api/v1/media/summarize`},
		{"POST", "/api/v1/media/summarize", `{"video_id":"dQw4w9WgXcQ"}`, 503, `"kind":"unavailable"`},
		{"POST", "/summarize", `{}`, 400, `"kind":"invalid_request"`},
		{"POST", "/analyze", `{"video_id":"dQw4w9WgXcQ","brand":"Acme"}`, 503, `"kind":"unavailable"`},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(c.method, c.path, strings.NewReader(c.body)))
		if rec.Code != c.status {
			t.Fatalf("%s %s: status %d, want %d (%s)", c.method, c.path, rec.Code, c.status, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), c.contains) {
			t.Fatalf("%s %s: body %s missing %s", c.method, c.path, rec.Body.String(), c.contains)
		}
	}
}
