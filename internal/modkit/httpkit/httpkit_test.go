package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vidbrief/internal/platform/config"
	perr "vidbrief/internal/platform/errors"
	phttp "vidbrief/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

type pingIn struct {
	Video string `json:"video" validate:"required"`
}

func newRouter(t *testing.T) Router {
	t.Helper()
	r := phttp.AdaptChi(chi.NewRouter())
	r.Use(CommonStack(StackOptions{})...)
	MountAPIV1(r, nil, func(api Router) {
		Get(api, "/ok", func(*http.Request) (any, error) { return map[string]string{"ok": "yes"}, nil })
		Get(api, "/accepted", func(*http.Request) (any, error) {
			return Response{Status: http.StatusAccepted, Body: map[string]bool{"queued": true}}, nil
		})
		Get(api, "/boom", func(*http.Request) (any, error) { return nil, perr.PollTimeoutf("job j1 not ready") })
		PostJSON(api, "/echo", func(_ *http.Request, in pingIn) (any, error) { return in, nil })
	})
	return r
}

func TestMountAPIV1AndSugar(t *testing.T) {
	r := newRouter(t)
	cases := []struct {
		method, path, body string
		status             int
		contains           string
	}{
		{"GET", "/api/v1/ok", "", 200, `"ok":"yes"`},
		{"GET", "/api/v1/accepted", "", 202, `"queued":true`},
		{"GET", "/api/v1/boom", "", 504, `"kind":"poll_timeout"`},
		{"POST", "/api/v1/echo", `{"video":"abc"}`, 200, `"video":"abc"`},
		{"POST", "/api/v1/echo", `{}`, 400, `"kind":"invalid_request"`},
		{"GET", "/health", "", 200, ""},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
		r.Mux().ServeHTTP(rec, req)
		if rec.Code != c.status {
			t.Fatalf("%s %s: status %d, want %d (%s)", c.method, c.path, rec.Code, c.status, rec.Body.String())
		}
		if c.contains != "" && !strings.Contains(rec.Body.String(), c.contains) {
			t.Fatalf("%s %s: body %s missing %s", c.method, c.path, rec.Body.String(), c.contains)
		}
		if rec.Header().Get("X-Request-Id") == "" && c.path != "/health" {
			t.Fatalf("%s: request id header missing", c.path)
		}
	}
}

func TestErrorBodyCarriesRequestID(t *testing.T) {
	r := newRouter(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/boom", nil)
	req.Header.Set("X-Request-Id", "rid-123")
	r.Mux().ServeHTTP(rec, req)

	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.RequestID != "rid-123" || body.Error.Message != "job j1 not ready" {
		t.Fatalf("body = %+v", body)
	}
}

func TestStackFromConfig(t *testing.T) {
	t.Setenv("X_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("X_REQUEST_TIMEOUT", "0")
	o := StackFromConfig(config.New().Prefix("X_"))
	if len(o.CORSOrigins) != 2 || o.RequestTimeout != 0 {
		t.Fatalf("options = %+v", o)
	}
}
