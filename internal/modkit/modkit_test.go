package modkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"vidbrief/internal/platform/config"
	"vidbrief/internal/platform/logger"
	phttp "vidbrief/internal/platform/net/http"
	"vidbrief/internal/platform/store"

	"github.com/go-chi/chi/v5"
)

func tagHeader(v string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Mw", v)
			next.ServeHTTP(w, r)
		})
	}
}

func TestBuildMount(t *testing.T) {
	b := Build(
		WithName("media"),
		WithPrefix("media/"),
		WithMiddlewares(tagHeader("a"), tagHeader("b")),
		WithRegister(func(r phttp.Router) {
			r.Get("/extra", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
		}),
	)
	if b.Name != "media" || b.Prefix != "media/" {
		t.Fatalf("built = %+v", b)
	}

	r := phttp.AdaptChi(chi.NewRouter())
	b.Mount(r, func(rr phttp.Router) {
		rr.Get("/providers", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})

	cases := []struct {
		path   string
		status int
	}{
		{"/media/providers", http.StatusNoContent},
		{"/media/extra", http.StatusTeapot},
		{"/providers", http.StatusNotFound},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest("GET", c.path, nil))
		if rec.Code != c.status {
			t.Fatalf("%s: status %d, want %d", c.path, rec.Code, c.status)
		}
		if c.status != http.StatusNotFound {
			if got := rec.Header().Values("X-Mw"); len(got) != 2 || got[0] != "a" {
				t.Fatalf("%s: middleware order %v", c.path, got)
			}
		}
	}
}

func TestBuildWithoutPrefixMountsInPlace(t *testing.T) {
	r := phttp.AdaptChi(chi.NewRouter())
	Build().Mount(r, func(rr phttp.Router) {
		rr.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestDepsFromNilStore(t *testing.T) {
	d := DepsFrom(config.New(), *logger.Get(), nil)
	if d.PG != nil || d.CH != nil {
		t.Fatalf("deps = %+v", d)
	}
	d = DepsFrom(config.New(), *logger.Get(), &store.Store{})
	if d.PG != nil || d.CH != nil {
		t.Fatalf("empty store should leave backends unset: %+v", d)
	}
}
