// Package swaggerkit serves Swagger UI over an OpenAPI document assembled from
// operations that modules register at mount time
package swaggerkit

import (
	"encoding/json"
	"net/http"

	phttp "vidbrief/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Info titles the generated document
type Info struct {
	Title   string
	Version string
	Server  string // base url, e.g. "/"
}

// Mount the Swagger UI and JSON spec under /api/docs if enabled
func Mount(r phttp.Router, enabled bool, info Info) {
	if !enabled {
		return
	}
	r.Get("/api/docs", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", serveDocJSON(info))
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("vidbrief"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}

// serveDocJSON renders the document on each request so late registrations show up
func serveDocJSON(info Info) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		b, err := json.Marshal(Spec(info))
		if err != nil {
			http.Error(w, "spec render error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(b)
	}
}
