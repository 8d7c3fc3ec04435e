package modkit

import (
	"net/http"

	phttp "vidbrief/internal/platform/net/http"
	str "vidbrief/internal/platform/strings"
)

// Built is the resolved module wiring
type Built struct {
	Name     string
	Prefix   string
	Mw       []func(http.Handler) http.Handler
	Register func(phttp.Router)
}

// Build applies Option funcs and returns a plain struct with defaults filled
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	if c.register == nil {
		c.register = func(phttp.Router) {}
	}
	return Built{
		Name:     c.name,
		Prefix:   c.prefix,
		Mw:       append([]func(http.Handler) http.Handler(nil), c.mw...),
		Register: c.register,
	}
}

// Mount routes b's prefix on r with its middleware, then calls own and the
// external register hook. An empty prefix mounts directly on r.
func (b Built) Mount(r phttp.Router, own func(phttp.Router)) {
	body := func(rr phttp.Router) {
		if len(b.Mw) > 0 {
			rr.Use(b.Mw...)
		}
		own(rr)
		b.Register(rr)
	}
	if b.Prefix == "" {
		r.Group(body)
		return
	}
	r.Route(str.MustPrefix(b.Prefix), body)
}
