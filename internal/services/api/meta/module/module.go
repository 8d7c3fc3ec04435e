// Package module wires the meta endpoints into the API
package module

import (
	"time"

	"vidbrief/internal/core/version"
	modkit "vidbrief/internal/modkit"
	"vidbrief/internal/modkit/httpkit"
	str "vidbrief/internal/platform/strings"

	metahttp "vidbrief/internal/services/api/meta/http"
)

// Module serves /meta
type Module struct {
	deps      modkit.Deps
	built     modkit.Built
	startedAt time.Time
	extra     []metahttp.Probe
}

// New builds the meta module. Readiness always probes pg and ch; other
// modules add their own checks with AddProbe before routes are mounted
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)
	return &Module{deps: deps, built: b, startedAt: time.Now()}
}

// AddProbe appends a readiness check
func (m *Module) AddProbe(p metahttp.Probe) { m.extra = append(m.extra, p) }

func (m *Module) probes() []metahttp.Probe {
	// a typed nil in an interface would read as configured
	var pg, ch any
	if m.deps.PG != nil {
		pg = m.deps.PG
	}
	if m.deps.CH != nil {
		ch = m.deps.CH
	}
	return append([]metahttp.Probe{metahttp.PingProbe("pg", pg), metahttp.PingProbe("ch", ch)}, m.extra...)
}

// MountRoutes implements modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) {
		metahttp.Register(rr, metahttp.Deps{
			ServiceName:  version.Service,
			StartedAt:    m.startedAt,
			Probes:       m.probes(),
			ProbeTimeout: m.deps.Cfg.MayDuration("META_PROBE_TIMEOUT", 2*time.Second),
		})
	})
}

// Name implements modkit.Module
func (m *Module) Name() string { return str.FirstNonEmpty(m.built.Name, "meta") }

// Ports implements modkit.Module
func (m *Module) Ports() any { return nil }
