// Package http serves the meta endpoints: liveness, readiness, build info
package http

import (
	"context"
	"net/http"
	"time"

	"vidbrief/internal/core/version"
	"vidbrief/internal/modkit/httpkit"
	"vidbrief/internal/modkit/swaggerkit"
)

// Check states reported by /ready
const (
	StatusOK       = "ok"
	StatusSkipped  = "skipped"
	StatusDegraded = "degraded"
	StatusFail     = "fail"
)

// Probe is one readiness check. Check returns a status and, for fail or
// degraded, the reason
type Probe struct {
	Name  string
	Check func(context.Context) (string, error)
}

// Pinger is satisfied by the store adapters
type Pinger interface {
	Ping(context.Context) error
}

// PingProbe checks a backend that may be unset. nil skips, a value without
// Ping is reported degraded since it cannot be verified
func PingProbe(name string, dep any) Probe {
	return Probe{Name: name, Check: func(ctx context.Context) (string, error) {
		if dep == nil {
			return StatusSkipped, nil
		}
		p, ok := dep.(Pinger)
		if !ok {
			return StatusDegraded, nil
		}
		if err := p.Ping(ctx); err != nil {
			return StatusFail, err
		}
		return StatusOK, nil
	}}
}

// Deps are the handler dependencies
type Deps struct {
	ServiceName  string
	StartedAt    time.Time
	Probes       []Probe
	ProbeTimeout time.Duration
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"vidbrief-api"`
	Started string `json:"started" example:"2026-10-01T09:00:00Z"`
	Now     string `json:"now"     example:"2026-10-01T09:05:00Z"`
}

// ReadyCheck is the outcome of one probe
type ReadyCheck struct {
	Name   string `json:"name"            example:"pg"`
	Status string `json:"status"          example:"ok"`
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432: connect: connection refused"`
}

// ReadyResponse rolls the probes up: any fail fails, any degraded degrades
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2026-10-01T09:05:00Z"`
}

// ServiceResponse carries uptime in whole seconds
type ServiceResponse struct {
	Name    string `json:"name"    example:"vidbrief-api"`
	Started string `json:"started" example:"2026-10-01T09:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

type handlers struct{ d Deps }

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.ProbeTimeout <= 0 {
		d.ProbeTimeout = 2 * time.Second
	}
	h := &handlers{d: d}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)

	swaggerkit.Register(
		swaggerkit.Operation{Method: "GET", Path: "/api/v1/meta/health", Tag: "Meta", Summary: "Liveness", Response: HealthResponse{}},
		swaggerkit.Operation{Method: "GET", Path: "/api/v1/meta/ready", Tag: "Meta", Summary: "Readiness with backend and provider checks", Response: ReadyResponse{}},
		swaggerkit.Operation{Method: "GET", Path: "/api/v1/meta/version", Tag: "Meta", Summary: "Build info", Response: version.BuildInfo{}},
		swaggerkit.Operation{Method: "GET", Path: "/api/v1/meta/service", Tag: "Meta", Summary: "Service uptime", Response: ServiceResponse{}},
	)
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// @Summary Liveness
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (h *handlers) health(*http.Request) (any, error) {
	return HealthResponse{OK: true, Service: h.d.ServiceName, Started: stamp(h.d.StartedAt), Now: stamp(time.Now())}, nil
}

// @Summary Readiness with backend and provider checks
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.d.ProbeTimeout)
	defer cancel()

	out := ReadyResponse{Status: StatusOK, Checks: make([]ReadyCheck, 0, len(h.d.Probes))}
	for _, p := range h.d.Probes {
		st, err := p.Check(ctx)
		c := ReadyCheck{Name: p.Name, Status: st}
		if err != nil {
			c.Error = err.Error()
		}
		out.Checks = append(out.Checks, c)
		switch {
		case st == StatusFail:
			out.Status = StatusFail
		case st == StatusDegraded && out.Status == StatusOK:
			out.Status = StatusDegraded
		}
	}
	out.Now = stamp(time.Now())
	return out, nil
}

// @Summary Build info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /meta/version [get]
func (h *handlers) version(*http.Request) (any, error) { return version.Info(), nil }

// @Summary Service uptime
// @Tags Meta
// @Produce json
// @Success 200 {object} ServiceResponse
// @Router /meta/service [get]
func (h *handlers) service(*http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.d.ServiceName,
		Started: stamp(h.d.StartedAt),
		Uptime:  int64(time.Since(h.d.StartedAt) / time.Second),
	}, nil
}
