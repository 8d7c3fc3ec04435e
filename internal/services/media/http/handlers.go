// Package http provides http transport for media summaries and analyses
package http

import (
	"context"
	stdhttp "net/http"

	"vidbrief/internal/modkit/httpkit"
	"vidbrief/internal/modkit/swaggerkit"
	"vidbrief/internal/platform/net/http/bind"
	"vidbrief/internal/services/media/domain"
)

// ProviderTag is the validation tag that checks provider names against the catalog
const ProviderTag = "media_provider"

// Service is the orchestrator surface the handlers need
type Service interface {
	Summarize(ctx context.Context, req domain.SummarizeRequest) (domain.SummaryResult, error)
	Analyze(ctx context.Context, req domain.AnalyzeRequest) (domain.AnalysisResult, error)
}

// Catalog describes what the running process can serve
type Catalog interface {
	Providers() []string
	DefaultProvider() domain.ProviderName
	Strategies() []string
}

// ProvidersResponse lists configured providers
type ProvidersResponse struct {
	Providers  []string `json:"providers"`
	Default    string   `json:"default"`
	Strategies []string `json:"strategies"`
}

// RegisterProviderTag binds the provider validation tag to c
func RegisterProviderTag(c Catalog) error {
	return bind.RegisterOneOf(ProviderTag, c.Providers)
}

// Register mounts media endpoints on the given router
func Register(r httpkit.Router, s Service, c Catalog) {
	h := &handlers{svc: s, cat: c}

	httpkit.PostJSON[domain.SummarizeRequest](r, "/summarize", h.summarize)
	httpkit.PostJSON[domain.AnalyzeRequest](r, "/analyze", h.analyze)
	httpkit.Get(r, "/providers", h.providers)

	errs := []int{400, 422, 502, 503, 504}
	swaggerkit.Register(
		swaggerkit.Operation{
			Method: "POST", Path: "/api/v1/media/summarize", Tag: "Media",
			Summary: "Summarize a video", Request: domain.SummarizeRequest{},
			Response: domain.SummaryResult{}, Errors: errs,
		},
		swaggerkit.Operation{
			Method: "POST", Path: "/api/v1/media/analyze", Tag: "Media",
			Summary: "Brand analysis of a video", Request: domain.AnalyzeRequest{},
			Response: domain.AnalysisResult{}, Errors: errs,
		},
		swaggerkit.Operation{
			Method: "GET", Path: "/api/v1/media/providers", Tag: "Media",
			Summary: "Configured providers and resolve strategies", Response: ProvidersResponse{},
		},
	)
}

// RegisterLegacy mounts the unversioned aliases kept for older clients
func RegisterLegacy(r httpkit.Router, s Service) {
	h := &handlers{svc: s}
	httpkit.PostJSON[domain.SummarizeRequest](r, "/summarize", h.summarize)
	httpkit.PostJSON[domain.AnalyzeRequest](r, "/analyze", h.analyze)
}

type handlers struct {
	svc Service
	cat Catalog
}

// swagger:route POST /media/summarize Media mediaSummarize
// @Summary Summarize a video
// @Tags Media
// @Accept json
// @Produce json
// @Param payload body domain.SummarizeRequest true "Video reference and style"
// @Success 200 {object} domain.SummaryResult "ok"
// @Router /media/summarize [post]
func (h *handlers) summarize(r *stdhttp.Request, in domain.SummarizeRequest) (any, error) {
	return h.svc.Summarize(r.Context(), in)
}

// swagger:route POST /media/analyze Media mediaAnalyze
// @Summary Brand analysis of a video
// @Tags Media
// @Accept json
// @Produce json
// @Param payload body domain.AnalyzeRequest true "Video reference and brand"
// @Success 200 {object} domain.AnalysisResult "ok"
// @Router /media/analyze [post]
func (h *handlers) analyze(r *stdhttp.Request, in domain.AnalyzeRequest) (any, error) {
	return h.svc.Analyze(r.Context(), in)
}

func (h *handlers) providers(*stdhttp.Request) (any, error) {
	return ProvidersResponse{
		Providers:  h.cat.Providers(),
		Default:    string(h.cat.DefaultProvider()),
		Strategies: h.cat.Strategies(),
	}, nil
}
