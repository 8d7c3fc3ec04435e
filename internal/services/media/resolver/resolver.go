// Package resolver turns a video reference into a source a provider can ingest.
// Direct urls pass through; youtube references walk an ordered strategy chain
package resolver

import (
	"context"
	"errors"

	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/platform/logger"
	pstrings "vidbrief/internal/platform/strings"
	"vidbrief/internal/services/media/domain"
)

// Strategy is one way of producing a source for a youtube reference
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, ref domain.VideoReference) (domain.ResolvedSource, error)
}

// downloader marks strategies that put media on local disk
type downloader interface {
	Downloads() bool
}

// SkippedLocal is the reason recorded when local download is disabled
const SkippedLocal = "skipped: local download disabled"

// Resolver walks strategies in order
type Resolver struct {
	strategies []Strategy
	log        *logger.Logger
}

// New returns a resolver trying strategies in the given order
func New(strategies ...Strategy) *Resolver {
	out := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Resolver{strategies: out, log: logger.Named("resolver")}
}

// Strategies lists strategy names in order
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve produces a source for ref. When every strategy fails the error is
// UnresolvableSource carrying one reason per strategy
func (r *Resolver) Resolve(ctx context.Context, ref domain.VideoReference, allowLocal bool) (domain.ResolvedSource, error) {
	if ref.Kind == domain.RefDirect {
		return domain.ResolvedSource{SourceURL: ref.URL, Method: domain.MethodNone}, nil
	}
	if ref.Kind != domain.RefYouTube {
		return domain.ResolvedSource{}, perr.WithOp(perr.InvalidRequestf("unknown reference kind %q", ref.Kind), "resolve")
	}

	log := logger.From(ctx, r.log)
	details := domain.UnresolvableDetails{Reference: ref.URL}
	for _, s := range r.strategies {
		if d, ok := s.(downloader); ok && d.Downloads() && !allowLocal {
			details.Attempts = append(details.Attempts, domain.StrategyFailure{Strategy: s.Name(), Reason: SkippedLocal})
			continue
		}
		src, err := s.Attempt(ctx, ref)
		if err == nil {
			log.Info().Str("strategy", s.Name()).Str("method", string(src.Method)).Msg("reference resolved")
			return src, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ResolvedSource{}, ctxErr
		}
		reason := reasonOf(err)
		log.Debug().Str("strategy", s.Name()).Str("reason", reason).Msg("strategy fell through")
		details.Attempts = append(details.Attempts, domain.StrategyFailure{Strategy: s.Name(), Reason: reason})
	}
	err := perr.Unresolvable(details, "could not resolve %s to an ingestible source", ref.URL)
	return domain.ResolvedSource{}, perr.WithOp(err, "resolve")
}

// ResolveLocal runs only the strategies that download, for a provider that
// refused a remote source
func (r *Resolver) ResolveLocal(ctx context.Context, ref domain.VideoReference) (domain.ResolvedSource, error) {
	if ref.Kind != domain.RefYouTube {
		return domain.ResolvedSource{}, perr.WithOp(perr.InvalidRequestf("local fallback needs a youtube reference"), "resolve")
	}
	log := logger.From(ctx, r.log)
	details := domain.UnresolvableDetails{Reference: ref.URL}
	for _, s := range r.strategies {
		if d, ok := s.(downloader); !ok || !d.Downloads() {
			continue
		}
		src, err := s.Attempt(ctx, ref)
		if err == nil {
			log.Info().Str("strategy", s.Name()).Msg("reference downloaded for upload")
			return src, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ResolvedSource{}, ctxErr
		}
		details.Attempts = append(details.Attempts, domain.StrategyFailure{Strategy: s.Name(), Reason: reasonOf(err)})
	}
	err := perr.Unresolvable(details, "could not download %s", ref.URL)
	return domain.ResolvedSource{}, perr.WithOp(err, "resolve")
}

// reasonOf prefers the safe perr message over a full cause chain
func reasonOf(err error) string {
	if errors.Is(err, domain.ErrNotApplicable) {
		return "not applicable"
	}
	msg := err.Error()
	if e, ok := perr.As(err); ok && e.Message() != "" {
		msg = e.Message()
	}
	return pstrings.Truncate(msg, 200)
}
