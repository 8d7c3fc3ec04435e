// Package service orchestrates summarize and analyze: cache lookup, resolve,
// submit, poll, fetch, normalize and cache
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/platform/logger"
	"vidbrief/internal/services/media/brand"
	"vidbrief/internal/services/media/cache"
	"vidbrief/internal/services/media/domain"
	"vidbrief/internal/services/media/poller"
	"vidbrief/internal/services/media/provider"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL applies when Config.CacheTTL is zero
const DefaultCacheTTL = 24 * time.Hour

// Config holds orchestration defaults
type Config struct {
	// AllowDownload is used when a request leaves allow_download unset
	AllowDownload bool
	PollInterval  time.Duration
	PollTimeout   time.Duration
	CacheTTL      time.Duration
	// Dedupe coalesces concurrent identical requests into one provider job
	Dedupe   bool
	Language string
}

// Resolver turns a reference into a source. ResolveLocal only downloads
type Resolver interface {
	Resolve(ctx context.Context, ref domain.VideoReference, allowLocal bool) (domain.ResolvedSource, error)
	ResolveLocal(ctx context.Context, ref domain.VideoReference) (domain.ResolvedSource, error)
}

// Waiter drives a job to a terminal state
type Waiter interface {
	AwaitCompletion(ctx context.Context, src poller.Source, job domain.ProviderJob, interval, timeout time.Duration) (domain.ProviderJob, error)
}

// Providers selects an adapter by name
type Providers interface {
	Get(name string) (provider.Adapter, error)
}

// Deps are the collaborators of a Service. Cache and Ledger may be nil
type Deps struct {
	Providers Providers
	Resolver  Resolver
	Poller    Waiter
	Cache     cache.Cache
	Ledger    domain.Ledger
	Now       func() time.Time
}

// Service is the orchestrator
type Service struct {
	cfg       Config
	providers Providers
	resolver  Resolver
	poller    Waiter
	cache     cache.Cache
	ledger    domain.Ledger
	now       func() time.Time
	log       *logger.Logger

	flight   singleflight.Group
	flightMu sync.Mutex
	calls    map[string]*flightCall
}

// New builds a Service
func New(cfg Config, d Deps) *Service {
	if d.Providers == nil || d.Resolver == nil {
		panic("media.Service requires providers and a resolver")
	}
	if d.Poller == nil {
		d.Poller = poller.New()
	}
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Ledger == nil {
		d.Ledger = domain.NoopLedger{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Language == "" {
		cfg.Language = provider.DefaultLanguage
	}
	return &Service{
		cfg:       cfg,
		providers: d.Providers,
		resolver:  d.Resolver,
		poller:    d.Poller,
		cache:     d.Cache,
		ledger:    d.Ledger,
		now:       d.Now,
		log:       logger.Named("media"),
		calls:     make(map[string]*flightCall),
	}
}

// plan is a validated request
type plan struct {
	op            domain.Operation
	adapter       provider.Adapter
	target        domain.Target
	fp            domain.Fingerprint
	allowDownload bool
	result        domain.ResultOptions
	brand         string
	metadata      map[string]any
	started       time.Time
}

// analysis carries the analyze only request fields
type analysis struct {
	brand       string
	temperature *float64
	maxTokens   int
	metadata    map[string]any
}

func (s *Service) prepare(op domain.Operation, m domain.Media, o domain.Options, a analysis) (plan, error) {
	target, err := m.Target()
	if err != nil {
		return plan{}, err
	}
	adapter, err := s.providers.Get(o.Provider)
	if err != nil {
		return plan{}, err
	}
	allow := s.cfg.AllowDownload
	if o.AllowDownload != nil {
		allow = *o.AllowDownload
	}
	lang := strings.TrimSpace(o.Language)
	if lang == "" {
		lang = s.cfg.Language
	}
	p := plan{
		op:            op,
		adapter:       adapter,
		target:        target,
		allowDownload: allow,
		brand:         strings.TrimSpace(a.brand),
		metadata:      a.metadata,
		started:       s.now(),
		fp: domain.NewFingerprint(domain.FingerprintInput{
			Target:      target.Key(),
			Provider:    adapter.Name(),
			Operation:   op,
			Style:       o.Style,
			Language:    lang,
			Brand:       a.brand,
			Temperature: a.temperature,
			MaxTokens:   a.maxTokens,
		}),
	}
	switch op {
	case domain.OpSummarize:
		p.result = domain.ResultOptions{Prompt: provider.SummaryPrompt(o.Style, lang)}
	case domain.OpAnalyze:
		schema, err := brand.Schema()
		if err != nil {
			return plan{}, perr.Wrap(err, perr.ErrorCodeUnknown, "brand schema unavailable")
		}
		p.result = domain.ResultOptions{
			Prompt:      brand.Prompt(p.brand),
			Schema:      schema,
			Temperature: a.temperature,
			MaxTokens:   a.maxTokens,
		}
	}
	return p, nil
}

// Summarize returns a prose summary of the referenced video
func (s *Service) Summarize(ctx context.Context, req domain.SummarizeRequest) (domain.SummaryResult, error) {
	p, err := s.prepare(domain.OpSummarize, req.Media, req.Options, analysis{})
	if err != nil {
		return domain.SummaryResult{}, err
	}
	ctx = logger.WithJob(ctx, string(p.adapter.Name()), string(p.fp))

	var out domain.SummaryResult
	if s.cached(ctx, p.fp, &out) {
		out.Meta.Cached = true
		return out, nil
	}
	v, err := s.once(ctx, p.fp, func(ctx context.Context) (any, error) {
		if s.cfg.Dedupe && s.cached(ctx, p.fp, &out) {
			out.Meta.Cached = true
			return out, nil
		}
		return s.summarize(ctx, p)
	})
	if err != nil {
		return domain.SummaryResult{}, err
	}
	return v.(domain.SummaryResult), nil
}

// Analyze returns a structured brand analysis of the referenced video
func (s *Service) Analyze(ctx context.Context, req domain.AnalyzeRequest) (domain.AnalysisResult, error) {
	if strings.TrimSpace(req.Brand) == "" {
		return domain.AnalysisResult{}, perr.WithField(perr.InvalidRequestf("brand is required"), "brand")
	}
	if t := req.Temperature; t != nil && (*t < 0 || *t > domain.MaxTemperature) {
		return domain.AnalysisResult{}, perr.WithField(perr.InvalidRequestf("temperature must be between 0 and %g", domain.MaxTemperature), "temperature")
	}
	if req.MaxTokens < 0 || req.MaxTokens > domain.MaxTokensLimit {
		return domain.AnalysisResult{}, perr.WithField(perr.InvalidRequestf("max_tokens must be between 1 and %d", domain.MaxTokensLimit), "max_tokens")
	}
	p, err := s.prepare(domain.OpAnalyze, req.Media, req.Options, analysis{
		brand:       req.Brand,
		temperature: req.Temperature,
		maxTokens:   req.MaxTokens,
		metadata:    req.Metadata,
	})
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	ctx = logger.WithJob(ctx, string(p.adapter.Name()), string(p.fp))

	var out domain.AnalysisResult
	if s.cached(ctx, p.fp, &out) {
		out.Meta.Cached = true
		return out, nil
	}
	v, err := s.once(ctx, p.fp, func(ctx context.Context) (any, error) {
		if s.cfg.Dedupe && s.cached(ctx, p.fp, &out) {
			out.Meta.Cached = true
			return out, nil
		}
		return s.analyze(ctx, p)
	})
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	return v.(domain.AnalysisResult), nil
}

func (s *Service) summarize(ctx context.Context, p plan) (domain.SummaryResult, error) {
	run, err := s.execute(ctx, p)
	if err != nil {
		return domain.SummaryResult{}, err
	}
	text := strings.TrimSpace(run.raw.Text)
	if text == "" {
		return domain.SummaryResult{}, perr.WithOp(perr.JobFailedf("%s returned no summary text", p.adapter.Name()), "normalize")
	}
	out := domain.SummaryResult{
		VideoID: run.job.VideoID,
		Summary: text,
		Raw:     run.raw.Body,
		Meta:    s.meta(p, run),
	}
	s.store(ctx, p.fp, out)
	return out, nil
}

func (s *Service) analyze(ctx context.Context, p plan) (domain.AnalysisResult, error) {
	run, err := s.execute(ctx, p)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	data, issues := brand.Parse(run.raw.Text)
	meta := s.meta(p, run)
	meta.Brand = p.brand
	meta.SchemaVersion = brand.SchemaVersion
	out := domain.AnalysisResult{
		VideoID: run.job.VideoID,
		Data:    data,
		Errors:  issues,
		Raw:     run.raw.Body,
		Meta:    meta,
	}
	if len(issues) > 0 {
		logger.From(ctx, s.log).Warn().Int("issues", len(issues)).Str("first", issues[0].Code).Msg("analysis output had issues")
	}
	s.store(ctx, p.fp, out)
	return out, nil
}

// runResult is what one provider round trip produced
type runResult struct {
	job    domain.ProviderJob
	source domain.ResolvedSource
	raw    domain.RawResult
}

// execute gets the video onto the provider and fetches the generation
func (s *Service) execute(ctx context.Context, p plan) (runResult, error) {
	log := logger.From(ctx, s.log)
	job, src, err := s.ingest(ctx, p)
	if err != nil {
		return runResult{}, err
	}
	raw, err := p.adapter.FetchResult(ctx, job, p.op, p.result)
	if err != nil {
		return runResult{}, staged(err, "fetch")
	}
	log.Info().Str("video_id", job.VideoID).Str("method", string(src.Method)).Msg("provider result fetched")
	return runResult{job: job, source: src, raw: raw}, nil
}

// ingest returns a ready job, reusing a video the provider already holds
// when possible
func (s *Service) ingest(ctx context.Context, p plan) (domain.ProviderJob, domain.ResolvedSource, error) {
	name := p.adapter.Name()
	if p.target.ProviderVideoID != "" {
		id := p.target.ProviderVideoID
		return domain.ProviderJob{ID: id, Provider: name, State: domain.JobReady, VideoID: id},
			domain.ResolvedSource{Method: domain.MethodReuse}, nil
	}

	vkey := domain.VideoKey(name, p.target.Key())
	var known knownVideo
	if s.cached(ctx, vkey, &known) && known.VideoID != "" {
		logger.From(ctx, s.log).Debug().Str("video_id", known.VideoID).Msg("reusing ingested video")
		return domain.ProviderJob{ID: known.VideoID, Provider: name, State: domain.JobReady, VideoID: known.VideoID, Group: known.Group},
			domain.ResolvedSource{SourceURL: known.SourceURL, Method: domain.MethodReuse}, nil
	}

	src, err := s.resolver.Resolve(ctx, *p.target.Ref, p.allowDownload)
	if err != nil {
		return domain.ProviderJob{}, domain.ResolvedSource{}, staged(err, "resolve")
	}
	job, err := s.submit(ctx, p, src)
	if err != nil && s.canUploadInstead(p, src, err) {
		job, src, err = s.uploadInstead(ctx, p, src, err)
	}
	if err != nil {
		return domain.ProviderJob{}, src, err
	}

	job, err = s.poller.AwaitCompletion(ctx, p.adapter, job, s.cfg.PollInterval, s.cfg.PollTimeout)
	s.record(ctx, p, src, job, err)
	if err != nil {
		return job, src, staged(err, "poll")
	}
	if job.VideoID == "" {
		return job, src, perr.WithOp(perr.JobFailedf("%s job %s finished without a video id", name, job.ID), "poll")
	}
	s.store(ctx, vkey, knownVideo{VideoID: job.VideoID, Group: job.Group, SourceURL: src.SourceURL})
	return job, src, nil
}

// submit hands the source over and drops any local payload on every path
func (s *Service) submit(ctx context.Context, p plan, src domain.ResolvedSource) (domain.ProviderJob, error) {
	defer src.Release()
	job, err := p.adapter.Submit(ctx, src, domain.SubmitOptions{Operation: p.op, Label: string(p.fp), Metadata: p.metadata})
	if err != nil {
		return job, staged(err, "submit")
	}
	logger.From(ctx, s.log).Info().Str("job", job.ID).Str("method", string(src.Method)).Bool("local", src.IsLocalUpload).Msg("job submitted")
	return job, nil
}

// canUploadInstead reports whether a refused remote youtube source may be
// downloaded and sent as a file
func (s *Service) canUploadInstead(p plan, src domain.ResolvedSource, err error) bool {
	return p.allowDownload && !src.IsLocalUpload &&
		p.target.Ref != nil && p.target.Ref.Kind == domain.RefYouTube &&
		perr.IsCode(err, perr.ErrorCodeProviderRejectedSource)
}

// uploadInstead downloads the reference and submits once more. A failed
// download keeps the original rejection
func (s *Service) uploadInstead(ctx context.Context, p plan, remote domain.ResolvedSource, rejected error) (domain.ProviderJob, domain.ResolvedSource, error) {
	log := logger.From(ctx, s.log)
	log.Warn().Err(rejected).Str("method", string(remote.Method)).Msg("provider refused remote source, uploading instead")
	src, err := s.resolver.ResolveLocal(ctx, *p.target.Ref)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ProviderJob{}, remote, ctxErr
		}
		log.Warn().Err(err).Msg("local fallback unavailable")
		return domain.ProviderJob{}, remote, rejected
	}
	job, err := s.submit(ctx, p, src)
	return job, src, err
}

// knownVideo is the cached provider side id of an ingested source
type knownVideo struct {
	VideoID   string `json:"video_id"`
	Group     string `json:"group,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

func (s *Service) meta(p plan, run runResult) domain.ResultMeta {
	now := s.now()
	trace := run.raw.TraceID
	if trace == "" {
		trace = uuid.NewString()
	}
	return domain.ResultMeta{
		Provider:      p.adapter.Name(),
		VideoID:       run.job.VideoID,
		Group:         run.job.Group,
		SourceURL:     run.source.SourceURL,
		ResolveMethod: run.source.Method,
		CreatedAt:     now,
		ElapsedMS:     now.Sub(p.started).Milliseconds(),
		TraceID:       trace,
	}
}

// cached decodes a hit into out; undecodable entries count as misses
func (s *Service) cached(ctx context.Context, fp domain.Fingerprint, out any) bool {
	e, ok := s.cache.Get(ctx, fp)
	if !ok {
		return false
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		logger.From(ctx, s.log).Warn().Err(err).Str("key", string(fp)).Msg("ignoring undecodable cache entry")
		return false
	}
	return true
}

func (s *Service) store(ctx context.Context, fp domain.Fingerprint, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.From(ctx, s.log).Warn().Err(err).Msg("result not cacheable")
		return
	}
	s.cache.Put(ctx, fp, b, s.cfg.CacheTTL)
}

// record appends terminal jobs to the ledger; cancellations are not terminal
func (s *Service) record(ctx context.Context, p plan, src domain.ResolvedSource, job domain.ProviderJob, err error) {
	rec := domain.JobRecord{
		ID:            uuid.NewString(),
		Fingerprint:   p.fp,
		Operation:     p.op,
		Provider:      p.adapter.Name(),
		JobID:         job.ID,
		VideoID:       job.VideoID,
		Group:         job.Group,
		SourceURL:     src.SourceURL,
		ResolveMethod: src.Method,
		Polls:         job.Polls,
		SubmittedAt:   job.SubmittedAt,
		FinishedAt:    s.now(),
	}
	switch {
	case err == nil:
		rec.Outcome = domain.OutcomeReady
	case perr.IsCode(err, perr.ErrorCodePollTimeout):
		rec.Outcome, rec.ErrorKind = domain.OutcomeTimeout, perr.ErrorCodePollTimeout.Kind()
	case perr.IsCode(err, perr.ErrorCodeProviderJobFailed):
		rec.Outcome, rec.ErrorKind = domain.OutcomeFailed, perr.ErrorCodeProviderJobFailed.Kind()
	default:
		return
	}
	if lerr := s.ledger.Record(context.WithoutCancel(ctx), rec); lerr != nil {
		logger.From(ctx, s.log).Warn().Err(lerr).Msg("job ledger write failed")
	}
}

// staged labels err with the stage it came from. Foreign errors are wrapped so
// the caller always gets a typed error; cancellation passes through untouched
func staged(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if _, ok := perr.As(err); !ok {
		err = perr.Wrapf(err, perr.ErrorCodeUnknown, "%s failed", op)
	}
	return perr.WithOp(err, op)
}

// flightCall is the shared context of one coalesced run and the number of
// callers still waiting on it
type flightCall struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// once runs fn directly, or coalesced per fingerprint when dedupe is on. A
// coalesced run is detached from whichever caller started it and is cancelled
// only once every caller has gone
func (s *Service) once(ctx context.Context, fp domain.Fingerprint, fn func(context.Context) (any, error)) (any, error) {
	if !s.cfg.Dedupe {
		return fn(ctx)
	}
	key := string(fp)
	s.flightMu.Lock()
	c, ok := s.calls[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c = &flightCall{ctx: fctx, cancel: cancel}
		s.calls[key] = c
	}
	c.waiters++
	ch := s.flight.DoChan(key, func() (any, error) { return fn(c.ctx) })
	s.flightMu.Unlock()

	select {
	case r := <-ch:
		s.leave(key, c, false)
		if r.Shared {
			s.log.Debug().Str("fingerprint", key).Msg("coalesced identical request")
		}
		return r.Val, r.Err
	case <-ctx.Done():
		s.leave(key, c, true)
		return nil, ctx.Err()
	}
}

// leave drops a waiter. The last one out cancels the run, and forgets it when
// it is abandoned so the next caller starts afresh
func (s *Service) leave(key string, c *flightCall, abandoned bool) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	c.waiters--
	if c.waiters > 0 {
		return
	}
	if s.calls[key] == c {
		delete(s.calls, key)
	}
	if abandoned {
		s.flight.Forget(key)
	}
	c.cancel()
}
