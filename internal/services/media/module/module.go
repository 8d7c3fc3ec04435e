// Package module wires the media pipeline into the API using modkit
package module

import (
	"context"
	"time"

	"vidbrief/internal/adapters/cloudglue"
	"vidbrief/internal/adapters/rapidapi"
	"vidbrief/internal/adapters/twelvelabs"
	"vidbrief/internal/adapters/ytdlp"
	modkit "vidbrief/internal/modkit"
	"vidbrief/internal/modkit/httpkit"
	"vidbrief/internal/modkit/repokit"
	"vidbrief/internal/platform/logger"
	str "vidbrief/internal/platform/strings"
	"vidbrief/internal/services/media/cache"
	"vidbrief/internal/services/media/domain"
	mediahttp "vidbrief/internal/services/media/http"
	"vidbrief/internal/services/media/poller"
	"vidbrief/internal/services/media/provider"
	"vidbrief/internal/services/media/repo"
	"vidbrief/internal/services/media/resolver"
	"vidbrief/internal/services/media/service"

	"golang.org/x/sync/errgroup"
)

// Module is the media module
type Module struct {
	deps  modkit.Deps
	built modkit.Built
	opts  Options
	log   logger.Logger

	registry *provider.Registry
	resolver *resolver.Resolver
	cache    cache.Cache
	pgCache  repo.CacheRepo
	ledger   *repo.CHLedger
	svc      *service.Service
	ports    Ports
}

// New constructs the media module from deps and options
func New(deps modkit.Deps, o Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("media"),
		modkit.WithPrefix("/media"),
	}, opts...)...)

	m := &Module{deps: deps, built: b, opts: o, log: *logger.Named("media")}
	m.registry = buildRegistry(o)
	m.resolver = buildResolver(o)
	m.cache = m.buildCache()

	var ledger domain.Ledger = domain.NoopLedger{}
	if deps.CH != nil {
		m.ledger = repo.NewCHLedger(deps.CH)
		ledger = m.ledger
	}

	maxTransient := o.PollMaxTransient
	if maxTransient <= 0 {
		maxTransient = poller.DefaultMaxTransient
	}
	m.svc = service.New(o.Service, service.Deps{
		Providers: m.registry,
		Resolver:  m.resolver,
		Poller:    &poller.Poller{Clock: poller.RealClock(), MaxTransient: maxTransient},
		Cache:     m.cache,
		Ledger:    ledger,
	})
	m.ports = Ports{Media: m.svc, Catalog: m.catalog()}

	if err := mediahttp.RegisterProviderTag(m.ports.Catalog); err != nil {
		m.log.Warn().Err(err).Str("tag", mediahttp.ProviderTag).Msg("provider validation not registered")
	}

	m.log.Info().
		Strs("providers", m.registry.Names()).
		Str("default", string(m.registry.DefaultName())).
		Strs("strategies", m.resolver.Strategies()).
		Str("cache", o.CacheBackend).
		Bool("ledger", m.ledger != nil).
		Bool("dedupe", o.Service.Dedupe).
		Msg("media module ready")
	return m
}

func buildRegistry(o Options) *provider.Registry {
	reg := provider.NewRegistry(domain.ProviderName(o.DefaultProvider))
	if o.TwelveLabs.APIKey != "" {
		reg.Register(provider.NewTwelveLabs(twelvelabs.New(o.TwelveLabs), o.TwelveCfg))
	}
	if o.Cloudglue.APIKey != "" {
		reg.Register(provider.NewCloudglue(cloudglue.New(o.Cloudglue), o.CloudCfg))
	}
	return reg
}

// buildResolver orders the strategies rapid, probe, local. Rapid needs a key
func buildResolver(o Options) *resolver.Resolver {
	yt := ytdlp.New(o.YTDLP)
	var rapid resolver.Strategy
	if o.RapidAPI.Key != "" {
		rapid = resolver.NewRapid(rapidapi.New(o.RapidAPI))
	}
	return resolver.New(rapid, resolver.NewProbe(yt), resolver.NewLocal(yt))
}

func (m *Module) buildCache() cache.Cache {
	switch m.opts.CacheBackend {
	case CacheNone:
		return cache.Noop{}
	case CachePG:
		if m.deps.PG != nil {
			m.pgCache = repokit.MustBind(repo.NewPGCache(), m.deps.PG)
			return cache.NewStore(m.pgCache, nil)
		}
		m.log.Warn().Msg("pg cache requested without a postgres store, using memory")
	}
	return cache.NewMemory(m.opts.CacheMaxEntries, nil)
}

// Start prepares storage and warms provider groups. Warm failures are logged
// since adapters ensure their index or collection again on first submit
func (m *Module) Start(ctx context.Context) error {
	if m.pgCache != nil {
		if err := repo.EnsureCache(ctx, m.deps.PG); err != nil {
			return err
		}
		go m.purgeLoop(ctx, m.opts.Service.CacheTTL)
	}
	if m.ledger != nil {
		if err := m.ledger.Ensure(ctx); err != nil {
			return err
		}
	}
	m.warm(ctx)
	return nil
}

func (m *Module) warm(ctx context.Context) {
	timeout := m.opts.WarmTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var g errgroup.Group
	for name, w := range m.registry.Warmers() {
		g.Go(func() error {
			if err := w.Warm(ctx); err != nil {
				m.log.Warn().Err(err).Str("provider", string(name)).Msg("provider warmup failed")
				return err
			}
			m.log.Debug().Str("provider", string(name)).Msg("provider warm")
			return nil
		})
	}
	_ = g.Wait()
}

// purgeLoop drops expired pg cache rows every ttl
func (m *Module) purgeLoop(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = service.DefaultCacheTTL
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := m.pgCache.Purge(ctx, now)
			if err != nil {
				m.log.Warn().Err(err).Msg("cache purge failed")
				continue
			}
			m.log.Debug().Int64("rows", n).Msg("cache purged")
		}
	}
}

func (m *Module) catalog() mediahttp.Catalog {
	return catalog{reg: m.registry, res: m.resolver}
}

// MountRoutes mounts the versioned media routes
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) {
		mediahttp.Register(rr, m.svc, m.ports.Catalog)
	})
}

// MountLegacy mounts the unversioned /summarize and /analyze aliases on r
func (m *Module) MountLegacy(r httpkit.Router) {
	mediahttp.RegisterLegacy(r, m.svc)
}

// Name returns the module name
func (m *Module) Name() string { return str.FirstNonEmpty(m.built.Name, "media") }

// Service exposes the orchestrator for the cli
func (m *Module) Service() *service.Service { return m.svc }

// Resolver exposes the resolver chain for the cli
func (m *Module) Resolver() *resolver.Resolver { return m.resolver }
