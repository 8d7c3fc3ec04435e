// Package api provides the HTTP API for the application
package api

import (
	"context"
	"errors"

	"vidbrief/internal/core/version"
	"vidbrief/internal/platform/config"
	"vidbrief/internal/platform/logger"
	phttp "vidbrief/internal/platform/net/http"
	"vidbrief/internal/platform/store"

	"vidbrief/internal/modkit"
	"vidbrief/internal/modkit/httpkit"
	"vidbrief/internal/modkit/module"
	"vidbrief/internal/modkit/swaggerkit"

	metahttp "vidbrief/internal/services/api/meta/http"
	metamod "vidbrief/internal/services/api/meta/module"
	mediamod "vidbrief/internal/services/media/module"
)

// Options are the API options
type Options struct {
	// Root is the unprefixed view; provider and media settings live there
	Root config.Conf
	// Config is the API scoped view (VIDBRIEF_API_*)
	Config        config.Conf
	Store         *store.Store
	Logger        *logger.Logger
	EnableSwagger bool
	// Media overrides FromConfig(Root) when set
	Media *mediamod.Options
}

// App is the mounted API
type App struct {
	Media   *mediamod.Module
	Modules []module.Module
}

// Start runs module boot work that needs a context
func (a *App) Start(ctx context.Context) error { return a.Media.Start(ctx) }

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) *App {
	log := logger.Get()
	if opt.Logger != nil {
		log = opt.Logger
	}
	deps := modkit.DepsFrom(opt.Root, *log, opt.Store)

	mo := mediamod.FromConfig(opt.Root)
	if opt.Media != nil {
		mo = *opt.Media
	}
	media := mediamod.New(deps, mo)

	meta := metamod.New(deps)
	catalog := module.MustPortsOf[mediamod.Ports](media).Catalog
	meta.AddProbe(metahttp.Probe{Name: "providers", Check: func(context.Context) (string, error) {
		if len(catalog.Providers()) == 0 {
			return metahttp.StatusDegraded, errors.New("no provider api key configured")
		}
		return metahttp.StatusOK, nil
	}})

	app := &App{
		Media:   media,
		Modules: []module.Module{meta, media},
	}

	// the stack sits on the root so /health and the legacy routes share it
	r.Use(httpkit.CommonStack(httpkit.StackFromConfig(opt.Config))...)

	swaggerkit.Mount(r, opt.EnableSwagger, swaggerkit.Info{
		Title:   "vidbrief API",
		Version: version.Info().Version,
		Server:  "/",
	})

	httpkit.MountAPIV1(r, nil, func(api httpkit.Router) {
		for _, m := range app.Modules {
			m.MountRoutes(api)
			log.Debug().Str("module", m.Name()).Msg("module mounted")
		}
	})
	media.MountLegacy(r)
	return app
}
