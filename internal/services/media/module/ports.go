package module

import (
	"vidbrief/internal/services/media/domain"
	mediahttp "vidbrief/internal/services/media/http"
	"vidbrief/internal/services/media/provider"
	"vidbrief/internal/services/media/resolver"
)

// Ports is what other modules and binaries may pull from the media module
type Ports struct {
	Media   mediahttp.Service
	Catalog mediahttp.Catalog
}

// Ports implements modkit.Module
func (m *Module) Ports() any { return m.ports }

type catalog struct {
	reg *provider.Registry
	res *resolver.Resolver
}

func (c catalog) Providers() []string { return c.reg.Names() }

func (c catalog) DefaultProvider() domain.ProviderName { return c.reg.DefaultName() }

func (c catalog) Strategies() []string { return c.res.Strategies() }
