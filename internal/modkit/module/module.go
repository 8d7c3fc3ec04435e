// Package module defines the minimal contract for a modkit module
package module

import (
	phttp "vidbrief/internal/platform/net/http"
)

// Module defines the minimal contract used by modkit
// kept in its own package so a module can export its ports type without import knots
type Module interface {
	// MountRoutes mounts HTTP routes under the provided router seam
	MountRoutes(r phttp.Router)
	// Ports returns a module specific port set for cross wiring
	Ports() any
	// Name returns the module name
	Name() string
}
