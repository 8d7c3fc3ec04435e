package modkit

import "vidbrief/internal/modkit/module"

// Module is the common surface for API modules that can mount routes and expose ports
type Module = module.Module
