// Package modkit provides module wiring and core deps
package modkit

import (
	"vidbrief/internal/modkit/repokit"
	"vidbrief/internal/platform/config"
	"vidbrief/internal/platform/logger"
	"vidbrief/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// PG and CH are nil when the backend is not configured
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}

// DepsFrom builds Deps from an opened store; st may be nil
func DepsFrom(cfg config.Conf, log logger.Logger, st *store.Store) Deps {
	d := Deps{Log: log, Cfg: cfg}
	if st != nil {
		d.PG = st.PG
		d.CH = st.CH
	}
	return d
}
