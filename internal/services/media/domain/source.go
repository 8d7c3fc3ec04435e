package domain

import (
	"errors"
	"os"
	"sync"
)

// ResolveMethod names the strategy that produced a ResolvedSource
type ResolveMethod string

// Resolve methods
const (
	MethodNone  ResolveMethod = "none"
	MethodRapid ResolveMethod = "rapid_resolver"
	MethodProbe ResolveMethod = "metadata_probe"
	MethodLocal ResolveMethod = "local_upload"
	MethodReuse ResolveMethod = "provider_video"
)

// ErrNotApplicable lets a strategy decline a reference without it counting as a fault
var ErrNotApplicable = errors.New("strategy not applicable")

// ResolvedSource is a provider ingestible url or a local payload
type ResolvedSource struct {
	SourceURL     string        `json:"source_url"`
	Method        ResolveMethod `json:"method"`
	IsLocalUpload bool          `json:"is_local_upload"`
	Local         *LocalPayload `json:"-"`
}

// Release drops the local payload if any
func (s ResolvedSource) Release() {
	if s.Local != nil {
		s.Local.Release()
	}
}

// LocalPayload is a downloaded file living in its own temp dir
type LocalPayload struct {
	Path string
	Dir  string
	MIME string
	Size int64

	once sync.Once
}

// Release removes the temp dir. Safe to call more than once
func (p *LocalPayload) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		if p.Dir != "" {
			_ = os.RemoveAll(p.Dir)
		}
	})
}

// StrategyFailure records why one resolution strategy did not produce a source
type StrategyFailure struct {
	Strategy string `json:"strategy"`
	Reason   string `json:"reason"`
}

// UnresolvableDetails is carried on UnresolvableSource errors
type UnresolvableDetails struct {
	Reference string            `json:"reference"`
	Attempts  []StrategyFailure `json:"attempts"`
}
