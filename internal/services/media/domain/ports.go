package domain

import (
	"context"
	"time"
)

// JobOutcome is the ledger's terminal state; timeouts are kept apart from failures
type JobOutcome string

// Ledger outcomes
const (
	OutcomeReady   JobOutcome = "ready"
	OutcomeFailed  JobOutcome = "failed"
	OutcomeTimeout JobOutcome = "timeout"
)

// JobRecord is one row of the job ledger
type JobRecord struct {
	ID            string
	Fingerprint   Fingerprint
	Operation     Operation
	Provider      ProviderName
	JobID         string
	VideoID       string
	Group         string
	SourceURL     string
	ResolveMethod ResolveMethod
	Outcome       JobOutcome
	ErrorKind     string
	Polls         int
	SubmittedAt   time.Time
	FinishedAt    time.Time
}

// Ledger appends terminal jobs somewhere durable
type Ledger interface {
	Record(ctx context.Context, rec JobRecord) error
}

// NoopLedger drops records
type NoopLedger struct{}

// Record implements Ledger
func (NoopLedger) Record(context.Context, JobRecord) error { return nil }
