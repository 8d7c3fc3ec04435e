package repo

import (
	"context"
	"time"

	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/platform/store"
	"vidbrief/internal/services/media/domain"

	"github.com/google/uuid"
)

// LedgerTable is the clickhouse table terminal jobs land in
const LedgerTable = "media_jobs"

const ledgerDDL = `
create table if not exists media_jobs (
  id             UUID,
  fingerprint    String,
  operation      LowCardinality(String),
  provider       LowCardinality(String),
  job_id         String,
  video_id       String,
  group_id       String,
  source_url     String,
  resolve_method LowCardinality(String),
  outcome        LowCardinality(String),
  error_kind     LowCardinality(String),
  polls          UInt32,
  submitted_at   DateTime64(3, 'UTC'),
  finished_at    DateTime64(3, 'UTC'),
  elapsed_ms     UInt64
) engine = MergeTree
order by (provider, finished_at)
`

var ledgerColumns = []string{
	"id", "fingerprint", "operation", "provider", "job_id", "video_id", "group_id",
	"source_url", "resolve_method", "outcome", "error_kind", "polls",
	"submitted_at", "finished_at", "elapsed_ms",
}

// CHLedger appends job records to clickhouse
type CHLedger struct {
	ch store.Clickhouse
}

// NewCHLedger wraps a clickhouse seam
func NewCHLedger(ch store.Clickhouse) *CHLedger { return &CHLedger{ch: ch} }

// Ensure creates the ledger table
func (l *CHLedger) Ensure(ctx context.Context) error {
	if err := l.ch.Exec(ctx, ledgerDDL); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "ensure media_jobs")
	}
	return nil
}

// Record implements domain.Ledger
func (l *CHLedger) Record(ctx context.Context, rec domain.JobRecord) error {
	if err := l.ch.Insert(ctx, LedgerTable, ledgerColumns, [][]any{ledgerRow(rec)}); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "record media job")
	}
	return nil
}

func ledgerRow(rec domain.JobRecord) []any {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		id = uuid.New()
	}
	finished := rec.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	var elapsed uint64
	if !rec.SubmittedAt.IsZero() && finished.After(rec.SubmittedAt) {
		elapsed = uint64(finished.Sub(rec.SubmittedAt).Milliseconds())
	}
	return []any{
		id,
		string(rec.Fingerprint),
		string(rec.Operation),
		string(rec.Provider),
		rec.JobID,
		rec.VideoID,
		rec.Group,
		rec.SourceURL,
		string(rec.ResolveMethod),
		string(rec.Outcome),
		rec.ErrorKind,
		uint32(max(rec.Polls, 0)),
		rec.SubmittedAt.UTC(),
		finished.UTC(),
		elapsed,
	}
}
