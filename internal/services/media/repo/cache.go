// Package repo persists media state: the shared fingerprint cache in postgres
// and the job ledger in clickhouse
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"vidbrief/internal/modkit/repokit"
	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/services/media/domain"

	"github.com/jackc/pgx/v5"
)

// CacheRepo is the postgres cache surface; it satisfies cache.Backend
type CacheRepo interface {
	Load(ctx context.Context, fp domain.Fingerprint) (domain.CacheEntry, bool, error)
	Save(ctx context.Context, e domain.CacheEntry) error
	Purge(ctx context.Context, now time.Time) (int64, error)
}

type (
	// PGCache binds the cache repo to a Queryer
	PGCache struct{}
	// cacheQueries implements CacheRepo
	cacheQueries struct{ q repokit.Queryer }
)

// NewPGCache returns a binder for the cache repo
func NewPGCache() repokit.Binder[CacheRepo] { return PGCache{} }

// Bind wires a Queryer to the repo
func (PGCache) Bind(q repokit.Queryer) CacheRepo { return &cacheQueries{q: q} }

// cacheDDL creates the cache table; safe to run on every boot
var cacheDDL = []string{
	`create table if not exists media_cache (
  fingerprint text primary key,
  payload     jsonb not null,
  created_at  timestamptz not null,
  ttl_ms      bigint not null default 0
)`,
	`create index if not exists media_cache_created_at_idx on media_cache (created_at)`,
}

// EnsureCache creates the cache table and index
func EnsureCache(ctx context.Context, q repokit.Queryer) error {
	for _, stmt := range cacheDDL {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return perr.FromPostgres(err, "ensure media_cache")
		}
	}
	return nil
}

func (r *cacheQueries) Load(ctx context.Context, fp domain.Fingerprint) (domain.CacheEntry, bool, error) {
	const sql = `
select payload, created_at, ttl_ms
from media_cache
where fingerprint = $1
`
	var (
		payload []byte
		created time.Time
		ttlMS   int64
	)
	err := r.q.QueryRow(ctx, sql, string(fp)).Scan(&payload, &created, &ttlMS)
	// an unmigrated table reads as empty; Save will still surface the error
	if errors.Is(err, pgx.ErrNoRows) || perr.IsUndefinedTable(err) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, perr.FromPostgres(err, "cache load")
	}
	return domain.CacheEntry{
		Fingerprint: fp,
		Payload:     json.RawMessage(payload),
		CreatedAt:   created,
		TTL:         time.Duration(ttlMS) * time.Millisecond,
	}, true, nil
}

// Save replaces the whole entry
func (r *cacheQueries) Save(ctx context.Context, e domain.CacheEntry) error {
	const sql = `
insert into media_cache (fingerprint, payload, created_at, ttl_ms)
values ($1, $2::jsonb, $3, $4)
on conflict (fingerprint) do update
set payload = excluded.payload, created_at = excluded.created_at, ttl_ms = excluded.ttl_ms
`
	_, err := r.q.Exec(ctx, sql, string(e.Fingerprint), string(e.Payload), e.CreatedAt, e.TTL.Milliseconds())
	return perr.FromPostgres(err, "cache save")
}

// Purge drops expired rows and reports how many went
func (r *cacheQueries) Purge(ctx context.Context, now time.Time) (int64, error) {
	const sql = `
delete from media_cache
where ttl_ms > 0 and created_at + ttl_ms * interval '1 millisecond' <= $1
`
	tag, err := r.q.Exec(ctx, sql, now)
	if err != nil {
		return 0, perr.FromPostgres(err, "cache purge")
	}
	return tag.RowsAffected(), nil
}
