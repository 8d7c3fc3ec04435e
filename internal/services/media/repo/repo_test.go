package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"vidbrief/internal/modkit/repokit"
	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/services/media/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeTag int64

func (t fakeTag) String() string      { return "DELETE" }
func (t fakeTag) RowsAffected() int64 { return int64(t) }

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *[]byte:
			*p = r.vals[i].([]byte)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		case *int64:
			*p = r.vals[i].(int64)
		}
	}
	return nil
}

type fakeQ struct {
	sqls   []string
	args   [][]any
	row    fakeRow
	tag    fakeTag
	execEr error
}

func (f *fakeQ) Exec(_ context.Context, sql string, args ...any) (repokit.CommandTag, error) {
	f.sqls, f.args = append(f.sqls, sql), append(f.args, args)
	return f.tag, f.execEr
}

func (f *fakeQ) Query(context.Context, string, ...any) (repokit.Rows, error) {
	return nil, errors.New("unused")
}

func (f *fakeQ) QueryRow(_ context.Context, sql string, args ...any) repokit.Row {
	f.sqls, f.args = append(f.sqls, sql), append(f.args, args)
	return f.row
}

func TestCacheLoadHitAndMiss(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q := &fakeQ{row: fakeRow{vals: []any{[]byte(`{"summary":"s"}`), created, int64(90_000)}}}
	r := NewPGCache().Bind(q)

	e, ok, err := r.Load(context.Background(), "fp:v1:a")
	if err != nil || !ok {
		t.Fatalf("Load = %v %v", ok, err)
	}
	if string(e.Payload) != `{"summary":"s"}` || e.TTL != 90*time.Second || !e.CreatedAt.Equal(created) || e.Fingerprint != "fp:v1:a" {
		t.Fatalf("entry = %+v", e)
	}
	if q.args[0][0] != "fp:v1:a" {
		t.Fatalf("args = %v", q.args[0])
	}

	q.row = fakeRow{err: pgx.ErrNoRows}
	if _, ok, err := r.Load(context.Background(), "fp:v1:b"); ok || err != nil {
		t.Fatalf("miss = %v %v", ok, err)
	}

	q.row = fakeRow{err: &pgconn.PgError{Code: "42P01"}}
	if _, ok, err := r.Load(context.Background(), "fp:v1:b"); ok || err != nil {
		t.Fatalf("missing table = %v %v", ok, err)
	}

	q.row = fakeRow{err: errors.New("conn reset")}
	if _, _, err := r.Load(context.Background(), "fp:v1:c"); !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("failure code = %v", perr.CodeOf(err))
	}
}

func TestCacheSaveUpserts(t *testing.T) {
	q := &fakeQ{}
	r := NewPGCache().Bind(q)
	now := time.Now()
	err := r.Save(context.Background(), domain.CacheEntry{Fingerprint: "fp:v1:a", Payload: []byte(`{}`), CreatedAt: now, TTL: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q.sqls[0], "on conflict (fingerprint) do update") {
		t.Fatalf("sql = %s", q.sqls[0])
	}
	if q.args[0][3] != int64(2000) || q.args[0][1] != "{}" {
		t.Fatalf("args = %v", q.args[0])
	}
	q.execEr = errors.New("down")
	if err := r.Save(context.Background(), domain.CacheEntry{}); err == nil {
		t.Fatal("Save should surface the failure")
	}
}

func TestCachePurgeAndEnsure(t *testing.T) {
	q := &fakeQ{tag: 3}
	r := NewPGCache().Bind(q)
	n, err := r.Purge(context.Background(), time.Now())
	if err != nil || n != 3 {
		t.Fatalf("Purge = %d %v", n, err)
	}
	q = &fakeQ{}
	if err := EnsureCache(context.Background(), q); err != nil || len(q.sqls) != 2 {
		t.Fatalf("EnsureCache ran %d statements, err %v", len(q.sqls), err)
	}
}

type fakeCH struct {
	table string
	cols  []string
	rows  [][]any
	execs []string
	err   error
}

func (f *fakeCH) Insert(_ context.Context, table string, cols []string, rows [][]any) error {
	f.table, f.cols, f.rows = table, cols, rows
	return f.err
}
func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return f.err
}
func (f *fakeCH) Query(context.Context, string, ...any) (repokit.Rows, error) { return nil, nil }
func (f *fakeCH) Close() error                                                { return nil }

func TestLedgerRecord(t *testing.T) {
	ch := &fakeCH{}
	l := NewCHLedger(ch)
	sub := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id := uuid.NewString()
	err := l.Record(context.Background(), domain.JobRecord{
		ID:          id,
		Fingerprint: "fp:v1:x",
		Operation:   domain.OpSummarize,
		Provider:    domain.ProviderTwelveLabs,
		JobID:       "task-1",
		Outcome:     domain.OutcomeReady,
		Polls:       4,
		SubmittedAt: sub,
		FinishedAt:  sub.Add(40 * time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}
	if ch.table != LedgerTable || len(ch.rows) != 1 || len(ch.rows[0]) != len(ledgerColumns) {
		t.Fatalf("insert = %s %d", ch.table, len(ch.rows))
	}
	row := ch.rows[0]
	if row[0].(uuid.UUID).String() != id || row[3] != "twelvelabs" || row[9] != "ready" {
		t.Fatalf("row = %v", row)
	}
	if row[11] != uint32(4) || row[14] != uint64(40_000) {
		t.Fatalf("polls or elapsed = %v %v", row[11], row[14])
	}

	ch.err = errors.New("ch down")
	if err := l.Record(context.Background(), domain.JobRecord{}); !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("code = %v", perr.CodeOf(err))
	}
	if err := l.Ensure(context.Background()); err == nil || !strings.Contains(ch.execs[0], "MergeTree") {
		t.Fatalf("Ensure = %v", err)
	}
}

func TestLedgerRowFillsGaps(t *testing.T) {
	row := ledgerRow(domain.JobRecord{ID: "not-a-uuid", Polls: -1})
	if row[0].(uuid.UUID) == uuid.Nil {
		t.Fatalf("id not generated")
	}
	if row[11] != uint32(0) || row[14] != uint64(0) {
		t.Fatalf("row = %v", row)
	}
}
