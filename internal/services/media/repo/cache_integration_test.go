//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"vidbrief/internal/platform/store"
	"vidbrief/internal/services/media/cache"
	"vidbrief/internal/services/media/domain"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "postgres",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
	host, err := c.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, port.Port())
}

func TestPGCacheRoundTrip_Integration(t *testing.T) {
	dsn := startPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{PG: store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2}})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	if err := EnsureCache(ctx, st.PG); err != nil {
		t.Fatal(err)
	}
	if err := EnsureCache(ctx, st.PG); err != nil {
		t.Fatalf("ensure is not idempotent: %v", err)
	}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := cache.NewStore(NewPGCache().Bind(st.PG), clock)

	fp := domain.Fingerprint("fp:v1:integration")
	if _, ok := c.Get(ctx, fp); ok {
		t.Fatal("unexpected hit on empty table")
	}
	c.Put(ctx, fp, []byte(`{"summary":"first"}`), time.Minute)
	c.Put(ctx, fp, []byte(`{"summary":"second"}`), time.Minute)
	e, ok := c.Get(ctx, fp)
	if !ok || string(e.Payload) != `{"summary": "second"}` && string(e.Payload) != `{"summary":"second"}` {
		t.Fatalf("Get = %s %v", e.Payload, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, fp); ok {
		t.Fatal("expired entry served")
	}
	n, err := NewPGCache().Bind(st.PG).Purge(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("Purge = %d %v", n, err)
	}
}
