package ch

import (
	"context"
	"errors"
	"testing"

	"vidbrief/internal/platform/testkit"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

func TestOpenRejectsBadDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatalf("empty url should fail")
	}
	if _, err := Open(context.Background(), Config{URL: "clickhouse://host:9000/db?dial_timeout=nope"}); err == nil {
		t.Fatalf("bad dsn should fail")
	}
}

func TestOpenStampsClientInfo(t *testing.T) {
	testkit.Serial(t)

	var got *clickhouse.Options
	testkit.Swap(t, &openConn, func(o *clickhouse.Options) (driver.Conn, error) {
		got = o
		return nil, errors.New("stop here")
	})
	_, err := Open(context.Background(), Config{URL: "clickhouse://u:p@localhost:9000/media", Role: "api", Tag: "v1"})
	if err == nil {
		t.Fatalf("expected seam error")
	}
	if got == nil || got.Auth.Database != "media" {
		t.Fatalf("options not parsed: %+v", got)
	}
	if len(got.ClientInfo.Products) == 0 || got.ClientInfo.Products[0].Name != "vidbrief" {
		t.Fatalf("client info = %+v", got.ClientInfo)
	}
}

func TestCloseNilSafe(t *testing.T) {
	var c *CH
	if err := c.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
