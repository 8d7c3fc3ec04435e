package repokit

import (
	"context"
	"fmt"
	"time"
)

// GuardTimeout bounds startup checks when the caller's context has no deadline
var GuardTimeout = 5 * time.Second

type guarder interface {
	Guard(context.Context) error
}

type pinger interface {
	Ping(context.Context) error
}

func bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, GuardTimeout)
}

// MustPing panics when the named dependency is missing or does not answer
func MustPing(ctx context.Context, name string, p pinger) {
	if p == nil {
		panic(fmt.Sprintf("%s: nil dependency", name))
	}
	ctx, cancel := bounded(ctx)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		panic(fmt.Sprintf("%s ping failed: %v", name, err))
	}
}

// MustGuard panics when the store's backends fail their startup check
func MustGuard(ctx context.Context, st guarder) {
	ctx, cancel := bounded(ctx)
	defer cancel()
	if err := st.Guard(ctx); err != nil {
		panic(fmt.Errorf("store guard: %w", err))
	}
}
