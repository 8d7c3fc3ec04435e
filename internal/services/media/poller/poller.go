// Package poller drives a submitted provider job to a terminal state
package poller

import (
	"context"
	"time"

	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/platform/logger"
	"vidbrief/internal/services/media/domain"
)

// Defaults
const (
	DefaultInterval     = 10 * time.Second
	DefaultTimeout      = 30 * time.Minute
	DefaultMaxTransient = 3
)

// Clock is the time source of the loop
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the wall clock
func RealClock() Clock { return realClock{} }

// Source is the part of a provider adapter the poller needs
type Source interface {
	Poll(ctx context.Context, job domain.ProviderJob) (domain.ProviderJob, error)
}

// Poller waits for jobs
type Poller struct {
	Clock Clock
	// MaxTransient bounds consecutive transient poll errors
	MaxTransient int
}

// New returns a Poller on the wall clock
func New() *Poller { return &Poller{Clock: realClock{}, MaxTransient: DefaultMaxTransient} }

// AwaitCompletion polls src every interval until job is ready. It fails with
// ProviderJobFailed when the provider reports failure or transient errors run
// past the bound, and with PollTimeout once timeout has elapsed, never earlier.
// Zero interval or timeout use the defaults
func (p *Poller) AwaitCompletion(ctx context.Context, src Source, job domain.ProviderJob, interval, timeout time.Duration) (domain.ProviderJob, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clk := p.Clock
	if clk == nil {
		clk = realClock{}
	}
	maxTransient := p.MaxTransient
	if maxTransient < 0 {
		maxTransient = 0
	}

	log := logger.From(ctx, logger.Named("poller"))
	start := clk.Now()
	transient := 0
	var lastErr error

	for !job.Terminal() {
		if clk.Now().Sub(start) >= timeout {
			return job, p.timeout(job, timeout, lastErr)
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-clk.After(interval):
		}

		next, err := src.Poll(ctx, job)
		job.Polls++
		if err != nil {
			if ctx.Err() != nil {
				return job, ctx.Err()
			}
			if !perr.IsTransient(err) {
				return job, perr.WithOp(err, "poll")
			}
			transient++
			lastErr = err
			log.Debug().Err(err).Int("transient", transient).Str("job", job.ID).Msg("transient poll error")
			if transient > maxTransient {
				return job, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeProviderJobFailed,
					"%s job %s: %d consecutive transient poll errors", job.Provider, job.ID, transient), "poll")
			}
			continue
		}
		transient = 0
		polls := job.Polls
		job = next
		job.Polls = polls
		log.Debug().Str("job", job.ID).Str("state", string(job.State)).Int("polls", polls).Msg("poll")
	}

	if job.State == domain.JobFailed {
		reason := job.Reason
		if reason == "" {
			reason = "no reason given"
		}
		return job, perr.WithOp(perr.WithDetails(
			perr.JobFailedf("%s job %s failed: %s", job.Provider, job.ID, reason),
			map[string]any{"job_id": job.ID, "polls": job.Polls},
		), "poll")
	}
	return job, nil
}

func (p *Poller) timeout(job domain.ProviderJob, timeout time.Duration, last error) error {
	err := perr.PollTimeoutf("%s job %s not ready after %s", job.Provider, job.ID, timeout)
	if last != nil {
		err = perr.Wrapf(last, perr.ErrorCodePollTimeout, "%s job %s not ready after %s", job.Provider, job.ID, timeout)
	}
	return perr.WithOp(perr.WithDetails(err, map[string]any{"job_id": job.ID, "polls": job.Polls}), "poll")
}
