// Package restclient is the shared JSON REST client behind the provider and
// resolver adapters. It owns retries for transient failures, an outbound rate
// limiter and the mapping of upstream statuses onto platform error codes
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrs "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/platform/logger"
	pstrings "vidbrief/internal/platform/strings"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUA        = "vidbrief"
	defaultMaxRetry  = 3
	defaultRetryBase = 500 * time.Millisecond
	defaultRetryCap  = 10 * time.Second
	bodyTail         = 2048
)

// Options configures a Client
type Options struct {
	// Name labels logs and error messages, e.g. "twelvelabs"
	Name      string
	BaseURL   string
	UserAgent string
	// Timeout bounds each attempt of a JSON or bodyless request
	Timeout time.Duration
	// UploadTimeout bounds each attempt of a streamed Body request; zero
	// leaves it to the caller's ctx. Uploads are never cut by Timeout
	UploadTimeout time.Duration
	// HeaderTimeout is how long to wait for response headers once the request
	// body is fully written; defaults to Timeout
	HeaderTimeout time.Duration

	// Header is sent on every request, typically the auth header
	Header http.Header
	// Secrets are scrubbed from any upstream body kept on an error
	Secrets []string

	// Retry config for network errors, 429 and 5xx; negative MaxRetries disables retries
	MaxRetries int
	RetryBase  time.Duration
	RetryCap   time.Duration

	// RPS gates outbound calls, zero means unlimited
	RPS   float64
	Burst int

	HTTPClient *http.Client
}

// Client is a small JSON client with retry and rate limiting
type Client struct {
	http  *http.Client
	opts  Options
	lim   *rate.Limiter
	log   logger.Logger
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a Client with sane defaults
func New(o Options) *Client {
	if o.Name == "" {
		o.Name = "rest"
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RetryCap <= 0 {
		o.RetryCap = defaultRetryCap
	}
	if o.HeaderTimeout <= 0 {
		o.HeaderTimeout = o.Timeout
	}
	hc := o.HTTPClient
	if hc == nil {
		// no Client.Timeout: it would also cover streaming the upload body
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = o.HeaderTimeout
		hc = &http.Client{Transport: tr}
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if o.RPS > 0 {
		burst := o.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(o.RPS), burst)
	}
	return &Client{
		http:  hc,
		opts:  o,
		lim:   lim,
		log:   *logger.Named(o.Name),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Name reports the label given in Options
func (c *Client) Name() string { return c.opts.Name }

// Request describes one call
type Request struct {
	Method string
	// Path is joined to BaseURL unless it is already absolute
	Path   string
	Query  url.Values
	Header http.Header

	// JSON is marshalled as the body when set
	JSON any
	// Body builds a streaming body per attempt and returns its content type
	Body func() (io.Reader, string, error)

	// Stage names the pipeline step; 4xx on "submit" means the source was rejected
	Stage string
}

// Do sends req and decodes a 2xx JSON body into out when out is non nil
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = drainAndClose(resp.Body) }()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !stderrs.Is(err, io.EOF) {
		return perr.WithOp(perr.Wrapf(err, perr.ErrorCodeUnknown, "%s returned malformed json", c.opts.Name), req.Stage)
	}
	return nil
}

// Raw sends req and returns the 2xx body bytes
func (c *Client) Raw(ctx context.Context, req Request) ([]byte, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeTransientProvider, "%s body read failed", c.opts.Name), req.Stage)
	}
	return b, nil
}

func (c *Client) send(ctx context.Context, req Request) (*http.Response, error) {
	target, err := c.url(req)
	if err != nil {
		return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeUnknown, "%s bad request url", c.opts.Name), req.Stage)
	}
	var payload []byte
	if req.JSON != nil {
		if payload, err = json.Marshal(req.JSON); err != nil {
			return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeUnknown, "%s encode body", c.opts.Name), req.Stage)
		}
	}

	attempts := 0
	for {
		if err := c.lim.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeTransientProvider, "%s rate limiter", c.opts.Name), req.Stage)
		}

		actx, cancel := c.attemptCtx(ctx, req)
		hreq, err := c.build(actx, req, target, payload)
		if err != nil {
			cancel()
			return nil, err
		}

		start := c.now()
		resp, err := c.http.Do(hreq)
		lat := c.now().Sub(start)

		if err != nil {
			cancel()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// resending a streamed upload that ran out of time would only time out again
			if req.Body != nil && isTimeout(err) {
				return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeTransientProvider, "%s upload timed out", c.opts.Name), req.Stage)
			}
			if !c.shouldRetry(attempts) {
				return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeTransientProvider, "%s unreachable", c.opts.Name), req.Stage)
			}
			back := c.backoff(attempts, 0)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Str("path", req.Path).Msg("transport error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, err
			}
			attempts++
			continue
		}
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

		c.log.Debug().
			Str("method", hreq.Method).
			Str("path", req.Path).
			Str("stage", req.Stage).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Msg("http response")

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if retryable(resp.StatusCode) {
			if !c.shouldRetry(attempts) {
				return nil, c.statusErr(resp, req.Stage)
			}
			back := c.backoff(attempts, retryAfter(resp.Header))
			c.log.Warn().Int("status", resp.StatusCode).Dur("retry_in", back).Int("attempt", attempts).Msg("transient status retrying")
			_ = drainAndClose(resp.Body)
			if err := c.sleep(ctx, back); err != nil {
				return nil, err
			}
			attempts++
			continue
		}
		return nil, c.statusErr(resp, req.Stage)
	}
}

// attemptCtx bounds one attempt: Timeout for plain calls, UploadTimeout for
// streamed bodies. The cancel func is released when the response body closes
func (c *Client) attemptCtx(ctx context.Context, req Request) (context.Context, context.CancelFunc) {
	limit := c.opts.Timeout
	if req.Body != nil {
		limit = c.opts.UploadTimeout
	}
	if limit <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, limit)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func isTimeout(err error) bool {
	if stderrs.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stderrs.As(err, &ne) && ne.Timeout()
}

func (c *Client) url(req Request) (string, error) {
	raw := req.Path
	if u, err := url.Parse(raw); err != nil || !u.IsAbs() {
		raw = c.opts.BaseURL + req.Path
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) build(ctx context.Context, req Request, target string, payload []byte) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Body != nil:
		b, ct, err := req.Body()
		if err != nil {
			return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeUnknown, "%s build body", c.opts.Name), req.Stage)
		}
		body, contentType = b, ct
	case payload != nil:
		body, contentType = bytes.NewReader(payload), "application/json"
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, perr.WithOp(perr.Wrapf(err, perr.ErrorCodeUnknown, "%s new request failed", c.opts.Name), req.Stage)
	}
	hreq.Header.Set("User-Agent", c.opts.UserAgent)
	hreq.Header.Set("Accept", "application/json")
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	for k, vs := range c.opts.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		hreq.Header.Del(k)
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	return hreq, nil
}

// statusErr consumes resp and maps its status onto a platform error
func (c *Client) statusErr(resp *http.Response, stage string) error {
	tail, _ := io.ReadAll(io.LimitReader(resp.Body, bodyTail))
	_ = resp.Body.Close()
	se := &StatusError{
		Status: resp.StatusCode,
		Body:   pstrings.Truncate(pstrings.Redact(string(tail), c.opts.Secrets...), 512),
	}
	name := c.opts.Name
	var out error
	switch st := resp.StatusCode; {
	case st == http.StatusUnauthorized || st == http.StatusForbidden:
		out = perr.Wrapf(se, perr.ErrorCodeAuthentication, "%s rejected credentials (status %d)", name, st)
	case st == http.StatusBadRequest || st == http.StatusUnsupportedMediaType || st == http.StatusUnprocessableEntity:
		if stage == "submit" {
			out = perr.Wrapf(se, perr.ErrorCodeProviderRejectedSource, "%s rejected the source (status %d)", name, st)
		} else {
			out = perr.Wrapf(se, perr.ErrorCodeProviderJobFailed, "%s refused the request (status %d)", name, st)
		}
	case st == http.StatusNotFound:
		out = perr.Wrapf(se, perr.ErrorCodeNotFound, "%s resource not found", name)
	case retryable(st):
		out = perr.Wrapf(se, perr.ErrorCodeTransientProvider, "%s unavailable (status %d)", name, st)
	default:
		out = perr.Wrapf(se, perr.ErrorCodeUnknown, "%s unexpected status %d", name, st)
	}
	return perr.WithOp(out, stage)
}

func (c *Client) backoff(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		if hint > c.opts.RetryCap {
			return c.opts.RetryCap
		}
		return hint
	}
	d := c.opts.RetryBase << uint(attempt)
	if d <= 0 || d > c.opts.RetryCap {
		d = c.opts.RetryCap
	}
	return d
}

func (c *Client) shouldRetry(attempt int) bool { return attempt < c.opts.MaxRetries }

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func retryAfter(h http.Header) time.Duration {
	s := h.Get("Retry-After")
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}

// StatusError keeps the upstream status and a scrubbed body tail for logs
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// HTTPStatus reports the upstream status code
func (e *StatusError) HTTPStatus() int { return e.Status }

// StatusOf returns the upstream status carried by err, or 0
func StatusOf(err error) int {
	var se *StatusError
	if stderrs.As(err, &se) {
		return se.Status
	}
	return 0
}
