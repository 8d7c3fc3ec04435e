package restclient

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	perr "vidbrief/internal/platform/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc, mut ...func(*Options)) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	o := Options{
		Name:      "fake",
		BaseURL:   srv.URL,
		Header:    http.Header{"X-Api-Key": {"sk-secret-key"}},
		Secrets:   []string{"sk-secret-key"},
		RetryBase: time.Millisecond,
	}
	for _, m := range mut {
		m(&o)
	}
	c := New(o)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestDoDecodesAndSendsHeaders(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "sk-secret-key" {
			t.Errorf("auth header missing")
		}
		if r.URL.Query().Get("index_name") != "vidbrief" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		b, _ := io.ReadAll(r.Body)
		if r.Method == http.MethodPost && !strings.Contains(string(b), `"name":"x"`) {
			t.Errorf("json body = %s", b)
		}
		_, _ = io.WriteString(w, `{"_id":"abc"}`)
	})
	var out struct {
		ID string `json:"_id"`
	}
	err := c.Do(context.Background(), Request{
		Method: http.MethodPost, Path: "/indexes",
		Query: map[string][]string{"index_name": {"vidbrief"}},
		JSON:  map[string]string{"name": "x"},
	}, &out)
	if err != nil || out.ID != "abc" {
		t.Fatalf("Do = %v, %+v", err, out)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		stage  string
		want   perr.ErrorCode
	}{
		{401, "submit", perr.ErrorCodeAuthentication},
		{403, "poll", perr.ErrorCodeAuthentication},
		{400, "submit", perr.ErrorCodeProviderRejectedSource},
		{415, "submit", perr.ErrorCodeProviderRejectedSource},
		{422, "submit", perr.ErrorCodeProviderRejectedSource},
		{422, "fetch", perr.ErrorCodeProviderJobFailed},
		{404, "poll", perr.ErrorCodeNotFound},
		{503, "poll", perr.ErrorCodeTransientProvider},
		{429, "submit", perr.ErrorCodeTransientProvider},
		{418, "fetch", perr.ErrorCodeUnknown},
	}
	for _, tc := range cases {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, `{"message":"bad key sk-secret-key"}`)
		}, func(o *Options) { o.MaxRetries = -1 })
		err := c.Do(context.Background(), Request{Path: "/x", Stage: tc.stage}, nil)
		if perr.CodeOf(err) != tc.want {
			t.Fatalf("%d/%s: code = %v, want %v", tc.status, tc.stage, perr.CodeOf(err), tc.want)
		}
		if strings.Contains(err.Error(), "sk-secret-key") {
			t.Fatalf("secret leaked: %v", err)
		}
		if StatusOf(err) != tc.status {
			t.Fatalf("StatusOf = %d", StatusOf(err))
		}
		if w := perr.WireFrom(err); w.Stage != tc.stage {
			t.Fatalf("stage = %q", w.Stage)
		}
	}
}

func TestRetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c, slept := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	})
	if err := c.Do(context.Background(), Request{Path: "/x"}, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls.Load() != 3 || len(*slept) != 2 {
		t.Fatalf("calls=%d sleeps=%v", calls.Load(), *slept)
	}
	if (*slept)[1] != 2*(*slept)[0] {
		t.Fatalf("backoff not exponential: %v", *slept)
	}
}

func TestRetryBoundAndRetryAfter(t *testing.T) {
	var calls atomic.Int32
	c, slept := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}, func(o *Options) { o.MaxRetries = 2; o.RetryCap = time.Minute })
	err := c.Do(context.Background(), Request{Path: "/x"}, nil)
	if !perr.IsTransient(err) {
		t.Fatalf("want transient, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	for _, d := range *slept {
		if d != 2*time.Second {
			t.Fatalf("Retry-After ignored: %v", *slept)
		}
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	c := New(Options{Name: "down", BaseURL: "http://127.0.0.1:1", MaxRetries: -1})
	err := c.Do(context.Background(), Request{Path: "/x", Stage: "submit"}, nil)
	if !perr.IsCode(err, perr.ErrorCodeTransientProvider) {
		t.Fatalf("code = %v", perr.CodeOf(err))
	}
}

func TestCanceledContextIsNotWrapped(t *testing.T) {
	c, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Do(ctx, Request{Path: "/x"}, nil); err != context.Canceled {
		t.Fatalf("err = %v", err)
	}
}

func TestMultipartStreamsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("videobytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			t.Errorf("content type: %v", err)
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		got := map[string]string{}
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			b, _ := io.ReadAll(p)
			got[p.FormName()] = string(b)
			if p.FormName() == "video_file" && p.FileName() != "clip.mp4" {
				t.Errorf("filename = %q", p.FileName())
			}
		}
		if got["index_id"] != "idx" || got["video_file"] != "videobytes" {
			t.Errorf("parts = %#v", got)
		}
		_, _ = io.WriteString(w, `{"_id":"t1"}`)
	})
	err := c.Do(context.Background(), Request{
		Method: http.MethodPost, Path: "/tasks", Stage: "submit",
		Body: Multipart([]Field{{Name: "index_id", Value: "idx"}}, "video_file", path),
	}, nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestRateLimiterGatesCalls(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}, func(o *Options) { o.RPS = 0.001; o.Burst = 1 })
	if err := c.Do(context.Background(), Request{Path: "/x"}, nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Do(ctx, Request{Path: "/x"}, nil); err == nil {
		t.Fatalf("second call should be held by the limiter")
	}
}

// slowReader drains a request body in small chunks, like an upstream on a thin link
func slowReader(calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		buf := make([]byte, 1024)
		for {
			if _, err := r.Body.Read(buf); err != nil {
				if err != io.EOF {
					return
				}
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		_, _ = io.WriteString(w, `{"_id":"t1"}`)
	}
}

func writeClip(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSlowUploadOutlivesRequestTimeout(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, slowReader(&calls), func(o *Options) {
		o.Timeout = 100 * time.Millisecond
		o.HeaderTimeout = 5 * time.Second
	})
	err := c.Do(context.Background(), Request{
		Method: http.MethodPost, Path: "/tasks", Stage: "submit",
		Body: Multipart(nil, "video_file", writeClip(t, 24*1024)),
	}, nil)
	if err != nil {
		t.Fatalf("upload cut short: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("uploads = %d", calls.Load())
	}
}

func TestUploadTimeoutIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, slept := newTestClient(t, slowReader(&calls), func(o *Options) {
		o.UploadTimeout = 100 * time.Millisecond
		o.HeaderTimeout = 5 * time.Second
	})
	err := c.Do(context.Background(), Request{
		Method: http.MethodPost, Path: "/tasks", Stage: "submit",
		Body: Multipart(nil, "video_file", writeClip(t, 4*1024*1024)),
	}, nil)
	if !perr.IsTransient(err) || !strings.Contains(err.Error(), "upload timed out") {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 || len(*slept) != 0 {
		t.Fatalf("uploads = %d sleeps = %v", calls.Load(), *slept)
	}
}

func TestJSONAttemptTimeoutRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}, func(o *Options) { o.Timeout = 50 * time.Millisecond })
	if err := c.Do(context.Background(), Request{Path: "/tasks/t1"}, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d", calls.Load())
	}
}
