package twelvelabs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	perr "vidbrief/internal/platform/errors"
)

func fakeAPI(t *testing.T, h http.HandlerFunc) *Client {
	c, _ := fakeAPIURL(t, h)
	return c
}

func fakeAPIURL(t *testing.T, h http.HandlerFunc) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "tl-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":"api_key_invalid","message":"bad tl-key"}`)
			return
		}
		if r.Header.Get("X-Organization-Id") != "org-1" {
			t.Errorf("org header missing")
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "tl-key", OrgID: "org-1", BaseURL: srv.URL, RetryBase: time.Millisecond}), srv.URL
}

func TestFindIndex(t *testing.T) {
	c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/indexes" || r.URL.Query().Get("index_name") != "vidbrief" {
			t.Errorf("unexpected %s %s", r.Method, r.URL)
		}
		_, _ = io.WriteString(w, `{"data":[{"_id":"other","index_name":"vidbrief-old"},{"_id":"ix1","index_name":"vidbrief"}]}`)
	})
	ix, ok, err := c.FindIndex(context.Background(), "vidbrief")
	if err != nil || !ok || ix.ID != "ix1" {
		t.Fatalf("FindIndex = %+v %v %v", ix, ok, err)
	}
}

func TestCreateIndexSendsModels(t *testing.T) {
	c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name   string       `json:"index_name"`
			Models []IndexModel `json:"models"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Name != "vidbrief" || len(body.Models) != 1 || body.Models[0].Name != ModelPegasus {
			t.Errorf("body = %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"_id":"ix9"}`)
	})
	ix, err := c.CreateIndex(context.Background(), "vidbrief", []IndexModel{{Name: ModelPegasus, Options: []string{"visual", "audio"}}})
	if err != nil || ix.ID != "ix9" || ix.Name != "vidbrief" {
		t.Fatalf("CreateIndex = %+v %v", ix, err)
	}
}

func TestCreateTaskVariants(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	_ = os.WriteFile(path, []byte("bytes"), 0o600)

	c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart: %v", err)
		}
		if r.FormValue("index_id") != "ix1" {
			t.Errorf("index_id = %q", r.FormValue("index_id"))
		}
		if u := r.FormValue("video_url"); u != "" {
			_, _ = io.WriteString(w, `{"_id":"task-url","video_id":"v-url"}`)
			return
		}
		if _, _, err := r.FormFile("video_file"); err != nil {
			t.Errorf("video_file missing: %v", err)
		}
		_, _ = io.WriteString(w, `{"_id":"task-file","video_id":"v-file"}`)
	})
	ctx := context.Background()
	if tk, err := c.CreateTaskURL(ctx, "ix1", "https://cdn.example.com/a.mp4"); err != nil || tk.ID != "task-url" {
		t.Fatalf("CreateTaskURL = %+v %v", tk, err)
	}
	if tk, err := c.CreateTaskFile(ctx, "ix1", path); err != nil || tk.VideoID != "v-file" {
		t.Fatalf("CreateTaskFile = %+v %v", tk, err)
	}
}

func TestSubmitRejectedAndAuth(t *testing.T) {
	c, base := fakeAPIURL(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"video_resolution_too_low"}`)
	})
	_, err := c.CreateTaskURL(context.Background(), "ix1", "https://cdn.example.com/a.mp4")
	if !perr.IsCode(err, perr.ErrorCodeProviderRejectedSource) {
		t.Fatalf("want rejected, got %v", err)
	}

	bad := New(Config{APIKey: "wrong", OrgID: "org-1", BaseURL: base})
	_, err = bad.GetTask(context.Background(), "t1")
	if !perr.IsCode(err, perr.ErrorCodeAuthentication) {
		t.Fatalf("want auth, got %v", err)
	}
	if strings.Contains(perr.WireFrom(err).Message, "wrong") {
		t.Fatalf("key leaked to wire")
	}
}

func TestVideoVisible(t *testing.T) {
	c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/indexes/ix1/videos/v-ready":
			_, _ = io.WriteString(w, `{"_id":"v-ready"}`)
		case "/indexes/ix1/videos/v-broken":
			w.WriteHeader(http.StatusTeapot)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()
	if ok, err := c.VideoVisible(ctx, "ix1", "v-ready"); !ok || err != nil {
		t.Fatalf("ready = %v %v", ok, err)
	}
	if ok, err := c.VideoVisible(ctx, "ix1", "v-lagging"); ok || err != nil {
		t.Fatalf("lagging = %v %v", ok, err)
	}
	if ok, err := c.VideoVisible(ctx, "ix1", "v-broken"); ok || err == nil {
		t.Fatalf("broken = %v %v", ok, err)
	}
}

func TestSummarizeAndAnalyzeBodies(t *testing.T) {
	c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/summarize":
			if body["type"] != "summary" || body["video_id"] != "v1" || body["prompt"] != "p" {
				t.Errorf("summarize body = %v", body)
			}
			_, _ = io.WriteString(w, `{"id":"s1","summary":"short"}`)
		case "/analyze":
			rf, _ := body["response_format"].(map[string]any)
			if rf["type"] != "json_schema" || body["temperature"] != 0.2 || body["max_tokens"] != float64(2048) || body["stream"] != false {
				t.Errorf("analyze body = %v", body)
			}
			_, _ = io.WriteString(w, `{"id":"a1","data":"{}"}`)
		}
	})
	ctx := context.Background()
	raw, err := c.Summarize(ctx, "v1", "p")
	if err != nil || !strings.Contains(string(raw), `"short"`) {
		t.Fatalf("Summarize = %s %v", raw, err)
	}
	raw, err = c.Analyze(ctx, AnalyzeRequest{
		VideoID: "v1", Prompt: "p", Schema: json.RawMessage(`{"type":"object"}`), Temperature: 0.2, MaxTokens: 2048,
	})
	if err != nil || !strings.Contains(string(raw), `"a1"`) {
		t.Fatalf("Analyze = %s %v", raw, err)
	}
}
