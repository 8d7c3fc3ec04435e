// Package twelvelabs is a thin client for the TwelveLabs v1.3 REST API
package twelvelabs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"vidbrief/internal/adapters/restclient"
	perr "vidbrief/internal/platform/errors"
)

// DefaultBaseURL is the public v1.3 endpoint
const DefaultBaseURL = "https://api.twelvelabs.io/v1.3"

// Task statuses the API reports as terminal
const (
	StatusReady  = "ready"
	StatusFailed = "failed"
)

// Model names accepted by index creation
const (
	ModelPegasus = "pegasus1.2"
	ModelMarengo = "marengo2.7"
)

// Config configures a Client
type Config struct {
	APIKey  string
	BaseURL string
	// OrgID is sent as X-Organization-Id when set
	OrgID string

	RPS        float64
	MaxRetries int
	RetryBase  time.Duration
	Timeout    time.Duration
	// UploadTimeout bounds a multipart file upload; zero leaves it to the request ctx
	UploadTimeout time.Duration
	HTTPClient    *http.Client
}

// Client talks to TwelveLabs
type Client struct {
	rc *restclient.Client
}

// New builds a Client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	h := http.Header{}
	h.Set("x-api-key", cfg.APIKey)
	if cfg.OrgID != "" {
		h.Set("X-Organization-Id", cfg.OrgID)
	}
	return &Client{rc: restclient.New(restclient.Options{
		Name:          "twelvelabs",
		BaseURL:       cfg.BaseURL,
		Header:        h,
		Secrets:       []string{cfg.APIKey},
		RPS:           cfg.RPS,
		MaxRetries:    cfg.MaxRetries,
		RetryBase:     cfg.RetryBase,
		Timeout:       cfg.Timeout,
		UploadTimeout: cfg.UploadTimeout,
		HTTPClient:    cfg.HTTPClient,
	})}
}

// Index is a TwelveLabs index
type Index struct {
	ID   string `json:"_id"`
	Name string `json:"index_name"`
}

// IndexModel enables one model on an index
type IndexModel struct {
	Name    string   `json:"model_name"`
	Options []string `json:"model_options"`
}

// FindIndex looks an index up by exact name
func (c *Client) FindIndex(ctx context.Context, name string) (Index, bool, error) {
	var out struct {
		Data []Index `json:"data"`
	}
	err := c.rc.Do(ctx, restclient.Request{
		Path:  "/indexes",
		Query: url.Values{"index_name": {name}},
		Stage: "index",
	}, &out)
	if err != nil {
		return Index{}, false, err
	}
	for _, ix := range out.Data {
		if ix.Name == name && ix.ID != "" {
			return ix, true, nil
		}
	}
	return Index{}, false, nil
}

// CreateIndex creates an index with the given models
func (c *Client) CreateIndex(ctx context.Context, name string, models []IndexModel) (Index, error) {
	var out Index
	err := c.rc.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/indexes",
		JSON:   map[string]any{"index_name": name, "models": models},
		Stage:  "index",
	}, &out)
	if out.Name == "" {
		out.Name = name
	}
	return out, err
}

// Task is an indexing task
type Task struct {
	ID      string `json:"_id"`
	IndexID string `json:"index_id,omitempty"`
	VideoID string `json:"video_id,omitempty"`
	Status  string `json:"status,omitempty"`
}

// CreateTaskURL asks TwelveLabs to fetch and index videoURL
func (c *Client) CreateTaskURL(ctx context.Context, indexID, videoURL string) (Task, error) {
	return c.createTask(ctx, restclient.Multipart([]restclient.Field{
		{Name: "index_id", Value: indexID},
		{Name: "video_url", Value: videoURL},
	}, "", ""))
}

// CreateTaskFile streams a local file into a new indexing task
func (c *Client) CreateTaskFile(ctx context.Context, indexID, path string) (Task, error) {
	return c.createTask(ctx, restclient.Multipart([]restclient.Field{
		{Name: "index_id", Value: indexID},
	}, "video_file", path))
}

func (c *Client) createTask(ctx context.Context, body func() (io.Reader, string, error)) (Task, error) {
	var out Task
	err := c.rc.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/tasks",
		Body:   body,
		Stage:  "submit",
	}, &out)
	return out, err
}

// GetTask reads a task
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var out Task
	err := c.rc.Do(ctx, restclient.Request{Path: "/tasks/" + url.PathEscape(id), Stage: "poll"}, &out)
	return out, err
}

// VideoVisible reports whether an indexed video can be read back yet. A task
// can turn ready shortly before its video is served by the index
func (c *Client) VideoVisible(ctx context.Context, indexID, videoID string) (bool, error) {
	err := c.rc.Do(ctx, restclient.Request{
		Path:  "/indexes/" + url.PathEscape(indexID) + "/videos/" + url.PathEscape(videoID),
		Stage: "poll",
	}, nil)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Summarize runs a summary generation and returns the raw body
func (c *Client) Summarize(ctx context.Context, videoID, prompt string) (json.RawMessage, error) {
	body := map[string]any{"video_id": videoID, "type": "summary"}
	if prompt != "" {
		body["prompt"] = prompt
	}
	return c.rc.Raw(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/summarize",
		JSON:   body,
		Stage:  "fetch",
	})
}

// AnalyzeRequest is an open ended generation constrained by a json schema
type AnalyzeRequest struct {
	VideoID     string
	Prompt      string
	Schema      json.RawMessage
	Temperature float64
	MaxTokens   int
}

// Analyze runs a generation and returns the raw body; the answer is in "data"
func (c *Client) Analyze(ctx context.Context, in AnalyzeRequest) (json.RawMessage, error) {
	body := map[string]any{
		"video_id":    in.VideoID,
		"prompt":      in.Prompt,
		"temperature": in.Temperature,
		"stream":      false,
	}
	if in.MaxTokens > 0 {
		body["max_tokens"] = in.MaxTokens
	}
	if len(in.Schema) > 0 {
		body["response_format"] = map[string]any{"type": "json_schema", "json_schema": in.Schema}
	}
	return c.rc.Raw(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/analyze",
		JSON:   body,
		Stage:  "fetch",
	})
}
