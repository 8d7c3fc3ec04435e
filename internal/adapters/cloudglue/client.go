// Package cloudglue is a thin client for the Cloudglue REST API
package cloudglue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vidbrief/internal/adapters/restclient"
)

// DefaultBaseURL is the public endpoint
const DefaultBaseURL = "https://api.cloudglue.dev"

// Config configures a Client
type Config struct {
	APIKey  string
	BaseURL string

	RPS        float64
	MaxRetries int
	RetryBase  time.Duration
	Timeout    time.Duration
	// UploadTimeout bounds a multipart file upload; zero leaves it to the request ctx
	UploadTimeout time.Duration
	HTTPClient    *http.Client
}

// Client talks to Cloudglue
type Client struct {
	rc *restclient.Client
}

// New builds a Client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+cfg.APIKey)
	return &Client{rc: restclient.New(restclient.Options{
		Name:          "cloudglue",
		BaseURL:       strings.TrimRight(cfg.BaseURL, "/"),
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

// ids tolerates the several id spellings the API has used
type ids struct {
	ID           string `json:"id"`
	UnderID      string `json:"_id"`
	FileID       string `json:"fileId"`
	CollectionID string `json:"collectionId"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	State        string `json:"state"`
	Processing   string `json:"processing_status"`
}

func (i ids) id() string {
	for _, v := range []string{i.ID, i.UnderID, i.FileID, i.CollectionID} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (i ids) status() string {
	for _, v := range []string{i.Status, i.State, i.Processing} {
		if v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

// envelope unwraps {"data": {...}} responses
type envelope struct {
	ids
	Data json.RawMessage `json:"data"`
}

func (e envelope) flat() ids {
	if len(e.Data) > 0 && e.Data[0] == '{' {
		var inner ids
		if json.Unmarshal(e.Data, &inner) == nil && inner.id() != "" {
			return inner
		}
	}
	return e.ids
}

// Collection is a named group of files
type Collection struct {
	ID   string
	Name string
}

// FindCollection looks a collection up by name
func (c *Client) FindCollection(ctx context.Context, name string) (Collection, bool, error) {
	var out struct {
		Data        []ids `json:"data"`
		Collections []ids `json:"collections"`
	}
	err := c.rc.Do(ctx, restclient.Request{
		Path:  "/collections",
		Query: url.Values{"name": {name}},
		Stage: "collection",
	}, &out)
	if err != nil {
		return Collection{}, false, err
	}
	for _, it := range append(out.Data, out.Collections...) {
		if it.Name == name && it.id() != "" {
			return Collection{ID: it.id(), Name: name}, true, nil
		}
	}
	return Collection{}, false, nil
}

// CreateCollection creates a collection
func (c *Client) CreateCollection(ctx context.Context, name string) (Collection, error) {
	var out envelope
	err := c.rc.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/collections",
		JSON:   map[string]string{"name": name},
		Stage:  "collection",
	}, &out)
	return Collection{ID: out.flat().id(), Name: name}, err
}

// File is an ingested file
type File struct {
	ID     string
	Status string
}

// Ready and failed statuses as reported by the API
var (
	readyStatuses  = map[string]bool{"ready": true, "completed": true, "complete": true, "success": true, "done": true}
	failedStatuses = map[string]bool{"failed": true, "error": true}
)

// Ready reports a finished file
func (f File) Ready() bool { return readyStatuses[f.Status] }

// Failed reports a file that will never be ready
func (f File) Failed() bool { return failedStatuses[f.Status] }

// IngestURL adds a remote video to a collection. YouTube links go through the
// dedicated youtube endpoint, anything else is fetched as a plain url
func (c *Client) IngestURL(ctx context.Context, collectionID, videoURL string, youtube bool) (File, error) {
	path := "/collections/" + url.PathEscape(collectionID) + "/files"
	if youtube {
		path = "/collections/" + url.PathEscape(collectionID) + "/youtube"
	}
	var out envelope
	err := c.rc.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   path,
		JSON:   map[string]string{"url": videoURL},
		Stage:  "submit",
	}, &out)
	f := out.flat()
	return File{ID: f.id(), Status: f.status()}, err
}

// UploadFile streams a local file into a collection
func (c *Client) UploadFile(ctx context.Context, collectionID, path string) (File, error) {
	var out envelope
	err := c.rc.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/collections/" + url.PathEscape(collectionID) + "/files",
		Body:   restclient.Multipart(nil, "file", path),
		Stage:  "submit",
	}, &out)
	f := out.flat()
	return File{ID: f.id(), Status: f.status()}, err
}

// GetFile reads a file's processing state
func (c *Client) GetFile(ctx context.Context, id string) (File, error) {
	var out envelope
	err := c.rc.Do(ctx, restclient.Request{Path: "/files/" + url.PathEscape(id), Stage: "poll"}, &out)
	f := out.flat()
	if f.id() == "" {
		f.ID = id
	}
	return File{ID: f.id(), Status: f.status()}, err
}

// Describe asks for a description of a ready file and returns the raw body
func (c *Client) Describe(ctx context.Context, fileID, prompt string) (json.RawMessage, error) {
	body := map[string]string{"fileId": fileID}
	if prompt != "" {
		body["prompt"] = prompt
	}
	return c.rc.Raw(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/describe",
		JSON:   body,
		Stage:  "fetch",
	})
}
