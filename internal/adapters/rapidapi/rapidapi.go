// Package rapidapi looks up YouTube streaming manifests through the yt-api
// RapidAPI endpoint and picks a progressive mp4 from them
package rapidapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vidbrief/internal/adapters/restclient"
)

// Defaults for the yt-api service
const (
	DefaultHost = "yt-api.p.rapidapi.com"
	DefaultURL  = "https://yt-api.p.rapidapi.com/dl"
)

// DefaultITags prefers 720p then 360p progressive mp4
var DefaultITags = []int{22, 18}

// Config configures a Client
type Config struct {
	Key  string
	Host string
	URL  string
	// CGeo is the optional country hint sent as cgeo
	CGeo string

	ITags       []int
	AllowAnyMP4 bool

	MaxRetries int
	RetryBase  time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the manifest endpoint
type Client struct {
	rc  *restclient.Client
	cfg Config
}

// New builds a Client
func New(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if len(cfg.ITags) == 0 {
		cfg.ITags = DefaultITags
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	h := http.Header{}
	h.Set("x-rapidapi-host", cfg.Host)
	h.Set("x-rapidapi-key", cfg.Key)
	return &Client{cfg: cfg, rc: restclient.New(restclient.Options{
		Name:       "rapidapi",
		Header:     h,
		Secrets:    []string{cfg.Key},
		MaxRetries: cfg.MaxRetries,
		RetryBase:  cfg.RetryBase,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
	})}
}

// ITag accepts both numeric and string itags
type ITag int

// UnmarshalJSON implements json.Unmarshaler
func (t *ITag) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*t = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*t = 0
		return nil
	}
	*t = ITag(n)
	return nil
}

// Format is one entry of a manifest
type Format struct {
	ITag         ITag   `json:"itag"`
	URL          string `json:"url"`
	MimeType     string `json:"mimeType"`
	Mime         string `json:"mime"`
	Type         string `json:"type"`
	QualityLabel string `json:"qualityLabel"`
	AudioQuality string `json:"audioQuality"`
}

func (f Format) mime() string {
	for _, m := range []string{f.MimeType, f.Mime, f.Type} {
		if m != "" {
			return strings.ToLower(m)
		}
	}
	return ""
}

func (f Format) progressiveMP4() bool {
	m := f.mime()
	if !strings.Contains(m, "video/mp4") {
		return false
	}
	return f.AudioQuality != "" || strings.Contains(m, "mp4a")
}

// Manifest is the part of the response we read
type Manifest struct {
	Status        string   `json:"status"`
	Formats       []Format `json:"formats"`
	StreamingData struct {
		Formats []Format `json:"formats"`
	} `json:"streamingData"`
}

// Lookup fetches the manifest for a youtube video id
func (c *Client) Lookup(ctx context.Context, videoID string) (Manifest, error) {
	q := url.Values{"id": {videoID}}
	if c.cfg.CGeo != "" {
		q.Set("cgeo", c.cfg.CGeo)
	}
	var m Manifest
	err := c.rc.Do(ctx, restclient.Request{Path: c.cfg.URL, Query: q, Stage: "resolve"}, &m)
	return m, err
}

// Resolve looks the video up and selects a format url
func (c *Client) Resolve(ctx context.Context, videoID string) (Format, bool, error) {
	m, err := c.Lookup(ctx, videoID)
	if err != nil {
		return Format{}, false, err
	}
	f, ok := Select(m, c.cfg.ITags, c.cfg.AllowAnyMP4)
	return f, ok, nil
}

// Select applies the quality rule: each allowed itag in order across formats
// then streamingData.formats, then the first progressive mp4 when allowed.
// Entries without a url never qualify
func Select(m Manifest, itags []int, allowAnyMP4 bool) (Format, bool) {
	lists := [][]Format{m.Formats, m.StreamingData.Formats}
	for _, want := range itags {
		for _, list := range lists {
			for _, f := range list {
				if f.URL != "" && int(f.ITag) == want {
					return f, true
				}
			}
		}
	}
	if !allowAnyMP4 {
		return Format{}, false
	}
	for _, list := range lists {
		for _, f := range list {
			if f.URL != "" && f.progressiveMP4() {
				return f, true
			}
		}
	}
	return Format{}, false
}

// DecodeManifest is exposed for fixtures
func DecodeManifest(b []byte) (Manifest, error) {
	var m Manifest
	err := json.Unmarshal(b, &m)
	return m, err
}
