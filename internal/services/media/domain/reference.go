package domain

import (
	"net/url"
	"regexp"
	"strings"

	perr "vidbrief/internal/platform/errors"
)

// RefKind tags a VideoReference
type RefKind string

// Reference kinds
const (
	RefYouTube RefKind = "youtube"
	RefDirect  RefKind = "direct"
)

// VideoReference is a caller supplied pointer to a video. Exactly one kind is set
// and URL is always absolute
type VideoReference struct {
	Kind    RefKind `json:"kind"`
	URL     string  `json:"url"`
	VideoID string  `json:"video_id,omitempty"` // youtube id when Kind is youtube
}

var ytID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// IsYouTubeID reports whether s looks like a bare youtube video id
func IsYouTubeID(s string) bool { return ytID.MatchString(s) }

// YouTube builds a reference from a bare id
func YouTube(id string) VideoReference {
	return VideoReference{Kind: RefYouTube, URL: "https://www.youtube.com/watch?v=" + id, VideoID: id}
}

// ParseURL classifies an absolute http(s) url as youtube or direct
func ParseURL(raw string) (VideoReference, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return VideoReference{}, perr.InvalidRequestf("not an absolute url")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return VideoReference{}, perr.InvalidRequestf("url scheme must be http or https")
	}
	if id, ok := YouTubeIDFromURL(u); ok {
		return VideoReference{Kind: RefYouTube, URL: raw, VideoID: id}, nil
	}
	return VideoReference{Kind: RefDirect, URL: raw}, nil
}

// YouTubeIDFromURL extracts the id from watch, youtu.be, shorts, embed and live urls
func YouTubeIDFromURL(u *url.URL) (string, bool) {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	var id string
	switch host {
	case "youtu.be":
		id = segs[0]
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		switch {
		case segs[0] == "watch":
			id = u.Query().Get("v")
		case len(segs) >= 2 && (segs[0] == "shorts" || segs[0] == "embed" || segs[0] == "live" || segs[0] == "v"):
			id = segs[1]
		}
	default:
		return "", false
	}
	if !IsYouTubeID(id) {
		return "", false
	}
	return id, true
}

// NormalizedURL is the canonical form used in fingerprints
func (r VideoReference) NormalizedURL() string {
	if r.Kind == RefYouTube && r.VideoID != "" {
		return "https://www.youtube.com/watch?v=" + r.VideoID
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Target is what a request points at after validation: either a reference to
// resolve or a video the provider already holds
type Target struct {
	Ref             *VideoReference
	ProviderVideoID string
}

// Key is the stable identity used for fingerprints
func (t Target) Key() string {
	if t.Ref != nil {
		return t.Ref.NormalizedURL()
	}
	return "provider-video:" + t.ProviderVideoID
}

// Media carries the three mutually exclusive reference fields of a request
type Media struct {
	YouTubeURL string `json:"youtube_url,omitempty" validate:"omitempty,url,max=2048"`
	VideoURL   string `json:"video_url,omitempty" validate:"omitempty,url,max=2048"`
	VideoID    string `json:"video_id,omitempty" validate:"omitempty,max=128"`
}

// Target validates that exactly one reference is usable and classifies it
func (m Media) Target() (Target, error) {
	yt, vu, id := strings.TrimSpace(m.YouTubeURL), strings.TrimSpace(m.VideoURL), strings.TrimSpace(m.VideoID)
	n := 0
	for _, s := range []string{yt, vu, id} {
		if s != "" {
			n++
		}
	}
	switch n {
	case 0:
		return Target{}, perr.InvalidRequestf("provide one of youtube_url, video_url or video_id")
	case 1:
	default:
		return Target{}, perr.InvalidRequestf("provide only one of youtube_url, video_url or video_id")
	}

	switch {
	case yt != "":
		ref, err := ParseURL(yt)
		if err != nil {
			return Target{}, perr.WithField(err, "youtube_url")
		}
		if ref.Kind != RefYouTube {
			return Target{}, perr.WithField(perr.InvalidRequestf("youtube_url is not a youtube video link"), "youtube_url")
		}
		return Target{Ref: &ref}, nil
	case vu != "":
		ref, err := ParseURL(vu)
		if err != nil {
			return Target{}, perr.WithField(err, "video_url")
		}
		return Target{Ref: &ref}, nil
	default:
		if IsYouTubeID(id) {
			ref := YouTube(id)
			return Target{Ref: &ref}, nil
		}
		return Target{ProviderVideoID: id}, nil
	}
}
