package resolver

import (
	"context"
	"io"
	"os"

	"vidbrief/internal/adapters/rapidapi"
	perr "vidbrief/internal/platform/errors"
	pstrings "vidbrief/internal/platform/strings"
	"vidbrief/internal/services/media/domain"

	"github.com/h2non/filetype"
)

// Strategy names as recorded in failure details
const (
	NameRapid = "rapid"
	NameProbe = "probe"
	NameLocal = "local"
)

// FormatResolver looks a youtube id up in a format manifest
type FormatResolver interface {
	Resolve(ctx context.Context, videoID string) (rapidapi.Format, bool, error)
}

// Prober returns a direct media url for a page url
type Prober interface {
	Probe(ctx context.Context, videoURL string) (string, error)
}

// Downloader fetches a video into its own temp dir
type Downloader interface {
	Download(ctx context.Context, videoURL string) (path, dir string, err error)
}

// Rapid resolves through the RapidAPI manifest
type Rapid struct{ api FormatResolver }

// NewRapid returns the rapid strategy
func NewRapid(api FormatResolver) *Rapid { return &Rapid{api: api} }

// Name implements Strategy
func (*Rapid) Name() string { return NameRapid }

// Attempt implements Strategy
func (s *Rapid) Attempt(ctx context.Context, ref domain.VideoReference) (domain.ResolvedSource, error) {
	if ref.VideoID == "" {
		return domain.ResolvedSource{}, domain.ErrNotApplicable
	}
	f, ok, err := s.api.Resolve(ctx, ref.VideoID)
	if err != nil {
		return domain.ResolvedSource{}, err
	}
	if !ok {
		return domain.ResolvedSource{}, perr.New(perr.ErrorCodeUnresolvableSource, "no allowed format in manifest")
	}
	return domain.ResolvedSource{SourceURL: f.URL, Method: domain.MethodRapid}, nil
}

// Probe asks yt-dlp for the direct url
type Probe struct{ p Prober }

// NewProbe returns the probe strategy
func NewProbe(p Prober) *Probe { return &Probe{p: p} }

// Name implements Strategy
func (*Probe) Name() string { return NameProbe }

// Attempt implements Strategy
func (s *Probe) Attempt(ctx context.Context, ref domain.VideoReference) (domain.ResolvedSource, error) {
	u, err := s.p.Probe(ctx, ref.NormalizedURL())
	if err != nil {
		return domain.ResolvedSource{}, err
	}
	return domain.ResolvedSource{SourceURL: u, Method: domain.MethodProbe}, nil
}

// Local downloads the video for a multipart upload
type Local struct{ d Downloader }

// NewLocal returns the local strategy
func NewLocal(d Downloader) *Local { return &Local{d: d} }

// Name implements Strategy
func (*Local) Name() string { return NameLocal }

// Downloads reports that this strategy writes to disk
func (*Local) Downloads() bool { return true }

// Attempt implements Strategy. Non video payloads are removed and rejected
func (s *Local) Attempt(ctx context.Context, ref domain.VideoReference) (domain.ResolvedSource, error) {
	path, dir, err := s.d.Download(ctx, ref.NormalizedURL())
	if err != nil {
		return domain.ResolvedSource{}, err
	}
	payload := &domain.LocalPayload{Path: path, Dir: dir}
	mime, size, err := sniff(path)
	if err != nil {
		payload.Release()
		return domain.ResolvedSource{}, err
	}
	payload.MIME, payload.Size = mime, size
	return domain.ResolvedSource{
		SourceURL:     "file://" + path,
		Method:        domain.MethodLocal,
		IsLocalUpload: true,
		Local:         payload,
	}, nil
}

// sniff reads the file header; 262 bytes covers every matcher
func sniff(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, perr.Wrap(err, perr.ErrorCodeUnknown, "open download")
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", 0, perr.Wrap(err, perr.ErrorCodeUnknown, "stat download")
	}
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", 0, perr.Wrap(err, perr.ErrorCodeUnknown, "read download")
	}
	head = head[:n]
	if !filetype.IsVideo(head) {
		kind, _ := filetype.Match(head)
		return "", 0, perr.Newf(perr.ErrorCodeUnresolvableSource, "downloaded payload is not a video (%s)",
			pstrings.FirstNonEmpty(kind.MIME.Value, "unknown"))
	}
	kind, _ := filetype.Match(head)
	return kind.MIME.Value, info.Size(), nil
}
