// Package ytdlp shells out to the yt-dlp binary to probe direct media urls and
// download videos into scoped temp dirs
package ytdlp

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/platform/logger"
	pstrings "vidbrief/internal/platform/strings"

	"github.com/google/uuid"
)

const (
	defaultBin             = "yt-dlp"
	defaultProbeFormat     = "b"
	defaultDownloadFormat  = "mp4/best"
	defaultProbeTimeout    = 2 * time.Minute
	defaultDownloadTimeout = 15 * time.Minute
)

// Config configures a Client
type Config struct {
	Bin string
	// ProbeFormat is the -f selector for --get-url
	ProbeFormat string
	// DownloadFormat is the -f selector for downloads
	DownloadFormat  string
	ProbeTimeout    time.Duration
	DownloadTimeout time.Duration
	// CookiesFromBrowser passes --cookies-from-browser for restricted videos
	CookiesFromBrowser string
	// TempDir is the parent of per download dirs, os.TempDir when empty
	TempDir string
}

// Runner executes the binary and returns its stdout and stderr
type Runner func(ctx context.Context, bin string, args ...string) (stdout, stderr []byte, err error)

// Client drives yt-dlp
type Client struct {
	cfg Config
	run Runner
	log logger.Logger
}

// New builds a Client around the real binary
func New(cfg Config) *Client { return NewWithRunner(cfg, execRunner) }

// NewWithRunner builds a Client with a custom runner, used by tests
func NewWithRunner(cfg Config, run Runner) *Client {
	if cfg.Bin == "" {
		cfg.Bin = defaultBin
	}
	if cfg.ProbeFormat == "" {
		cfg.ProbeFormat = defaultProbeFormat
	}
	if cfg.DownloadFormat == "" {
		cfg.DownloadFormat = defaultDownloadFormat
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = defaultDownloadTimeout
	}
	return &Client{cfg: cfg, run: run, log: *logger.Named("ytdlp")}
}

func execRunner(ctx context.Context, bin string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	err := cmd.Run()
	return out.Bytes(), stderr.Bytes(), err
}

// Probe asks yt-dlp for a direct playable url without downloading bytes
func (c *Client) Probe(ctx context.Context, videoURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	args := []string{"-f", c.cfg.ProbeFormat, "--get-url", "--no-warnings", "--no-playlist"}
	args = append(c.cookies(args), videoURL)
	out, stderr, err := c.run(ctx, c.cfg.Bin, args...)
	if err != nil {
		return "", c.failure(ctx, err, stderr, "probe")
	}
	// video and audio may come back as two lines; the first is the muxed or video url
	for line := range strings.Lines(string(out)) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			return line, nil
		}
	}
	return "", perr.New(perr.ErrorCodeUnresolvableSource, "yt-dlp returned no url")
}

// Download fetches the video into a fresh dir under TempDir and returns the
// file path and its dir. The dir is removed on any failure
func (c *Client) Download(ctx context.Context, videoURL string) (path, dir string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)
	defer cancel()

	dir, err = os.MkdirTemp(c.cfg.TempDir, "vidbrief-dl-*")
	if err != nil {
		return "", "", perr.Wrap(err, perr.ErrorCodeUnknown, "create download dir")
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
			dir = ""
		}
	}()

	tmpl := filepath.Join(dir, uuid.NewString()+".%(ext)s")
	args := []string{"-f", c.cfg.DownloadFormat, "--no-playlist", "--no-warnings", "--no-progress", "--no-part", "-o", tmpl}
	args = append(c.cookies(args), videoURL)

	start := time.Now()
	if _, stderr, rerr := c.run(ctx, c.cfg.Bin, args...); rerr != nil {
		return "", "", c.failure(ctx, rerr, stderr, "download")
	}
	if path, err = largestFile(dir); err != nil {
		return "", "", err
	}
	c.log.Info().Str("file", filepath.Base(path)).Dur("took", time.Since(start)).Msg("download complete")
	return path, dir, nil
}

func (c *Client) cookies(args []string) []string {
	if b := strings.TrimSpace(c.cfg.CookiesFromBrowser); b != "" {
		args = append(args, "--cookies-from-browser", b)
	}
	return args
}

// failure keeps ctx errors intact so callers can tell cancellation from a bad video
func (c *Client) failure(ctx context.Context, err error, stderr []byte, what string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	msg := lastLine(string(stderr))
	c.log.Debug().Err(err).Str("stderr", pstrings.Truncate(msg, 300)).Msgf("yt-dlp %s failed", what)
	return perr.Wrapf(err, perr.ErrorCodeUnresolvableSource, "yt-dlp %s failed: %s", what, pstrings.Truncate(msg, 200))
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func largestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnknown, "read download dir")
	}
	var (
		best string
		size int64 = -1
	)
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), ".part") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() > size {
			best, size = filepath.Join(dir, e.Name()), info.Size()
		}
	}
	if best == "" || size == 0 {
		return "", perr.New(perr.ErrorCodeUnresolvableSource, "yt-dlp produced no file")
	}
	return best, nil
}
