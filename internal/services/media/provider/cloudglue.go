package provider

import (
	"context"
	"sync"
	"time"

	"vidbrief/internal/adapters/cloudglue"
	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/platform/logger"
	"vidbrief/internal/services/media/domain"
)

// CloudglueConfig shapes collection handling
type CloudglueConfig struct {
	CollectionID   string
	CollectionName string
}

// Cloudglue is the Cloudglue variant. Analysis is served by describe with a
// prompt that asks for json
type Cloudglue struct {
	api *cloudglue.Client
	cfg CloudglueConfig
	now func() time.Time

	mu           sync.Mutex
	collectionID string
}

// NewCloudglue wraps a client
func NewCloudglue(api *cloudglue.Client, cfg CloudglueConfig) *Cloudglue {
	if cfg.CollectionName == "" {
		cfg.CollectionName = "vidbrief"
	}
	return &Cloudglue{api: api, cfg: cfg, now: time.Now, collectionID: cfg.CollectionID}
}

// Name implements Adapter
func (*Cloudglue) Name() domain.ProviderName { return domain.ProviderCloudglue }

// Warm implements Warmer
func (c *Cloudglue) Warm(ctx context.Context) error {
	_, err := c.ensureCollection(ctx)
	return err
}

func (c *Cloudglue) ensureCollection(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collectionID != "" {
		return c.collectionID, nil
	}
	col, ok, err := c.api.FindCollection(ctx, c.cfg.CollectionName)
	if err != nil {
		return "", err
	}
	if !ok {
		if col, err = c.api.CreateCollection(ctx, c.cfg.CollectionName); err != nil {
			return "", err
		}
		logger.C(ctx).Info().Str("collection", col.ID).Str("name", c.cfg.CollectionName).Msg("cloudglue collection created")
	}
	if col.ID == "" {
		return "", perr.Internalf("cloudglue returned a collection without id")
	}
	c.collectionID = col.ID
	return col.ID, nil
}

// Submit implements Adapter
func (c *Cloudglue) Submit(ctx context.Context, src domain.ResolvedSource, _ domain.SubmitOptions) (domain.ProviderJob, error) {
	col, err := c.ensureCollection(ctx)
	if err != nil {
		return domain.ProviderJob{}, perr.WithOp(err, "submit")
	}
	var f cloudglue.File
	if src.IsLocalUpload {
		if src.Local == nil {
			return domain.ProviderJob{}, perr.WithOp(perr.Internalf("local source without payload"), "submit")
		}
		f, err = c.api.UploadFile(ctx, col, src.Local.Path)
	} else {
		ref, parseErr := domain.ParseURL(src.SourceURL)
		youtube := parseErr == nil && ref.Kind == domain.RefYouTube
		f, err = c.api.IngestURL(ctx, col, src.SourceURL, youtube)
	}
	if err != nil {
		return domain.ProviderJob{}, perr.WithOp(err, "submit")
	}
	if f.ID == "" {
		return domain.ProviderJob{}, perr.WithOp(perr.Internalf("cloudglue returned a file without id"), "submit")
	}
	job := domain.ProviderJob{
		ID:          f.ID,
		Provider:    domain.ProviderCloudglue,
		SubmittedAt: c.now(),
		State:       domain.JobSubmitted,
		VideoID:     f.ID,
		Group:       col,
	}
	if f.Ready() {
		job.State = domain.JobReady
	}
	return job, nil
}

// Poll implements Adapter
func (c *Cloudglue) Poll(ctx context.Context, job domain.ProviderJob) (domain.ProviderJob, error) {
	f, err := c.api.GetFile(ctx, job.ID)
	if err != nil {
		return job, err
	}
	switch {
	case f.Ready():
		job.State = domain.JobReady
	case f.Failed():
		job.State, job.Reason = domain.JobFailed, "file processing "+f.Status
	default:
		job.State = domain.JobProcessing
	}
	return job, nil
}

// FetchResult implements Adapter
func (c *Cloudglue) FetchResult(ctx context.Context, job domain.ProviderJob, op domain.Operation, opts domain.ResultOptions) (domain.RawResult, error) {
	if op != domain.OpSummarize && op != domain.OpAnalyze {
		return domain.RawResult{}, perr.WithOp(perr.InvalidRequestf("unsupported operation %q", op), "fetch")
	}
	id := job.VideoID
	if id == "" {
		id = job.ID
	}
	raw, err := c.api.Describe(ctx, id, opts.Prompt)
	if err != nil {
		return domain.RawResult{}, perr.WithOp(err, "fetch")
	}
	text := ExtractSummary(raw)
	if op == domain.OpAnalyze && text == "" {
		text = ExtractData(raw)
	}
	return domain.RawResult{TraceID: traceID(raw), Text: text, Body: raw}, nil
}
