package provider

import (
	"context"
	"sync"
	"time"

	"vidbrief/internal/adapters/twelvelabs"
	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/platform/logger"
	"vidbrief/internal/services/media/domain"
)

// TwelveLabsConfig shapes index handling and generation
type TwelveLabsConfig struct {
	// IndexID skips discovery when set
	IndexID       string
	IndexName     string
	EnablePegasus bool
	EnableMarengo bool
	ModelOptions  []string
	Temperature   float64
	MaxTokens     int
}

// TwelveLabs is the TwelveLabs variant
type TwelveLabs struct {
	api *twelvelabs.Client
	cfg TwelveLabsConfig
	now func() time.Time

	mu      sync.Mutex
	indexID string
}

// NewTwelveLabs wraps a client
func NewTwelveLabs(api *twelvelabs.Client, cfg TwelveLabsConfig) *TwelveLabs {
	if cfg.IndexName == "" {
		cfg.IndexName = "vidbrief"
	}
	if len(cfg.ModelOptions) == 0 {
		cfg.ModelOptions = []string{"visual", "audio"}
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	if !cfg.EnablePegasus && !cfg.EnableMarengo {
		cfg.EnablePegasus = true
	}
	return &TwelveLabs{api: api, cfg: cfg, now: time.Now, indexID: cfg.IndexID}
}

// Name implements Adapter
func (*TwelveLabs) Name() domain.ProviderName { return domain.ProviderTwelveLabs }

// Warm implements Warmer
func (t *TwelveLabs) Warm(ctx context.Context) error {
	_, err := t.ensureIndex(ctx)
	return err
}

// ensureIndex uses the configured id, else finds the index by name, else creates it
func (t *TwelveLabs) ensureIndex(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indexID != "" {
		return t.indexID, nil
	}
	ix, ok, err := t.api.FindIndex(ctx, t.cfg.IndexName)
	if err != nil {
		return "", err
	}
	if !ok {
		var models []twelvelabs.IndexModel
		if t.cfg.EnablePegasus {
			models = append(models, twelvelabs.IndexModel{Name: twelvelabs.ModelPegasus, Options: t.cfg.ModelOptions})
		}
		if t.cfg.EnableMarengo {
			models = append(models, twelvelabs.IndexModel{Name: twelvelabs.ModelMarengo, Options: t.cfg.ModelOptions})
		}
		if ix, err = t.api.CreateIndex(ctx, t.cfg.IndexName, models); err != nil {
			return "", err
		}
		logger.C(ctx).Info().Str("index", ix.ID).Str("name", t.cfg.IndexName).Msg("twelvelabs index created")
	}
	if ix.ID == "" {
		return "", perr.Internalf("twelvelabs returned an index without id")
	}
	t.indexID = ix.ID
	return ix.ID, nil
}

// Submit implements Adapter
func (t *TwelveLabs) Submit(ctx context.Context, src domain.ResolvedSource, opts domain.SubmitOptions) (domain.ProviderJob, error) {
	idx, err := t.ensureIndex(ctx)
	if err != nil {
		return domain.ProviderJob{}, perr.WithOp(err, "submit")
	}
	if len(opts.Metadata) > 0 {
		logger.C(ctx).Debug().Interface("metadata", opts.Metadata).Msg("ingest metadata")
	}
	var task twelvelabs.Task
	if src.IsLocalUpload {
		if src.Local == nil {
			return domain.ProviderJob{}, perr.WithOp(perr.Internalf("local source without payload"), "submit")
		}
		task, err = t.api.CreateTaskFile(ctx, idx, src.Local.Path)
	} else {
		task, err = t.api.CreateTaskURL(ctx, idx, src.SourceURL)
	}
	if err != nil {
		return domain.ProviderJob{}, perr.WithOp(err, "submit")
	}
	if task.ID == "" {
		return domain.ProviderJob{}, perr.WithOp(perr.Internalf("twelvelabs returned a task without id"), "submit")
	}
	return domain.ProviderJob{
		ID:          task.ID,
		Provider:    domain.ProviderTwelveLabs,
		SubmittedAt: t.now(),
		State:       domain.JobSubmitted,
		VideoID:     task.VideoID,
		Group:       idx,
	}, nil
}

// Poll implements Adapter
func (t *TwelveLabs) Poll(ctx context.Context, job domain.ProviderJob) (domain.ProviderJob, error) {
	task, err := t.api.GetTask(ctx, job.ID)
	if err != nil {
		return job, err
	}
	if task.VideoID != "" {
		job.VideoID = task.VideoID
	}
	switch task.Status {
	case twelvelabs.StatusReady:
		job.State = domain.JobReady
		if job.VideoID == "" {
			break
		}
		idx := job.Group
		if idx == "" {
			if idx, err = t.ensureIndex(ctx); err != nil {
				return job, err
			}
		}
		visible, err := t.api.VideoVisible(ctx, idx, job.VideoID)
		if err != nil {
			return job, err
		}
		if !visible {
			logger.C(ctx).Debug().Str("video_id", job.VideoID).Msg("task ready, video not yet served by index")
			job.State = domain.JobProcessing
		}
	case twelvelabs.StatusFailed:
		job.State, job.Reason = domain.JobFailed, "indexing task failed"
	default:
		job.State = domain.JobProcessing
	}
	return job, nil
}

// FetchResult implements Adapter
func (t *TwelveLabs) FetchResult(ctx context.Context, job domain.ProviderJob, op domain.Operation, opts domain.ResultOptions) (domain.RawResult, error) {
	if job.VideoID == "" {
		return domain.RawResult{}, perr.WithOp(perr.JobFailedf("twelvelabs job %s has no video id", job.ID), "fetch")
	}
	switch op {
	case domain.OpSummarize:
		raw, err := t.api.Summarize(ctx, job.VideoID, opts.Prompt)
		if err != nil {
			return domain.RawResult{}, perr.WithOp(err, "fetch")
		}
		return domain.RawResult{TraceID: traceID(raw), Text: ExtractSummary(raw), Body: raw}, nil
	case domain.OpAnalyze:
		temp := t.cfg.Temperature
		if opts.Temperature != nil {
			temp = *opts.Temperature
		}
		maxTokens := opts.MaxTokens
		if maxTokens <= 0 {
			maxTokens = t.cfg.MaxTokens
		}
		raw, err := t.api.Analyze(ctx, twelvelabs.AnalyzeRequest{
			VideoID:     job.VideoID,
			Prompt:      opts.Prompt,
			Schema:      opts.Schema,
			Temperature: temp,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return domain.RawResult{}, perr.WithOp(err, "fetch")
		}
		return domain.RawResult{TraceID: traceID(raw), Text: ExtractData(raw), Body: raw}, nil
	}
	return domain.RawResult{}, perr.WithOp(perr.InvalidRequestf("unsupported operation %q", op), "fetch")
}
