package domain

// Options are the refinements shared by summarize and analyze
type Options struct {
	Style    string `json:"style,omitempty" validate:"omitempty,max=2000"`
	Language string `json:"language,omitempty" validate:"omitempty,max=64"`
	// AllowDownload overrides the configured default when set
	AllowDownload *bool  `json:"allow_download,omitempty"`
	Provider      string `json:"provider,omitempty" validate:"omitempty,media_provider"`
}

// SummarizeRequest asks for a prose summary
type SummarizeRequest struct {
	Media
	Options
}

// Bounds of the analyze generation knobs
const (
	MaxTemperature = 1.0
	MaxTokensLimit = 4096
)

// AnalyzeRequest asks for a brand analysis
type AnalyzeRequest struct {
	Media
	Options
	Brand string `json:"brand" validate:"required,max=200"`

	// Temperature and MaxTokens override the provider defaults when set
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxTokens   int      `json:"max_tokens,omitempty" validate:"omitempty,gte=1,lte=4096"`

	// Metadata travels with the ingest call and is not part of the cache key
	Metadata map[string]any `json:"metadata,omitempty" validate:"omitempty,max=32"`
}

// SubmitOptions shape an ingest call
type SubmitOptions struct {
	Operation Operation
	// Label names the upload on the provider side
	Label     string
	Metadata  map[string]any
}

// ResultOptions shape a fetch call. A nil Temperature or zero MaxTokens
// leaves the provider default
type ResultOptions struct {
	Prompt      string
	Schema      []byte
	Temperature *float64
	MaxTokens   int
}
