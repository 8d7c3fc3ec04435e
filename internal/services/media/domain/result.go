package domain

import (
	"encoding/json"
	"time"
)

// CacheEntry is a stored payload. Entries are replaced whole, never edited
type CacheEntry struct {
	Fingerprint Fingerprint     `json:"fingerprint"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	TTL         time.Duration   `json:"ttl"`
}

// Expired reports whether the entry outlived its TTL. Zero TTL never expires
func (e CacheEntry) Expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) >= e.TTL
}

// ResultMeta holds the volatile facts about a run; none of it feeds a fingerprint
type ResultMeta struct {
	Provider      ProviderName  `json:"provider"`
	Brand         string        `json:"brand,omitempty"`
	VideoID       string        `json:"video_id"`
	Group         string        `json:"group,omitempty"`
	SourceURL     string        `json:"source_url,omitempty"`
	ResolveMethod ResolveMethod `json:"resolve_method,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	ElapsedMS     int64         `json:"elapsed_ms"`
	SchemaVersion string        `json:"schema_version,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
	Cached        bool          `json:"cached"`
}

// SummaryResult is the summarize envelope
type SummaryResult struct {
	VideoID string          `json:"video_id"`
	Summary string          `json:"summary"`
	Raw     json.RawMessage `json:"raw,omitempty"`
	Meta    ResultMeta      `json:"meta"`
}

// AnalysisResult is the analyze envelope. Errors lists non fatal parse issues
type AnalysisResult struct {
	VideoID string          `json:"video_id"`
	Data    BrandAnalysis   `json:"data"`
	Errors  []AnalysisIssue `json:"errors"`
	Raw     json.RawMessage `json:"raw,omitempty"`
	Meta    ResultMeta      `json:"meta"`
}

// AnalysisIssue codes
const (
	IssueParse      = "parse_error"
	IssueValidation = "validation_error"
	IssueMissing    = "missing_data"
)

// AnalysisIssue is a non fatal problem with the provider output
type AnalysisIssue struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// RawResult is what an adapter hands back from fetch
type RawResult struct {
	// TraceID is the provider's id for the generation call
	TraceID string
	// Text is the main textual output: summary prose or the analysis json
	Text string
	Body json.RawMessage
}

// Timestamps bound a segment of the video
type Timestamps struct {
	Start string `json:"start" jsonschema:"description=Start time HH:MM:SS"`
	End   string `json:"end" jsonschema:"description=End time HH:MM:SS"`
}

// Chapter is one segment of the video
type Chapter struct {
	ID         string     `json:"id" jsonschema:"description=Chapter id like ch_001"`
	Title      string     `json:"title"`
	Summary    string     `json:"summary"`
	Timestamps Timestamps `json:"timestamps"`
}

// BrandMention is one appearance of the target brand
type BrandMention struct {
	ID          string     `json:"id" jsonschema:"description=Mention id like bm_001"`
	MentionType string     `json:"mention_type" jsonschema:"enum=sponsor_segment,enum=on_screen_element,enum=verbal_mention,enum=product_visual,enum=product_demo,enum=comparison_section,enum=call_to_action,enum=affiliate_disclosure,enum=giveaway_or_promo,enum=end_screen"`
	Subtype     string     `json:"subtype,omitempty" jsonschema:"enum=brand_name_text,enum=logo,enum=website,enum=qr_code,enum=coupon_code,enum=lower_third,enum=banner_overlay,enum=card_overlay,enum=watermark,description=Subtype for on_screen_element"`
	Description string     `json:"description" jsonschema:"description=What is said or shown about the brand"`
	ChapterID   string     `json:"chapter_id,omitempty"`
	Timestamps  Timestamps `json:"timestamps"`
	Placement   string     `json:"placement,omitempty" jsonschema:"description=Visual placement for on-screen elements"`
	Text        string     `json:"text,omitempty" jsonschema:"description=Overlay or OCR text"`
	SpokenQuote string     `json:"spoken_quote,omitempty"`
	Confidence  float64    `json:"confidence" jsonschema:"minimum=0,maximum=1"`
}

// BrandAnalysis is the structured analyze output
type BrandAnalysis struct {
	Summary       string         `json:"summary"`
	Hashtags      []string       `json:"hashtags"`
	Topics        []string       `json:"topics"`
	Chapters      []Chapter      `json:"chapters"`
	BrandMentions []BrandMention `json:"brand_mentions"`
}

// EmptyBrandAnalysis keeps the envelope stable when parsing fails
func EmptyBrandAnalysis() BrandAnalysis {
	return BrandAnalysis{Hashtags: []string{}, Topics: []string{}, Chapters: []Chapter{}, BrandMentions: []BrandMention{}}
}
