package domain

import "time"

// ProviderName identifies a provider variant
type ProviderName string

// Known providers
const (
	ProviderTwelveLabs ProviderName = "twelvelabs"
	ProviderCloudglue  ProviderName = "cloudglue"
)

// JobState is the provider job lifecycle
type JobState string

// Job states; ready and failed are terminal
const (
	JobSubmitted  JobState = "submitted"
	JobProcessing JobState = "processing"
	JobReady      JobState = "ready"
	JobFailed     JobState = "failed"
)

// Terminal reports whether no further transitions happen
func (s JobState) Terminal() bool { return s == JobReady || s == JobFailed }

// ProviderJob is the handle returned by submit and advanced by the poller
type ProviderJob struct {
	ID          string       `json:"id"`
	Provider    ProviderName `json:"provider"`
	SubmittedAt time.Time    `json:"submitted_at"`
	State       JobState     `json:"state"`
	// VideoID is the provider side video id once known
	VideoID string `json:"video_id,omitempty"`
	// Reason explains a failed state
	Reason string `json:"reason,omitempty"`
	// Group is the index or collection the job belongs to
	Group string `json:"group,omitempty"`
	Polls int    `json:"polls,omitempty"`
}

// Terminal reports whether the job is done
func (j ProviderJob) Terminal() bool { return j.State.Terminal() }
