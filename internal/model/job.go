package model

import "time"

// JobState is the client-side lifecycle state of a scrape job.
type JobState string

const (
	JobStateIdle      JobState = "idle"
	JobStateUploading JobState = "uploading"
	JobStateScraping  JobState = "scraping"
	JobStateSuccess   JobState = "success"
	JobStateError     JobState = "error"
)

// Terminal reports whether no further polling happens in this state.
func (s JobState) Terminal() bool {
	return s == JobStateSuccess || s == JobStateError
}

// Busy reports whether a job is in flight. New submissions are refused
// while busy.
func (s JobState) Busy() bool {
	return s == JobStateUploading || s == JobStateScraping
}

// Progress counts processed OEM codes. Current <= Total is expected but
// not enforced.
type Progress struct {
	Current int `json:"current" yaml:"current"`
	Total   int `json:"total" yaml:"total"`
}

// Percent returns Current/Total as a percentage. ok is false when Total is
// zero, in which case no progress indicator should be shown.
func (p Progress) Percent() (pct float64, ok bool) {
	if p.Total <= 0 {
		return 0, false
	}
	return float64(p.Current) / float64(p.Total) * 100, true
}

// Snapshot is a point-in-time copy of a job client's state.
type Snapshot struct {
	State     JobState  `json:"state" yaml:"state"`
	JobID     string    `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Progress  Progress  `json:"progress" yaml:"progress"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// ShowProgress reports whether a progress ratio should be rendered.
func (s Snapshot) ShowProgress() bool {
	return s.State == JobStateScraping && s.Progress.Total > 0
}
