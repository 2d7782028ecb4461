package metrics

import "time"

// JobState is the lifecycle state of a tracked detection job.
type JobState string

const (
	JobRunning   JobState = "running"
	JobSucceeded JobState = "success"
	JobFailed    JobState = "failed"
)

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// JobRecord tracks one detection job from start-mark to end-mark.
// Records are never deleted; they accumulate for the process lifetime.
type JobRecord struct {
	JobID          string    `json:"job_id"`
	State          JobState  `json:"state"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	EndedAt        time.Time `json:"ended_at,omitempty"`
	LatencySeconds float64   `json:"latency_seconds,omitempty"`
}

// ErrorEvent is one caller-classified error occurrence.
type ErrorEvent struct {
	JobID     string    `json:"job_id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
}

// Well-known error kinds. The set is open; callers may record others.
const (
	ErrMissingData = "missing_data"
	ErrValidation  = "validation_error"
	ErrProcessing  = "processing_error"
)

// HourlyBucket accumulates change volume for one wall-clock hour.
type HourlyBucket struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Moved    int `json:"moved"`
	JobCount int `json:"job_count"`
}

// TotalChanges is the bucket's combined change count.
func (b HourlyBucket) TotalChanges() int {
	return b.Added + b.Removed + b.Moved
}

// BucketKeyFormat truncates a completion time to its hour.
const BucketKeyFormat = "2006-01-02 15:00"

// BucketKey returns the hourly bucket key for t.
func BucketKey(t time.Time) string {
	return t.Format(BucketKeyFormat)
}
