package metrics

import (
	"sync"
	"time"

	"github.com/abhinav-TB/Build-Trace/internal/logger"
	"github.com/abhinav-TB/Build-Trace/pkg/types"
)

// recentErrorLimit caps how many error events a snapshot carries.
const recentErrorLimit = 50

// Aggregator owns all job, error, and change-volume state for the
// detection pipeline. It is constructed once at startup and passed to
// every caller; a single mutex serializes all mutation so snapshots
// observe a consistent point-in-time view.
//
// All state is in-memory and lost on restart. That is an accepted
// limitation, not a bug.
type Aggregator struct {
	mu  sync.Mutex
	now func() time.Time
	log logger.Logger

	jobs        map[string]*JobRecord
	latencies   []float64 // successful completions only
	errorLog    []ErrorEvent
	errorCounts map[string]int
	hourly      map[string]*HourlyBucket
	active      int

	totalAdded   int
	totalRemoved int
	totalMoved   int
	lastEndedAt  time.Time
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithClock injects a time source. Tests use it to place completions
// in specific hourly buckets.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

// WithAggregatorLogger sets the diagnostic logger.
func WithAggregatorLogger(l logger.Logger) AggregatorOption {
	return func(a *Aggregator) { a.log = l }
}

// New creates an empty Aggregator.
func New(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		now:         time.Now,
		log:         logger.NewNop(),
		jobs:        make(map[string]*JobRecord),
		errorCounts: make(map[string]int),
		hourly:      make(map[string]*HourlyBucket),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MarkStart records that a job began running. Re-marking a job that is
// already running is a no-op apart from refreshing nothing: the active
// counter must not double-count redelivered start signals.
func (a *Aggregator) MarkStart(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rec, ok := a.jobs[jobID]; ok && rec.State == JobRunning {
		return
	}
	a.jobs[jobID] = &JobRecord{
		JobID:     jobID,
		State:     JobRunning,
		StartedAt: a.now(),
	}
	a.active++
}

// MarkEnd records a job's terminal outcome without change statistics.
func (a *Aggregator) MarkEnd(jobID string, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.markEndLocked(jobID, ok, nil)
}

// MarkEndWithChanges records a terminal outcome and, on success, feeds
// the job's change statistics into the hourly bucket for its
// completion hour and the all-time totals.
func (a *Aggregator) MarkEndWithChanges(jobID string, ok bool, stats types.DiffStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.markEndLocked(jobID, ok, &stats)
}

func (a *Aggregator) markEndLocked(jobID string, ok bool, stats *types.DiffStats) {
	ended := a.now()
	state := JobFailed
	if ok {
		state = JobSucceeded
	}

	rec, exists := a.jobs[jobID]
	if !exists {
		// End-mark without a start-mark: the transport delivered out of
		// order. Synthesize a minimal terminal record with no latency.
		a.log.WithField("job_id", jobID).Debug("end-mark for unknown job, synthesizing record")
		rec = &JobRecord{JobID: jobID}
		a.jobs[jobID] = rec
	}

	wasRunning := rec.State == JobRunning
	if wasRunning && a.active > 0 {
		a.active--
	}

	rec.State = state
	rec.EndedAt = ended
	if !rec.StartedAt.IsZero() {
		rec.LatencySeconds = ended.Sub(rec.StartedAt).Seconds()
		// Aggregate latency only on the first transition to a terminal
		// state; a redelivered end-mark overwrites the record but must
		// not double-count in the percentile population.
		if ok && wasRunning {
			a.latencies = append(a.latencies, rec.LatencySeconds)
		}
	}

	a.lastEndedAt = ended
	if ok && stats != nil {
		a.recordChangesLocked(stats.AddedCount, stats.RemovedCount, stats.MovedCount, ended)
	}
}

// MarkError records a caller-classified error against a job.
func (a *Aggregator) MarkError(jobID, kind string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorLog = append(a.errorLog, ErrorEvent{
		JobID:     jobID,
		Timestamp: a.now(),
		Kind:      kind,
	})
	a.errorCounts[kind]++
}

// RecordChanges accumulates change volume into the current hour's
// bucket for callers that complete jobs elsewhere.
func (a *Aggregator) RecordChanges(added, removed, moved int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recordChangesLocked(added, removed, moved, a.now())
}

func (a *Aggregator) recordChangesLocked(added, removed, moved int, at time.Time) {
	key := BucketKey(at)
	bucket, ok := a.hourly[key]
	if !ok {
		bucket = &HourlyBucket{}
		a.hourly[key] = bucket
	}
	bucket.Added += added
	bucket.Removed += removed
	bucket.Moved += moved
	bucket.JobCount++

	a.totalAdded += added
	a.totalRemoved += removed
	a.totalMoved += moved
}

// ActiveRequests returns the current saturating active-job counter.
func (a *Aggregator) ActiveRequests() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}
