package anomaly

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/abhinav-TB/Build-Trace/internal/metrics"
)

// Status is the derived health of the detection pipeline.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusDegraded Status = "degraded"
)

// Warning message prefixes. Health derivation distinguishes the
// failure-rate rule from the rest by prefix.
const (
	failureRatePrefix = "High failure rate"
	spikePrefix       = "Change volume spike"
	missingDataPrefix = "Missing input data"
	stalenessPrefix   = "Stale pipeline"
)

// Rule thresholds.
const (
	failureRateMinJobs   = 5
	failureRateThreshold = 0.10
	missingDataThreshold = 0.05
	spikeMultiplier      = 10.0
	spikeFloor           = 40.0
)

// Detector evaluates fixed heuristics against a metrics snapshot. It
// never mutates aggregator state; all findings are advisory strings.
type Detector struct {
	now func() time.Time
}

// NewDetector creates a Detector with the real clock.
func NewDetector() *Detector {
	return &Detector{now: time.Now}
}

// NewDetectorWithClock creates a Detector with an injected clock.
func NewDetectorWithClock(now func() time.Time) *Detector {
	return &Detector{now: now}
}

// Evaluate runs every rule independently and returns all triggered
// warnings. An empty slice means no anomalies.
func (d *Detector) Evaluate(snap metrics.Snapshot) []string {
	warnings := []string{}

	if w, ok := d.failureRate(snap); ok {
		warnings = append(warnings, w)
	}
	if w, ok := d.changeSpike(snap); ok {
		warnings = append(warnings, w)
	}
	if w, ok := d.missingData(snap); ok {
		warnings = append(warnings, w)
	}
	if w, ok := d.staleness(snap); ok {
		warnings = append(warnings, w)
	}

	return warnings
}

// Health derives the overall status from a snapshot and its warnings:
// degraded when the success rate is below half, warning when any
// non-failure-rate anomaly fired, healthy otherwise.
func (d *Detector) Health(snap metrics.Snapshot, warnings []string) Status {
	if snap.Completed() > 0 && snap.SuccessRate < 0.5 {
		return StatusDegraded
	}
	for _, w := range warnings {
		if !strings.HasPrefix(w, failureRatePrefix) {
			return StatusWarning
		}
	}
	return StatusHealthy
}

func (d *Detector) failureRate(snap metrics.Snapshot) (string, bool) {
	completed := snap.Completed()
	if completed < failureRateMinJobs {
		return "", false
	}
	rate := float64(snap.Failed) / float64(completed)
	if rate <= failureRateThreshold {
		return "", false
	}
	return fmt.Sprintf("%s: %d of %d jobs failed (%.1f%%)",
		failureRatePrefix, snap.Failed, completed, rate*100), true
}

func (d *Detector) changeSpike(snap metrics.Snapshot) (string, bool) {
	if len(snap.HourlyStats) < 2 {
		return "", false
	}

	// Bucket keys are "YYYY-MM-DD HH:00", so lexicographic order is
	// chronological order.
	keys := make([]string, 0, len(snap.HourlyStats))
	for key := range snap.HourlyStats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	latestKey := keys[len(keys)-1]
	latestTotal := snap.HourlyStats[latestKey].TotalChanges()

	// Baseline is the median of every bucket before the latest one.
	// With exactly two buckets there is no history to speak of, so
	// both participate in the baseline.
	baselineKeys := keys[:len(keys)-1]
	if len(keys) == 2 {
		baselineKeys = keys
	}
	totals := make([]float64, len(baselineKeys))
	for i, key := range baselineKeys {
		totals[i] = float64(snap.HourlyStats[key].TotalChanges())
	}
	baseline := median(totals)

	threshold := spikeMultiplier * baseline
	if threshold < spikeFloor {
		threshold = spikeFloor
	}
	if float64(latestTotal) <= threshold {
		return "", false
	}
	return fmt.Sprintf("%s: %d changes in hour %s exceeds threshold %.0f (baseline median %.0f)",
		spikePrefix, latestTotal, latestKey, threshold, baseline), true
}

func (d *Detector) missingData(snap metrics.Snapshot) (string, bool) {
	count := snap.ErrorCounts[metrics.ErrMissingData]
	if count == 0 {
		return "", false
	}
	completed := snap.Completed()
	if float64(count) <= missingDataThreshold*float64(completed) {
		return "", false
	}
	return fmt.Sprintf("%s: %d missing_data errors across %d completed jobs",
		missingDataPrefix, count, completed), true
}

func (d *Detector) staleness(snap metrics.Snapshot) (string, bool) {
	if snap.LastEndedAt.IsZero() {
		return "", false
	}
	gap := d.now().Sub(snap.LastEndedAt)
	if gap <= time.Hour {
		return "", false
	}
	return fmt.Sprintf("%s: no job has completed in %.1f hours",
		stalenessPrefix, gap.Hours()), true
}

// median of a non-empty slice; the mean of the two middle values when
// the length is even.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
