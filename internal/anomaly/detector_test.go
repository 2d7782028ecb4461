package anomaly

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhinav-TB/Build-Trace/internal/metrics"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func baseTime() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

// snapshotAt builds a snapshot whose staleness clock is pinned to now.
func freshSnapshot(now time.Time) metrics.Snapshot {
	return metrics.Snapshot{
		LastEndedAt: now.Add(-time.Minute),
		HourlyStats: map[string]metrics.HourlyBucket{},
		ErrorCounts: map[string]int{},
	}
}

func TestFailureRate_Triggers(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	snap := freshSnapshot(now)
	snap.Succeeded = 8
	snap.Failed = 2 // 20% of 10

	warnings := d.Evaluate(snap)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "High failure rate")
	assert.Contains(t, warnings[0], "2 of 10")
	assert.Contains(t, warnings[0], "20.0%")
}

func TestFailureRate_BelowSampleMinimum(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	// 1 of 4 failing is 25%, but under the 5-job minimum.
	snap := freshSnapshot(now)
	snap.Succeeded = 3
	snap.Failed = 1

	assert.Empty(t, d.Evaluate(snap))
}

func TestFailureRate_AtThresholdDoesNotTrigger(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	snap := freshSnapshot(now)
	snap.Succeeded = 9
	snap.Failed = 1 // exactly 10%

	assert.Empty(t, d.Evaluate(snap))
}

func TestChangeSpike_Triggers(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	snap := freshSnapshot(now)
	snap.HourlyStats = map[string]metrics.HourlyBucket{
		"2026-03-14 08:00": {Added: 3, Removed: 1, Moved: 1}, // 5
		"2026-03-14 09:00": {Added: 4, Removed: 2, Moved: 1}, // 7
		"2026-03-14 10:00": {Added: 2, Removed: 2, Moved: 1}, // 5
		"2026-03-14 11:00": {Added: 60, Removed: 10, Moved: 5}, // 75 > max(10*5, 40)
	}

	warnings := d.Evaluate(snap)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Change volume spike")
	assert.Contains(t, warnings[0], "2026-03-14 11:00")
}

func TestChangeSpike_FloorOf40(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	// Median baseline 1 gives 10*1=10, but the floor keeps quiet
	// pipelines from flagging small absolute volumes.
	snap := freshSnapshot(now)
	snap.HourlyStats = map[string]metrics.HourlyBucket{
		"2026-03-14 09:00": {Added: 1},
		"2026-03-14 10:00": {Added: 1},
		"2026-03-14 11:00": {Added: 35},
	}
	assert.Empty(t, d.Evaluate(snap))

	snap.HourlyStats["2026-03-14 11:00"] = metrics.HourlyBucket{Added: 41}
	warnings := d.Evaluate(snap)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Change volume spike")
}

func TestChangeSpike_TwoBucketsUseBothForBaseline(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	// With two buckets the latest participates in its own baseline:
	// median(5, 500) = 252.5, threshold 2525, so 500 does not spike.
	snap := freshSnapshot(now)
	snap.HourlyStats = map[string]metrics.HourlyBucket{
		"2026-03-14 10:00": {Added: 5},
		"2026-03-14 11:00": {Added: 500},
	}
	assert.Empty(t, d.Evaluate(snap))
}

func TestChangeSpike_RequiresTwoBuckets(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	snap := freshSnapshot(now)
	snap.HourlyStats = map[string]metrics.HourlyBucket{
		"2026-03-14 11:00": {Added: 10000},
	}
	assert.Empty(t, d.Evaluate(snap))
}

func TestMissingData_Triggers(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	snap := freshSnapshot(now)
	snap.Succeeded = 90
	snap.Failed = 10
	snap.ErrorCounts[metrics.ErrMissingData] = 6 // 6% of 100

	warnings := d.Evaluate(snap)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Missing input data")
}

func TestMissingData_UnderThreshold(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	snap := freshSnapshot(now)
	snap.Succeeded = 95
	snap.Failed = 5
	snap.ErrorCounts[metrics.ErrMissingData] = 5 // exactly 5%

	assert.Empty(t, d.Evaluate(snap))
}

func TestStaleness_Triggers(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	snap := freshSnapshot(now)
	snap.Succeeded = 1
	snap.LastEndedAt = now.Add(-3 * time.Hour)

	warnings := d.Evaluate(snap)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Stale pipeline")
	assert.Contains(t, warnings[0], "3.0 hours")
}

func TestStaleness_NoHistoryNoWarning(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	snap := metrics.Snapshot{ErrorCounts: map[string]int{}}
	assert.Empty(t, d.Evaluate(snap))
}

func TestEvaluate_MultipleIndependentRules(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	snap := freshSnapshot(now)
	snap.Succeeded = 5
	snap.Failed = 5
	snap.SuccessRate = 0.5
	snap.ErrorCounts[metrics.ErrMissingData] = 3
	snap.LastEndedAt = now.Add(-2 * time.Hour)

	warnings := d.Evaluate(snap)
	assert.Len(t, warnings, 3, "failure rate, missing data, and staleness should all fire")
}

func TestHealth(t *testing.T) {
	now := baseTime()
	d := NewDetectorWithClock(fixedClock(now))

	healthy := freshSnapshot(now)
	healthy.Succeeded = 10
	healthy.SuccessRate = 1.0
	assert.Equal(t, StatusHealthy, d.Health(healthy, nil))

	// A failure-rate warning alone does not reach warning status; the
	// success-rate floor decides degraded instead.
	failing := freshSnapshot(now)
	failing.Succeeded = 8
	failing.Failed = 2
	failing.SuccessRate = 0.8
	warnings := d.Evaluate(failing)
	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0], "High failure rate"))
	assert.Equal(t, StatusHealthy, d.Health(failing, warnings))

	stale := freshSnapshot(now)
	stale.Succeeded = 10
	stale.SuccessRate = 1.0
	stale.LastEndedAt = now.Add(-2 * time.Hour)
	warnings = d.Evaluate(stale)
	assert.Equal(t, StatusWarning, d.Health(stale, warnings))

	degraded := freshSnapshot(now)
	degraded.Succeeded = 2
	degraded.Failed = 8
	degraded.SuccessRate = 0.2
	assert.Equal(t, StatusDegraded, d.Health(degraded, d.Evaluate(degraded)))
}
