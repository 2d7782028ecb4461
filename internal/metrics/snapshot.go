package metrics

import (
	"sort"
	"time"
)

// LatencyStats summarizes successful-job latencies in seconds.
// Percentiles are nearest-rank (sorted value at index floor(n*q)),
// not interpolated. All zero when no latencies were recorded.
type LatencyStats struct {
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// ChangeTotals rolls up change volume across all time.
type ChangeTotals struct {
	Added      int     `json:"added"`
	Removed    int     `json:"removed"`
	Moved      int     `json:"moved"`
	Total      int     `json:"total"`
	AddedPct   float64 `json:"added_pct"`
	RemovedPct float64 `json:"removed_pct"`
	MovedPct   float64 `json:"moved_pct"`
	MeanPerJob float64 `json:"mean_per_successful_job"`
}

// Snapshot is an immutable point-in-time view of the aggregator.
type Snapshot struct {
	TotalJobs      int                     `json:"total_jobs"`
	Succeeded      int                     `json:"succeeded"`
	Failed         int                     `json:"failed"`
	Running        int                     `json:"running"`
	ActiveRequests int                     `json:"active_requests"`
	SuccessRate    float64                 `json:"success_rate"`
	Latency        LatencyStats            `json:"latency_seconds"`
	HourlyStats    map[string]HourlyBucket `json:"hourly_stats"`
	ErrorCount     int                     `json:"error_count"`
	ErrorCounts    map[string]int          `json:"errors"`
	RecentErrors   []ErrorEvent            `json:"recent_errors"`
	Changes        ChangeTotals            `json:"change_totals"`
	LastEndedAt    time.Time               `json:"last_ended_at,omitempty"`
	TakenAt        time.Time               `json:"taken_at"`
}

// Completed returns the number of jobs in a terminal state.
func (s Snapshot) Completed() int {
	return s.Succeeded + s.Failed
}

// Snapshot copies the aggregator state under the lock and derives the
// summary statistics. The critical section is brief: sorting the
// latency copy happens after release.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()

	snap := Snapshot{
		TotalJobs:      len(a.jobs),
		ActiveRequests: a.active,
		HourlyStats:    make(map[string]HourlyBucket, len(a.hourly)),
		ErrorCounts:    make(map[string]int, len(a.errorCounts)),
		LastEndedAt:    a.lastEndedAt,
		TakenAt:        a.now(),
	}

	for _, rec := range a.jobs {
		switch rec.State {
		case JobSucceeded:
			snap.Succeeded++
		case JobFailed:
			snap.Failed++
		case JobRunning:
			snap.Running++
		}
	}

	for key, bucket := range a.hourly {
		snap.HourlyStats[key] = *bucket
	}
	for kind, count := range a.errorCounts {
		snap.ErrorCounts[kind] = count
		snap.ErrorCount += count
	}

	start := len(a.errorLog) - recentErrorLimit
	if start < 0 {
		start = 0
	}
	snap.RecentErrors = append([]ErrorEvent(nil), a.errorLog[start:]...)

	latencies := append([]float64(nil), a.latencies...)

	snap.Changes = ChangeTotals{
		Added:   a.totalAdded,
		Removed: a.totalRemoved,
		Moved:   a.totalMoved,
		Total:   a.totalAdded + a.totalRemoved + a.totalMoved,
	}

	a.mu.Unlock()

	if snap.TotalJobs > 0 {
		snap.SuccessRate = float64(snap.Succeeded) / float64(snap.TotalJobs)
	}
	if snap.Changes.Total > 0 {
		total := float64(snap.Changes.Total)
		snap.Changes.AddedPct = float64(snap.Changes.Added) / total * 100
		snap.Changes.RemovedPct = float64(snap.Changes.Removed) / total * 100
		snap.Changes.MovedPct = float64(snap.Changes.Moved) / total * 100
	}
	if snap.Succeeded > 0 {
		snap.Changes.MeanPerJob = float64(snap.Changes.Total) / float64(snap.Succeeded)
	}
	snap.Latency = computeLatencyStats(latencies)

	return snap
}

func computeLatencyStats(latencies []float64) LatencyStats {
	if len(latencies) == 0 {
		return LatencyStats{}
	}

	sort.Float64s(latencies)

	var sum float64
	for _, l := range latencies {
		sum += l
	}

	return LatencyStats{
		P50:  nearestRank(latencies, 0.50),
		P95:  nearestRank(latencies, 0.95),
		P99:  nearestRank(latencies, 0.99),
		Min:  latencies[0],
		Max:  latencies[len(latencies)-1],
		Mean: sum / float64(len(latencies)),
	}
}

// nearestRank indexes the sorted slice at floor(n*q).
func nearestRank(sorted []float64, q float64) float64 {
	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
