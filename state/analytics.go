package state

import (
	"time"

	"github.com/hupe1980/agentpulse/core"
)

// Trend labels the direction of an agent's execution-time development.
type Trend string

const (
	// TrendIncreasing means executions are getting slower.
	TrendIncreasing Trend = "increasing"
	// TrendDecreasing means executions are getting faster.
	TrendDecreasing Trend = "decreasing"
	// TrendStable means no significant movement between recent snapshots.
	TrendStable Trend = "stable"
)

// trendThreshold is the relative change between the two most recent
// snapshots' average execution time below which the trend counts as stable.
const trendThreshold = 0.10

// DayStats aggregates execution outcomes for one weekday bucket.
type DayStats struct {
	Executions int `json:"executions"`
	Successes  int `json:"successes"`
	Errors     int `json:"errors"`
}

// Analytics is the derived, per-agent rolling view recomputed on each
// snapshot save.
type Analytics struct {
	TotalExecutionTime   time.Duration `json:"total_execution_time"`
	AverageExecutionTime time.Duration `json:"average_execution_time"`
	SuccessRate          float64       `json:"success_rate"`
	ErrorRate            float64       `json:"error_rate"`
	MostCommonError      string        `json:"most_common_error,omitempty"`
	BusiestHour          int           `json:"busiest_hour"`
	Trend                Trend         `json:"trend"`
	// Daily buckets executions by weekday, indexed by time.Weekday.
	Daily [7]DayStats `json:"daily"`
}

// accumulator keeps the incremental counters behind an agent's Analytics so
// each save is O(1) instead of a rescan of the full history.
type accumulator struct {
	analytics   Analytics
	hourCounts  [24]int
	errorCounts map[string]int
	prevAverage time.Duration
	hasPrev     bool
}

func newAccumulator() *accumulator {
	return &accumulator{
		analytics:   Analytics{Trend: TrendStable},
		errorCounts: make(map[string]int),
	}
}

// observe folds one new snapshot into the accumulator. prev is the snapshot
// saved before it, if any; deltas between the two attribute executions to the
// hour and weekday of the new snapshot's timestamp.
func (a *accumulator) observe(st core.AgentState, prev *core.AgentState, ts time.Time) {
	execDelta := st.ExecutionCount
	successDelta := st.SuccessCount
	errorDelta := st.ErrorCount
	if prev != nil {
		execDelta -= prev.ExecutionCount
		successDelta -= prev.SuccessCount
		errorDelta -= prev.ErrorCount
	}

	if execDelta > 0 {
		a.hourCounts[ts.Hour()] += execDelta
		day := &a.analytics.Daily[int(ts.Weekday())]
		day.Executions += execDelta
		day.Successes += successDelta
		day.Errors += errorDelta
	}
	if errorDelta > 0 && st.LastError != "" {
		a.errorCounts[st.LastError] += errorDelta
	}

	a.analytics.AverageExecutionTime = st.AverageExecutionTime
	a.analytics.TotalExecutionTime = time.Duration(int64(st.AverageExecutionTime) * int64(st.ExecutionCount))
	if st.ExecutionCount > 0 {
		a.analytics.SuccessRate = float64(st.SuccessCount) / float64(st.ExecutionCount)
		a.analytics.ErrorRate = float64(st.ErrorCount) / float64(st.ExecutionCount)
	}

	a.analytics.MostCommonError = mostCommon(a.errorCounts)
	a.analytics.BusiestHour = busiest(a.hourCounts)
	a.analytics.Trend = trendBetween(a.prevAverage, st.AverageExecutionTime, a.hasPrev)

	a.prevAverage = st.AverageExecutionTime
	a.hasPrev = true
}

func mostCommon(counts map[string]int) string {
	best, bestCount := "", 0
	for msg, n := range counts {
		if n > bestCount || (n == bestCount && msg < best) {
			best, bestCount = msg, n
		}
	}
	return best
}

func busiest(hours [24]int) int {
	best := 0
	for h, n := range hours {
		if n > hours[best] {
			best = h
		}
	}
	return best
}

// trendBetween compares the two most recent snapshots' average execution
// time. Movement within trendThreshold either way counts as stable.
func trendBetween(prev, cur time.Duration, hasPrev bool) Trend {
	if !hasPrev || prev == 0 {
		return TrendStable
	}
	change := (float64(cur) - float64(prev)) / float64(prev)
	switch {
	case change > trendThreshold:
		return TrendIncreasing
	case change < -trendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
