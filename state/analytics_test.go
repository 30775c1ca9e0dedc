package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpulse/core"
)

func TestAnalyticsRates(t *testing.T) {
	m := New()

	st := core.NewAgentState()
	st.ExecutionCount, st.SuccessCount, st.ErrorCount = 4, 3, 1
	st.AverageExecutionTime = 50 * time.Millisecond
	st.LastError = "timeout"
	m.Save("a1", st, "", "")

	a, ok := m.Analytics("a1")
	require.True(t, ok)
	assert.InDelta(t, 0.75, a.SuccessRate, 1e-9)
	assert.InDelta(t, 0.25, a.ErrorRate, 1e-9)
	assert.Equal(t, 200*time.Millisecond, a.TotalExecutionTime)
	assert.Equal(t, 50*time.Millisecond, a.AverageExecutionTime)
	assert.Equal(t, "timeout", a.MostCommonError)
}

func TestAnalyticsMostCommonError(t *testing.T) {
	m := New()

	st := core.NewAgentState()
	for i, msg := range []string{"timeout", "refused", "timeout"} {
		st.ExecutionCount = i + 1
		st.ErrorCount = i + 1
		st.LastError = msg
		m.Save("a1", st, "", "")
	}

	a, ok := m.Analytics("a1")
	require.True(t, ok)
	assert.Equal(t, "timeout", a.MostCommonError)
}

func TestAnalyticsTrend(t *testing.T) {
	m := New()

	st := core.NewAgentState()
	st.ExecutionCount = 1
	st.AverageExecutionTime = 100 * time.Millisecond
	m.Save("a1", st, "", "")

	a, _ := m.Analytics("a1")
	assert.Equal(t, TrendStable, a.Trend, "first snapshot has nothing to compare against")

	st.ExecutionCount = 2
	st.AverageExecutionTime = 150 * time.Millisecond
	m.Save("a1", st, "", "")
	a, _ = m.Analytics("a1")
	assert.Equal(t, TrendIncreasing, a.Trend)

	st.ExecutionCount = 3
	st.AverageExecutionTime = 80 * time.Millisecond
	m.Save("a1", st, "", "")
	a, _ = m.Analytics("a1")
	assert.Equal(t, TrendDecreasing, a.Trend)

	st.ExecutionCount = 4
	st.AverageExecutionTime = 82 * time.Millisecond
	m.Save("a1", st, "", "")
	a, _ = m.Analytics("a1")
	assert.Equal(t, TrendStable, a.Trend)
}

func TestAnalyticsDailyBuckets(t *testing.T) {
	m := New()

	st := core.NewAgentState()
	st.ExecutionCount, st.SuccessCount = 2, 2
	m.Save("a1", st, "", "")

	st.ExecutionCount, st.SuccessCount, st.ErrorCount = 5, 4, 1
	st.LastError = "boom"
	m.Save("a1", st, "", "")

	a, ok := m.Analytics("a1")
	require.True(t, ok)

	today := int(time.Now().UTC().Weekday())
	assert.Equal(t, 5, a.Daily[today].Executions)
	assert.Equal(t, 4, a.Daily[today].Successes)
	assert.Equal(t, 1, a.Daily[today].Errors)

	total := 0
	for _, d := range a.Daily {
		total += d.Executions
	}
	assert.Equal(t, 5, total, "only today's bucket is populated")
}

func TestHealthClassification(t *testing.T) {
	m := New()

	// No history at all.
	report := m.Health("missing")
	assert.Equal(t, HealthWarning, report.Level)

	// Healthy agent.
	st := core.NewAgentState()
	st.ExecutionCount, st.SuccessCount = 20, 19
	st.ErrorCount = 1
	st.AverageExecutionTime = 100 * time.Millisecond
	m.Save("ok", st, "", "")
	report = m.Health("ok")
	assert.Equal(t, HealthHealthy, report.Level)
	assert.Empty(t, report.Issues)

	// Never executed.
	m.Save("lazy", core.NewAgentState(), "", "")
	report = m.Health("lazy")
	assert.Equal(t, HealthWarning, report.Level)

	// Low success rate with enough executions is critical.
	bad := core.NewAgentState()
	bad.ExecutionCount, bad.SuccessCount, bad.ErrorCount = 20, 5, 15
	m.Save("failing", bad, "", "")
	report = m.Health("failing")
	assert.Equal(t, HealthCritical, report.Level)

	// Slow average execution is a warning.
	slow := core.NewAgentState()
	slow.ExecutionCount, slow.SuccessCount = 5, 5
	slow.AverageExecutionTime = 15 * time.Second
	m.Save("slow", slow, "", "")
	report = m.Health("slow")
	assert.Equal(t, HealthWarning, report.Level)
	require.Len(t, report.Issues, 1)
	assert.NotEmpty(t, report.Issues[0].Recommendation)
}
