package state

import (
	"fmt"
	"time"
)

// HealthLevel classifies an agent's operational well-being.
type HealthLevel string

const (
	// HealthHealthy means no issues were detected.
	HealthHealthy HealthLevel = "healthy"
	// HealthWarning means non-fatal issues deserve attention.
	HealthWarning HealthLevel = "warning"
	// HealthCritical means the agent is effectively not doing useful work.
	HealthCritical HealthLevel = "critical"
)

// Thresholds for the rule-based health classification.
const (
	highErrorCount      = 10
	lowSuccessRate      = 0.5
	lowSuccessRateMinEx = 10
	slowAverageExec     = 10 * time.Second
)

// HealthIssue pairs one detected problem with a recommendation.
type HealthIssue struct {
	Severity       HealthLevel `json:"severity"`
	Description    string      `json:"description"`
	Recommendation string      `json:"recommendation"`
}

// HealthReport is the result of a health check for one agent.
type HealthReport struct {
	AgentID string        `json:"agent_id"`
	Level   HealthLevel   `json:"level"`
	Issues  []HealthIssue `json:"issues,omitempty"`
}

// Health classifies the agent from its most recent snapshot. An agent with
// no history is reported as warning (never executed, never transitioned).
func (m *Manager) Health(agentID string) HealthReport {
	report := HealthReport{AgentID: agentID, Level: HealthHealthy}

	m.mu.RLock()
	hist := m.history[agentID]
	if len(hist) == 0 {
		m.mu.RUnlock()
		report.Level = HealthWarning
		report.Issues = append(report.Issues, HealthIssue{
			Severity:       HealthWarning,
			Description:    "no state history recorded",
			Recommendation: "verify the agent is registered and started",
		})
		return report
	}
	st := hist[len(hist)-1].State.Clone()
	m.mu.RUnlock()

	if st.ExecutionCount == 0 {
		report.Issues = append(report.Issues, HealthIssue{
			Severity:       HealthWarning,
			Description:    "agent has never executed",
			Recommendation: "check trigger configuration and that the agent is started",
		})
	}

	if st.ErrorCount > highErrorCount {
		report.Issues = append(report.Issues, HealthIssue{
			Severity:       HealthWarning,
			Description:    fmt.Sprintf("high error count (%d)", st.ErrorCount),
			Recommendation: "inspect recent errors via the agent's last error and event stream",
		})
	}

	if st.ExecutionCount > lowSuccessRateMinEx {
		rate := float64(st.SuccessCount) / float64(st.ExecutionCount)
		if rate < lowSuccessRate {
			report.Issues = append(report.Issues, HealthIssue{
				Severity:       HealthCritical,
				Description:    fmt.Sprintf("success rate %.0f%% over %d executions", rate*100, st.ExecutionCount),
				Recommendation: "review the agent's configuration or pause it until the failure cause is fixed",
			})
		}
	}

	if st.AverageExecutionTime > slowAverageExec {
		report.Issues = append(report.Issues, HealthIssue{
			Severity:       HealthWarning,
			Description:    fmt.Sprintf("average execution time %s exceeds %s", st.AverageExecutionTime, slowAverageExec),
			Recommendation: "profile the agent's Execute path or raise its execution budget",
		})
	}

	for _, issue := range report.Issues {
		if issue.Severity == HealthCritical {
			report.Level = HealthCritical
			return report
		}
	}
	if len(report.Issues) > 0 {
		report.Level = HealthWarning
	}
	return report
}
