package aggregate

import (
	"math"
	"time"

	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/sla"
)

// AgentRollup summarizes one agent's workload and SLA compliance.
type AgentRollup struct {
	AgentID       string             `json:"agent_id"`
	AgentName     string             `json:"agent_name"`
	Status        domain.AgentStatus `json:"status"`
	TotalCases    int                `json:"total_cases"`
	ActiveCases   int                `json:"active_cases"`
	CriticalCases int                `json:"critical_cases"`
	ExpiredCases  int                `json:"expired_cases"`
	Compliance    int                `json:"sla_compliance"`
}

// AlertsResult is the alert list plus its counters.
type AlertsResult struct {
	Items      []sla.Classified `json:"items"`
	Expired    int              `json:"expired"`
	Escalated  int              `json:"escalated"`
	NearBreach int              `json:"near_breach"`
	Agents     []AgentRollup    `json:"agents"`
}

// IsAlert reports whether a classified case belongs on the alerts screen.
func IsAlert(item sla.Classified) bool {
	return item.Classification.SLAExpired ||
		item.Case.Status == domain.CaseStatusEscalated ||
		item.Classification.NearBreach
}

// Alerts selects expired, escalated and near-breach cases, most urgent first.
func Alerts(cases []domain.Case, agents []domain.Agent, now time.Time) AlertsResult {
	classified := sla.ClassifyAll(cases, now)

	var result AlertsResult
	for _, item := range classified {
		if !IsAlert(item) {
			continue
		}
		result.Items = append(result.Items, item)
		if item.Classification.SLAExpired {
			result.Expired++
		}
		if item.Case.Status == domain.CaseStatusEscalated {
			result.Escalated++
		}
		if item.Classification.NearBreach {
			result.NearBreach++
		}
	}
	sla.SortByPriority(result.Items)
	result.Agents = AgentRollups(classified, agents)
	return result
}

// AgentRollups computes per-agent counters in the order agents are given.
func AgentRollups(classified []sla.Classified, agents []domain.Agent) []AgentRollup {
	byAgent := make(map[string][]sla.Classified, len(agents))
	for _, item := range classified {
		if item.Case.AgentID == "" {
			continue
		}
		byAgent[item.Case.AgentID] = append(byAgent[item.Case.AgentID], item)
	}

	out := make([]AgentRollup, 0, len(agents))
	for _, agent := range agents {
		rollup := AgentRollup{AgentID: agent.ID, AgentName: agent.Name, Status: agent.Status}
		for _, item := range byAgent[agent.ID] {
			rollup.TotalCases++
			if item.Case.Status.IsOpen() {
				rollup.ActiveCases++
			}
			if item.Classification.Priority == sla.PriorityCritical {
				rollup.CriticalCases++
			}
			if item.Classification.SLAExpired {
				rollup.ExpiredCases++
			}
		}
		rollup.Compliance = Compliance(rollup.TotalCases-rollup.ExpiredCases, rollup.TotalCases)
		out = append(out, rollup)
	}
	return out
}

// Compliance returns round(onTime/total*100), or 100 when total is zero.
func Compliance(onTime, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(onTime) / float64(total) * 100))
}

// ActiveCaseCounts counts open cases per agent id.
func ActiveCaseCounts(cases []domain.Case) map[string]int {
	counts := make(map[string]int)
	for _, c := range cases {
		if c.AgentID != "" && c.Status.IsOpen() {
			counts[c.AgentID]++
		}
	}
	return counts
}
