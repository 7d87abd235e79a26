package aggregate

import (
	"time"

	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/sla"
)

// PeriodSummary holds the counters shared by the supervisor and manager views.
type PeriodSummary struct {
	Period     Period    `json:"period"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Total      int       `json:"total"`
	Open       int       `json:"open"`
	Resolved   int       `json:"resolved"`
	Escalated  int       `json:"escalated"`
	Expired    int       `json:"sla_expired"`
	Compliance int       `json:"sla_compliance"`
	ByStatus   []Share   `json:"by_status"`
}

// SupervisorView is the supervisor panel.
type SupervisorView struct {
	PeriodSummary
	Unassigned int           `json:"unassigned"`
	Alerts     int           `json:"alerts"`
	Agents     []AgentRollup `json:"agents"`
}

// ManagerView is the manager dashboard.
type ManagerView struct {
	PeriodSummary
	ResolutionRate float64 `json:"resolution_rate"`
	ByCategory     []Share `json:"by_category"`
}

// InPeriod returns the cases created inside the period window, preserving order.
func InPeriod(cases []domain.Case, period Period, now time.Time) []domain.Case {
	out := make([]domain.Case, 0, len(cases))
	for _, c := range cases {
		if period.Contains(c.CreatedAt, now) {
			out = append(out, c)
		}
	}
	return out
}

// Summarize computes period counters over the cases created in the window.
func Summarize(cases []domain.Case, period Period, now time.Time) (PeriodSummary, []sla.Classified) {
	scoped := InPeriod(cases, period, now)
	classified := sla.ClassifyAll(scoped, now)
	from, to := period.Window(now)

	summary := PeriodSummary{Period: period, From: from, To: to, Total: len(scoped)}
	for _, item := range classified {
		if item.Case.Status.IsOpen() {
			summary.Open++
		} else {
			summary.Resolved++
		}
		if item.Case.Status == domain.CaseStatusEscalated {
			summary.Escalated++
		}
		if item.Classification.SLAExpired {
			summary.Expired++
		}
	}
	summary.Compliance = Compliance(summary.Total-summary.Expired, summary.Total)
	summary.ByStatus = StatusDistribution(scoped)
	return summary, classified
}

// Supervisor builds the supervisor panel for the period.
func Supervisor(cases []domain.Case, agents []domain.Agent, period Period, now time.Time) SupervisorView {
	summary, classified := Summarize(cases, period, now)
	view := SupervisorView{PeriodSummary: summary, Agents: AgentRollups(classified, agents)}
	for _, item := range classified {
		if !item.Case.Assigned() {
			view.Unassigned++
		}
		if IsAlert(item) {
			view.Alerts++
		}
	}
	return view
}

// Manager builds the manager dashboard for the period.
func Manager(cases []domain.Case, categories []domain.Category, period Period, now time.Time) ManagerView {
	summary, _ := Summarize(cases, period, now)
	return ManagerView{
		PeriodSummary:  summary,
		ResolutionRate: percentOf(summary.Resolved, summary.Total),
		ByCategory:     CategoryDistribution(InPeriod(cases, period, now), categories),
	}
}
