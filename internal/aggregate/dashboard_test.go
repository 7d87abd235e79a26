package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sac-service/internal/domain"
)

func TestPeriodWindow(t *testing.T) {
	tests := []struct {
		period Period
		from   time.Time
	}{
		{PeriodToday, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
		{PeriodWeek, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		{PeriodMonth, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			from, to := tt.period.Window(now)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, now, to)
		})
	}

	sunday := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	from, _ := PeriodWeek.Window(sunday)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), from)
}

func TestPeriodContains(t *testing.T) {
	assert.True(t, PeriodToday.Contains(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, PeriodToday.Contains(time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC), now))
	assert.False(t, PeriodToday.Contains(now.Add(time.Minute), now))
	assert.True(t, PeriodWeek.Contains(time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC), now))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodToday, p)

	p, err = ParsePeriod("MONTH")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, p)

	_, err = ParsePeriod("year")
	assert.Error(t, err)
}

func TestStatusDistribution(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		dist := StatusDistribution(nil)
		require.Len(t, dist, 6)
		for _, share := range dist {
			assert.Zero(t, share.Count)
			assert.Zero(t, share.Percent)
		}
	})

	t.Run("thirds sum to one hundred", func(t *testing.T) {
		cases := []domain.Case{
			newCase("SAC-1", domain.CaseStatusNew, 0, catSlow),
			newCase("SAC-2", domain.CaseStatusInProgress, 0, catSlow),
			newCase("SAC-3", domain.CaseStatusClosed, 0, catSlow),
		}
		dist := StatusDistribution(cases)
		require.Len(t, dist, 6)
		assert.Equal(t, string(domain.CaseStatusNew), dist[0].Key)

		tenths := 0
		for _, share := range dist {
			tenths += int(share.Percent*10 + 0.5)
		}
		assert.Equal(t, 1000, tenths)
		assert.Equal(t, 33.4, dist[0].Percent)
		assert.Equal(t, 33.3, dist[1].Percent)
		assert.Equal(t, 33.3, dist[5].Percent)
	})

	t.Run("sevenths", func(t *testing.T) {
		var cases []domain.Case
		statuses := []domain.CaseStatus{
			domain.CaseStatusNew, domain.CaseStatusNew, domain.CaseStatusInProgress,
			domain.CaseStatusPendingClient, domain.CaseStatusEscalated, domain.CaseStatusResolved, domain.CaseStatusClosed,
		}
		for i, s := range statuses {
			cases = append(cases, newCase(string(rune('A'+i)), s, 0, catSlow))
		}
		tenths := 0
		for _, share := range StatusDistribution(cases) {
			tenths += int(share.Percent*10 + 0.5)
		}
		assert.Equal(t, 1000, tenths)
	})
}

func TestCategoryDistribution_GroupsUnknown(t *testing.T) {
	orphan := newCase("SAC-3", domain.CaseStatusNew, 0, catSlow)
	orphan.CategoryID = "gone"
	cases := []domain.Case{
		newCase("SAC-1", domain.CaseStatusNew, 0, catFast),
		newCase("SAC-2", domain.CaseStatusNew, 0, catFast),
		orphan,
		newCase("SAC-4", domain.CaseStatusNew, 0, catSlow),
	}

	dist := CategoryDistribution(cases, []domain.Category{catFast, catSlow})
	require.Len(t, dist, 3)
	assert.Equal(t, Share{Key: "fast", Label: "Reclamo", Count: 2, Percent: 50}, dist[0])
	assert.Equal(t, Share{Key: "slow", Label: "Consulta", Count: 1, Percent: 25}, dist[1])
	assert.Equal(t, Share{Key: UncategorizedKey, Label: domain.UncategorizedName, Count: 1, Percent: 25}, dist[2])
}

func TestCategoryDistribution_KeysByID(t *testing.T) {
	twin := domain.Category{ID: "twin", Name: "Reclamo", SLADays: 2, Active: true}
	literal := domain.Category{ID: "literal", Name: domain.UncategorizedName, SLADays: 2, Active: true}
	orphan := newCase("SAC-4", domain.CaseStatusNew, 0, catFast)
	orphan.CategoryID = "gone"
	cases := []domain.Case{
		newCase("SAC-1", domain.CaseStatusNew, 0, catFast),
		newCase("SAC-2", domain.CaseStatusNew, 0, twin),
		newCase("SAC-3", domain.CaseStatusNew, 0, literal),
		orphan,
	}

	dist := CategoryDistribution(cases, []domain.Category{catFast, twin, literal, catFast})
	require.Len(t, dist, 4)
	total, tenths := 0, 0
	for _, share := range dist {
		assert.Equal(t, 1, share.Count, share.Key)
		total += share.Count
		tenths += int(share.Percent*10 + 0.5)
	}
	assert.Equal(t, len(cases), total)
	assert.Equal(t, 1000, tenths)
	assert.Equal(t, "twin", dist[1].Key)
	assert.Equal(t, UncategorizedKey, dist[3].Key)
}

func TestStatusDistribution_BucketsUnknownStatus(t *testing.T) {
	odd := newCase("SAC-2", domain.CaseStatusNew, 0, catFast)
	odd.Status = domain.CaseStatus("Abierto")
	cases := []domain.Case{newCase("SAC-1", domain.CaseStatusNew, 0, catFast), odd}

	dist := StatusDistribution(cases)
	require.Len(t, dist, len(domain.AllCaseStatuses())+1)
	last := dist[len(dist)-1]
	assert.Equal(t, UnknownStatusKey, last.Key)
	assert.Equal(t, 1, last.Count)
	assert.Equal(t, 50.0, last.Percent)
	assert.Equal(t, 50.0, dist[0].Percent)
}

func dashboardFixture() ([]domain.Case, []domain.Agent) {
	agents := []domain.Agent{
		{ID: "ag-1", Name: "Ana", Status: domain.AgentStatusActive},
	}
	cases := []domain.Case{
		newCase("SAC-1", domain.CaseStatusNew, 0, catSlow, withAgent("ag-1", "Ana")),
		newCase("SAC-2", domain.CaseStatusEscalated, 0, catSlow),
		newCase("SAC-3", domain.CaseStatusResolved, 1, catSlow, withAgent("ag-1", "Ana")),
		newCase("SAC-4", domain.CaseStatusInProgress, 8, catFast, withAgent("ag-1", "Ana")),
		newCase("SAC-5", domain.CaseStatusClosed, 30, catSlow),
	}
	return cases, agents
}

func TestSupervisor(t *testing.T) {
	cases, agents := dashboardFixture()

	today := Supervisor(cases, agents, PeriodToday, now)
	assert.Equal(t, 2, today.Total)
	assert.Equal(t, 2, today.Open)
	assert.Equal(t, 1, today.Escalated)
	assert.Equal(t, 1, today.Unassigned)
	assert.Equal(t, 1, today.Alerts)
	assert.Equal(t, 100, today.Compliance)
	require.Len(t, today.Agents, 1)
	assert.Equal(t, 1, today.Agents[0].TotalCases)

	week := Supervisor(cases, agents, PeriodWeek, now)
	assert.Equal(t, 3, week.Total)
	assert.Equal(t, 1, week.Resolved)

	month := Supervisor(cases, agents, PeriodMonth, now)
	assert.Equal(t, 4, month.Total)
	assert.Equal(t, 1, month.Expired)
	assert.Equal(t, 75, month.Compliance)
	assert.Equal(t, 2, month.Alerts)
}

func TestManager(t *testing.T) {
	cases, _ := dashboardFixture()

	view := Manager(cases, []domain.Category{catFast, catSlow}, PeriodMonth, now)
	assert.Equal(t, 4, view.Total)
	assert.Equal(t, 25.0, view.ResolutionRate)
	require.Len(t, view.ByCategory, 2)
	assert.Equal(t, Share{Key: "fast", Label: "Reclamo", Count: 1, Percent: 25}, view.ByCategory[0])
	assert.Equal(t, Share{Key: "slow", Label: "Consulta", Count: 3, Percent: 75}, view.ByCategory[1])

	empty := Manager(nil, nil, PeriodToday, now)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.ResolutionRate)
	assert.Equal(t, 100, empty.Compliance)
	assert.Empty(t, empty.ByCategory)
}
