package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/sla"
)

// Tuesday.
var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

var (
	catFast = domain.Category{ID: "fast", Name: "Reclamo", SLADays: 2, Active: true}
	catSlow = domain.Category{ID: "slow", Name: "Consulta", SLADays: 5, Active: true}
)

type caseOpt func(*domain.Case)

func withAgent(id, name string) caseOpt {
	return func(c *domain.Case) { c.AgentID, c.AgentName = id, name }
}

func withClient(name, subject string) caseOpt {
	return func(c *domain.Case) { c.ClientName, c.Subject = name, subject }
}

func newCase(id string, status domain.CaseStatus, daysAgo int, cat domain.Category, opts ...caseOpt) domain.Case {
	category := cat
	c := domain.Case{
		ID:         id,
		Status:     status,
		CategoryID: cat.ID,
		Category:   &category,
		ClientName: "Cliente " + id,
		Subject:    "Asunto " + id,
		CreatedAt:  now.Add(-time.Duration(daysAgo) * 24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func ids(items []sla.Classified) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Case.ID)
	}
	return out
}

func TestInbox_EscalatedBeforeInProgressAtSameAge(t *testing.T) {
	cases := []domain.Case{
		newCase("SAC-B", domain.CaseStatusInProgress, 3, catSlow),
		newCase("SAC-A", domain.CaseStatusEscalated, 3, catSlow),
	}

	result := Inbox(cases, InboxQuery{}, now)
	assert.Equal(t, []string{"SAC-A", "SAC-B"}, ids(result.Items))
	assert.Equal(t, sla.PriorityCritical, result.Items[0].Classification.Priority)
}

func TestInbox_PriorityOrdering(t *testing.T) {
	cases := []domain.Case{
		newCase("SAC-1", domain.CaseStatusNew, 1, catSlow),
		newCase("SAC-2", domain.CaseStatusNew, 4, catFast),
		newCase("SAC-3", domain.CaseStatusEscalated, 0, catSlow),
		newCase("SAC-4", domain.CaseStatusNew, 3, catSlow),
	}

	desc := Inbox(cases, InboxQuery{Sort: SortPriority, Direction: Desc}, now)
	assert.Equal(t, []string{"SAC-3", "SAC-2", "SAC-4", "SAC-1"}, ids(desc.Items))

	asc := Inbox(cases, InboxQuery{Sort: SortPriority, Direction: Asc}, now)
	assert.Equal(t, []string{"SAC-1", "SAC-4", "SAC-2", "SAC-3"}, ids(asc.Items))
}

func TestInbox_SearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	cases := []domain.Case{
		newCase("SAC-AAA", domain.CaseStatusNew, 0, catSlow, withClient("Maria Lopez", "Factura duplicada")),
		newCase("SAC-BBB", domain.CaseStatusNew, 0, catSlow, withClient("Pedro", "Cambio de plan")),
		newCase("SAC-CCC", domain.CaseStatusNew, 0, catSlow, withClient("Ana", "Consulta de MARIA")),
	}

	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{name: "by client", search: "maría lopez", want: []string{}},
		{name: "by client ascii", search: "MARIA", want: []string{"SAC-AAA", "SAC-CCC"}},
		{name: "by id", search: "sac-bbb", want: []string{"SAC-BBB"}},
		{name: "by subject", search: "plan", want: []string{"SAC-BBB"}},
		{name: "blank", search: "  ", want: []string{"SAC-AAA", "SAC-BBB", "SAC-CCC"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Inbox(cases, InboxQuery{Search: tt.search, Sort: SortCreated, Direction: Asc}, now)
			assert.ElementsMatch(t, tt.want, ids(result.Items))
			assert.Equal(t, 3, result.Total)
			assert.Equal(t, len(tt.want), result.Matched)
		})
	}
}

func TestInbox_QuickFilterOverridesStatus(t *testing.T) {
	cases := []domain.Case{
		newCase("SAC-1", domain.CaseStatusNew, 0, catSlow),
		newCase("SAC-2", domain.CaseStatusEscalated, 1, catSlow),
		newCase("SAC-3", domain.CaseStatusInProgress, 6, catSlow),
		newCase("SAC-4", domain.CaseStatusNew, 9, catFast),
	}

	tests := []struct {
		name  string
		query InboxQuery
		want  []string
	}{
		{name: "status only", query: InboxQuery{Status: domain.CaseStatusNew}, want: []string{"SAC-1", "SAC-4"}},
		{name: "escalated wins over status", query: InboxQuery{Status: domain.CaseStatusNew, Quick: QuickEscalated}, want: []string{"SAC-2"}},
		{name: "overdue", query: InboxQuery{Quick: QuickOverdue}, want: []string{"SAC-3", "SAC-4"}},
		{name: "new", query: InboxQuery{Quick: QuickNew}, want: []string{"SAC-1", "SAC-4"}},
		{name: "all keeps status", query: InboxQuery{Quick: QuickAll, Status: domain.CaseStatusInProgress}, want: []string{"SAC-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Inbox(cases, tt.query, now)
			assert.ElementsMatch(t, tt.want, ids(result.Items))
		})
	}
}

func TestInbox_SortKeys(t *testing.T) {
	cases := []domain.Case{
		newCase("SAC-1", domain.CaseStatusResolved, 2, catSlow, withClient("carla", "x"), withAgent("ag-2", "Zoe")),
		newCase("SAC-2", domain.CaseStatusNew, 1, catSlow, withClient("Bruno", "x")),
		newCase("SAC-3", domain.CaseStatusEscalated, 3, catSlow, withClient("alba", "x"), withAgent("ag-1", "Ana")),
	}

	assert.Equal(t, []string{"SAC-2", "SAC-3", "SAC-1"}, ids(Inbox(cases, InboxQuery{Sort: SortStatus, Direction: Asc}, now).Items))
	assert.Equal(t, []string{"SAC-3", "SAC-2", "SAC-1"}, ids(Inbox(cases, InboxQuery{Sort: SortClient, Direction: Asc}, now).Items))
	assert.Equal(t, []string{"SAC-2", "SAC-1", "SAC-3"}, ids(Inbox(cases, InboxQuery{Sort: SortCreated, Direction: Desc}, now).Items))
	// "Sin asignar" sorts between Ana and Zoe.
	assert.Equal(t, []string{"SAC-3", "SAC-2", "SAC-1"}, ids(Inbox(cases, InboxQuery{Sort: SortAgent, Direction: Asc}, now).Items))
}

func TestInbox_DoesNotMutateInput(t *testing.T) {
	cases := []domain.Case{
		newCase("SAC-1", domain.CaseStatusNew, 0, catSlow),
		newCase("SAC-2", domain.CaseStatusEscalated, 1, catSlow),
	}
	Inbox(cases, InboxQuery{}, now)
	assert.Equal(t, "SAC-1", cases[0].ID)
}

func TestParseControls(t *testing.T) {
	q, err := ParseQuickFilter("")
	require.NoError(t, err)
	assert.Equal(t, QuickAll, q)

	_, err = ParseQuickFilter("stale")
	assert.Error(t, err)

	k, err := ParseSortKey("Client")
	require.NoError(t, err)
	assert.Equal(t, SortClient, k)

	_, err = ParseSortKey("sla")
	assert.Error(t, err)

	d, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestAlerts_SelectsExpiredEscalatedAndNearBreach(t *testing.T) {
	cases := []domain.Case{
		newCase("SAC-OK", domain.CaseStatusNew, 0, catSlow),
		newCase("SAC-EXP", domain.CaseStatusNew, 3, catFast),
		newCase("SAC-ESC", domain.CaseStatusEscalated, 0, catSlow),
		newCase("SAC-NEAR", domain.CaseStatusInProgress, 4, catSlow),
	}

	result := Alerts(cases, nil, now)
	assert.Equal(t, []string{"SAC-ESC", "SAC-NEAR", "SAC-EXP"}, ids(result.Items))
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 1, result.Escalated)
	assert.Equal(t, 1, result.NearBreach)
	assert.Empty(t, result.Agents)
}

func TestAgentRollups_Compliance(t *testing.T) {
	agents := []domain.Agent{
		{ID: "ag-1", Name: "Ana", Status: domain.AgentStatusActive},
		{ID: "ag-2", Name: "Luis", Status: domain.AgentStatusActive},
	}
	cases := []domain.Case{
		newCase("SAC-1", domain.CaseStatusInProgress, 0, catSlow, withAgent("ag-1", "Ana")),
		newCase("SAC-2", domain.CaseStatusResolved, 1, catSlow, withAgent("ag-1", "Ana")),
		newCase("SAC-3", domain.CaseStatusEscalated, 1, catSlow, withAgent("ag-1", "Ana")),
		newCase("SAC-4", domain.CaseStatusNew, 6, catSlow, withAgent("ag-1", "Ana")),
		newCase("SAC-5", domain.CaseStatusNew, 0, catSlow),
	}

	rollups := AgentRollups(sla.ClassifyAll(cases, now), agents)
	require.Len(t, rollups, 2)

	ana := rollups[0]
	assert.Equal(t, "ag-1", ana.AgentID)
	assert.Equal(t, 4, ana.TotalCases)
	assert.Equal(t, 3, ana.ActiveCases)
	assert.Equal(t, 1, ana.CriticalCases)
	assert.Equal(t, 1, ana.ExpiredCases)
	assert.Equal(t, 75, ana.Compliance)

	luis := rollups[1]
	assert.Equal(t, 0, luis.TotalCases)
	assert.Equal(t, 100, luis.Compliance)
}

func TestCompliance_Rounds(t *testing.T) {
	assert.Equal(t, 67, Compliance(2, 3))
	assert.Equal(t, 33, Compliance(1, 3))
	assert.Equal(t, 100, Compliance(0, 0))
}

func TestActiveCaseCounts(t *testing.T) {
	counts := ActiveCaseCounts([]domain.Case{
		newCase("SAC-1", domain.CaseStatusNew, 0, catSlow, withAgent("ag-1", "Ana")),
		newCase("SAC-2", domain.CaseStatusClosed, 0, catSlow, withAgent("ag-1", "Ana")),
		newCase("SAC-3", domain.CaseStatusPendingClient, 0, catSlow, withAgent("ag-2", "Luis")),
		newCase("SAC-4", domain.CaseStatusNew, 0, catSlow),
	})
	assert.Equal(t, map[string]int{"ag-1": 1, "ag-2": 1}, counts)
}

func TestParseInboxQuery(t *testing.T) {
	q, err := ParseInboxQuery("ana", "", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, InboxQuery{Search: "ana", Quick: QuickAll, Sort: SortPriority, Direction: Desc}, q)

	q, err = ParseInboxQuery("", "Escalado", "OVERDUE", "client", "asc")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusEscalated, q.Status)
	assert.Equal(t, QuickOverdue, q.Quick)
	assert.Equal(t, SortClient, q.Sort)
	assert.Equal(t, Asc, q.Direction)

	for _, bad := range [][5]string{
		{"", "Archivado", "", "", ""},
		{"", "", "urgent", "", ""},
		{"", "", "", "age", ""},
		{"", "", "", "", "up"},
	} {
		_, err := ParseInboxQuery(bad[0], bad[1], bad[2], bad[3], bad[4])
		assert.Error(t, err, bad)
	}
}
