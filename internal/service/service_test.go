package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sac-service/internal/config"
	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/events"
	"github.com/spec-kit/sac-service/internal/observability"
	"github.com/spec-kit/sac-service/internal/remotesync"
	"github.com/spec-kit/sac-service/internal/repository"
	"github.com/spec-kit/sac-service/internal/repository/memory"
	"github.com/spec-kit/sac-service/internal/testutil"
	apperrors "github.com/spec-kit/sac-service/pkg/util/errorutil"
)

var start = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu       sync.Mutex
	sent     []remotesync.Envelope
	err      error
	response remotesync.Response
}

func (f *fakeSender) Send(_ context.Context, env remotesync.Envelope) (remotesync.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeSender) actions() []remotesync.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remotesync.Action, 0, len(f.sent))
	for _, env := range f.sent {
		out = append(out, env.Action)
	}
	return out
}

type fixture struct {
	repos      repository.Repositories
	clock      *testutil.MockClock
	sender     *fakeSender
	syncer     *remotesync.Syncer
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
	agents     *AgentService
	cases      *CaseService
	dashboard  *DashboardService
	auth       *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		repos:      memory.New(),
		clock:      testutil.NewMockClock(start),
		sender:     &fakeSender{response: remotesync.Response{"token": "ext-token"}},
		metrics:    observability.NewMetrics(),
		dispatcher: events.NewInMemoryDispatcher(),
	}

	for _, cat := range []domain.Category{
		{ID: "cat-reclamo", Name: "Reclamo", SLADays: 3, Active: true},
		{ID: "cat-consulta", Name: "Consulta", SLADays: 5, Active: true},
		{ID: "cat-old", Name: "Antigua", SLADays: 2, Active: false},
	} {
		cat := cat
		require.NoError(t, f.repos.Categories.Create(ctx, &cat))
	}
	for _, ag := range []domain.Agent{
		{ID: "ag-1", Name: "Ana", Email: "ana@sac.local", Status: domain.AgentStatusActive, RoundRobinOrder: 1},
		{ID: "ag-2", Name: "Bruno", Email: "bruno@sac.local", Status: domain.AgentStatusActive, RoundRobinOrder: 2},
		{ID: "ag-3", Name: "Carla", Email: "carla@sac.local", Status: domain.AgentStatusVacation, RoundRobinOrder: 3},
	} {
		ag := ag
		require.NoError(t, f.repos.Agents.Create(ctx, &ag))
	}

	f.syncer = remotesync.NewSyncer(f.sender, nil, f.metrics, nil, time.Second)
	NewSyncService(f.dispatcher, f.syncer, nil).RegisterHandlers()

	f.agents = NewAgentService(AgentDependencies{AgentRepo: f.repos.Agents, CaseRepo: f.repos.Cases, Clock: f.clock})
	f.cases = NewCaseService(CaseDependencies{
		CaseRepo:     f.repos.Cases,
		CategoryRepo: f.repos.Categories,
		Agents:       f.agents,
		Dispatcher:   f.dispatcher,
		Clock:        f.clock,
	})
	f.dashboard = NewDashboardService(DashboardDependencies{
		Cases:        f.cases,
		Agents:       f.agents,
		CategoryRepo: f.repos.Categories,
		Clock:        f.clock,
		Location:     time.UTC,
	})
	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:               "test-secret",
		AccessTokenTTLMinutes:   60,
		PasswordResetTTLMinutes: 30,
		BcryptCost:              4,
	}}
	f.auth = NewAuthService(cfg, AuthDependencies{
		UserRepo:          f.repos.Users,
		PasswordResetRepo: f.repos.PasswordResets,
		Syncer:            f.syncer,
		Dispatcher:        f.dispatcher,
		Clock:             f.clock,
	})
	return f
}

func (f *fixture) create(t *testing.T, subject string) *domain.Case {
	t.Helper()
	c, err := f.cases.Create(context.Background(), "tester", CaseInput{
		Subject:    subject,
		ClientName: "Cliente " + subject,
		CategoryID: "cat-reclamo",
	})
	require.NoError(t, err)
	return c
}

func TestCaseService_Create(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "Cobro duplicado")

	assert.Regexp(t, regexp.MustCompile(`^SAC-[0-9A-F]{8}$`), c.ID)
	assert.Equal(t, domain.CaseStatusNew, c.Status)
	assert.Equal(t, start, c.CreatedAt)
	require.NotNil(t, c.Category)
	assert.Equal(t, "Reclamo", c.Category.Name)
	require.Len(t, c.History, 1)
	assert.Equal(t, "tester", c.History[0].Actor)
	assert.Equal(t, domain.CaseStatusNew, c.History[0].ToStatus)

	stored, err := f.cases.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, stored.ID)
	require.NotNil(t, stored.Category)
	assert.Equal(t, 3, stored.Category.SLADays)
}

func TestCaseService_CreateRoundRobin(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, "uno")
	second := f.create(t, "dos")
	third := f.create(t, "tres")

	assert.Equal(t, "ag-1", first.AgentID)
	assert.Equal(t, "Ana", first.AgentName)
	assert.Equal(t, "ag-2", second.AgentID)
	assert.Equal(t, "ag-1", third.AgentID, "agent on vacation is skipped")

	agents, err := f.agents.List(context.Background())
	require.NoError(t, err)
	counts := map[string]int{}
	for _, a := range agents {
		counts[a.ID] = a.ActiveCases
	}
	assert.Equal(t, map[string]int{"ag-1": 2, "ag-2": 1, "ag-3": 0}, counts)
}

func TestCaseService_CreateExplicitAgent(t *testing.T) {
	f := newFixture(t)
	c, err := f.cases.Create(context.Background(), "tester", CaseInput{
		Subject: "Consulta", ClientName: "Luis", CategoryID: "cat-consulta", AgentID: "ag-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bruno", c.AgentName)

	next, err := f.agents.NextAssignee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ag-1", next.ID, "explicit assignment does not rotate")
}

func TestCaseService_CreateUnassignedWithoutActiveAgents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repos.Agents.Delete(ctx, "ag-1"))
	require.NoError(t, f.repos.Agents.Delete(ctx, "ag-2"))

	c := f.create(t, "sin agente")
	assert.False(t, c.Assigned())
	assert.Equal(t, domain.UnassignedAgentName, c.DisplayAgentName())
}

func TestCaseService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]CaseInput{
		"missing subject":   {ClientName: "x", CategoryID: "cat-reclamo"},
		"missing client":    {Subject: "x", CategoryID: "cat-reclamo"},
		"unknown category":  {Subject: "x", ClientName: "y", CategoryID: "cat-nope"},
		"inactive category": {Subject: "x", ClientName: "y", CategoryID: "cat-old"},
		"unknown agent":     {Subject: "x", ClientName: "y", CategoryID: "cat-reclamo", AgentID: "ag-404"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.cases.Create(ctx, "tester", input)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), err.Error())
		})
	}

	n, err := f.repos.Cases.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCaseService_PatchStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, "estado")

	f.clock.Advance(time.Hour)
	updated, err := f.cases.PatchStatus(ctx, "sup", c.ID, domain.CaseStatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusInProgress, updated.Status)
	require.Len(t, updated.History, 2)
	last := updated.History[1]
	assert.Equal(t, domain.CaseStatusNew, last.FromStatus)
	assert.Equal(t, domain.CaseStatusInProgress, last.ToStatus)
	assert.Equal(t, "sup", last.Actor)
	assert.Equal(t, start.Add(time.Hour), last.At)
	assert.Equal(t, start, updated.CreatedAt)

	withNote, err := f.cases.PatchStatus(ctx, "sup", c.ID, domain.CaseStatusEscalated, "requiere gerencia")
	require.NoError(t, err)
	assert.Equal(t, "requiere gerencia", withNote.History[2].Detail)
}

func TestCaseService_PatchStatusRejectsTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, "cerrar")

	_, err := f.cases.PatchStatus(ctx, "sup", c.ID, domain.CaseStatusClosed, "")
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeInvalidTransition, de.Code)
	assert.Equal(t, 422, de.HTTPStatus)
	assert.Equal(t, []string{"En Proceso"}, de.Details["allowed"])

	stored, err := f.cases.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusNew, stored.Status)
	assert.Len(t, stored.History, 1)
}

func TestCaseService_PatchStatusErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, "errores")

	_, err := f.cases.PatchStatus(ctx, "sup", c.ID, domain.CaseStatus("Archivado"), "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.cases.PatchStatus(ctx, "sup", "SAC-00000000", domain.CaseStatusInProgress, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.cases.GetByID(ctx, "SAC-00000000")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCaseService_ForwardsMutationsToWebhook(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, "sync")
	_, err := f.cases.PatchStatus(context.Background(), "sup", c.ID, domain.CaseStatusInProgress, "")
	require.NoError(t, err)
	f.syncer.Wait()

	assert.ElementsMatch(t, []remotesync.Action{remotesync.ActionCaseCreate, remotesync.ActionCaseUpdate}, f.sender.actions())
	assert.Equal(t, int64(1), f.metrics.SyncCount(string(remotesync.ActionCaseUpdate), remotesync.ResultOK))
}

func TestCaseService_WebhookFailureKeepsLocalChange(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("connection refused")

	c := f.create(t, "offline")
	f.syncer.Wait()

	stored, err := f.cases.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, stored.ID)
	assert.Equal(t, int64(1), f.metrics.SyncCount(string(remotesync.ActionCaseCreate), remotesync.ResultFailed))
}

func TestAgentService_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.agents.Create(ctx, AgentInput{Name: "Diego", Email: "diego@sac.local"})
	require.NoError(t, err)
	assert.Equal(t, 4, created.RoundRobinOrder)
	assert.Equal(t, domain.AgentStatusActive, created.Status)

	order := 0
	updated, err := f.agents.Update(ctx, created.ID, AgentInput{Name: "Diego R", Email: "diego@sac.local", Status: domain.AgentStatusInactive, Order: &order})
	require.NoError(t, err)
	assert.Equal(t, "Diego R", updated.Name)
	assert.Equal(t, 0, updated.RoundRobinOrder)

	agents, err := f.agents.List(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 4)
	assert.Equal(t, created.ID, agents[0].ID)

	_, err = f.agents.Create(ctx, AgentInput{Name: "", Email: "bad"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	require.NoError(t, f.agents.Delete(ctx, created.ID))
	_, err = f.agents.Get(ctx, created.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.True(t, apperrors.HasCode(f.agents.Delete(ctx, created.ID), apperrors.CodeNotFound))
}

func TestAgentService_DeleteKeepsCaseAgentName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, "huérfano")
	require.NoError(t, f.agents.Delete(ctx, c.AgentID))

	stored, err := f.cases.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", stored.DisplayAgentName())
}

func TestDashboardService_Views(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, "viejo")
	f.clock.Advance(4 * 24 * time.Hour)
	second := f.create(t, "nuevo")

	inbox, err := f.dashboard.Inbox(ctx, aggregateQuery())
	require.NoError(t, err)
	require.Len(t, inbox.Items, 2)
	assert.Equal(t, first.ID, inbox.Items[0].Case.ID, "expired case ranks first")
	assert.Equal(t, second.ID, inbox.Items[1].Case.ID)

	alerts, err := f.dashboard.Alerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts.Items, 1)
	assert.Equal(t, first.ID, alerts.Items[0].Case.ID)
	assert.Equal(t, 1, alerts.Expired)

	snap, err := f.dashboard.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), snap.GeneratedAt)
	assert.Equal(t, 1, snap.Supervisor.Total, "only today's case")
	assert.Equal(t, 1, snap.Manager.Total)

	categories, err := f.dashboard.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "Antigua", categories[0].Name)
}

func (f *fixture) addUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := hashForTest(password)
	require.NoError(t, err)
	user := &domain.User{ID: "u-1", Name: "Ana", Email: "ana@sac.local", PasswordHash: hash, Role: domain.RoleAgent, AgentID: "ag-1"}
	require.NoError(t, f.repos.Users.Create(context.Background(), user))
	return user
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "agente123")

	result, err := f.auth.Login(ctx, "ANA@sac.local", "agente123")
	require.NoError(t, err)
	assert.Equal(t, "u-1", result.User.ID)
	assert.Equal(t, "ext-token", result.ExternalToken)
	assert.NotEmpty(t, result.Token)

	claims, err := f.auth.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, domain.RoleAgent, claims.Role)

	_, err = f.auth.Login(ctx, "ana@sac.local", "wrong-pass")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	_, err = f.auth.Login(ctx, "nadie@sac.local", "agente123")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestAuthService_LoginSurvivesWebhookFailure(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("timeout")
	f.addUser(t, "agente123")

	result, err := f.auth.Login(context.Background(), "ana@sac.local", "agente123")
	require.NoError(t, err)
	assert.Empty(t, result.ExternalToken)
}

func TestAuthService_PasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "agente123")

	none, err := f.auth.RequestPasswordReset(ctx, "nadie@sac.local")
	require.NoError(t, err)
	assert.Nil(t, none)

	token, err := f.auth.RequestPasswordReset(ctx, "ana@sac.local")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, start.Add(30*time.Minute), token.ExpiresAt)
	f.syncer.Wait()
	assert.Contains(t, f.sender.actions(), remotesync.ActionPasswordReset)

	err = f.auth.ConfirmPasswordReset(ctx, token.Token, "short")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	require.NoError(t, f.auth.ConfirmPasswordReset(ctx, token.Token, "nueva-clave"))
	_, err = f.auth.Login(ctx, "ana@sac.local", "nueva-clave")
	require.NoError(t, err)

	err = f.auth.ConfirmPasswordReset(ctx, token.Token, "otra-clave")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "token is single use")
}

func TestAuthService_PasswordResetExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "agente123")

	token, err := f.auth.RequestPasswordReset(ctx, "ana@sac.local")
	require.NoError(t, err)
	f.clock.Advance(31 * time.Minute)

	err = f.auth.ConfirmPasswordReset(ctx, token.Token, "nueva-clave")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	err = f.auth.ConfirmPasswordReset(ctx, "no-such-token", "nueva-clave")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "agente123")

	err := f.auth.ChangePassword(ctx, "u-1", "incorrecta", "nueva-clave")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	err = f.auth.ChangePassword(ctx, "u-1", "agente123", "corta")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	require.NoError(t, f.auth.ChangePassword(ctx, "u-1", "agente123", "nueva-clave"))
	_, err = f.auth.Login(ctx, "ana@sac.local", "nueva-clave")
	require.NoError(t, err)

	err = f.auth.ChangePassword(ctx, "u-404", "x", "nueva-clave")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

type flakyCases struct {
	repository.CaseRepository
	conflicts int
	err       error
}

func (r *flakyCases) Create(ctx context.Context, c *domain.Case) error {
	if r.err != nil {
		return r.err
	}
	if r.conflicts > 0 {
		r.conflicts--
		return repository.ErrConflict
	}
	return r.CaseRepository.Create(ctx, c)
}

func (f *fixture) caseServiceWith(repo repository.CaseRepository) *CaseService {
	return NewCaseService(CaseDependencies{
		CaseRepo:     repo,
		CategoryRepo: f.repos.Categories,
		Agents:       f.agents,
		Clock:        f.clock,
	})
}

var reclamo = CaseInput{Subject: "Cobro", ClientName: "Luis", CategoryID: "cat-reclamo"}

func TestCaseService_CreateDrawsNewIDWhenTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	svc := f.caseServiceWith(&flakyCases{CaseRepository: f.repos.Cases, conflicts: 2})
	c, err := svc.Create(ctx, "tester", reclamo)
	require.NoError(t, err)
	assert.Equal(t, "ag-1", c.AgentID)

	stored, err := f.repos.Cases.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 1)

	svc = f.caseServiceWith(&flakyCases{CaseRepository: f.repos.Cases, conflicts: caseIDAttempts})
	_, err = svc.Create(ctx, "tester", reclamo)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeConflict, de.Code)
	assert.Equal(t, 409, de.HTTPStatus)
}

func TestCaseService_FailedCreateKeepsRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	svc := f.caseServiceWith(&flakyCases{CaseRepository: f.repos.Cases, err: errors.New("disk full")})
	_, err := svc.Create(ctx, "tester", reclamo)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))

	agent, err := f.repos.Agents.GetByID(ctx, "ag-1")
	require.NoError(t, err)
	assert.Equal(t, 1, agent.RoundRobinOrder)

	c := f.create(t, "despues")
	assert.Equal(t, "ag-1", c.AgentID, "failed create does not consume the turn")
}

func TestCaseService_ConcurrentStatusChangesKeepHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, "concurrente")
	_, err := f.cases.PatchStatus(ctx, "sup", c.ID, domain.CaseStatusInProgress, "")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		target := domain.CaseStatusEscalated
		if i%2 == 1 {
			target = domain.CaseStatusInProgress
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.cases.PatchStatus(ctx, "sup", c.ID, target, ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stored, err := f.cases.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, stored.History, 2+succeeded)
	for i := 1; i < len(stored.History); i++ {
		assert.Equal(t, stored.History[i-1].ToStatus, stored.History[i].FromStatus, "event %d", i)
	}
	assert.Equal(t, stored.History[len(stored.History)-1].ToStatus, stored.Status)
}

func TestAuthService_ConcurrentConfirmUsesTokenOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "agente123")

	token, err := f.auth.RequestPasswordReset(ctx, "ana@sac.local")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []string
	)
	for _, password := range []string{"clave-uno", "clave-dos", "clave-tres", "clave-cuatro"} {
		wg.Add(1)
		go func(password string) {
			defer wg.Done()
			if err := f.auth.ConfirmPasswordReset(ctx, token.Token, password); err == nil {
				mu.Lock()
				succeeded = append(succeeded, password)
				mu.Unlock()
			}
		}(password)
	}
	wg.Wait()

	require.Len(t, succeeded, 1)
	_, err = f.auth.Login(ctx, "ana@sac.local", succeeded[0])
	assert.NoError(t, err)
}
