// Package repotest holds behaviour checks shared by every repository backend.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/repository"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Cases verifies a CaseRepository on an empty store.
func Cases(t *testing.T, repo repository.CaseRepository) {
	t.Helper()
	ctx := context.Background()

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repo.GetByID(ctx, "SAC-MISSING")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	later := &domain.Case{
		ID: "SAC-B", Status: domain.CaseStatusNew, CategoryID: "cat-1",
		ClientName: "Bruno", Subject: "Later", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour),
		History: []domain.HistoryEvent{{At: base.Add(time.Hour), Actor: "system", Detail: "Caso creado"}},
	}
	earlier := &domain.Case{
		ID: "SAC-A", Status: domain.CaseStatusNew, CategoryID: "cat-1",
		ClientName: "Ana", Subject: "Earlier", AgentID: "ag-1", AgentName: "Luis",
		CreatedAt: base, UpdatedAt: base,
	}
	require.NoError(t, repo.Create(ctx, later))
	require.NoError(t, repo.Create(ctx, earlier))

	cases, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "SAC-A", cases[0].ID)
	assert.Equal(t, "SAC-B", cases[1].ID)
	assert.Equal(t, "Luis", cases[0].AgentName)

	got, err := repo.GetByID(ctx, "SAC-B")
	require.NoError(t, err)
	require.Len(t, got.History, 1)
	assert.True(t, base.Add(time.Hour).Equal(got.CreatedAt))

	got.Status = domain.CaseStatusInProgress
	got.History = append(got.History, domain.HistoryEvent{
		At: base.Add(2 * time.Hour), Actor: "ana", Detail: "Estado cambiado",
		FromStatus: domain.CaseStatusNew, ToStatus: domain.CaseStatusInProgress,
	})
	require.NoError(t, repo.Update(ctx, got))

	reloaded, err := repo.GetByID(ctx, "SAC-B")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusInProgress, reloaded.Status)
	require.Len(t, reloaded.History, 2)
	assert.Equal(t, domain.CaseStatusInProgress, reloaded.History[1].ToStatus)

	err = repo.Update(ctx, &domain.Case{ID: "SAC-NOPE"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	duplicate := &domain.Case{
		ID: "SAC-B", Status: domain.CaseStatusNew, CategoryID: "cat-1",
		ClientName: "Otro", Subject: "Duplicate", CreatedAt: base.Add(72 * time.Hour), UpdatedAt: base.Add(72 * time.Hour),
		History: []domain.HistoryEvent{{At: base.Add(72 * time.Hour), Actor: "system", Detail: "Caso creado"}},
	}
	assert.ErrorIs(t, repo.Create(ctx, duplicate), repository.ErrConflict)

	kept, err := repo.GetByID(ctx, "SAC-B")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusInProgress, kept.Status)
	assert.Len(t, kept.History, 2)
	assert.True(t, base.Add(time.Hour).Equal(kept.CreatedAt))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// CasesAreCopies verifies callers cannot mutate stored cases through returned values.
func CasesAreCopies(t *testing.T, repo repository.CaseRepository) {
	t.Helper()
	ctx := context.Background()

	c := &domain.Case{ID: "SAC-C", Status: domain.CaseStatusNew, CreatedAt: base,
		History: []domain.HistoryEvent{{Detail: "Caso creado"}}}
	require.NoError(t, repo.Create(ctx, c))
	c.Status = domain.CaseStatusClosed

	got, err := repo.GetByID(ctx, "SAC-C")
	require.NoError(t, err)
	got.History[0].Detail = "changed"

	again, err := repo.GetByID(ctx, "SAC-C")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusNew, again.Status)
	assert.Equal(t, "Caso creado", again.History[0].Detail)
}

// Agents verifies an AgentRepository on an empty store.
func Agents(t *testing.T, repo repository.AgentRepository) {
	t.Helper()
	ctx := context.Background()

	for _, a := range []domain.Agent{
		{ID: "ag-2", Name: "Zoe", Status: domain.AgentStatusActive, RoundRobinOrder: 1},
		{ID: "ag-1", Name: "Ana", Status: domain.AgentStatusActive, RoundRobinOrder: 1},
		{ID: "ag-3", Name: "Luis", Status: domain.AgentStatusVacation, RoundRobinOrder: 0},
	} {
		agent := a
		require.NoError(t, repo.Create(ctx, &agent))
	}

	agents, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 3)
	assert.Equal(t, []string{"ag-3", "ag-1", "ag-2"}, []string{agents[0].ID, agents[1].ID, agents[2].ID})

	agent, err := repo.GetByID(ctx, "ag-3")
	require.NoError(t, err)
	agent.Status = domain.AgentStatusActive
	agent.RoundRobinOrder = 9
	require.NoError(t, repo.Update(ctx, agent))

	agent, err = repo.GetByID(ctx, "ag-3")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentStatusActive, agent.Status)
	assert.Equal(t, 9, agent.RoundRobinOrder)

	assert.ErrorIs(t, repo.Create(ctx, &domain.Agent{ID: "ag-3", Name: "Otro", Status: domain.AgentStatusInactive}), repository.ErrConflict)
	agent, err = repo.GetByID(ctx, "ag-3")
	require.NoError(t, err)
	assert.Equal(t, 9, agent.RoundRobinOrder)

	require.NoError(t, repo.Delete(ctx, "ag-2"))
	assert.ErrorIs(t, repo.Delete(ctx, "ag-2"), repository.ErrNotFound)
	_, err = repo.GetByID(ctx, "ag-2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &domain.Agent{ID: "ag-2"}), repository.ErrNotFound)
}

// Categories verifies a CategoryRepository on an empty store.
func Categories(t *testing.T, repo repository.CategoryRepository) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Category{ID: "cat-r", Name: "Reclamo", SLADays: 2, Active: true}))
	require.NoError(t, repo.Create(ctx, &domain.Category{ID: "cat-c", Name: "Consulta", SLADays: 5, Active: true}))

	categories, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Consulta", categories[0].Name)

	cat, err := repo.GetByID(ctx, "cat-r")
	require.NoError(t, err)
	assert.Equal(t, 2, cat.SLADays)

	_, err = repo.GetByID(ctx, "cat-x")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.Create(ctx, &domain.Category{ID: "cat-r", Name: "Otro", SLADays: 9})
	assert.ErrorIs(t, err, repository.ErrConflict)
	cat, err = repo.GetByID(ctx, "cat-r")
	require.NoError(t, err)
	assert.Equal(t, "Reclamo", cat.Name)
}

// Users verifies a UserRepository on an empty store.
func Users(t *testing.T, repo repository.UserRepository) {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{ID: "u-1", Name: "Ana", Email: "Ana@Example.com", PasswordHash: "h1", Role: domain.RoleAgent}
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	got.PasswordHash = "h2"
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, repo.Create(ctx, &domain.User{ID: "u-1", Email: "other@example.com"}), repository.ErrConflict)
	assert.ErrorIs(t, repo.Create(ctx, &domain.User{ID: "u-2", Email: "ANA@example.com"}), repository.ErrConflict)
}

// PasswordResets verifies a PasswordResetRepository on an empty store.
func PasswordResets(t *testing.T, repo repository.PasswordResetRepository) {
	t.Helper()
	ctx := context.Background()

	now := time.Now()
	token := &domain.PasswordResetToken{Token: "tok-1", UserID: "u-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Save(ctx, token))

	got, err := repo.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Nil(t, got.UsedAt)

	require.NoError(t, repo.MarkUsed(ctx, "tok-1"))
	assert.ErrorIs(t, repo.MarkUsed(ctx, "tok-1"), repository.ErrNotFound)

	got, err = repo.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.NotNil(t, got.UsedAt)

	_, err = repo.Get(ctx, "tok-x")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
