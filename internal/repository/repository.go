package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/sac-service/internal/domain"
)

var (
	// ErrNotFound is returned by every backend when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned by Create when the key is already taken.
	ErrConflict = errors.New("record already exists")
)

const uniqueViolation = "23505"

// CaseRepository is the case store slot. Cases are never deleted.
type CaseRepository interface {
	List(ctx context.Context) ([]domain.Case, error)
	GetByID(ctx context.Context, id string) (*domain.Case, error)
	Create(ctx context.Context, c *domain.Case) error
	Update(ctx context.Context, c *domain.Case) error
	Count(ctx context.Context) (int, error)
}

// AgentRepository persists support agents.
type AgentRepository interface {
	List(ctx context.Context) ([]domain.Agent, error)
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	Delete(ctx context.Context, id string) error
}

// CategoryRepository persists case categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	Create(ctx context.Context, category *domain.Category) error
}

// UserRepository defines persistence access for operator accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// PasswordResetRepository manages password reset tokens.
type PasswordResetRepository interface {
	Save(ctx context.Context, token *domain.PasswordResetToken) error
	Get(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	MarkUsed(ctx context.Context, token string) error
}

// Repositories groups the store implementations selected at startup.
type Repositories struct {
	Cases          CaseRepository
	Agents         AgentRepository
	Categories     CategoryRepository
	Users          UserRepository
	PasswordResets PasswordResetRepository
}

// SortCases orders cases by creation time, then id.
func SortCases(cases []domain.Case) {
	sort.SliceStable(cases, func(i, j int) bool {
		if !cases[i].CreatedAt.Equal(cases[j].CreatedAt) {
			return cases[i].CreatedAt.Before(cases[j].CreatedAt)
		}
		return cases[i].ID < cases[j].ID
	})
}

// SortAgents orders agents by round-robin order, then name.
func SortAgents(agents []domain.Agent) {
	sort.SliceStable(agents, func(i, j int) bool {
		if agents[i].RoundRobinOrder != agents[j].RoundRobinOrder {
			return agents[i].RoundRobinOrder < agents[j].RoundRobinOrder
		}
		return agents[i].Name < agents[j].Name
	})
}

// SortCategories orders categories by name.
func SortCategories(categories []domain.Category) {
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
}

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}
