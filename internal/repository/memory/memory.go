// Package memory holds mutex-guarded in-process repositories used by tests,
// the CLI and the STORE_BACKEND=memory mode.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/repository"
)

// New returns a full set of empty in-memory repositories.
func New() repository.Repositories {
	return repository.Repositories{
		Cases:          NewCaseRepository(),
		Agents:         NewAgentRepository(),
		Categories:     NewCategoryRepository(),
		Users:          NewUserRepository(),
		PasswordResets: NewPasswordResetRepository(),
	}
}

// CaseRepository stores cases in a map.
type CaseRepository struct {
	mu    sync.RWMutex
	cases map[string]*domain.Case
}

// NewCaseRepository returns an empty case store.
func NewCaseRepository() *CaseRepository {
	return &CaseRepository{cases: make(map[string]*domain.Case)}
}

func (r *CaseRepository) List(_ context.Context) ([]domain.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Case, 0, len(r.cases))
	for _, c := range r.cases {
		out = append(out, *c.Clone())
	}
	repository.SortCases(out)
	return out, nil
}

func (r *CaseRepository) GetByID(_ context.Context, id string) (*domain.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CaseRepository) Create(_ context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[c.ID]; ok {
		return repository.ErrConflict
	}
	r.cases[c.ID] = c.Clone()
	return nil
}

func (r *CaseRepository) Update(_ context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[c.ID]; !ok {
		return repository.ErrNotFound
	}
	r.cases[c.ID] = c.Clone()
	return nil
}

func (r *CaseRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cases), nil
}

// AgentRepository stores agents in a map.
type AgentRepository struct {
	mu     sync.RWMutex
	agents map[string]domain.Agent
}

// NewAgentRepository returns an empty agent store.
func NewAgentRepository() *AgentRepository {
	return &AgentRepository{agents: make(map[string]domain.Agent)}
}

func (r *AgentRepository) List(_ context.Context) ([]domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	repository.SortAgents(out)
	return out, nil
}

func (r *AgentRepository) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AgentRepository) Create(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agent.ID]; ok {
		return repository.ErrConflict
	}
	r.agents[agent.ID] = *agent
	return nil
}

func (r *AgentRepository) Update(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agent.ID]; !ok {
		return repository.ErrNotFound
	}
	r.agents[agent.ID] = *agent
	return nil
}

func (r *AgentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.agents, id)
	return nil
}

// CategoryRepository stores categories in a slice.
type CategoryRepository struct {
	mu         sync.RWMutex
	categories []domain.Category
}

// NewCategoryRepository returns an empty category store.
func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{}
}

func (r *CategoryRepository) List(_ context.Context) ([]domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]domain.Category(nil), r.categories...)
	repository.SortCategories(out)
	return out, nil
}

func (r *CategoryRepository) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.categories {
		if c.ID == id {
			cat := c
			return &cat, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *CategoryRepository) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if c.ID == category.ID {
			return repository.ErrConflict
		}
	}
	r.categories = append(r.categories, *category)
	return nil
}

// UserRepository stores users keyed by id.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserRepository returns an empty user store.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return repository.ErrConflict
	}
	for _, u := range r.users {
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return repository.ErrConflict
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

// PasswordResetRepository keeps reset tokens until they expire.
type PasswordResetRepository struct {
	mu     sync.Mutex
	tokens map[string]domain.PasswordResetToken
}

// NewPasswordResetRepository returns an empty token store.
func NewPasswordResetRepository() *PasswordResetRepository {
	return &PasswordResetRepository{tokens: make(map[string]domain.PasswordResetToken)}
}

func (r *PasswordResetRepository) Save(_ context.Context, token *domain.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Token] = *token
	return nil
}

func (r *PasswordResetRepository) Get(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *PasswordResetRepository) MarkUsed(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok || t.UsedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now()
	t.UsedAt = &now
	r.tokens[token] = t
	return nil
}
