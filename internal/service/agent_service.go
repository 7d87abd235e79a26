package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sac-service/internal/aggregate"
	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/repository"
	apperrors "github.com/spec-kit/sac-service/pkg/util/errorutil"
)

// AgentService manages support agents and round-robin assignment.
type AgentService struct {
	agents repository.AgentRepository
	cases  repository.CaseRepository
	clock  domain.Clock
	logger *zap.Logger

	// serializes AssignNext so two creates never pick the same slot
	assignMu sync.Mutex
}

// AgentDependencies encapsulates repositories required by the agent service.
type AgentDependencies struct {
	AgentRepo repository.AgentRepository
	CaseRepo  repository.CaseRepository
	Clock     domain.Clock
	Logger    *zap.Logger
}

// AgentInput carries writable agent fields. A nil Order keeps the current
// value on update and appends to the rotation on create.
type AgentInput struct {
	Name   string
	Email  string
	Status domain.AgentStatus
	Order  *int
}

// NewAgentService constructs the service.
func NewAgentService(deps AgentDependencies) *AgentService {
	if deps.Clock == nil {
		deps.Clock = domain.RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AgentService{agents: deps.AgentRepo, cases: deps.CaseRepo, clock: deps.Clock, logger: deps.Logger}
}

// List returns agents in rotation order with live active case counts.
func (s *AgentService) List(ctx context.Context) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	counts, err := s.activeCounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range agents {
		agents[i].ActiveCases = counts[agents[i].ID]
	}
	repository.SortAgents(agents)
	return agents, nil
}

// Get returns one agent or NOT_FOUND.
func (s *AgentService) Get(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, agentError(err, id)
	}
	counts, err := s.activeCounts(ctx)
	if err != nil {
		return nil, err
	}
	agent.ActiveCases = counts[agent.ID]
	return agent, nil
}

// Create adds an agent at the end of the rotation unless an order is given.
func (s *AgentService) Create(ctx context.Context, input AgentInput) (*domain.Agent, error) {
	if input.Status == "" {
		input.Status = domain.AgentStatusActive
	}
	if err := validateAgent(input); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	agent := &domain.Agent{
		ID:        "ag-" + uuid.NewString()[:8],
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.TrimSpace(input.Email),
		Status:    input.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Order != nil {
		agent.RoundRobinOrder = *input.Order
	} else {
		next, err := s.nextOrder(ctx)
		if err != nil {
			return nil, err
		}
		agent.RoundRobinOrder = next
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, agentError(err, agent.ID)
	}
	return agent, nil
}

// Update replaces the writable fields of an agent.
func (s *AgentService) Update(ctx context.Context, id string, input AgentInput) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, agentError(err, id)
	}
	if input.Status == "" {
		input.Status = agent.Status
	}
	if err := validateAgent(input); err != nil {
		return nil, err
	}
	agent.Name = strings.TrimSpace(input.Name)
	agent.Email = strings.TrimSpace(input.Email)
	agent.Status = input.Status
	if input.Order != nil {
		agent.RoundRobinOrder = *input.Order
	}
	agent.UpdatedAt = s.clock.Now()
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, agentError(err, id)
	}
	return s.Get(ctx, id)
}

// Delete removes an agent. Cases keep the denormalized agent name.
func (s *AgentService) Delete(ctx context.Context, id string) error {
	if err := s.agents.Delete(ctx, id); err != nil {
		return agentError(err, id)
	}
	return nil
}

// NextAssignee picks the active agent with the lowest rotation order and moves
// it to the back of the rotation. It returns nil when no agent is active.
func (s *AgentService) NextAssignee(ctx context.Context) (*domain.Agent, error) {
	return s.AssignNext(ctx, nil)
}

// AssignNext picks the next agent in the rotation and hands it to store,
// which may receive nil when no agent is active. The agent only moves to the
// back of the rotation once store succeeds.
func (s *AgentService) AssignNext(ctx context.Context, store func(*domain.Agent) error) (*domain.Agent, error) {
	s.assignMu.Lock()
	defer s.assignMu.Unlock()

	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	repository.SortAgents(agents)

	var picked *domain.Agent
	maxOrder := 0
	for i := range agents {
		if agents[i].RoundRobinOrder > maxOrder {
			maxOrder = agents[i].RoundRobinOrder
		}
		if picked == nil && agents[i].Available() {
			picked = &agents[i]
		}
	}

	if store != nil {
		if err := store(picked); err != nil {
			return nil, err
		}
	}
	if picked == nil {
		return nil, nil
	}

	rotated := *picked
	rotated.RoundRobinOrder = maxOrder + 1
	rotated.UpdatedAt = s.clock.Now()
	if err := s.agents.Update(ctx, &rotated); err != nil {
		if store == nil {
			return nil, agentError(err, picked.ID)
		}
		s.logger.Warn("round-robin rotation not saved", zap.String("agent_id", picked.ID), zap.Error(err))
		return picked, nil
	}
	return &rotated, nil
}

func (s *AgentService) nextOrder(ctx context.Context) (int, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	next := 1
	for _, a := range agents {
		if a.RoundRobinOrder >= next {
			next = a.RoundRobinOrder + 1
		}
	}
	return next, nil
}

func (s *AgentService) activeCounts(ctx context.Context) (map[string]int, error) {
	if s.cases == nil {
		return map[string]int{}, nil
	}
	cases, err := s.cases.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return aggregate.ActiveCaseCounts(cases), nil
}

func validateAgent(input AgentInput) error {
	problems := map[string]any{}
	if strings.TrimSpace(input.Name) == "" {
		problems["name"] = "required"
	}
	if email := strings.TrimSpace(input.Email); email == "" || !strings.Contains(email, "@") {
		problems["email"] = "a valid email is required"
	}
	if !input.Status.Valid() {
		problems["status"] = "must be one of Activo, Inactivo, Vacaciones"
	}
	if input.Order != nil && *input.Order < 0 {
		problems["round_robin_order"] = "must not be negative"
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError("invalid agent", problems)
	}
	return nil
}

func agentError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
	}
	if errors.Is(err, repository.ErrConflict) {
		return apperrors.NewConflict("agent already exists", map[string]any{"agent_id": id})
	}
	return apperrors.MapError(err)
}
