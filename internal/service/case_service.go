package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/events"
	"github.com/spec-kit/sac-service/internal/repository"
	apperrors "github.com/spec-kit/sac-service/pkg/util/errorutil"
)

// CaseService is the case store: list, read, create and status changes.
type CaseService struct {
	cases      repository.CaseRepository
	categories repository.CategoryRepository
	agents     *AgentService
	dispatcher events.Dispatcher
	clock      domain.Clock
	logger     *zap.Logger

	// per-case mutexes; status changes are read-modify-write
	locks sync.Map
}

const caseIDAttempts = 5

// CaseDependencies bundles collaborators for the case service.
type CaseDependencies struct {
	CaseRepo     repository.CaseRepository
	CategoryRepo repository.CategoryRepository
	Agents       *AgentService
	Dispatcher   events.Dispatcher
	Clock        domain.Clock
	Logger       *zap.Logger
}

// CaseInput describes case creation payload. An empty AgentID requests
// round-robin assignment.
type CaseInput struct {
	Subject     string
	Description string
	ClientName  string
	ClientEmail string
	CategoryID  string
	AgentID     string
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	if deps.Clock == nil {
		deps.Clock = domain.RealClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &CaseService{
		cases:      deps.CaseRepo,
		categories: deps.CategoryRepo,
		agents:     deps.Agents,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
}

// List returns every case in creation order with categories resolved.
func (s *CaseService) List(ctx context.Context) ([]domain.Case, error) {
	cases, err := s.cases.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	lookup, err := s.categoryLookup(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cases {
		attachCategory(&cases[i], lookup)
	}
	return cases, nil
}

// GetByID returns one case or NOT_FOUND.
func (s *CaseService) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("case", map[string]any{"case_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	lookup, err := s.categoryLookup(ctx)
	if err != nil {
		return nil, err
	}
	attachCategory(c, lookup)
	return c, nil
}

// Create validates input and stores a new case in status Nuevo.
func (s *CaseService) Create(ctx context.Context, actor string, input CaseInput) (*domain.Case, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	input.ClientName = strings.TrimSpace(input.ClientName)
	input.ClientEmail = strings.TrimSpace(input.ClientEmail)
	input.Description = strings.TrimSpace(input.Description)

	problems := map[string]any{}
	if input.Subject == "" {
		problems["subject"] = "required"
	}
	if input.ClientName == "" {
		problems["client_name"] = "required"
	}
	if input.CategoryID == "" {
		problems["category_id"] = "required"
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid case", problems)
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category_id": input.CategoryID})
		}
		return nil, apperrors.MapError(err)
	}
	if !category.Active {
		return nil, apperrors.NewValidationError("category is inactive", map[string]any{"category_id": input.CategoryID})
	}

	now := s.clock.Now()
	c := &domain.Case{
		Status:      domain.CaseStatusNew,
		CategoryID:  category.ID,
		ClientName:  input.ClientName,
		ClientEmail: input.ClientEmail,
		Subject:     input.Subject,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	store := func(assignee *domain.Agent) error {
		detail := "Caso creado"
		if assignee != nil {
			c.AgentID = assignee.ID
			c.AgentName = assignee.Name
			detail = fmt.Sprintf("Caso creado y asignado a %s", assignee.Name)
		}
		c.History = []domain.HistoryEvent{{At: now, Actor: actor, Detail: detail, ToStatus: domain.CaseStatusNew}}
		return s.insert(ctx, c)
	}

	if input.AgentID == "" && s.agents != nil {
		if _, err := s.agents.AssignNext(ctx, store); err != nil {
			return nil, err
		}
	} else {
		assignee, err := s.resolveAssignee(ctx, input.AgentID)
		if err != nil {
			return nil, err
		}
		if err := store(assignee); err != nil {
			return nil, err
		}
	}
	c.Category = category

	s.publish(ctx, events.New(events.EventCaseCreated, c.ID, actor, now, events.CaseCreatedPayload{Case: *c.Clone()}))
	return c, nil
}

// PatchStatus moves a case along the transition table and appends one history event.
func (s *CaseService) PatchStatus(ctx context.Context, actor, id string, status domain.CaseStatus, note string) (*domain.Case, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{
			"status":  string(status),
			"allowed": domain.StatusStrings(domain.AllCaseStatuses()),
		})
	}

	unlock := s.lockCase(id)
	defer unlock()

	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := c.Status
	if !from.CanTransitionTo(status) {
		return nil, apperrors.NewInvalidTransition(string(from), string(status), domain.StatusStrings(from.NextStatuses()))
	}

	now := s.clock.Now()
	note = strings.TrimSpace(note)
	detail := note
	if detail == "" {
		detail = fmt.Sprintf("Estado cambiado de %s a %s", from, status)
	}
	c.Status = status
	c.UpdatedAt = now
	c.History = append(c.History, domain.HistoryEvent{
		At:         now,
		Actor:      actor,
		Detail:     detail,
		FromStatus: from,
		ToStatus:   status,
	})

	if err := s.cases.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("case", map[string]any{"case_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.New(events.EventCaseStatusChanged, c.ID, actor, now, events.CaseStatusChangedPayload{
		OldStatus: from,
		NewStatus: status,
		Note:      note,
		Case:      *c.Clone(),
	}))
	return c, nil
}

func (s *CaseService) resolveAssignee(ctx context.Context, agentID string) (*domain.Agent, error) {
	if s.agents == nil || agentID == "" {
		return nil, nil
	}
	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, apperrors.NewValidationError("unknown agent", map[string]any{"agent_id": agentID})
		}
		return nil, err
	}
	return agent, nil
}

// insert stores c under a fresh id, drawing again when the id is taken.
func (s *CaseService) insert(ctx context.Context, c *domain.Case) error {
	for attempt := 0; attempt < caseIDAttempts; attempt++ {
		c.ID = newCaseID()
		err := s.cases.Create(ctx, c)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return apperrors.MapError(err)
		}
	}
	return apperrors.NewConflict("could not allocate case id", map[string]any{"attempts": caseIDAttempts})
}

func newCaseID() string {
	return "SAC-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *CaseService) lockCase(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *CaseService) categoryLookup(ctx context.Context) (map[string]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	lookup := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		lookup[c.ID] = c
	}
	return lookup, nil
}

func attachCategory(c *domain.Case, lookup map[string]domain.Category) {
	if cat, ok := lookup[c.CategoryID]; ok {
		c.Category = &cat
		return
	}
	c.Category = nil
}

func (s *CaseService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.String("case_id", event.CaseID), zap.Error(err))
	}
}
