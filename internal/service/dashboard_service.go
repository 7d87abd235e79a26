package service

import (
	"context"
	"time"

	"github.com/spec-kit/sac-service/internal/aggregate"
	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/repository"
	apperrors "github.com/spec-kit/sac-service/pkg/util/errorutil"
)

// DashboardService runs the read-side aggregations over a fresh case list.
type DashboardService struct {
	cases      *CaseService
	agents     *AgentService
	categories repository.CategoryRepository
	clock      domain.Clock
	location   *time.Location
}

// DashboardDependencies bundles collaborators for the dashboard service.
type DashboardDependencies struct {
	Cases        *CaseService
	Agents       *AgentService
	CategoryRepo repository.CategoryRepository
	Clock        domain.Clock
	// Location anchors the today/week/month windows. Defaults to time.Local.
	Location *time.Location
}

// Snapshot is the periodic dashboard refresh result.
type Snapshot struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Alerts      aggregate.AlertsResult   `json:"alerts"`
	Supervisor  aggregate.SupervisorView `json:"supervisor"`
	Manager     aggregate.ManagerView    `json:"manager"`
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	if deps.Clock == nil {
		deps.Clock = domain.RealClock{}
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	return &DashboardService{
		cases:      deps.Cases,
		agents:     deps.Agents,
		categories: deps.CategoryRepo,
		clock:      deps.Clock,
		location:   deps.Location,
	}
}

func (s *DashboardService) now() time.Time {
	return s.clock.Now().In(s.location)
}

// Inbox filters and sorts the case list for the inbox screen.
func (s *DashboardService) Inbox(ctx context.Context, query aggregate.InboxQuery) (aggregate.InboxResult, error) {
	cases, err := s.cases.List(ctx)
	if err != nil {
		return aggregate.InboxResult{}, err
	}
	return aggregate.Inbox(cases, query, s.now()), nil
}

// Alerts returns the alert panel with per-agent rollups.
func (s *DashboardService) Alerts(ctx context.Context) (aggregate.AlertsResult, error) {
	cases, err := s.cases.List(ctx)
	if err != nil {
		return aggregate.AlertsResult{}, err
	}
	agents, err := s.agents.List(ctx)
	if err != nil {
		return aggregate.AlertsResult{}, err
	}
	return aggregate.Alerts(cases, agents, s.now()), nil
}

// Supervisor returns the supervisor panel for the period.
func (s *DashboardService) Supervisor(ctx context.Context, period aggregate.Period) (aggregate.SupervisorView, error) {
	cases, err := s.cases.List(ctx)
	if err != nil {
		return aggregate.SupervisorView{}, err
	}
	agents, err := s.agents.List(ctx)
	if err != nil {
		return aggregate.SupervisorView{}, err
	}
	return aggregate.Supervisor(cases, agents, period, s.now()), nil
}

// Manager returns the manager dashboard for the period.
func (s *DashboardService) Manager(ctx context.Context, period aggregate.Period) (aggregate.ManagerView, error) {
	cases, err := s.cases.List(ctx)
	if err != nil {
		return aggregate.ManagerView{}, err
	}
	categories, err := s.Categories(ctx)
	if err != nil {
		return aggregate.ManagerView{}, err
	}
	return aggregate.Manager(cases, categories, period, s.now()), nil
}

// Categories lists every category sorted by name.
func (s *DashboardService) Categories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	repository.SortCategories(categories)
	return categories, nil
}

// Snapshot computes alerts and both dashboards for today from one case read.
func (s *DashboardService) Snapshot(ctx context.Context) (Snapshot, error) {
	cases, err := s.cases.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	agents, err := s.agents.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	categories, err := s.Categories(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	now := s.now()
	return Snapshot{
		GeneratedAt: now,
		Alerts:      aggregate.Alerts(cases, agents, now),
		Supervisor:  aggregate.Supervisor(cases, agents, aggregate.PeriodToday, now),
		Manager:     aggregate.Manager(cases, categories, aggregate.PeriodToday, now),
	}, nil
}
