// Package seed loads the bundled mock data into an empty store.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/repository"
)

//go:embed data.yaml
var defaultData []byte

// Data is the decoded seed document.
type Data struct {
	Categories []CategorySeed `yaml:"categories"`
	Agents     []AgentSeed    `yaml:"agents"`
	Users      []UserSeed     `yaml:"users"`
	Cases      []CaseSeed     `yaml:"cases"`
}

// CategorySeed describes a category. Active defaults to true.
type CategorySeed struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	SLADays int    `yaml:"sla_days"`
	Active  *bool  `yaml:"active"`
}

type AgentSeed struct {
	ID     string             `yaml:"id"`
	Name   string             `yaml:"name"`
	Email  string             `yaml:"email"`
	Status domain.AgentStatus `yaml:"status"`
}

type UserSeed struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name"`
	Email    string      `yaml:"email"`
	Password string      `yaml:"password"`
	Role     domain.Role `yaml:"role"`
	AgentID  string      `yaml:"agent_id"`
}

// CaseSeed describes a case. DaysOpen is only used to back-compute CreatedAt.
type CaseSeed struct {
	ID          string            `yaml:"id"`
	Status      domain.CaseStatus `yaml:"status"`
	CategoryID  string            `yaml:"category_id"`
	ClientName  string            `yaml:"client_name"`
	ClientEmail string            `yaml:"client_email"`
	Subject     string            `yaml:"subject"`
	Description string            `yaml:"description"`
	AgentID     string            `yaml:"agent_id"`
	DaysOpen    int               `yaml:"days_open"`
}

// Parse decodes and validates a seed document.
func Parse(raw []byte) (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode seed data: %w", err)
	}
	if err := data.validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

// Default returns the bundled mock data.
func Default() (*Data, error) {
	return Parse(defaultData)
}

func (d *Data) validate() error {
	categories := make(map[string]struct{}, len(d.Categories))
	for _, c := range d.Categories {
		categories[c.ID] = struct{}{}
	}
	agents := make(map[string]struct{}, len(d.Agents))
	for _, a := range d.Agents {
		if !a.Status.Valid() {
			return fmt.Errorf("agent %s: invalid status %q", a.ID, a.Status)
		}
		agents[a.ID] = struct{}{}
	}
	for _, u := range d.Users {
		if !u.Role.Valid() {
			return fmt.Errorf("user %s: invalid role %q", u.Email, u.Role)
		}
	}
	for _, c := range d.Cases {
		if !c.Status.Valid() {
			return fmt.Errorf("case %s: invalid status %q", c.ID, c.Status)
		}
		if _, ok := categories[c.CategoryID]; !ok {
			return fmt.Errorf("case %s: unknown category %q", c.ID, c.CategoryID)
		}
		if c.AgentID != "" {
			if _, ok := agents[c.AgentID]; !ok {
				return fmt.Errorf("case %s: unknown agent %q", c.ID, c.AgentID)
			}
		}
	}
	return nil
}

// Hasher turns a plaintext password into a stored hash.
type Hasher func(password string) (string, error)

// Seeder writes seed data into repositories once.
type Seeder struct {
	repos  repository.Repositories
	hash   Hasher
	clock  domain.Clock
	logger *zap.Logger
}

// NewSeeder builds a seeder.
func NewSeeder(repos repository.Repositories, hash Hasher, clock domain.Clock, logger *zap.Logger) *Seeder {
	if clock == nil {
		clock = domain.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{repos: repos, hash: hash, clock: clock, logger: logger}
}

// SeedIfEmpty loads data when the case store holds no cases. It reports
// whether anything was written.
func (s *Seeder) SeedIfEmpty(ctx context.Context, data *Data) (bool, error) {
	count, err := s.repos.Cases.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count cases: %w", err)
	}
	if count > 0 {
		s.logger.Debug("case store already populated; skipping seed", zap.Int("cases", count))
		return false, nil
	}
	if err := s.Seed(ctx, data); err != nil {
		return false, err
	}
	return true, nil
}

// Seed writes every record in data. Records whose id (or user email) is
// already taken are left untouched, so an interrupted seed can be re-run.
func (s *Seeder) Seed(ctx context.Context, data *Data) error {
	now := s.clock.Now()
	var written, skipped int
	keep := func(kind, id string, err error) error {
		switch {
		case err == nil:
			written++
			return nil
		case errors.Is(err, repository.ErrConflict):
			skipped++
			s.logger.Debug("seed record already present", zap.String("kind", kind), zap.String("id", id))
			return nil
		default:
			return fmt.Errorf("seed %s %s: %w", kind, id, err)
		}
	}

	for _, c := range data.Categories {
		active := true
		if c.Active != nil {
			active = *c.Active
		}
		category := &domain.Category{ID: c.ID, Name: c.Name, SLADays: c.SLADays, Active: active}
		if err := keep("category", c.ID, s.repos.Categories.Create(ctx, category)); err != nil {
			return err
		}
	}

	agentNames := make(map[string]string, len(data.Agents))
	for i, a := range data.Agents {
		agent := &domain.Agent{
			ID:              a.ID,
			Name:            a.Name,
			Email:           a.Email,
			Status:          a.Status,
			RoundRobinOrder: i + 1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := keep("agent", a.ID, s.repos.Agents.Create(ctx, agent)); err != nil {
			return err
		}
		agentNames[a.ID] = a.Name
	}

	for _, u := range data.Users {
		hash, err := s.hash(u.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		user := &domain.User{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			PasswordHash: hash,
			Role:         u.Role,
			AgentID:      u.AgentID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := keep("user", u.Email, s.repos.Users.Create(ctx, user)); err != nil {
			return err
		}
	}

	for _, c := range data.Cases {
		createdAt := now.Add(-time.Duration(c.DaysOpen) * 24 * time.Hour)
		record := &domain.Case{
			ID:          c.ID,
			Status:      c.Status,
			CategoryID:  c.CategoryID,
			ClientName:  c.ClientName,
			ClientEmail: c.ClientEmail,
			Subject:     c.Subject,
			Description: c.Description,
			AgentID:     c.AgentID,
			AgentName:   agentNames[c.AgentID],
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
			History: []domain.HistoryEvent{{
				At:       createdAt,
				Actor:    "system",
				Detail:   "Caso creado",
				ToStatus: domain.CaseStatusNew,
			}},
		}
		if c.Status != domain.CaseStatusNew {
			record.History = append(record.History, domain.HistoryEvent{
				At:         createdAt,
				Actor:      "system",
				Detail:     "Estado inicial importado",
				FromStatus: domain.CaseStatusNew,
				ToStatus:   c.Status,
			})
		}
		if err := keep("case", c.ID, s.repos.Cases.Create(ctx, record)); err != nil {
			return err
		}
	}

	s.logger.Info("seeded store", zap.Int("written", written), zap.Int("skipped", skipped))
	return nil
}
