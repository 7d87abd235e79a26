// Package boltstore persists the case store and reference data in a local
// bbolt file, one JSON document per key.
package boltstore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/repository"
)

// Bucket names. BucketCases is the fixed case store slot.
const (
	BucketCases          = "sac_cases"
	BucketAgents         = "sac_agents"
	BucketCategories     = "sac_categories"
	BucketUsers          = "sac_users"
	BucketPasswordResets = "sac_password_resets"
)

// Store shares one bolt handle between the repositories.
type Store struct {
	db *bolt.DB
}

// New ensures every bucket exists.
func New(db *bolt.DB) (*Store, error) {
	if db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketCases, BucketAgents, BucketCategories, BucketUsers, BucketPasswordResets} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Cases:          &CaseRepository{db: s.db},
		Agents:         &AgentRepository{db: s.db},
		Categories:     &CategoryRepository{db: s.db},
		Users:          &UserRepository{db: s.db},
		PasswordResets: &PasswordResetRepository{db: s.db},
	}
}

func put[T any](tx *bolt.Tx, bucket, key string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return tx.Bucket([]byte(bucket)).Put([]byte(key), payload)
}

func get[T any](db *bolt.DB, bucket, key string) (*T, error) {
	var out *T
	err := db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if raw == nil {
			return repository.ErrNotFound
		}
		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			return err
		}
		out = &value
		return nil
	})
	return out, err
}

func list[T any](db *bolt.DB, bucket string) ([]T, error) {
	var out []T
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).ForEach(func(_, v []byte) error {
			var value T
			if err := json.Unmarshal(v, &value); err != nil {
				// skip records this version cannot decode
				return nil
			}
			out = append(out, value)
			return nil
		})
	})
	return out, err
}

func replace[T any](db *bolt.DB, bucket, key string, value T) error {
	return db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucket)).Get([]byte(key)) == nil {
			return repository.ErrNotFound
		}
		return put(tx, bucket, key, value)
	})
}

func insert[T any](db *bolt.DB, bucket, key string, value T) error {
	return db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucket)).Get([]byte(key)) != nil {
			return repository.ErrConflict
		}
		return put(tx, bucket, key, value)
	})
}

// CaseRepository stores cases in BucketCases keyed by id.
type CaseRepository struct {
	db *bolt.DB
}

func (r *CaseRepository) List(_ context.Context) ([]domain.Case, error) {
	cases, err := list[domain.Case](r.db, BucketCases)
	if err != nil {
		return nil, err
	}
	repository.SortCases(cases)
	return cases, nil
}

func (r *CaseRepository) GetByID(_ context.Context, id string) (*domain.Case, error) {
	return get[domain.Case](r.db, BucketCases, id)
}

func (r *CaseRepository) Create(_ context.Context, c *domain.Case) error {
	return insert(r.db, BucketCases, c.ID, storedCase(c))
}

func (r *CaseRepository) Update(_ context.Context, c *domain.Case) error {
	return replace(r.db, BucketCases, c.ID, storedCase(c))
}

func (r *CaseRepository) Count(_ context.Context) (int, error) {
	var count int
	err := r.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(BucketCases)).Stats().KeyN
		return nil
	})
	return count, err
}

// storedCase drops the resolved category; only CategoryID is persisted.
func storedCase(c *domain.Case) *domain.Case {
	cp := c.Clone()
	cp.Category = nil
	return cp
}

// AgentRepository stores agents in BucketAgents.
type AgentRepository struct {
	db *bolt.DB
}

func (r *AgentRepository) List(_ context.Context) ([]domain.Agent, error) {
	agents, err := list[domain.Agent](r.db, BucketAgents)
	if err != nil {
		return nil, err
	}
	repository.SortAgents(agents)
	return agents, nil
}

func (r *AgentRepository) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	return get[domain.Agent](r.db, BucketAgents, id)
}

func (r *AgentRepository) Create(_ context.Context, agent *domain.Agent) error {
	return insert(r.db, BucketAgents, agent.ID, agent)
}

func (r *AgentRepository) Update(_ context.Context, agent *domain.Agent) error {
	return replace(r.db, BucketAgents, agent.ID, agent)
}

func (r *AgentRepository) Delete(_ context.Context, id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketAgents))
		if b.Get([]byte(id)) == nil {
			return repository.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

// CategoryRepository stores categories in BucketCategories.
type CategoryRepository struct {
	db *bolt.DB
}

func (r *CategoryRepository) List(_ context.Context) ([]domain.Category, error) {
	categories, err := list[domain.Category](r.db, BucketCategories)
	if err != nil {
		return nil, err
	}
	repository.SortCategories(categories)
	return categories, nil
}

func (r *CategoryRepository) GetByID(_ context.Context, id string) (*domain.Category, error) {
	return get[domain.Category](r.db, BucketCategories, id)
}

func (r *CategoryRepository) Create(_ context.Context, category *domain.Category) error {
	return insert(r.db, BucketCategories, category.ID, category)
}

// UserRepository stores users in BucketUsers.
type UserRepository struct {
	db *bolt.DB
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketUsers))
		if b.Get([]byte(user.ID)) != nil {
			return repository.ErrConflict
		}
		err := b.ForEach(func(_, v []byte) error {
			var existing domain.User
			if user.Email != "" && json.Unmarshal(v, &existing) == nil && strings.EqualFold(existing.Email, user.Email) {
				return repository.ErrConflict
			}
			return nil
		})
		if err != nil {
			return err
		}
		return put(tx, BucketUsers, user.ID, user)
	})
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	return replace(r.db, BucketUsers, user.ID, user)
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	return get[domain.User](r.db, BucketUsers, id)
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	users, err := list[domain.User](r.db, BucketUsers)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

// PasswordResetRepository stores reset tokens in BucketPasswordResets.
type PasswordResetRepository struct {
	db *bolt.DB
}

func (r *PasswordResetRepository) Save(_ context.Context, token *domain.PasswordResetToken) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return put(tx, BucketPasswordResets, token.Token, token)
	})
}

func (r *PasswordResetRepository) Get(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	return get[domain.PasswordResetToken](r.db, BucketPasswordResets, token)
}

func (r *PasswordResetRepository) MarkUsed(_ context.Context, token string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(BucketPasswordResets)).Get([]byte(token))
		if raw == nil {
			return repository.ErrNotFound
		}
		var stored domain.PasswordResetToken
		if err := json.Unmarshal(raw, &stored); err != nil {
			return err
		}
		if stored.UsedAt != nil {
			return repository.ErrNotFound
		}
		now := time.Now()
		stored.UsedAt = &now
		return put(tx, BucketPasswordResets, token, stored)
	})
}
