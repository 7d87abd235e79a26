package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sac-service/internal/domain"
)

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository returns a Postgres-backed case store.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

const caseColumns = `id, status, category_id, client_name, client_email, subject, description,
               COALESCE(agent_id, ''), agent_name, created_at, updated_at, history`

func (r *caseRepository) Create(ctx context.Context, c *domain.Case) error {
	const query = `
        INSERT INTO cases (id, status, category_id, client_name, client_email, subject, description,
            agent_id, agent_name, created_at, updated_at, history)
        VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),$9,$10,$11,$12)`
	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Status,
		c.CategoryID,
		c.ClientName,
		c.ClientEmail,
		c.Subject,
		c.Description,
		c.AgentID,
		c.AgentName,
		c.CreatedAt,
		c.UpdatedAt,
		historyOrEmpty(c.History),
	)
	return translate(err)
}

func (r *caseRepository) Update(ctx context.Context, c *domain.Case) error {
	const query = `
        UPDATE cases SET status=$1, category_id=$2, client_name=$3, client_email=$4, subject=$5,
            description=$6, agent_id=NULLIF($7,''), agent_name=$8, updated_at=$9, history=$10
        WHERE id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		c.Status,
		c.CategoryID,
		c.ClientName,
		c.ClientEmail,
		c.Subject,
		c.Description,
		c.AgentID,
		c.AgentName,
		c.UpdatedAt,
		historyOrEmpty(c.History),
		c.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id=$1`
	c, err := scanCase(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (r *caseRepository) List(ctx context.Context) ([]domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, *c)
	}
	return cases, rows.Err()
}

func (r *caseRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cases`).Scan(&count)
	return count, err
}

func scanCase(row pgx.Row) (*domain.Case, error) {
	var c domain.Case
	if err := row.Scan(
		&c.ID,
		&c.Status,
		&c.CategoryID,
		&c.ClientName,
		&c.ClientEmail,
		&c.Subject,
		&c.Description,
		&c.AgentID,
		&c.AgentName,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.History,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func historyOrEmpty(history []domain.HistoryEvent) []domain.HistoryEvent {
	if history == nil {
		return []domain.HistoryEvent{}
	}
	return history
}
