package paper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store. It expects the
// generated_papers table created by database.Migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed paper store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, p Paper) (string, error) {
	if p.Table == nil {
		return "", fmt.Errorf("paper has no table")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if p.ID == "" {
		p.ID = generateID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(p.Table)
	if err != nil {
		return "", fmt.Errorf("encode paper: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO generated_papers (id, created_by, created_at, question_count, paper)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET created_by = EXCLUDED.created_by,
		     question_count = EXCLUDED.question_count,
		     paper = EXCLUDED.paper`,
		p.ID,
		p.CreatedBy,
		p.CreatedAt,
		p.Table.Len(),
		body,
	)
	if err != nil {
		return "", fmt.Errorf("insert paper: %w", err)
	}
	return p.ID, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Paper, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p := &Paper{}
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, created_by, created_at, paper
		 FROM generated_papers
		 WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.CreatedBy, &p.CreatedAt, &body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}

	var table Table
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, fmt.Errorf("decode paper %s: %w", id, err)
	}
	p.Table = &table
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context, createdBy string, limit int) ([]Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, created_by, created_at, question_count
		 FROM generated_papers
		 WHERE $1 = '' OR created_by = $1
		 ORDER BY created_at DESC, id ASC
		 LIMIT $2`,
		createdBy,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query papers: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.CreatedBy, &sum.CreatedAt, &sum.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate papers: %w", err)
	}
	return out, nil
}
