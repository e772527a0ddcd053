package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			priority TEXT NOT NULL,
			status TEXT NOT NULL,
			due_date TEXT NOT NULL,
			created_by_id TEXT NOT NULL,
			created_by_name TEXT NOT NULL DEFAULT '',
			assigned_to_id TEXT NULL,
			assigned_to_name TEXT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assigned ON tasks (assigned_to_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created_by ON tasks (created_by_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init task schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, t Task) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	var assignedID, assignedName *string
	if t.AssignedTo != nil {
		assignedID = &t.AssignedTo.ID
		assignedName = &t.AssignedTo.Name
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (
			id, title, description, priority, status, due_date,
			created_by_id, created_by_name, assigned_to_id, assigned_to_name,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			description=EXCLUDED.description,
			priority=EXCLUDED.priority,
			status=EXCLUDED.status,
			due_date=EXCLUDED.due_date,
			assigned_to_id=EXCLUDED.assigned_to_id,
			assigned_to_name=EXCLUDED.assigned_to_name,
			updated_at=EXCLUDED.updated_at`,
		t.ID, t.Title, t.Description, string(t.Priority), string(t.Status), t.DueDate,
		t.CreatedBy.ID, t.CreatedBy.Name, assignedID, assignedName,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, description, priority, status, due_date,
			created_by_id, created_by_name, assigned_to_id, assigned_to_name,
			created_at, updated_at
		FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListByRelation(ctx context.Context, userID string, rel Relation, today time.Time) ([]Task, error) {
	var where string
	args := []any{userID}
	switch rel {
	case RelationAssigned:
		where = `assigned_to_id = $1`
	case RelationCreated:
		where = `created_by_id = $1`
	case RelationOverdue:
		where = `assigned_to_id = $1 AND status <> 'completed' AND due_date < $2`
		args = append(args, today.UTC().Format(DueDateLayout))
	default:
		return nil, fmt.Errorf("unknown relation %q", rel)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, priority, status, due_date,
			created_by_id, created_by_name, assigned_to_id, assigned_to_name,
			created_at, updated_at
		FROM tasks WHERE `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanTask(row pgx.Row) (Task, error) {
	var (
		t            Task
		priority     string
		status       string
		assignedID   *string
		assignedName *string
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &priority, &status, &t.DueDate,
		&t.CreatedBy.ID, &t.CreatedBy.Name, &assignedID, &assignedName,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	t.Priority = Priority(priority)
	t.Status = Status(status)
	if assignedID != nil {
		name := ""
		if assignedName != nil {
			name = *assignedName
		}
		t.AssignedTo = &UserRef{ID: *assignedID, Name: name}
	}
	return t, nil
}
