package task

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("task not found")

type Store interface {
	Save(ctx context.Context, t Task) error
	Get(ctx context.Context, id string) (Task, error)
	ListByRelation(ctx context.Context, userID string, rel Relation, today time.Time) ([]Task, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
