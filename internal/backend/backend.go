// Package backend defines the task persistence collaborator the assistant
// talks to. Client speaks the REST shape over HTTP with a bearer credential;
// Local serves the same contract from an in-process store so the service
// runs standalone.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecarlucci/taskmate/internal/directory"
	"github.com/ecarlucci/taskmate/internal/task"
)

// ErrAuthRequired is returned when an operation needs a credential and none
// was supplied.
var ErrAuthRequired = errors.New("authentication required")

// Error carries a backend rejection with the server's message, when it sent
// one, so the assistant can surface it verbatim.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend error (status %d)", e.Status)
}

func (e *Error) NotFound() bool { return e.Status == 404 }

// Backend is the external collaborator contract. Every call requires a
// bearer credential; implementations reject an empty one with
// ErrAuthRequired.
type Backend interface {
	Directory(ctx context.Context, token string) ([]directory.User, error)
	ListTasks(ctx context.Context, token string, rel task.Relation) ([]task.Task, error)
	GetTask(ctx context.Context, token, id string) (task.Task, error)
	CreateTask(ctx context.Context, token string, draft task.Draft) (task.Task, error)
	UpdateTask(ctx context.Context, token, id string, draft task.Draft) (task.Task, error)
	DeleteTask(ctx context.Context, token, id string) error
}
