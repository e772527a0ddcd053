package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecarlucci/taskmate/internal/directory"
	"github.com/ecarlucci/taskmate/internal/task"
)

// Notifier receives assignment notifications produced by the local backend.
type Notifier interface {
	NotifyAssigned(userID, message string)
}

// Local serves the backend contract from an in-process store. Credentials
// are plain user ids from the roster; token issuance stays with the
// surrounding deployment.
type Local struct {
	store    task.Store
	roster   directory.Snapshot
	notifier Notifier
	now      func() time.Time
}

func NewLocal(store task.Store, roster directory.Snapshot, notifier Notifier) *Local {
	return &Local{
		store:    store,
		roster:   roster,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// resolve maps a bearer token to a roster user. With an empty roster any
// non-empty token is accepted as a user id (open dev mode).
func (l *Local) resolve(token string) (directory.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return directory.User{}, ErrAuthRequired
	}
	if l.roster.Len() == 0 {
		return directory.User{ID: token, Name: token}, nil
	}
	for _, u := range l.roster.Users() {
		if u.ID == token {
			return u, nil
		}
	}
	return directory.User{}, &Error{Status: http.StatusUnauthorized, Code: "unknown_user", Message: "Unknown credential."}
}

func (l *Local) Directory(_ context.Context, token string) ([]directory.User, error) {
	if _, err := l.resolve(token); err != nil {
		return nil, err
	}
	return l.roster.Users(), nil
}

func (l *Local) ListTasks(ctx context.Context, token string, rel task.Relation) ([]task.Task, error) {
	user, err := l.resolve(token)
	if err != nil {
		return nil, err
	}
	switch rel {
	case task.RelationAssigned, task.RelationCreated, task.RelationOverdue:
	default:
		return nil, &Error{Status: http.StatusBadRequest, Code: "invalid_relation", Message: fmt.Sprintf("Unknown relation %q.", rel)}
	}
	out, err := l.store.ListByRelation(ctx, user.ID, rel, l.now())
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func (l *Local) GetTask(ctx context.Context, token, id string) (task.Task, error) {
	if _, err := l.resolve(token); err != nil {
		return task.Task{}, err
	}
	t, err := l.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return task.Task{}, &Error{Status: http.StatusNotFound, Code: "task_not_found", Message: "Task not found."}
		}
		return task.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (l *Local) CreateTask(ctx context.Context, token string, draft task.Draft) (task.Task, error) {
	user, err := l.resolve(token)
	if err != nil {
		return task.Task{}, err
	}
	if draft.Status == "" {
		draft.Status = task.StatusPending
	}
	if draft.Priority == "" {
		draft.Priority = task.PriorityMedium
	}
	if err := l.validateDraft(draft); err != nil {
		return task.Task{}, err
	}

	t := task.Task{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		Status:      draft.Status,
		DueDate:     draft.DueDate,
		CreatedBy:   task.UserRef{ID: user.ID, Name: user.Name},
		AssignedTo:  l.assigneeRef(draft.AssignedTo),
	}
	if err := l.store.Save(ctx, t); err != nil {
		return task.Task{}, fmt.Errorf("save task: %w", err)
	}
	saved, err := l.store.Get(ctx, t.ID)
	if err != nil {
		return task.Task{}, fmt.Errorf("reload task: %w", err)
	}

	if l.notifier != nil && saved.AssignedTo != nil && saved.AssignedTo.ID != user.ID {
		l.notifier.NotifyAssigned(saved.AssignedTo.ID, fmt.Sprintf("You have been assigned a new task: %s", saved.Title))
	}
	return saved, nil
}

func (l *Local) UpdateTask(ctx context.Context, token, id string, draft task.Draft) (task.Task, error) {
	user, err := l.resolve(token)
	if err != nil {
		return task.Task{}, err
	}
	existing, err := l.GetTask(ctx, token, id)
	if err != nil {
		return task.Task{}, err
	}
	if existing.CreatedBy.ID != user.ID && (existing.AssignedTo == nil || existing.AssignedTo.ID != user.ID) {
		return task.Task{}, &Error{Status: http.StatusForbidden, Code: "forbidden", Message: "You don't have permission to update this task."}
	}
	if err := l.validateDraft(draft); err != nil {
		return task.Task{}, err
	}

	prevAssignee := ""
	if existing.AssignedTo != nil {
		prevAssignee = existing.AssignedTo.ID
	}

	existing.Title = draft.Title
	existing.Description = draft.Description
	existing.Priority = draft.Priority
	existing.Status = draft.Status
	existing.DueDate = draft.DueDate
	existing.AssignedTo = l.assigneeRef(draft.AssignedTo)

	if err := l.store.Save(ctx, existing); err != nil {
		return task.Task{}, fmt.Errorf("save task: %w", err)
	}
	saved, err := l.store.Get(ctx, existing.ID)
	if err != nil {
		return task.Task{}, fmt.Errorf("reload task: %w", err)
	}

	if l.notifier != nil && saved.AssignedTo != nil && saved.AssignedTo.ID != prevAssignee && saved.AssignedTo.ID != user.ID {
		l.notifier.NotifyAssigned(saved.AssignedTo.ID, fmt.Sprintf("You have been assigned a task: %s", saved.Title))
	}
	return saved, nil
}

func (l *Local) DeleteTask(ctx context.Context, token, id string) error {
	user, err := l.resolve(token)
	if err != nil {
		return err
	}
	existing, err := l.GetTask(ctx, token, id)
	if err != nil {
		return err
	}
	if existing.CreatedBy.ID != user.ID {
		return &Error{Status: http.StatusForbidden, Code: "forbidden", Message: "You don't have permission to delete this task."}
	}
	if err := l.store.Delete(ctx, id); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return &Error{Status: http.StatusNotFound, Code: "task_not_found", Message: "Task not found."}
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (l *Local) validateDraft(draft task.Draft) error {
	if strings.TrimSpace(draft.Title) == "" {
		return &Error{Status: http.StatusBadRequest, Code: "invalid_task", Message: "Title is required."}
	}
	if strings.TrimSpace(draft.Description) == "" {
		return &Error{Status: http.StatusBadRequest, Code: "invalid_task", Message: "Description is required."}
	}
	if !task.ValidPriority(draft.Priority) {
		return &Error{Status: http.StatusBadRequest, Code: "invalid_task", Message: fmt.Sprintf("Invalid priority %q.", draft.Priority)}
	}
	if !task.ValidStatus(draft.Status) {
		return &Error{Status: http.StatusBadRequest, Code: "invalid_task", Message: fmt.Sprintf("Invalid status %q.", draft.Status)}
	}
	if err := task.ValidateDueDate(draft.DueDate); err != nil {
		return &Error{Status: http.StatusBadRequest, Code: "invalid_task", Message: "Due date must be a valid YYYY-MM-DD date."}
	}
	if draft.AssignedTo != "" && l.assigneeRef(draft.AssignedTo) == nil {
		return &Error{Status: http.StatusBadRequest, Code: "invalid_task", Message: "Assignee is not a known user."}
	}
	return nil
}

func (l *Local) assigneeRef(id string) *task.UserRef {
	if id == "" {
		return nil
	}
	for _, u := range l.roster.Users() {
		if u.ID == id {
			return &task.UserRef{ID: u.ID, Name: u.Name}
		}
	}
	return nil
}
