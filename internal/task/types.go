package task

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Relation selects which slice of the task collection a listing covers,
// always evaluated relative to the calling user.
type Relation string

const (
	RelationAssigned Relation = "assigned"
	RelationCreated  Relation = "created"
	RelationOverdue  Relation = "overdue"
)

// UserRef is the embedded owner/assignee shape carried on task records.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	DueDate     string    `json:"dueDate"`
	CreatedBy   UserRef   `json:"createdBy"`
	AssignedTo  *UserRef  `json:"assignedTo"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Draft is the submittable payload for create and update calls. AssignedTo
// is a user id or empty for unassigned.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
	DueDate     string   `json:"dueDate"`
	AssignedTo  string   `json:"assignedTo,omitempty"`
}

func (t Task) Clone() Task {
	out := t
	if t.AssignedTo != nil {
		ref := *t.AssignedTo
		out.AssignedTo = &ref
	}
	return out
}

// Overdue reports whether the task's due date falls strictly before the
// given day and the task is not completed. Malformed due dates are never
// overdue.
func (t Task) Overdue(today time.Time) bool {
	if t.Status == StatusCompleted {
		return false
	}
	due, err := time.Parse(DueDateLayout, t.DueDate)
	if err != nil {
		return false
	}
	y, m, d := today.Date()
	return due.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
