package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/ecarlucci/taskmate/internal/backend"
	"github.com/ecarlucci/taskmate/internal/directory"
	"github.com/ecarlucci/taskmate/internal/task"
)

// Observer receives dialogue-level events for instrumentation. All methods
// are called synchronously from Handle; implementations must be fast.
type Observer interface {
	CommandInterpreted(kind CommandKind)
	WizardFinished(flow, outcome string)
}

// Controller owns the single mutable dialogue state for one session: mode,
// step, draft, update target, directory snapshot, and transcript. It is not
// reentrant; callers must finish one Handle call before starting the next.
type Controller struct {
	backend  backend.Backend
	token    string
	dir      directory.Snapshot
	observer Observer

	transcript Transcript
	mode       Mode
	step       int
	draft      task.Draft
	targetID   string
}

// NewController builds a session controller. The user directory is fetched
// once and frozen; a fetch failure degrades to an empty directory so the
// wizard skips the assignment step rather than failing the session.
func NewController(ctx context.Context, b backend.Backend, token string) *Controller {
	c := &Controller{
		backend: b,
		token:   strings.TrimSpace(token),
		mode:    ModeIdle,
	}
	if c.token != "" {
		if users, err := b.Directory(ctx, c.token); err == nil {
			c.dir = directory.NewSnapshot(users)
		}
	}
	c.transcript.Append(SpeakerAssistant, greetingText)
	return c
}

// SetObserver installs the instrumentation hook. Call before the first turn.
func (c *Controller) SetObserver(obs Observer) { c.observer = obs }

func (c *Controller) Mode() Mode { return c.mode }

func (c *Controller) Transcript() []Entry { return c.transcript.Entries() }

// Handle processes one turn. The user utterance and every assistant reply
// are appended to the transcript; the entries appended during this turn are
// returned in order. Handle never returns an error: backend failures become
// transcript entries.
func (c *Controller) Handle(ctx context.Context, rawText string) []Entry {
	if strings.TrimSpace(rawText) == "" {
		return nil
	}

	before := c.transcript.Len()
	c.transcript.Append(SpeakerUser, rawText)

	switch c.mode {
	case ModeCreating:
		c.handleCreateTurn(ctx, rawText)
	case ModeUpdating:
		c.handleUpdateTurn(ctx, rawText)
	default:
		c.handleCommand(ctx, rawText)
	}

	return c.transcript.Entries()[before:]
}

func (c *Controller) handleCommand(ctx context.Context, rawText string) {
	cmd := Interpret(rawText)
	if c.observer != nil {
		c.observer.CommandInterpreted(cmd.Kind)
	}
	switch cmd.Kind {
	case CommandUpdateByID:
		c.beginUpdate(ctx, cmd.TaskID)
	case CommandDeleteByID:
		c.deleteTask(ctx, cmd.TaskID)
	case CommandCreateTask:
		if c.token == "" {
			c.reply(signInCreate)
			return
		}
		c.mode = ModeCreating
		c.step = 0
		c.draft = task.Draft{Priority: task.PriorityMedium, Status: task.StatusPending}
		c.reply(promptTitle)
	case CommandListAssigned:
		c.listTasks(ctx, task.RelationAssigned)
	case CommandListCreated:
		c.listTasks(ctx, task.RelationCreated)
	case CommandListOverdue:
		c.listTasks(ctx, task.RelationOverdue)
	default:
		c.reply(helpText)
	}
}

func (c *Controller) handleCreateTurn(ctx context.Context, input string) {
	res := advanceCreate(c.step, c.draft, input, c.dir)
	c.step = res.step
	c.draft = res.draft
	if res.reply != "" {
		c.reply(res.reply)
	}
	if !res.submit {
		return
	}

	created, err := c.backend.CreateTask(ctx, c.token, c.draft)
	if err != nil {
		c.reply(errorLine(backendMessage(err, "Failed to create task")))
		c.finishWizard("create", "failed")
		return
	}
	c.reply(formatCreateConfirmation(created))
	c.finishWizard("create", "completed")
}

func (c *Controller) handleUpdateTurn(ctx context.Context, input string) {
	res := advanceUpdate(c.step, c.draft, input, c.dir)
	c.step = res.step
	c.draft = res.draft
	if res.reply != "" {
		c.reply(res.reply)
	}
	if !res.submit {
		return
	}

	updated, err := c.backend.UpdateTask(ctx, c.token, c.targetID, c.draft)
	if err != nil {
		c.reply(errorLine(backendMessage(err, "Failed to update task")))
		c.finishWizard("update", "failed")
		return
	}
	c.reply(formatUpdateConfirmation(updated))
	c.finishWizard("update", "completed")
}

// beginUpdate pre-fetches the target task and seeds the draft. On fetch
// failure the wizard is not entered and the mode stays idle.
func (c *Controller) beginUpdate(ctx context.Context, id string) {
	if c.token == "" {
		c.reply(signInUpdate)
		return
	}
	t, err := c.backend.GetTask(ctx, c.token, id)
	if err != nil {
		c.reply(errorLine(backendMessage(err, "Task not found or you don't have permission to update it.")))
		return
	}

	c.draft = task.Draft{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
	}
	if t.AssignedTo != nil {
		c.draft.AssignedTo = t.AssignedTo.ID
	}
	c.targetID = id
	c.mode = ModeUpdating
	c.step = 0
	c.reply(promptUpdateTitle(t))
}

func (c *Controller) deleteTask(ctx context.Context, id string) {
	if c.token == "" {
		c.reply(signInDelete)
		return
	}
	if err := c.backend.DeleteTask(ctx, c.token, id); err != nil {
		c.reply(errorLine(backendMessage(err, "Failed to delete task")))
		return
	}
	c.reply(deleteConfirmed)
}

func (c *Controller) listTasks(ctx context.Context, rel task.Relation) {
	if c.token == "" {
		c.reply(signInView)
		return
	}
	list, err := c.backend.ListTasks(ctx, c.token, rel)
	if err != nil {
		c.reply(errorLine(backendMessage(err, "Failed to fetch tasks")))
		return
	}
	if len(list) == 0 {
		c.reply(formatNoTasks(rel))
		return
	}
	c.reply(formatTaskList(rel, list))
}

func (c *Controller) reply(text string) {
	c.transcript.Append(SpeakerAssistant, text)
}

func (c *Controller) reset() {
	c.mode = ModeIdle
	c.step = 0
	c.draft = task.Draft{}
	c.targetID = ""
}

func (c *Controller) finishWizard(flow, outcome string) {
	if c.observer != nil {
		c.observer.WizardFinished(flow, outcome)
	}
	c.reset()
}

// backendMessage prefers the backend's own message over the generic line.
func backendMessage(err error, fallback string) string {
	var be *backend.Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if errors.Is(err, backend.ErrAuthRequired) {
		return "Please sign in and try again."
	}
	return fallback
}
