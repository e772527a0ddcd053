package assistant

import (
	"regexp"
	"strings"
)

// CommandKind classifies a raw utterance received outside a wizard.
type CommandKind string

const (
	CommandUnrecognized CommandKind = "unrecognized"
	CommandCreateTask   CommandKind = "create_task"
	CommandListAssigned CommandKind = "list_assigned"
	CommandListCreated  CommandKind = "list_created"
	CommandListOverdue  CommandKind = "list_overdue"
	CommandUpdateByID   CommandKind = "update_by_id"
	CommandDeleteByID   CommandKind = "delete_by_id"
)

type Command struct {
	Kind   CommandKind
	TaskID string
}

var (
	updatePattern = regexp.MustCompile(`update task\s+([a-f0-9]+)`)
	deletePattern = regexp.MustCompile(`delete task\s+([a-f0-9]+)`)
)

var keywordCommands = map[string]CommandKind{
	"create task":     CommandCreateTask,
	"new task":        CommandCreateTask,
	"view tasks":      CommandListAssigned,
	"my tasks":        CommandListAssigned,
	"created tasks":   CommandListCreated,
	"tasks i created": CommandListCreated,
	"overdue tasks":   CommandListOverdue,
}

// Interpret classifies an utterance. Id-bearing patterns win over keyword
// equality so "update task 60f1a..." never falls through to help text.
// Interpret has no side effects; the controller acts on the result.
func Interpret(raw string) Command {
	text := strings.ToLower(strings.TrimSpace(raw))

	if m := updatePattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: CommandUpdateByID, TaskID: m[1]}
	}
	if m := deletePattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: CommandDeleteByID, TaskID: m[1]}
	}
	if kind, ok := keywordCommands[text]; ok {
		return Command{Kind: kind}
	}
	return Command{Kind: CommandUnrecognized}
}
