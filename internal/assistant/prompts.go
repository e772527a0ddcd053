package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/ecarlucci/taskmate/internal/directory"
	"github.com/ecarlucci/taskmate/internal/task"
)

// Every user-facing line is a fixed template. The texts (including emoji)
// are part of the assistant's contract and are asserted by tests.

const (
	greetingText = "👋 Hello! I'm your Task Manager Assistant. How can I help you today?\n\n" +
		"• Type 'create task' to add a new task\n" +
		"• Type 'view tasks' to see tasks assigned to you\n" +
		"• Type 'created tasks' to see tasks you created\n" +
		"• Type 'overdue tasks' to see your overdue tasks"

	helpText = "I'm your Task Manager Assistant. Here's what I can help you with:\n\n" +
		"• Type 'create task' to add a new task\n" +
		"• Type 'view tasks' to see tasks assigned to you\n" +
		"• Type 'created tasks' to see tasks you created\n" +
		"• Type 'overdue tasks' to see your overdue tasks\n" +
		"• Type 'update task [ID]' to modify a task\n" +
		"• Type 'delete task [ID]' to remove a task"

	promptTitle        = "📌 Please enter a title for the new task:"
	promptTitleEmpty   = "⚠️ Title cannot be empty. Please enter a task title:"
	promptDescription  = "📝 Please enter a description for the task:"
	promptDescEmpty    = "⚠️ Description cannot be empty. Please enter a description:"
	promptPriorityMenu = "🚩 Select priority level:\n• Type '1' for Low\n• Type '2' for Medium\n• Type '3' for High"
	promptPriorityBad  = "⚠️ Please enter '1' for Low, '2' for Medium, or '3' for High priority:"
	promptDueDate      = "📅 Enter due date (YYYY-MM-DD format):"
	promptDateShape    = "⚠️ Please use YYYY-MM-DD format (e.g., 2025-05-15):"
	promptDateInvalid  = "⚠️ Invalid date. Please enter date in YYYY-MM-DD format:"

	promptChoiceOrSkip      = "⚠️ Please enter '1', '2', '3', or 'skip':"
	promptDateShapeOrSkip   = "⚠️ Please use YYYY-MM-DD format (e.g., 2025-05-15) or type 'skip':"
	promptDateInvalidOrSkip = "⚠️ Invalid date. Please enter date in YYYY-MM-DD format or 'skip':"

	signInCreate = "⚠️ Please sign in to create tasks."
	signInView   = "⚠️ Please sign in to view your tasks."
	signInUpdate = "⚠️ Please sign in to update tasks."
	signInDelete = "⚠️ Please sign in to delete tasks."

	deleteConfirmed = "✅ Task deleted successfully!"
)

var statusEmoji = map[task.Status]string{
	task.StatusPending:    "⏳",
	task.StatusInProgress: "🔄",
	task.StatusCompleted:  "✅",
}

var priorityEmoji = map[task.Priority]string{
	task.PriorityLow:    "🔵",
	task.PriorityMedium: "🟡",
	task.PriorityHigh:   "🔴",
}

func errorLine(message string) string {
	return "❌ Error: " + message
}

// formatDate renders a stored due date for display. Backends may return the
// plain YYYY-MM-DD the wizard submitted or a full timestamp.
func formatDate(raw string) string {
	if t, err := time.Parse(task.DueDateLayout, raw); err == nil {
		return t.Format("Jan 2, 2006")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format("Jan 2, 2006")
	}
	return raw
}

func assigneeOptions(dir directory.Snapshot) string {
	var b strings.Builder
	for i, u := range dir.Users() {
		fmt.Fprintf(&b, "• Type '%d' for %s (%s)\n", i+1, u.Name, u.Email)
	}
	return strings.TrimRight(b.String(), "\n")
}

func promptAssignMenu(dir directory.Snapshot) string {
	return fmt.Sprintf("👤 Assign to user:\n%s\n• Type '0' to leave unassigned", assigneeOptions(dir))
}

func promptAssignRange(n int) string {
	return fmt.Sprintf("⚠️ Please enter a number between 0 and %d:", n)
}

func promptUpdateTitle(t task.Task) string {
	return fmt.Sprintf("📝 Updating Task: %s\n\nCurrent title: %q\nEnter new title or type \"skip\" to keep current:", t.Title, t.Title)
}

func promptUpdateDescription(current string) string {
	return fmt.Sprintf("📝 Current description: %q\nEnter new description or type \"skip\" to keep current:", current)
}

func promptUpdatePriority(current task.Priority) string {
	return fmt.Sprintf("🚩 Current priority: %s\nSelect new priority level:\n• Type '1' for Low\n• Type '2' for Medium\n• Type '3' for High\n• Type 'skip' to keep current", current)
}

func promptUpdateStatus(current task.Status) string {
	return fmt.Sprintf("📊 Current status: %s\nSelect new status:\n• Type '1' for Pending\n• Type '2' for In-Progress\n• Type '3' for Completed\n• Type 'skip' to keep current", current)
}

func promptUpdateDueDate(current string) string {
	return fmt.Sprintf("📅 Current due date: %s\nEnter new due date (YYYY-MM-DD) or type \"skip\" to keep current:", formatDate(current))
}

func promptUpdateAssign(dir directory.Snapshot, currentName string) string {
	return fmt.Sprintf("👤 Currently assigned to: %s\nAssign to new user:\n%s\n• Type '0' to leave unassigned\n• Type 'skip' to keep current",
		currentName, assigneeOptions(dir))
}

func promptUpdateAssignRange(n int) string {
	return fmt.Sprintf("⚠️ Please enter a number between 0 and %d, or 'skip':", n)
}

func formatCreateConfirmation(t task.Task) string {
	assigned := "Unassigned"
	if t.AssignedTo != nil {
		assigned = t.AssignedTo.Name
	}
	return fmt.Sprintf("✅ Task Created Successfully!\n\n📌 Title: %s\n📝 Description: %s\n🚩 Priority: %s\n📅 Due: %s\n👤 Assigned: %s",
		t.Title, t.Description, t.Priority, formatDate(t.DueDate), assigned)
}

func formatUpdateConfirmation(t task.Task) string {
	assigned := "Unassigned"
	if t.AssignedTo != nil {
		assigned = t.AssignedTo.Name
	}
	return fmt.Sprintf("✅ Task Updated Successfully!\n\n📌 Title: %s\n📝 Description: %s\n🚩 Priority: %s\n📊 Status: %s\n📅 Due: %s\n👤 Assigned: %s",
		t.Title, t.Description, t.Priority, t.Status, formatDate(t.DueDate), assigned)
}

func formatNoTasks(rel task.Relation) string {
	return fmt.Sprintf("📭 You have no %s tasks.", rel)
}

// formatTaskList renders the fixed listing template. Order is the backend's;
// the index is display-only and 1-based.
func formatTaskList(rel task.Relation, list []task.Task) string {
	items := make([]string, 0, len(list))
	for i, t := range list {
		createdBy := t.CreatedBy.Name
		if createdBy == "" {
			createdBy = "Unknown"
		}
		assigned := "Unassigned"
		if t.AssignedTo != nil && t.AssignedTo.Name != "" {
			assigned = t.AssignedTo.Name
		}
		items = append(items, fmt.Sprintf(
			"📋 Task #%d: %s\n📌 Title: %s\n%s Status: %s\n%s Priority: %s\n📅 Due: %s\n👤 Created by: %s\n👤 Assigned to: %s\n──────────────",
			i+1, t.ID, t.Title,
			statusEmoji[t.Status], t.Status,
			priorityEmoji[t.Priority], t.Priority,
			formatDate(t.DueDate), createdBy, assigned,
		))
	}
	label := strings.ToUpper(string(rel)[:1]) + string(rel)[1:]
	return fmt.Sprintf("📋 Your %s Tasks:\n\n%s", label, strings.Join(items, "\n\n"))
}
