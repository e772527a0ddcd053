package assistant

import (
	"strconv"
	"strings"

	"github.com/ecarlucci/taskmate/internal/directory"
	"github.com/ecarlucci/taskmate/internal/task"
)

type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeCreating Mode = "creating"
	ModeUpdating Mode = "updating"
)

// stepResult is what one wizard transition produces: the next step, the
// (possibly mutated) draft, the reply to append, and whether the draft is
// ready to submit. On submit the reply is empty; the controller emits the
// confirmation or error after performing the backend call.
type stepResult struct {
	step   int
	draft  task.Draft
	reply  string
	submit bool
}

func hold(step int, draft task.Draft, reply string) stepResult {
	return stepResult{step: step, draft: draft, reply: reply}
}

// advanceCreate is the create-flow transition function. It performs no I/O
// and never touches the draft on invalid input.
func advanceCreate(step int, draft task.Draft, input string, dir directory.Snapshot) stepResult {
	switch step {
	case 0:
		if strings.TrimSpace(input) == "" {
			return hold(0, draft, promptTitleEmpty)
		}
		draft.Title = input
		return stepResult{step: 1, draft: draft, reply: promptDescription}

	case 1:
		if strings.TrimSpace(input) == "" {
			return hold(1, draft, promptDescEmpty)
		}
		draft.Description = input
		return stepResult{step: 2, draft: draft, reply: promptPriorityMenu}

	case 2:
		p, err := task.ParsePriorityChoice(input)
		if err != nil {
			return hold(2, draft, promptPriorityBad)
		}
		draft.Priority = p
		return stepResult{step: 3, draft: draft, reply: promptDueDate}

	case 3:
		if !task.MatchesDueDateShape(input) {
			return hold(3, draft, promptDateShape)
		}
		if err := task.ValidateDueDate(input); err != nil {
			return hold(3, draft, promptDateInvalid)
		}
		draft.DueDate = input
		if dir.Len() == 0 {
			return stepResult{step: 3, draft: draft, submit: true}
		}
		return stepResult{step: 4, draft: draft, reply: promptAssignMenu(dir)}

	case 4:
		n, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil || n < 0 || n > dir.Len() {
			return hold(4, draft, promptAssignRange(dir.Len()))
		}
		if n == 0 {
			draft.AssignedTo = ""
		} else {
			u, _ := dir.At(n)
			draft.AssignedTo = u.ID
		}
		return stepResult{step: 4, draft: draft, submit: true}
	}
	return hold(step, draft, helpText)
}

// advanceUpdate mirrors advanceCreate with a status sub-step and "skip"
// accepted everywhere to retain the seeded value.
func advanceUpdate(step int, draft task.Draft, input string, dir directory.Snapshot) stepResult {
	skip := strings.EqualFold(strings.TrimSpace(input), "skip")

	switch step {
	case 0:
		if !skip && strings.TrimSpace(input) != "" {
			draft.Title = input
		}
		return stepResult{step: 1, draft: draft, reply: promptUpdateDescription(draft.Description)}

	case 1:
		if !skip && strings.TrimSpace(input) != "" {
			draft.Description = input
		}
		return stepResult{step: 2, draft: draft, reply: promptUpdatePriority(draft.Priority)}

	case 2:
		if !skip {
			p, err := task.ParsePriorityChoice(input)
			if err != nil {
				return hold(2, draft, promptChoiceOrSkip)
			}
			draft.Priority = p
		}
		return stepResult{step: 3, draft: draft, reply: promptUpdateStatus(draft.Status)}

	case 3:
		if !skip {
			st, err := task.ParseStatusChoice(input)
			if err != nil {
				return hold(3, draft, promptChoiceOrSkip)
			}
			draft.Status = st
		}
		return stepResult{step: 4, draft: draft, reply: promptUpdateDueDate(draft.DueDate)}

	case 4:
		if !skip {
			if !task.MatchesDueDateShape(input) {
				return hold(4, draft, promptDateShapeOrSkip)
			}
			if err := task.ValidateDueDate(input); err != nil {
				return hold(4, draft, promptDateInvalidOrSkip)
			}
			draft.DueDate = input
		}
		if dir.Len() == 0 {
			return stepResult{step: 4, draft: draft, submit: true}
		}
		return stepResult{step: 5, draft: draft, reply: promptUpdateAssign(dir, dir.NameByID(draft.AssignedTo))}

	case 5:
		if !skip {
			n, err := strconv.Atoi(strings.TrimSpace(input))
			if err != nil || n < 0 || n > dir.Len() {
				return hold(5, draft, promptUpdateAssignRange(dir.Len()))
			}
			if n == 0 {
				draft.AssignedTo = ""
			} else {
				u, _ := dir.At(n)
				draft.AssignedTo = u.ID
			}
		}
		return stepResult{step: 5, draft: draft, submit: true}
	}
	return hold(step, draft, helpText)
}
