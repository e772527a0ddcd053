package task

import (
	"errors"
	"regexp"
	"time"
)

// DueDateLayout is the only accepted due date format.
const DueDateLayout = "2006-01-02"

var (
	ErrInvalidPriority = errors.New("invalid priority choice")
	ErrInvalidStatus   = errors.New("invalid status choice")
	ErrInvalidDueDate  = errors.New("invalid due date")
)

var dueDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParsePriorityChoice maps the wizard's menu input ("1"/"2"/"3") to a
// priority value.
func ParsePriorityChoice(input string) (Priority, error) {
	switch input {
	case "1":
		return PriorityLow, nil
	case "2":
		return PriorityMedium, nil
	case "3":
		return PriorityHigh, nil
	default:
		return "", ErrInvalidPriority
	}
}

// ParseStatusChoice maps the update wizard's menu input ("1"/"2"/"3") to a
// status value.
func ParseStatusChoice(input string) (Status, error) {
	switch input {
	case "1":
		return StatusPending, nil
	case "2":
		return StatusInProgress, nil
	case "3":
		return StatusCompleted, nil
	default:
		return "", ErrInvalidStatus
	}
}

// MatchesDueDateShape reports whether the input has the YYYY-MM-DD shape,
// without checking that it names a real date.
func MatchesDueDateShape(input string) bool {
	return dueDatePattern.MatchString(input)
}

// ValidateDueDate accepts only YYYY-MM-DD strings that name a real calendar
// date. time.Parse alone would accept other layouts, so the shape is checked
// first.
func ValidateDueDate(input string) error {
	if !dueDatePattern.MatchString(input) {
		return ErrInvalidDueDate
	}
	if _, err := time.Parse(DueDateLayout, input); err != nil {
		return ErrInvalidDueDate
	}
	return nil
}

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}
