package models

import (
	"fmt"
	"strings"

	"github.com/trebuchet-org/txq/internal/domain"
)

// Status is the lifecycle state of a queued transaction
type Status string

const (
	StatusQueued    Status = "queued"
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every known status in lifecycle order
var AllStatuses = []Status{
	StatusQueued,
	StatusPending,
	StatusExecuting,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
	StatusCancelled,
}

// Terminal states accept no further transitions
var terminalStatuses = map[Status]bool{
	StatusCompleted: true,
	StatusSkipped:   true,
	StatusCancelled: true,
}

// Statuses eligible for age-based pruning
var prunableStatuses = map[Status]bool{
	StatusCompleted: true,
	StatusFailed:    true,
	StatusCancelled: true,
}

// queued → pending → executing → {completed | failed}, failed → pending
var validTransitions = map[Status]map[Status]bool{
	StatusQueued: {
		StatusPending:   true,
		StatusExecuting: true,
		StatusSkipped:   true,
		StatusCancelled: true,
	},
	StatusPending: {
		StatusExecuting: true,
		StatusSkipped:   true,
		StatusCancelled: true,
	},
	StatusExecuting: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
	StatusFailed: {
		StatusPending:   true, // retry
		StatusExecuting: true, // re-run from a batch
		StatusCancelled: true,
	},
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsPrunable reports whether the status makes an entry eligible for stale cleanup
func (s Status) IsPrunable() bool {
	return prunableStatuses[s]
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus parses a status name, case-insensitively
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return s, nil
}

// ValidateTransition checks whether a transaction may move from one status to another
func ValidateTransition(from, to Status) error {
	if from == to {
		return nil
	}
	if terminalStatuses[from] {
		return fmt.Errorf("%w: cannot transition from terminal status %q", domain.ErrInvalidTransition, from)
	}
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, from)
	}
	if !allowed[to] {
		return fmt.Errorf("%w: %q -> %q", domain.ErrInvalidTransition, from, to)
	}
	return nil
}
