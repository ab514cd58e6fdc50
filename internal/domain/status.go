package domain

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusCompleted Status = "completed"
)

// ParseStatus accepts only the closed set of order statuses.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusPreparing, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Active reports whether an order in this status still occupies kitchen capacity.
func (s Status) Active() bool {
	return s != StatusCompleted
}

// TransitionPolicy is the table of legal status changes.
type TransitionPolicy struct {
	allowed map[Status]map[Status]bool
}

// NewTransitionPolicy builds the forward-only table. With allowDirectComplete
// a pending order may be completed without passing through preparing.
func NewTransitionPolicy(allowDirectComplete bool) TransitionPolicy {
	allowed := map[Status]map[Status]bool{
		StatusPending:   {StatusPreparing: true},
		StatusPreparing: {StatusCompleted: true},
		StatusCompleted: {},
	}
	if allowDirectComplete {
		allowed[StatusPending][StatusCompleted] = true
	}
	return TransitionPolicy{allowed: allowed}
}

// CanTransition checks if from->to is allowed.
func (p TransitionPolicy) CanTransition(from, to Status) bool {
	nexts := p.allowed[from]
	return nexts != nil && nexts[to]
}

// Check returns ErrInvalidTransition wrapped with both states when from->to is denied.
func (p TransitionPolicy) Check(from, to Status) error {
	if !p.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// StatusChange represents a log entry for order status changes
type StatusChange struct {
	ID        int64
	OrderID   int64
	From      *Status
	To        Status
	ChangedBy string
	ChangedAt time.Time
}
