package domain

import "errors"

var (
	// ErrCapacityExceeded is returned when the kitchen is at its active order limit.
	// Callers may retry after a backoff.
	ErrCapacityExceeded = errors.New("the kitchen is busy right now with other orders, please try again later")

	ErrInvalidOrder      = errors.New("invalid order")
	ErrItemNotFound      = errors.New("menu item not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRepository marks storage faults. Its text is never shown to clients.
	ErrRepository = errors.New("repository failure")
)
