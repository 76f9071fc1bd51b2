package store

import "errors"

var (
	ErrNotFound             = errors.New("reception not found")
	ErrIllegalState         = errors.New("reception cannot be removed in its current state")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

var errNothingDeleted = errors.New("no row matched the delete")
