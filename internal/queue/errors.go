package queue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/store"
)

var (
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrAlreadyCalled          = errors.New("another patient is already called")
	ErrNoPatientsWaiting      = errors.New("no patients waiting")
	ErrConcurrentModification = errors.New("reception was modified concurrently, retry")
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotWaiting             = errors.New("reception is not in the confirmed queue")
	ErrNotificationFailed     = errors.New("notification could not be sent")

	// Re-exported so callers only need this package to branch on error kinds.
	ErrNotFound     = store.ErrNotFound
	ErrIllegalState = store.ErrIllegalState
)

// TransitionError reports a rejected state machine transition.
type TransitionError struct {
	ReceptionID string
	Action      string
	From        model.ReceptionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s reception %s in status %s", e.Action, e.ReceptionID, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// AlreadyCalledError names the receptions blocking a call-next.
type AlreadyCalledError struct {
	Receptions []model.Reception
}

func (e *AlreadyCalledError) Error() string {
	names := make([]string, 0, len(e.Receptions))
	for _, r := range e.Receptions {
		names = append(names, r.Patient.Name)
	}
	return fmt.Sprintf("%s: %s", ErrAlreadyCalled, strings.Join(names, ", "))
}

func (e *AlreadyCalledError) Is(target error) bool {
	return target == ErrAlreadyCalled
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
