package model

// Transition actions understood by ValidTransition.
const (
	ActionConfirm    = "confirm"
	ActionCall       = "call"
	ActionComplete   = "complete"
	ActionNoResponse = "no_response"
	ActionCancel     = "cancel"
)

type transition struct {
	from   ReceptionStatus
	to     ReceptionStatus
	column TimestampColumn
}

var transitionMap = map[string]transition{
	ActionConfirm:    {from: StatusPending, to: StatusConfirmed, column: ColumnConfirmedAt},
	ActionCall:       {from: StatusConfirmed, to: StatusCalled, column: ColumnCalledAt},
	ActionComplete:   {from: StatusCalled, to: StatusDone, column: ColumnCompletedAt},
	ActionNoResponse: {from: StatusCalled, to: StatusNoResponse},
	ActionCancel:     {from: StatusCalled, to: StatusCanceled},
}

// ValidTransition reports whether action may be applied to a reception in fromStatus.
func ValidTransition(action string, fromStatus ReceptionStatus) bool {
	t, ok := transitionMap[action]
	return ok && t.from == fromStatus
}

// Transition returns the source status, target status and the timestamp
// column stamped by action. The column is empty when the transition stamps
// nothing (NO_RESPONSE and CANCELED keep calledAt as their last timestamp).
func Transition(action string) (from, to ReceptionStatus, column TimestampColumn, ok bool) {
	t, ok := transitionMap[action]
	if !ok {
		return "", "", "", false
	}
	return t.from, t.to, t.column, true
}
