package invoice

// Status is the canonical invoice payment status shared by the store, the
// state machine and the reconciliation service. There is deliberately exactly
// one of these types in the codebase.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
	StatusExpired Status = "EXPIRED"
)

// IsTerminal reports whether no further status change is ever permitted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPaid, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether current -> next is a legal status change.
// Only PENDING has outgoing transitions, and a PENDING "still pending"
// notification is not a transition; callers treat the false case as a no-op.
func CanTransition(current, next Status) bool {
	return current == StatusPending && next != StatusPending
}
