package cards

import "fmt"

// InvariantViolationError reports a mutation that would break nesting or
// ordering rules. State is unchanged when it is returned.
type InvariantViolationError struct {
	Op     string
	CardID string
	Reason string
}

func (e InvariantViolationError) Error() string {
	if e.CardID == "" {
		return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s %s rejected: %s", e.Op, e.CardID, e.Reason)
}

// StaleReferenceError reports an operation on a card or container that no
// longer exists. Callers treat it as a cancelled operation.
type StaleReferenceError struct {
	Kind string
	ID   string
}

func (e StaleReferenceError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}
