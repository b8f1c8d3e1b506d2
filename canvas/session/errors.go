package session

import "fmt"

// TransportError is a failed write to one of the shared stores. Local state
// is never rolled back when one occurs.
type TransportError struct {
	Op     string
	ItemID string
	Err    error
}

func (e *TransportError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s item %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
