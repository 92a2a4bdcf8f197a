package planner

import (
	"errors"
	"fmt"
)

// ErrUnreachable is wrapped by every UnreachableError.
var ErrUnreachable = errors.New("planner: destination unreachable")

// InvalidRequestError reports a request the planner refuses to search.
type InvalidRequestError struct {
	Field   string
	Message string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("planner: invalid request: %s: %s", e.Field, e.Message)
}

// Reason explains why no itinerary exists.
type Reason string

const (
	// ReasonAfterLastService: no train leaves the origin at or after the start time.
	ReasonAfterLastService Reason = "after_last_service"
	// ReasonNoConnection: trains run but none connect to the destination in time.
	ReasonNoConnection Reason = "no_connection"
)

// UnreachableError is the expected "no route" outcome.
type UnreachableError struct {
	Reason Reason
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s (%s)", ErrUnreachable.Error(), e.Reason)
}

func (e *UnreachableError) Unwrap() error { return ErrUnreachable }

// IsInvalidRequest reports whether err is an *InvalidRequestError.
func IsInvalidRequest(err error) bool {
	var ire *InvalidRequestError
	return errors.As(err, &ire)
}
