package proxy

import (
	"errors"
	"fmt"

	"cogneo-edge-router/internal/route"
)

// Reason classifies how an upstream call failed. The caller maps it to a
// gateway-level status (timeout distinct from rejection distinct from
// connection failure).
type Reason string

const (
	ReasonTimeout        Reason = "timeout"
	ReasonConnection     Reason = "connection"
	ReasonUpstreamStatus Reason = "upstream_status"
)

// ErrUpstream is the sentinel all proxy errors match via errors.Is.
var ErrUpstream = errors.New("upstream call failed")

// Error is a failed forwarding attempt: the reason code, the backend the
// call was routed to, and the upstream status when one was received.
type Error struct {
	Reason  Reason
	Backend route.Backend
	Status  int
	Err     error
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonUpstreamStatus:
		return fmt.Sprintf("upstream (%s) returned status %d", e.Backend, e.Status)
	default:
		return fmt.Sprintf("upstream (%s) %s: %v", e.Backend, e.Reason, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the ErrUpstream sentinel.
func (e *Error) Is(target error) bool {
	return target == ErrUpstream
}
