package signaling

import (
	"context"
	"errors"

	"call-signaling/internal/auth"
	"call-signaling/internal/calls"
	"call-signaling/internal/media"
	"call-signaling/internal/presence"
)

// Kind is a stable, machine-readable error category exposed at the boundary.
type Kind string

const (
	KindUnauthenticated     Kind = "unauthenticated"
	KindInvalidParticipants Kind = "invalid_participants"
	KindSessionNotFound     Kind = "session_not_found"
	KindForbidden           Kind = "forbidden"
	KindSessionEnded        Kind = "session_ended"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInvalidRequest      Kind = "invalid_request"
	KindReceiverUnreachable Kind = "receiver_unreachable"
	KindInternal            Kind = "internal"
)

// Error is the only error type returned by Service.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// translate maps component errors onto boundary kinds.
func translate(err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return newError(KindUnauthenticated, "please sign in", err)
	case errors.Is(err, auth.ErrUpstreamUnavailable), errors.Is(err, media.ErrProviderUnavailable):
		return newError(KindUpstreamUnavailable, "service temporarily unavailable, please retry", err)
	case errors.Is(err, calls.ErrInvalidParticipants):
		return newError(KindInvalidParticipants, "a call needs two different participants", err)
	case errors.Is(err, calls.ErrNotFound):
		return newError(KindSessionNotFound, "call not found", err)
	case errors.Is(err, calls.ErrUnauthorized), errors.Is(err, media.ErrForbidden):
		return newError(KindForbidden, "you don't have access to this call", err)
	case errors.Is(err, media.ErrSessionEnded):
		return newError(KindSessionEnded, "this call has ended", err)
	case errors.Is(err, presence.ErrInvalidArgument):
		return newError(KindInvalidRequest, "invalid user id", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newError(KindUpstreamUnavailable, "request timed out", err)
	default:
		return newError(KindInternal, "internal error", err)
	}
}
