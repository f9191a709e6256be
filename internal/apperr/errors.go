package apperr

import "errors"

// ErrUnauthorized is returned for a missing or invalid credential, or when the
// caller acts outside its role or assignment.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound indicates that the requested delivery or courier does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when the delivery state machine rejects a move.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrAlreadyAssigned is returned when a courier is assigned to a delivery that already has one.
var ErrAlreadyAssigned = errors.New("already assigned")

// ErrValidation indicates malformed coordinates, ids or status values.
var ErrValidation = errors.New("validation error")

// ErrUpstreamUnavailable indicates that an external collaborator failed or timed out.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// ErrConflict indicates a clash with existing state: a storage uniqueness or
// lock conflict, or a courier who is already on a delivery.
var ErrConflict = errors.New("conflict")

// ErrRateLimited is returned when a connection sends events faster than allowed.
var ErrRateLimited = errors.New("rate limited")

// Wire codes sent to clients together with a human-readable message.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeAlreadyAssigned     = "ALREADY_ASSIGNED"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeConflict            = "CONFLICT"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrUnauthorized, CodeUnauthorized},
	{ErrNotFound, CodeNotFound},
	{ErrInvalidTransition, CodeInvalidTransition},
	{ErrAlreadyAssigned, CodeAlreadyAssigned},
	{ErrValidation, CodeValidation},
	{ErrUpstreamUnavailable, CodeUpstreamUnavailable},
	{ErrConflict, CodeConflict},
	{ErrRateLimited, CodeRateLimited},
}

// Code returns the wire code for err. Unknown errors map to CodeInternal.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// Message returns a client-safe description of err.
func Message(err error) string {
	if Code(err) == CodeInternal {
		return "internal error"
	}
	return err.Error()
}
