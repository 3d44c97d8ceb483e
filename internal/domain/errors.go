package domain

import "errors"

var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrNotFound               = errors.New("not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrConflict               = errors.New("conflict")
	ErrUpstreamUnavailable    = errors.New("upstream unavailable")
)

// Kind names the taxonomy class of err, "Internal" when it belongs to none.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInvalidArgument):
		return "InvalidArgument"
	case errors.Is(err, ErrInvalidStateTransition):
		return "InvalidStateTransition"
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.Is(err, ErrConflict):
		return "Conflict"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UpstreamUnavailable"
	}
	return "Internal"
}

// ConstraintTrackingCode is the unique index guarding order tracking codes.
const ConstraintTrackingCode = "orders_tracking_code_key"
