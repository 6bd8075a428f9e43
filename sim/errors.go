package sim

import "errors"

// Kernel and protocol error taxonomy. Protocol packages reuse these
// sentinels so callers can branch with errors.Is regardless of which
// component produced the failure.
var (
	// ErrInvalidDelay is returned by Schedule for a negative delay.
	ErrInvalidDelay = errors.New("invalid delay")

	// ErrUnknownEntity is returned when an event targets an entity id that
	// is not (or no longer) registered.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrAlreadyConsumed is returned by Cancel when the event has already
	// been dispatched. Benign: callers log it and move on.
	ErrAlreadyConsumed = errors.New("event already consumed")

	// ErrConflict rejects a policy create for an identity that already exists.
	ErrConflict = errors.New("policy conflict")

	// ErrVersionConflict rejects a policy mutation whose version is not
	// exactly one greater than the current version.
	ErrVersionConflict = errors.New("policy version conflict")

	// ErrNotFound rejects an operation on an absent or deleted policy.
	ErrNotFound = errors.New("policy not found")

	// ErrRejected rejects a subscription or control request the target
	// cannot satisfy.
	ErrRejected = errors.New("rejected")
)
