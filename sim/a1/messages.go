package a1

import (
	"errors"

	"github.com/oransim/oransim/sim"
)

// Op names a policy protocol operation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpQuery  Op = "query"
)

// Request is one policy operation in flight from the Non-RT RIC to a
// Near-RT RIC. Delivery is at-most-once per Txn; the protocol answers each
// Request with exactly one Decision, and retry policy belongs to the
// issuing rApp.
type Request struct {
	Txn      uint64
	Op       Op
	Type     PolicyType
	PolicyID string
	Content  map[string]any
	Version  int64
	Target   string
	ReplyTo  string // entity id of the issuing Non-RT RIC
	Issuer   string // name of the rApp that issued the operation
}

// Decision is the acknowledgment (positive or negative) for one Request,
// sent back to the issuing Non-RT RIC. Rejections carry a Cause label
// across the queue boundary instead of an error value.
type Decision struct {
	Txn      uint64
	Op       Op
	Type     PolicyType
	PolicyID string
	Accepted bool
	Cause    string
	Content  map[string]any // populated for accepted queries
	Version  int64
}

// Err maps a negative Decision back onto the protocol error taxonomy.
// Returns nil for accepted decisions.
func (d Decision) Err() error {
	if d.Accepted {
		return nil
	}
	switch d.Cause {
	case CauseConflict:
		return sim.ErrConflict
	case CauseVersionConflict:
		return sim.ErrVersionConflict
	case CauseNotFound:
		return sim.ErrNotFound
	default:
		return sim.ErrRejected
	}
}

// Notification records the applied/rejected outcome of a policy operation
// as seen by the owning Near-RT RIC.
type Notification struct {
	At       sim.VirtualTime
	Op       Op
	Type     PolicyType
	PolicyID string
	Version  int64
	Applied  bool
	Cause    string
}

// Cause labels carried inside Decision messages.
const (
	CauseConflict        = "CONFLICT"
	CauseVersionConflict = "VERSION_CONFLICT"
	CauseNotFound        = "NOT_FOUND"
	CauseRejected        = "REJECTED"
)

// CauseFor converts a policy store error into its wire label.
func CauseFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, sim.ErrConflict):
		return CauseConflict
	case errors.Is(err, sim.ErrVersionConflict):
		return CauseVersionConflict
	case errors.Is(err, sim.ErrNotFound):
		return CauseNotFound
	default:
		return CauseRejected
	}
}
