// Package nodes implements the simulated network functions: radio units,
// distributed units, central-unit control and user planes, and UEs. Every
// node is a scheduled entity switching on message type; nodes never call
// each other directly.
package nodes

import "github.com/oransim/oransim/sim/mobility"

// PositionUpdate is sent by a UE to its serving radio unit on every mobility
// step. The radio unit turns it into link-quality events.
type PositionUpdate struct {
	UE  string
	Pos mobility.Position
}

// AttachUE attaches a UE to a distributed unit's cell.
type AttachUE struct {
	UE string
	RU string
}

// DetachUE detaches a UE from a distributed unit's cell.
type DetachUE struct {
	UE string
}

// SetServingRU retargets a UE's position updates after a handover.
type SetServingRU struct {
	RU string
}

// FronthaulFrame is the periodic fronthaul transmission from a radio unit to
// its distributed unit. Only arrival counts are modeled.
type FronthaulFrame struct {
	RU  string
	Seq int64
}

// Internal wake events. An entity suspends by scheduling one of these for
// its future self and returning.

type ueWake struct{}

type frameTick struct{}

// periodicReport drives standing periodic indication reporting for one
// subscription.
type periodicReport struct {
	SubID string
}
