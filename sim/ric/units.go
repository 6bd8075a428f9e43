// Package ric implements the two controller tiers of the simulated control
// architecture: the Near-RT RIC hosting closed-loop xApps over the e2
// protocol, and the Non-RT RIC hosting optimization rApps over the a1
// protocol. Both controllers are ordinary scheduled entities; every
// inter-controller and controller-to-node interaction travels through the
// kernel's event queue.
package ric

import (
	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/a1"
	"github.com/oransim/oransim/sim/e2"
)

// XApp is a closed-loop control unit hosted by exactly one Near-RT RIC.
// HandleIndication runs synchronously inside the controller's event-handling
// turn; an xApp never owns its own clock and suspends only by asking the
// controller to schedule future work.
type XApp interface {
	Name() string

	// EventTypes declares the indication types this unit wants dispatched.
	EventTypes() []e2.EventType

	HandleIndication(ctrl *NearRTRIC, sched *sim.Scheduler, now sim.VirtualTime, ind e2.Indication)
}

// RApp is an optimization control unit hosted by exactly one Non-RT RIC.
// Optimize is invoked on the controller's periodic optimization rounds;
// HandleDecision receives the acknowledgment for each policy operation the
// unit issued.
type RApp interface {
	Name() string
	Optimize(client *PolicyClient, now sim.VirtualTime)
	HandleDecision(client *PolicyClient, now sim.VirtualTime, d a1.Decision)
}

// UnitFailure records an unrecoverable control-unit condition. The failing
// unit is deregistered from its controller and the failure surfaces to the
// simulation driver; the event queue keeps running.
type UnitFailure struct {
	At         sim.VirtualTime
	Controller string
	Unit       string
	Cause      string
}

// Driver command payloads. Scheduling one of these at a controller lets the
// simulation driver (or a test) issue an operation at an exact virtual time
// instead of between Run calls.

// SubscribeCmd asks a Near-RT RIC to open a subscription on a managed node.
type SubscribeCmd struct {
	Subscriber string
	Target     string
	Trigger    e2.Trigger
	Actions    []string
}

// UnsubscribeCmd asks a Near-RT RIC to cancel a subscription it owns.
type UnsubscribeCmd struct {
	SubID string
}

// ControlCmd asks a Near-RT RIC to send a control action to a managed node.
type ControlCmd struct {
	Issuer string
	Node   string
	Action string
	Params map[string]any
}

// PolicyCmd asks a Non-RT RIC to issue a policy operation toward a managed
// Near-RT RIC.
type PolicyCmd struct {
	Issuer   string
	RIC      string
	Op       a1.Op
	Type     a1.PolicyType
	PolicyID string
	Content  map[string]any
	Version  int64
	Target   string
}
