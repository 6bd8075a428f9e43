package e2

import "github.com/oransim/oransim/sim"

// SubscriptionRequest asks a network function to install a subscription.
type SubscriptionRequest struct {
	Sub     Subscription
	ReplyTo string // entity id of the requesting Near-RT RIC
}

// SubscriptionResponse acknowledges or rejects a SubscriptionRequest.
// Rejection (e.g. an event type the target cannot produce) is terminal.
type SubscriptionResponse struct {
	SubID    string
	Target   string
	Accepted bool
	Cause    string
}

// SubscriptionDelete cancels an installed subscription on the target.
type SubscriptionDelete struct {
	SubID string
}

// Indication is an event report emitted by an entity to one satisfying
// subscription. A fan-out across N matching subscriptions is N Indication
// messages scheduled back-to-back, so same-tick delivery order follows
// subscription creation order.
type Indication struct {
	Source    string // emitting entity id
	SubID     string // subscription that triggered the report
	EventType EventType
	EmittedAt sim.VirtualTime
	Payload   map[string]any
}

// ControlRequest is a one-way control action sent by the Near-RT RIC to a
// network function, applied after a modeled execution delay.
type ControlRequest struct {
	From   string // entity id of the issuing Near-RT RIC
	Issuer string // xApp name that decided the action
	Action string
	Params map[string]any
}

// ControlFailure reports a malformed or out-of-range control action back to
// the issuing RIC instead of dropping it silently.
type ControlFailure struct {
	Target string // node that rejected the action
	Issuer string
	Action string
	Cause  string
}
