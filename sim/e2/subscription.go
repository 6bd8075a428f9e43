// Package e2 models the protocol between the Near-RT RIC and its managed
// network functions: subscription lifecycle, indication reporting, and
// one-way control actions with rejection reporting.
package e2

import "fmt"

// EventType names a class of node-internal event a subscription can match.
type EventType string

const (
	// EventTypeCellLoad fires when a distributed unit's load ratio crosses
	// the subscription threshold, and on periodic load reports.
	EventTypeCellLoad EventType = "kpm.cell-load"

	// EventTypeLinkQuality fires when a radio unit derives a link-quality
	// sample from a UE position update.
	EventTypeLinkQuality EventType = "rc.link-quality"

	// EventTypeSessionCount fires on central-unit user-plane session churn.
	EventTypeSessionCount EventType = "kpm.session-count"
)

// Trigger defines when a subscription matches. Period > 0 asks the target
// for standing periodic reports; Period == 0 is purely event-driven, with
// Threshold bounding which samples report (semantics per event type).
type Trigger struct {
	EventType EventType
	Period    int64 // ticks between periodic reports, 0 = event-driven
	Threshold float64
}

// Status is the subscription lifecycle state. Rejection is terminal for the
// identity; cancellation follows explicit unsubscribe or deregistration of
// either endpoint.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Subscription is a standing request by a subscriber (an xApp, identified
// through its hosting Near-RT RIC) for a target entity to report matching
// internal events.
type Subscription struct {
	SubID      string
	Subscriber string // xApp name that requested the subscription
	Target     string // entity id of the reporting network function
	Trigger    Trigger
	Actions    []string // requested action definitions, e.g. "report"
	Status     Status
}

// Table is the node-side registry of accepted subscriptions, kept in
// creation order so indication fan-out is deterministic.
type Table struct {
	subs []*Subscription
}

// NewTable creates an empty subscription table.
func NewTable() *Table {
	return &Table{}
}

// Add appends an accepted subscription. Creation order is delivery order.
func (t *Table) Add(sub Subscription) {
	sub.Status = StatusActive
	t.subs = append(t.subs, &sub)
}

// Remove drops the subscription with the given id.
func (t *Table) Remove(subID string) error {
	for i, sub := range t.subs {
		if sub.SubID == subID {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("subscription %q not in table", subID)
}

// Matching returns the active subscriptions for eventType in creation order.
func (t *Table) Matching(eventType EventType) []*Subscription {
	var out []*Subscription
	for _, sub := range t.subs {
		if sub.Status == StatusActive && sub.Trigger.EventType == eventType {
			out = append(out, sub)
		}
	}
	return out
}

// Periodic returns the active subscriptions that requested standing reports.
func (t *Table) Periodic() []*Subscription {
	var out []*Subscription
	for _, sub := range t.subs {
		if sub.Status == StatusActive && sub.Trigger.Period > 0 {
			out = append(out, sub)
		}
	}
	return out
}

// Len reports the number of table entries.
func (t *Table) Len() int { return len(t.subs) }
