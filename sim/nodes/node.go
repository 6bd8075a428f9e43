package nodes

import (
	"github.com/sirupsen/logrus"

	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/e2"
)

// Delays groups the modeled protocol latencies a node applies when talking
// to its controller.
type Delays struct {
	Response sim.VirtualTime // subscription responses and control failure reports
	Report   sim.VirtualTime // indication reporting delay
}

// handleSubscribe validates a subscription request against the node's
// supported event types and answers it. Accepted subscriptions enter the
// node-side table in creation order; periodic triggers start their reporting
// loop. Rejection is terminal and carries a cause instead of being dropped.
func handleSubscribe(sched *sim.Scheduler, now sim.VirtualTime, nodeID string, table *e2.Table,
	supported map[e2.EventType]bool, allowPeriodic bool, delays Delays, m e2.SubscriptionRequest) {

	resp := e2.SubscriptionResponse{SubID: m.Sub.SubID, Target: nodeID, Accepted: true}
	switch {
	case !supported[m.Sub.Trigger.EventType]:
		resp.Accepted = false
		resp.Cause = "unsupported event type " + string(m.Sub.Trigger.EventType)
	case m.Sub.Trigger.Period > 0 && !allowPeriodic:
		resp.Accepted = false
		resp.Cause = "periodic reporting unsupported"
	case m.Sub.Trigger.Period < 0:
		resp.Accepted = false
		resp.Cause = "negative report period"
	}

	if resp.Accepted {
		table.Add(m.Sub)
		if m.Sub.Trigger.Period > 0 {
			if _, err := sched.Schedule(m.Sub.Trigger.Period, nodeID, periodicReport{SubID: m.Sub.SubID}); err != nil {
				logrus.Warnf("[tick %07d] %s: cannot start periodic reporting for %q: %v", now, nodeID, m.Sub.SubID, err)
			}
		}
	} else {
		logrus.Infof("[tick %07d] %s: rejecting subscription %q: %s", now, nodeID, m.Sub.SubID, resp.Cause)
	}

	if _, err := sched.Schedule(delays.Response, m.ReplyTo, resp); err != nil {
		logrus.Warnf("[tick %07d] %s: cannot answer subscription %q: %v", now, nodeID, m.Sub.SubID, err)
	}
}

// emit fans an internal event out to every matching active subscription, in
// subscription-creation order, each as one Indication scheduled with the
// reporting delay. accept filters per subscription (threshold semantics are
// event-type specific); nil accepts all.
func emit(sched *sim.Scheduler, now sim.VirtualTime, nodeID, controller string, table *e2.Table,
	delays Delays, eventType e2.EventType, payload map[string]any, accept func(*e2.Subscription) bool) {

	for _, sub := range table.Matching(eventType) {
		if accept != nil && !accept(sub) {
			continue
		}
		ind := e2.Indication{
			Source:    nodeID,
			SubID:     sub.SubID,
			EventType: eventType,
			EmittedAt: now,
			Payload:   payload,
		}
		if _, err := sched.Schedule(delays.Report, controller, ind); err != nil {
			logrus.Warnf("[tick %07d] %s: cannot report %s: %v", now, nodeID, eventType, err)
		}
	}
}

// reject reports a malformed or out-of-range control action back to the
// issuing controller.
func reject(sched *sim.Scheduler, now sim.VirtualTime, nodeID string, delays Delays, m e2.ControlRequest, cause string) {
	logrus.Infof("[tick %07d] %s: control %q rejected: %s", now, nodeID, m.Action, cause)
	fail := e2.ControlFailure{Target: nodeID, Issuer: m.Issuer, Action: m.Action, Cause: cause}
	if _, err := sched.Schedule(delays.Response, m.From, fail); err != nil {
		logrus.Warnf("[tick %07d] %s: cannot report control failure: %v", now, nodeID, err)
	}
}
