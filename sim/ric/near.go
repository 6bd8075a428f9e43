package ric

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/a1"
	"github.com/oransim/oransim/sim/e2"
	"github.com/oransim/oransim/sim/trace"
)

// NearRTRIC is the near-real-time controller tier. It owns the subscription
// registry and the per-managed-node bookkeeping, enforces policies pushed
// down over a1, and dispatches indications to its registered xApps.
type NearRTRIC struct {
	id       string
	maxNodes int

	nodes map[string]sim.Kind

	subs     map[string]*e2.Subscription
	subOrder []string
	nextSub  int

	policies      *a1.Store
	notifications []a1.Notification

	xapps     []XApp
	xappNames map[string]bool
	failures  []UnitFailure

	controlFailures []e2.ControlFailure

	e2Delay      sim.VirtualTime // subscription request/response propagation
	controlDelay sim.VirtualTime // control action execution delay
	a1Delay      sim.VirtualTime // decision propagation back to tier 1

	metrics *sim.Metrics
	tr      *trace.RunTrace
}

// NewNearRTRIC creates a Near-RT RIC with empty registries. metrics and tr
// may be nil.
func NewNearRTRIC(id string, maxNodes int, e2Delay, controlDelay, a1Delay sim.VirtualTime, metrics *sim.Metrics, tr *trace.RunTrace) *NearRTRIC {
	return &NearRTRIC{
		id:           id,
		maxNodes:     maxNodes,
		nodes:        make(map[string]sim.Kind),
		subs:         make(map[string]*e2.Subscription),
		policies:     a1.NewStore(),
		xappNames:    make(map[string]bool),
		e2Delay:      e2Delay,
		controlDelay: controlDelay,
		a1Delay:      a1Delay,
		metrics:      metrics,
		tr:           tr,
	}
}

func (r *NearRTRIC) NodeID() string { return r.id }
func (r *NearRTRIC) Kind() sim.Kind { return sim.KindNearRTRIC }

// AddNode places a network function under management. Idempotent for a node
// already managed with the same kind.
func (r *NearRTRIC) AddNode(id string, kind sim.Kind) error {
	if existing, ok := r.nodes[id]; ok {
		if existing != kind {
			return fmt.Errorf("add node %q: already managed as %s", id, existing)
		}
		return nil
	}
	if r.maxNodes > 0 && len(r.nodes) >= r.maxNodes {
		return fmt.Errorf("add node %q: %s manages %d nodes already", id, r.id, r.maxNodes)
	}
	r.nodes[id] = kind
	return nil
}

// RemoveNode takes a node out of management, cancels every subscription
// targeting it, and deregisters the entity so future messages addressed to
// it fail with ErrUnknownEntity. Events already dispatched are unaffected.
func (r *NearRTRIC) RemoveNode(sched *sim.Scheduler, id string) error {
	if _, ok := r.nodes[id]; !ok {
		return fmt.Errorf("remove node %q: %w", id, sim.ErrUnknownEntity)
	}
	delete(r.nodes, id)
	for _, subID := range r.subOrder {
		sub := r.subs[subID]
		if sub.Target == id && (sub.Status == e2.StatusActive || sub.Status == e2.StatusPending) {
			sub.Status = e2.StatusCancelled
		}
	}
	r.metrics.SetActiveSubscriptions(r.activeSubCount())
	return sched.Deregister(id)
}

// RegisterXApp binds a closed-loop unit to this controller. A unit name may
// be registered once; dispatch order is registration order.
func (r *NearRTRIC) RegisterXApp(x XApp) error {
	if r.xappNames[x.Name()] {
		return fmt.Errorf("register xApp %q: name already registered", x.Name())
	}
	r.xappNames[x.Name()] = true
	r.xapps = append(r.xapps, x)
	logrus.Infof("xApp %q registered with %s", x.Name(), r.id)
	return nil
}

// DeregisterXApp removes a unit by name. No-op if absent.
func (r *NearRTRIC) DeregisterXApp(name string) {
	if !r.xappNames[name] {
		return
	}
	delete(r.xappNames, name)
	for i, x := range r.xapps {
		if x.Name() == name {
			r.xapps = append(r.xapps[:i], r.xapps[i+1:]...)
			break
		}
	}
	logrus.Infof("xApp %q deregistered from %s", name, r.id)
}

// Subscribe opens a subscription on a managed node on behalf of subscriber.
// The subscription starts pending and becomes active (or terminally
// rejected) when the node's response arrives.
func (r *NearRTRIC) Subscribe(sched *sim.Scheduler, subscriber, target string, trigger e2.Trigger, actions []string) (string, error) {
	if _, ok := r.nodes[target]; !ok {
		return "", fmt.Errorf("subscribe to %q: %w", target, sim.ErrUnknownEntity)
	}
	r.nextSub++
	sub := e2.Subscription{
		SubID:      fmt.Sprintf("%s-sub-%d", r.id, r.nextSub),
		Subscriber: subscriber,
		Target:     target,
		Trigger:    trigger,
		Actions:    actions,
		Status:     e2.StatusPending,
	}
	if _, err := sched.Schedule(r.e2Delay, target, e2.SubscriptionRequest{Sub: sub, ReplyTo: r.id}); err != nil {
		return "", err
	}
	stored := sub
	r.subs[sub.SubID] = &stored
	r.subOrder = append(r.subOrder, sub.SubID)
	return sub.SubID, nil
}

// Unsubscribe cancels a subscription this controller owns and tells the
// target to drop its table entry.
func (r *NearRTRIC) Unsubscribe(sched *sim.Scheduler, subID string) error {
	sub, ok := r.subs[subID]
	if !ok {
		return fmt.Errorf("unsubscribe %q: %w", subID, sim.ErrNotFound)
	}
	if sub.Status != e2.StatusActive && sub.Status != e2.StatusPending {
		return fmt.Errorf("unsubscribe %q: status %s: %w", subID, sub.Status, sim.ErrRejected)
	}
	sub.Status = e2.StatusCancelled
	r.metrics.SetActiveSubscriptions(r.activeSubCount())
	if _, alive := sched.Lookup(sub.Target); alive {
		if _, err := sched.Schedule(r.e2Delay, sub.Target, e2.SubscriptionDelete{SubID: subID}); err != nil {
			return err
		}
	}
	return nil
}

// SendControl issues a one-way control action toward a managed node with the
// modeled execution delay.
func (r *NearRTRIC) SendControl(sched *sim.Scheduler, issuer, node, action string, params map[string]any) error {
	if _, ok := r.nodes[node]; !ok {
		return fmt.Errorf("control %q on %q: %w", action, node, sim.ErrUnknownEntity)
	}
	_, err := sched.Schedule(r.controlDelay, node, e2.ControlRequest{
		From:   r.id,
		Issuer: issuer,
		Action: action,
		Params: params,
	})
	return err
}

// Handle processes one scheduled message addressed to this controller.
func (r *NearRTRIC) Handle(sched *sim.Scheduler, now sim.VirtualTime, msg sim.Message) {
	switch m := msg.(type) {
	case e2.SubscriptionResponse:
		r.handleSubscriptionResponse(m)
	case e2.Indication:
		r.handleIndication(sched, now, m)
	case e2.ControlFailure:
		logrus.Warnf("[tick %07d] %s: control %q on %q rejected: %s", now, r.id, m.Action, m.Target, m.Cause)
		r.controlFailures = append(r.controlFailures, m)
		r.metrics.IncControlRejected()
	case a1.Request:
		r.handlePolicyRequest(sched, now, m)
	case SubscribeCmd:
		if _, err := r.Subscribe(sched, m.Subscriber, m.Target, m.Trigger, m.Actions); err != nil {
			logrus.Warnf("[tick %07d] %s: subscribe command failed: %v", now, r.id, err)
		}
	case UnsubscribeCmd:
		if err := r.Unsubscribe(sched, m.SubID); err != nil {
			logrus.Warnf("[tick %07d] %s: unsubscribe command failed: %v", now, r.id, err)
		}
	case ControlCmd:
		if err := r.SendControl(sched, m.Issuer, m.Node, m.Action, m.Params); err != nil {
			logrus.Warnf("[tick %07d] %s: control command failed: %v", now, r.id, err)
		}
	default:
		logrus.Warnf("[tick %07d] %s: unhandled message %T", now, r.id, msg)
	}
}

func (r *NearRTRIC) handleSubscriptionResponse(resp e2.SubscriptionResponse) {
	sub, ok := r.subs[resp.SubID]
	if !ok {
		logrus.Warnf("%s: response for unknown subscription %q", r.id, resp.SubID)
		return
	}
	if sub.Status == e2.StatusCancelled {
		// Cancelled while the response was in flight; the outcome no longer
		// matters.
		return
	}
	if resp.Accepted {
		sub.Status = e2.StatusActive
	} else {
		sub.Status = e2.StatusRejected
		logrus.Infof("%s: subscription %q rejected by %q: %s", r.id, resp.SubID, resp.Target, resp.Cause)
	}
	r.metrics.SetActiveSubscriptions(r.activeSubCount())
}

func (r *NearRTRIC) handleIndication(sched *sim.Scheduler, now sim.VirtualTime, ind e2.Indication) {
	sub, ok := r.subs[ind.SubID]
	if !ok || sub.Status != e2.StatusActive {
		// Indication raced a cancellation; drop it without dispatching.
		return
	}
	r.metrics.IncIndications()
	r.tr.RecordIndication(trace.IndicationRecord{
		At:        now,
		EmittedAt: ind.EmittedAt,
		Source:    ind.Source,
		SubID:     ind.SubID,
		EventType: string(ind.EventType),
		Payload:   ind.Payload,
	})

	// Dispatch in registration order. Snapshot first: a failing unit is
	// deregistered mid-loop.
	units := make([]XApp, len(r.xapps))
	copy(units, r.xapps)
	for _, x := range units {
		if !r.xappNames[x.Name()] || !interested(x, ind.EventType) {
			continue
		}
		r.invokeXApp(x, sched, now, ind)
	}
}

func (r *NearRTRIC) invokeXApp(x XApp, sched *sim.Scheduler, now sim.VirtualTime, ind e2.Indication) {
	defer func() {
		if rec := recover(); rec != nil {
			cause := fmt.Sprintf("%v", rec)
			logrus.Errorf("[tick %07d] xApp %q failed handling %s: %s", now, x.Name(), ind.EventType, cause)
			r.DeregisterXApp(x.Name())
			r.failures = append(r.failures, UnitFailure{At: now, Controller: r.id, Unit: x.Name(), Cause: cause})
		}
	}()
	x.HandleIndication(r, sched, now, ind)
}

func interested(x XApp, eventType e2.EventType) bool {
	for _, et := range x.EventTypes() {
		if et == eventType {
			return true
		}
	}
	return false
}

func (r *NearRTRIC) handlePolicyRequest(sched *sim.Scheduler, now sim.VirtualTime, req a1.Request) {
	key := a1.Key{Type: req.Type, ID: req.PolicyID}
	decision := a1.Decision{Txn: req.Txn, Op: req.Op, Type: req.Type, PolicyID: req.PolicyID}

	var err error
	switch req.Op {
	case a1.OpCreate:
		err = r.policies.Create(a1.Policy{
			Type:    req.Type,
			ID:      req.PolicyID,
			Content: req.Content,
			Version: req.Version,
			Target:  req.Target,
		})
		decision.Version = req.Version
	case a1.OpUpdate:
		err = r.policies.Update(key, req.Content, req.Version)
		decision.Version = req.Version
	case a1.OpDelete:
		if cur, qerr := r.policies.Query(key); qerr == nil {
			decision.Version = cur.Version
		}
		err = r.policies.Delete(key)
	case a1.OpQuery:
		var cur a1.Policy
		cur, err = r.policies.Query(key)
		decision.Content = cur.Content
		decision.Version = cur.Version
	default:
		err = fmt.Errorf("op %q: %w", req.Op, sim.ErrRejected)
	}

	decision.Accepted = err == nil
	decision.Cause = a1.CauseFor(err)
	if err != nil {
		logrus.Infof("[tick %07d] %s: policy %s %s rejected: %v", now, r.id, req.Op, key, err)
	}

	if req.Op != a1.OpQuery {
		if decision.Accepted {
			r.metrics.IncPolicyAccepted()
		} else {
			r.metrics.IncPolicyRejected()
		}
		r.metrics.SetActivePolicies(r.policies.ActiveCount())
		r.notifications = append(r.notifications, a1.Notification{
			At:       now,
			Op:       req.Op,
			Type:     req.Type,
			PolicyID: req.PolicyID,
			Version:  decision.Version,
			Applied:  decision.Accepted,
			Cause:    decision.Cause,
		})
		r.tr.RecordPolicy(trace.PolicyRecord{
			At:       now,
			Op:       string(req.Op),
			Type:     string(req.Type),
			PolicyID: req.PolicyID,
			Version:  decision.Version,
			Applied:  decision.Accepted,
			Cause:    decision.Cause,
		})
	}

	if _, err := sched.Schedule(r.a1Delay, req.ReplyTo, decision); err != nil {
		logrus.Warnf("[tick %07d] %s: cannot deliver decision for txn %d: %v", now, r.id, req.Txn, err)
	}
}

func (r *NearRTRIC) activeSubCount() int {
	n := 0
	for _, sub := range r.subs {
		if sub.Status == e2.StatusActive {
			n++
		}
	}
	return n
}

// Subscription returns a copy of the registry entry for subID.
func (r *NearRTRIC) Subscription(subID string) (e2.Subscription, bool) {
	sub, ok := r.subs[subID]
	if !ok {
		return e2.Subscription{}, false
	}
	return *sub, true
}

// Subscriptions returns the registry in creation order.
func (r *NearRTRIC) Subscriptions() []e2.Subscription {
	out := make([]e2.Subscription, 0, len(r.subOrder))
	for _, id := range r.subOrder {
		out = append(out, *r.subs[id])
	}
	return out
}

// Policies returns a snapshot of the enforced policy table in key order.
func (r *NearRTRIC) Policies() []a1.Policy { return r.policies.Snapshot() }

// QueryPolicy reads one enforced policy without a protocol round-trip.
func (r *NearRTRIC) QueryPolicy(key a1.Key) (a1.Policy, error) { return r.policies.Query(key) }

// Notifications returns the applied/rejected policy outcomes in order.
func (r *NearRTRIC) Notifications() []a1.Notification {
	out := make([]a1.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// Failures returns the unrecoverable xApp failures recorded so far.
func (r *NearRTRIC) Failures() []UnitFailure {
	out := make([]UnitFailure, len(r.failures))
	copy(out, r.failures)
	return out
}

// ControlFailures returns the rejected control actions reported back.
func (r *NearRTRIC) ControlFailures() []e2.ControlFailure {
	out := make([]e2.ControlFailure, len(r.controlFailures))
	copy(out, r.controlFailures)
	return out
}

// ManagedNodes lists managed node ids in sorted order.
func (r *NearRTRIC) ManagedNodes() []string {
	out := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
