package ric

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/a1"
)

// optimizeTick is the Non-RT RIC's periodic wake event for optimization
// rounds.
type optimizeTick struct{}

// pendingOp correlates an in-flight policy operation with its issuer.
type pendingOp struct {
	req a1.Request
	ric string
}

// NonRTRIC is the non-real-time controller tier. It owns the authoritative
// policy registry, the set of managed Near-RT RICs, and the registered
// optimization rApps. Policy operations travel to the addressed Near-RT RIC
// over the event queue; the registry is reconciled when the acknowledgment
// comes back, so snapshots always reflect acknowledged state.
type NonRTRIC struct {
	id      string
	managed map[string]bool

	rapps     []RApp
	rappNames map[string]bool
	failures  []UnitFailure

	registry *a1.Store
	pending  map[uint64]pendingOp
	nextTxn  uint64

	a1Delay       sim.VirtualTime
	optimizeEvery sim.VirtualTime // 0 disables optimization rounds

	metrics *sim.Metrics
}

// NewNonRTRIC creates a Non-RT RIC with empty registries. metrics may be nil.
func NewNonRTRIC(id string, a1Delay, optimizeEvery sim.VirtualTime, metrics *sim.Metrics) *NonRTRIC {
	return &NonRTRIC{
		id:            id,
		managed:       make(map[string]bool),
		rappNames:     make(map[string]bool),
		registry:      a1.NewStore(),
		pending:       make(map[uint64]pendingOp),
		a1Delay:       a1Delay,
		optimizeEvery: optimizeEvery,
		metrics:       metrics,
	}
}

func (n *NonRTRIC) NodeID() string { return n.id }
func (n *NonRTRIC) Kind() sim.Kind { return sim.KindNonRTRIC }

// AddManagedRIC places a Near-RT RIC under management. Idempotent.
func (n *NonRTRIC) AddManagedRIC(id string) { n.managed[id] = true }

// RemoveManagedRIC removes a Near-RT RIC from management. Idempotent.
func (n *NonRTRIC) RemoveManagedRIC(id string) { delete(n.managed, id) }

// Manages reports whether id is under management.
func (n *NonRTRIC) Manages(id string) bool { return n.managed[id] }

// RegisterRApp binds an optimization unit to this controller.
func (n *NonRTRIC) RegisterRApp(r RApp) error {
	if n.rappNames[r.Name()] {
		return fmt.Errorf("register rApp %q: name already registered", r.Name())
	}
	n.rappNames[r.Name()] = true
	n.rapps = append(n.rapps, r)
	logrus.Infof("rApp %q registered with %s", r.Name(), n.id)
	return nil
}

// DeregisterRApp removes a unit by name. No-op if absent.
func (n *NonRTRIC) DeregisterRApp(name string) {
	if !n.rappNames[name] {
		return
	}
	delete(n.rappNames, name)
	for i, r := range n.rapps {
		if r.Name() == name {
			n.rapps = append(n.rapps[:i], n.rapps[i+1:]...)
			break
		}
	}
	logrus.Infof("rApp %q deregistered from %s", name, n.id)
}

// Start schedules the first optimization round. Call once after the
// controller is registered with the scheduler.
func (n *NonRTRIC) Start(sched *sim.Scheduler) error {
	if n.optimizeEvery <= 0 {
		return nil
	}
	_, err := sched.Schedule(n.optimizeEvery, n.id, optimizeTick{})
	return err
}

// Client returns the narrow policy surface handed to the named unit.
func (n *NonRTRIC) Client(sched *sim.Scheduler, issuer string) *PolicyClient {
	return &PolicyClient{owner: n, sched: sched, issuer: issuer}
}

// issue validates and schedules one policy operation toward a managed
// Near-RT RIC. Liveness of the addressed controller and of a downstream
// policy target is checked through the scheduler's registry accessor; an
// operation addressed to a deregistered entity fails ErrUnknownEntity
// before anything is queued.
func (n *NonRTRIC) issue(sched *sim.Scheduler, issuer, ricID string, op a1.Op, typ a1.PolicyType, policyID string, content map[string]any, version int64, target string) error {
	if !n.managed[ricID] {
		return fmt.Errorf("policy %s to %q: not a managed controller: %w", op, ricID, sim.ErrUnknownEntity)
	}
	if target != "" && target != ricID {
		if _, ok := sched.Lookup(target); !ok {
			return fmt.Errorf("policy %s target %q: %w", op, target, sim.ErrUnknownEntity)
		}
	}
	n.nextTxn++
	req := a1.Request{
		Txn:      n.nextTxn,
		Op:       op,
		Type:     typ,
		PolicyID: policyID,
		Content:  content,
		Version:  version,
		Target:   target,
		ReplyTo:  n.id,
		Issuer:   issuer,
	}
	if _, err := sched.Schedule(n.a1Delay, ricID, req); err != nil {
		return err
	}
	n.pending[req.Txn] = pendingOp{req: req, ric: ricID}
	return nil
}

// Handle processes one scheduled message addressed to this controller.
func (n *NonRTRIC) Handle(sched *sim.Scheduler, now sim.VirtualTime, msg sim.Message) {
	switch m := msg.(type) {
	case a1.Decision:
		n.handleDecision(sched, now, m)
	case optimizeTick:
		n.runOptimizationRound(sched, now)
		if _, err := sched.Schedule(n.optimizeEvery, n.id, optimizeTick{}); err != nil {
			logrus.Warnf("[tick %07d] %s: cannot reschedule optimization round: %v", now, n.id, err)
		}
	case PolicyCmd:
		if err := n.issue(sched, m.Issuer, m.RIC, m.Op, m.Type, m.PolicyID, m.Content, m.Version, m.Target); err != nil {
			logrus.Warnf("[tick %07d] %s: policy command failed: %v", now, n.id, err)
		}
	default:
		logrus.Warnf("[tick %07d] %s: unhandled message %T", now, n.id, msg)
	}
}

func (n *NonRTRIC) handleDecision(sched *sim.Scheduler, now sim.VirtualTime, d a1.Decision) {
	op, ok := n.pending[d.Txn]
	if !ok {
		logrus.Warnf("[tick %07d] %s: decision for unknown txn %d", now, n.id, d.Txn)
		return
	}
	delete(n.pending, d.Txn)

	if d.Accepted {
		n.reconcile(op.req)
	}

	for _, r := range n.rapps {
		if r.Name() != op.req.Issuer {
			continue
		}
		n.invokeRApp(r, sched, now, func(client *PolicyClient) {
			r.HandleDecision(client, now, d)
		})
		break
	}
}

// reconcile applies an acknowledged mutation to the authoritative registry.
// The Near-RT side already validated the operation, so a local failure here
// means the two tables diverged and is worth a warning.
func (n *NonRTRIC) reconcile(req a1.Request) {
	key := a1.Key{Type: req.Type, ID: req.PolicyID}
	var err error
	switch req.Op {
	case a1.OpCreate:
		err = n.registry.Create(a1.Policy{
			Type:    req.Type,
			ID:      req.PolicyID,
			Content: req.Content,
			Version: req.Version,
			Target:  req.Target,
		})
	case a1.OpUpdate:
		err = n.registry.Update(key, req.Content, req.Version)
	case a1.OpDelete:
		err = n.registry.Delete(key)
	case a1.OpQuery:
		// read-only
	}
	if err != nil {
		logrus.Warnf("%s: registry reconcile of %s %s failed: %v", n.id, req.Op, key, err)
	}
}

func (n *NonRTRIC) runOptimizationRound(sched *sim.Scheduler, now sim.VirtualTime) {
	units := make([]RApp, len(n.rapps))
	copy(units, n.rapps)
	for _, r := range units {
		if !n.rappNames[r.Name()] {
			continue
		}
		n.invokeRApp(r, sched, now, func(client *PolicyClient) {
			r.Optimize(client, now)
		})
	}
}

func (n *NonRTRIC) invokeRApp(r RApp, sched *sim.Scheduler, now sim.VirtualTime, fn func(*PolicyClient)) {
	defer func() {
		if rec := recover(); rec != nil {
			cause := fmt.Sprintf("%v", rec)
			logrus.Errorf("[tick %07d] rApp %q failed: %s", now, r.Name(), cause)
			n.DeregisterRApp(r.Name())
			n.failures = append(n.failures, UnitFailure{At: now, Controller: n.id, Unit: r.Name(), Cause: cause})
		}
	}()
	fn(n.Client(sched, r.Name()))
}

// Registry returns a snapshot of acknowledged policies in key order.
func (n *NonRTRIC) Registry() []a1.Policy { return n.registry.Snapshot() }

// PendingOps reports the number of policy operations awaiting a decision.
func (n *NonRTRIC) PendingOps() int { return len(n.pending) }

// Failures returns the unrecoverable rApp failures recorded so far.
func (n *NonRTRIC) Failures() []UnitFailure {
	out := make([]UnitFailure, len(n.failures))
	copy(out, n.failures)
	return out
}

// PolicyClient is the narrow policy-operation surface a Non-RT RIC hands to
// its rApps. All operations are asynchronous: the result arrives as an
// a1.Decision on the issuing unit's HandleDecision entry point.
type PolicyClient struct {
	owner  *NonRTRIC
	sched  *sim.Scheduler
	issuer string
}

// Create issues a policy create (version must be 1) toward ric.
func (c *PolicyClient) Create(ric string, typ a1.PolicyType, policyID string, content map[string]any, target string) error {
	return c.owner.issue(c.sched, c.issuer, ric, a1.OpCreate, typ, policyID, content, 1, target)
}

// Update issues a policy update carrying the next version.
func (c *PolicyClient) Update(ric string, typ a1.PolicyType, policyID string, content map[string]any, version int64) error {
	return c.owner.issue(c.sched, c.issuer, ric, a1.OpUpdate, typ, policyID, content, version, "")
}

// Delete issues a policy delete.
func (c *PolicyClient) Delete(ric string, typ a1.PolicyType, policyID string) error {
	return c.owner.issue(c.sched, c.issuer, ric, a1.OpDelete, typ, policyID, nil, 0, "")
}

// Query issues a read-only policy query.
func (c *PolicyClient) Query(ric string, typ a1.PolicyType, policyID string) error {
	return c.owner.issue(c.sched, c.issuer, ric, a1.OpQuery, typ, policyID, nil, 0, "")
}
