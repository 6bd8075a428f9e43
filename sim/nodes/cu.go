package nodes

import (
	"github.com/sirupsen/logrus"

	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/e2"
)

// OCUCP is the central-unit control plane. It terminates bearer management
// control actions and produces no indications, so subscription requests
// against it are rejected.
type OCUCP struct {
	id         string
	controller string
	bearers    int

	delays  Delays
	metrics *sim.Metrics
}

// NewOCUCP creates a control-plane central unit.
func NewOCUCP(id, controller string, delays Delays, metrics *sim.Metrics) *OCUCP {
	return &OCUCP{id: id, controller: controller, delays: delays, metrics: metrics}
}

func (c *OCUCP) NodeID() string { return c.id }
func (c *OCUCP) Kind() sim.Kind { return sim.KindOCUCP }

func (c *OCUCP) Handle(sched *sim.Scheduler, now sim.VirtualTime, msg sim.Message) {
	switch m := msg.(type) {
	case e2.SubscriptionRequest:
		// No reportable event types on the control plane; reject outright.
		resp := e2.SubscriptionResponse{
			SubID:    m.Sub.SubID,
			Target:   c.id,
			Accepted: false,
			Cause:    "unsupported event type " + string(m.Sub.Trigger.EventType),
		}
		logrus.Infof("[tick %07d] %s: rejecting subscription %q: %s", now, c.id, m.Sub.SubID, resp.Cause)
		if _, err := sched.Schedule(c.delays.Response, m.ReplyTo, resp); err != nil {
			logrus.Warnf("[tick %07d] %s: cannot answer subscription %q: %v", now, c.id, m.Sub.SubID, err)
		}
	case e2.ControlRequest:
		switch m.Action {
		case "bearer-setup":
			c.bearers++
			c.metrics.IncControlActions()
		case "bearer-release":
			if c.bearers == 0 {
				reject(sched, now, c.id, c.delays, m, "no bearers established")
				return
			}
			c.bearers--
			c.metrics.IncControlActions()
		default:
			reject(sched, now, c.id, c.delays, m, "unknown action")
		}
	default:
		logrus.Warnf("[tick %07d] %s: unhandled message %T", now, c.id, msg)
	}
}

// Bearers returns the number of established bearers.
func (c *OCUCP) Bearers() int { return c.bearers }

// OCUUP is the central-unit user plane. It tracks user sessions and reports
// session-count events on churn and on periodic subscriptions.
type OCUUP struct {
	id         string
	cucp       string
	controller string
	sessions   int

	table   *e2.Table
	delays  Delays
	metrics *sim.Metrics
}

// NewOCUUP creates a user-plane central unit paired with a control plane.
func NewOCUUP(id, cucp, controller string, delays Delays, metrics *sim.Metrics) *OCUUP {
	return &OCUUP{id: id, cucp: cucp, controller: controller, table: e2.NewTable(), delays: delays, metrics: metrics}
}

func (u *OCUUP) NodeID() string { return u.id }
func (u *OCUUP) Kind() sim.Kind { return sim.KindOCUUP }

func (u *OCUUP) Handle(sched *sim.Scheduler, now sim.VirtualTime, msg sim.Message) {
	switch m := msg.(type) {
	case e2.SubscriptionRequest:
		supported := map[e2.EventType]bool{e2.EventTypeSessionCount: true}
		handleSubscribe(sched, now, u.id, u.table, supported, true, u.delays, m)
	case e2.SubscriptionDelete:
		if err := u.table.Remove(m.SubID); err != nil {
			logrus.Debugf("[tick %07d] %s: %v", now, u.id, err)
		}
	case periodicReport:
		u.periodicSessions(sched, now, m.SubID)
	case e2.ControlRequest:
		u.applyControl(sched, now, m)
	default:
		logrus.Warnf("[tick %07d] %s: unhandled message %T", now, u.id, msg)
	}
}

func (u *OCUUP) sessionPayload() map[string]any {
	return map[string]any{"sessions": u.sessions}
}

func (u *OCUUP) applyControl(sched *sim.Scheduler, now sim.VirtualTime, m e2.ControlRequest) {
	switch m.Action {
	case "session-setup":
		u.sessions++
	case "session-release":
		if u.sessions == 0 {
			reject(sched, now, u.id, u.delays, m, "no sessions active")
			return
		}
		u.sessions--
	default:
		reject(sched, now, u.id, u.delays, m, "unknown action")
		return
	}
	u.metrics.IncControlActions()
	emit(sched, now, u.id, u.controller, u.table, u.delays, e2.EventTypeSessionCount, u.sessionPayload(),
		func(sub *e2.Subscription) bool { return sub.Trigger.Period == 0 })
}

func (u *OCUUP) periodicSessions(sched *sim.Scheduler, now sim.VirtualTime, subID string) {
	var sub *e2.Subscription
	for _, s := range u.table.Periodic() {
		if s.SubID == subID {
			sub = s
			break
		}
	}
	if sub == nil {
		return
	}
	ind := e2.Indication{
		Source:    u.id,
		SubID:     subID,
		EventType: e2.EventTypeSessionCount,
		EmittedAt: now,
		Payload:   u.sessionPayload(),
	}
	if _, err := sched.Schedule(u.delays.Report, u.controller, ind); err != nil {
		logrus.Warnf("[tick %07d] %s: periodic report dropped: %v", now, u.id, err)
	}
	if _, err := sched.Schedule(sub.Trigger.Period, u.id, periodicReport{SubID: subID}); err != nil {
		logrus.Warnf("[tick %07d] %s: periodic loop stopped: %v", now, u.id, err)
	}
}

// Sessions returns the number of active user sessions.
func (u *OCUUP) Sessions() int { return u.sessions }
