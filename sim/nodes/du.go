package nodes

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/e2"
)

// DUConfig carries the distributed-unit attributes taken from the topology
// file.
type DUConfig struct {
	ID            string
	CellID        int
	CUCP          string
	Controller    string
	MaxUEs        int
	SchedulerName string
	LoadThreshold float64 // load ratio above which cell-load events fire
}

// ODU is a distributed unit. It tracks attached UEs per cell, counts
// fronthaul frames from its radio units, reports cell load, and applies
// handover and capacity control actions.
type ODU struct {
	cfg      DUConfig
	attached map[string]string // UE id -> serving RU id
	frames   map[string]int64  // RU id -> frames received

	table   *e2.Table
	delays  Delays
	metrics *sim.Metrics
}

// NewODU creates a distributed unit with no attached UEs.
func NewODU(cfg DUConfig, delays Delays, metrics *sim.Metrics) *ODU {
	return &ODU{
		cfg:      cfg,
		attached: make(map[string]string),
		frames:   make(map[string]int64),
		table:    e2.NewTable(),
		delays:   delays,
		metrics:  metrics,
	}
}

func (d *ODU) NodeID() string { return d.cfg.ID }
func (d *ODU) Kind() sim.Kind { return sim.KindODU }

func (d *ODU) Handle(sched *sim.Scheduler, now sim.VirtualTime, msg sim.Message) {
	switch m := msg.(type) {
	case AttachUE:
		d.attached[m.UE] = m.RU
		d.reportLoad(sched, now, false)
	case DetachUE:
		delete(d.attached, m.UE)
		d.reportLoad(sched, now, false)
	case FronthaulFrame:
		d.frames[m.RU]++
	case periodicReport:
		d.periodicLoad(sched, now, m.SubID)
	case e2.SubscriptionRequest:
		supported := map[e2.EventType]bool{e2.EventTypeCellLoad: true}
		handleSubscribe(sched, now, d.cfg.ID, d.table, supported, true, d.delays, m)
	case e2.SubscriptionDelete:
		if err := d.table.Remove(m.SubID); err != nil {
			logrus.Debugf("[tick %07d] %s: %v", now, d.cfg.ID, err)
		}
	case e2.ControlRequest:
		d.applyControl(sched, now, m)
	default:
		logrus.Warnf("[tick %07d] %s: unhandled message %T", now, d.cfg.ID, msg)
	}
}

// loadRatio is attached UEs over cell capacity.
func (d *ODU) loadRatio() float64 {
	if d.cfg.MaxUEs <= 0 {
		return 0
	}
	return float64(len(d.attached)) / float64(d.cfg.MaxUEs)
}

func (d *ODU) loadPayload() map[string]any {
	return map[string]any{
		"cell_id":      d.cfg.CellID,
		"attached_ues": len(d.attached),
		"max_ues":      d.cfg.MaxUEs,
		"load":         d.loadRatio(),
	}
}

// reportLoad emits a cell-load event to event-driven subscriptions when the
// load ratio sits at or above the configured threshold (or always, when
// forced by a periodic report). Periodic subscriptions are served by their
// own reporting loop and skipped here.
func (d *ODU) reportLoad(sched *sim.Scheduler, now sim.VirtualTime, force bool) {
	load := d.loadRatio()
	if !force && load < d.cfg.LoadThreshold {
		return
	}
	payload := d.loadPayload()
	emit(sched, now, d.cfg.ID, d.cfg.Controller, d.table, d.delays, e2.EventTypeCellLoad, payload,
		func(sub *e2.Subscription) bool {
			if sub.Trigger.Period > 0 {
				return false
			}
			return sub.Trigger.Threshold == 0 || load >= sub.Trigger.Threshold
		})
}

// periodicLoad serves one standing report and reschedules itself while the
// subscription stays in the table.
func (d *ODU) periodicLoad(sched *sim.Scheduler, now sim.VirtualTime, subID string) {
	var sub *e2.Subscription
	for _, s := range d.table.Periodic() {
		if s.SubID == subID {
			sub = s
			break
		}
	}
	if sub == nil {
		return // unsubscribed; let the loop die
	}
	ind := e2.Indication{
		Source:    d.cfg.ID,
		SubID:     subID,
		EventType: e2.EventTypeCellLoad,
		EmittedAt: now,
		Payload:   d.loadPayload(),
	}
	if _, err := sched.Schedule(d.delays.Report, d.cfg.Controller, ind); err != nil {
		logrus.Warnf("[tick %07d] %s: periodic report dropped: %v", now, d.cfg.ID, err)
	}
	if _, err := sched.Schedule(sub.Trigger.Period, d.cfg.ID, periodicReport{SubID: subID}); err != nil {
		logrus.Warnf("[tick %07d] %s: periodic loop stopped: %v", now, d.cfg.ID, err)
	}
}

func (d *ODU) applyControl(sched *sim.Scheduler, now sim.VirtualTime, m e2.ControlRequest) {
	switch m.Action {
	case "handover":
		ue, _ := m.Params["ue"].(string)
		targetDU, _ := m.Params["target_du"].(string)
		targetRU, _ := m.Params["target_ru"].(string)
		if ue == "" || targetDU == "" || targetRU == "" {
			reject(sched, now, d.cfg.ID, d.delays, m, "missing handover parameters")
			return
		}
		if _, ok := d.attached[ue]; !ok {
			reject(sched, now, d.cfg.ID, d.delays, m, fmt.Sprintf("ue %q not attached", ue))
			return
		}
		delete(d.attached, ue)
		if _, err := sched.Schedule(0, targetDU, AttachUE{UE: ue, RU: targetRU}); err != nil {
			reject(sched, now, d.cfg.ID, d.delays, m, fmt.Sprintf("target cell: %v", err))
			return
		}
		if _, err := sched.Schedule(0, ue, SetServingRU{RU: targetRU}); err != nil {
			logrus.Warnf("[tick %07d] %s: cannot retarget %q: %v", now, d.cfg.ID, ue, err)
		}
		d.metrics.IncControlActions()
		logrus.Infof("[tick %07d] %s: handed %q over to %s/%s", now, d.cfg.ID, ue, targetDU, targetRU)
		d.reportLoad(sched, now, false)

	case "set-max-ues":
		v, ok := m.Params["max_ues"].(float64)
		if !ok || v < 1 || v > math.MaxInt32 || v != math.Trunc(v) {
			reject(sched, now, d.cfg.ID, d.delays, m, "max_ues out of range")
			return
		}
		d.cfg.MaxUEs = int(v)
		d.metrics.IncControlActions()
		logrus.Infof("[tick %07d] %s: max UEs set to %d", now, d.cfg.ID, d.cfg.MaxUEs)
		d.reportLoad(sched, now, false)

	default:
		reject(sched, now, d.cfg.ID, d.delays, m, "unknown action")
	}
}

// AttachedUEs returns the number of UEs attached to this cell.
func (d *ODU) AttachedUEs() int { return len(d.attached) }

// MaxUEs returns the current cell capacity.
func (d *ODU) MaxUEs() int { return d.cfg.MaxUEs }

// FramesFrom returns the fronthaul frame count received from one radio unit.
func (d *ODU) FramesFrom(ru string) int64 { return d.frames[ru] }
