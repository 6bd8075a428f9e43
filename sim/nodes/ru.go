package nodes

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/e2"
	"github.com/oransim/oransim/sim/mobility"
)

// RUConfig carries the radio-unit attributes taken from the topology file.
type RUConfig struct {
	ID            string
	DU            string
	Controller    string
	Pos           mobility.Position
	FrequencyHz   float64
	BandwidthHz   float64
	TxPowerDBm    float64
	FrameInterval sim.VirtualTime // 0 disables fronthaul frames
	FrameLatMean  sim.VirtualTime
	FrameLatStd   sim.VirtualTime
}

// ORU is a radio unit. It streams periodic fronthaul frames to its
// distributed unit with jittered latency, and converts UE position updates
// into link-quality events reported to matching subscriptions.
type ORU struct {
	cfg      RUConfig
	frameSeq int64

	table   *e2.Table
	delays  Delays
	rng     *rand.Rand
	metrics *sim.Metrics
}

// NewORU creates a radio unit. rng must be the fronthaul-subsystem RNG so
// frame jitter is reproducible.
func NewORU(cfg RUConfig, delays Delays, rng *rand.Rand, metrics *sim.Metrics) *ORU {
	return &ORU{cfg: cfg, table: e2.NewTable(), delays: delays, rng: rng, metrics: metrics}
}

func (r *ORU) NodeID() string { return r.cfg.ID }
func (r *ORU) Kind() sim.Kind { return sim.KindORU }

// Start schedules the first fronthaul frame tick.
func (r *ORU) Start(sched *sim.Scheduler) error {
	if r.cfg.FrameInterval <= 0 {
		return nil
	}
	_, err := sched.Schedule(r.cfg.FrameInterval, r.cfg.ID, frameTick{})
	return err
}

func (r *ORU) Handle(sched *sim.Scheduler, now sim.VirtualTime, msg sim.Message) {
	switch m := msg.(type) {
	case frameTick:
		r.sendFrame(sched, now)
	case PositionUpdate:
		r.reportLinkQuality(sched, now, m)
	case e2.SubscriptionRequest:
		supported := map[e2.EventType]bool{e2.EventTypeLinkQuality: true}
		handleSubscribe(sched, now, r.cfg.ID, r.table, supported, false, r.delays, m)
	case e2.SubscriptionDelete:
		if err := r.table.Remove(m.SubID); err != nil {
			logrus.Debugf("[tick %07d] %s: %v", now, r.cfg.ID, err)
		}
	case e2.ControlRequest:
		r.applyControl(sched, now, m)
	default:
		logrus.Warnf("[tick %07d] %s: unhandled message %T", now, r.cfg.ID, msg)
	}
}

func (r *ORU) sendFrame(sched *sim.Scheduler, now sim.VirtualTime) {
	r.frameSeq++
	latency := r.cfg.FrameLatMean + sim.VirtualTime(float64(r.cfg.FrameLatStd)*r.rng.NormFloat64())
	if latency < 1 {
		latency = 1
	}
	if _, err := sched.Schedule(latency, r.cfg.DU, FronthaulFrame{RU: r.cfg.ID, Seq: r.frameSeq}); err != nil {
		logrus.Warnf("[tick %07d] %s: fronthaul frame dropped: %v", now, r.cfg.ID, err)
	}
	if _, err := sched.Schedule(r.cfg.FrameInterval, r.cfg.ID, frameTick{}); err != nil {
		logrus.Warnf("[tick %07d] %s: fronthaul loop stopped: %v", now, r.cfg.ID, err)
	}
}

// reportLinkQuality derives RSRP from a free-space path-loss model and fans
// it out to link-quality subscriptions. A subscription threshold, when set,
// bounds reporting to samples at or below it.
func (r *ORU) reportLinkQuality(sched *sim.Scheduler, now sim.VirtualTime, m PositionUpdate) {
	dist := math.Max(1, r.cfg.Pos.Distance(m.Pos))
	pathLoss := 20*math.Log10(dist) + 20*math.Log10(r.cfg.FrequencyHz) - 147.55
	rsrp := r.cfg.TxPowerDBm - pathLoss

	payload := map[string]any{
		"ue":         m.UE,
		"rsrp":       rsrp,
		"distance_m": dist,
		"serving_du": r.cfg.DU,
	}
	emit(sched, now, r.cfg.ID, r.cfg.Controller, r.table, r.delays, e2.EventTypeLinkQuality, payload,
		func(sub *e2.Subscription) bool {
			return sub.Trigger.Threshold == 0 || rsrp <= sub.Trigger.Threshold
		})
}

func (r *ORU) applyControl(sched *sim.Scheduler, now sim.VirtualTime, m e2.ControlRequest) {
	switch m.Action {
	case "set-tx-power":
		dbm, ok := m.Params["tx_power_dbm"].(float64)
		if !ok || dbm < 0 || dbm > 60 {
			reject(sched, now, r.cfg.ID, r.delays, m, "tx_power_dbm out of range")
			return
		}
		r.cfg.TxPowerDBm = dbm
		r.metrics.IncControlActions()
		logrus.Infof("[tick %07d] %s: tx power set to %.1f dBm", now, r.cfg.ID, dbm)
	default:
		reject(sched, now, r.cfg.ID, r.delays, m, "unknown action")
	}
}

// TxPowerDBm returns the currently applied transmit power.
func (r *ORU) TxPowerDBm() float64 { return r.cfg.TxPowerDBm }

// FramesSent returns the number of fronthaul frames transmitted.
func (r *ORU) FramesSent() int64 { return r.frameSeq }
