package nodes

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/mobility"
)

// UEConfig carries the user-equipment attributes taken from the topology
// file.
type UEConfig struct {
	ID        string
	ServingRU string
	Start     mobility.Position
	Interval  sim.VirtualTime // ticks between mobility steps
}

// UE is a user equipment driven by a mobility model. Each wake advances the
// position and reports it to the serving radio unit; the UE then schedules
// its next wake and returns, never holding the clock.
type UE struct {
	cfg   UEConfig
	pos   mobility.Position
	model mobility.Model
	rng   *rand.Rand
}

// NewUE creates a UE. rng must be this UE's node-subsystem RNG so mobility
// draws stay isolated per UE.
func NewUE(cfg UEConfig, model mobility.Model, rng *rand.Rand) *UE {
	return &UE{cfg: cfg, pos: cfg.Start, model: model, rng: rng}
}

func (u *UE) NodeID() string { return u.cfg.ID }
func (u *UE) Kind() sim.Kind { return sim.KindUE }

// Start schedules the first mobility wake.
func (u *UE) Start(sched *sim.Scheduler) error {
	if u.cfg.Interval <= 0 {
		return nil
	}
	_, err := sched.Schedule(u.cfg.Interval, u.cfg.ID, ueWake{})
	return err
}

func (u *UE) Handle(sched *sim.Scheduler, now sim.VirtualTime, msg sim.Message) {
	switch m := msg.(type) {
	case ueWake:
		elapsed := float64(u.cfg.Interval) / 1e6 // ticks are microseconds
		u.pos = u.model.Next(u.pos, elapsed, u.rng)
		if _, err := sched.Schedule(0, u.cfg.ServingRU, PositionUpdate{UE: u.cfg.ID, Pos: u.pos}); err != nil {
			logrus.Debugf("[tick %07d] %s: position update dropped: %v", now, u.cfg.ID, err)
		}
		if _, err := sched.Schedule(u.cfg.Interval, u.cfg.ID, ueWake{}); err != nil {
			logrus.Warnf("[tick %07d] %s: mobility loop stopped: %v", now, u.cfg.ID, err)
		}
	case SetServingRU:
		u.cfg.ServingRU = m.RU
		logrus.Infof("[tick %07d] %s: now served by %q", now, u.cfg.ID, m.RU)
	default:
		logrus.Warnf("[tick %07d] %s: unhandled message %T", now, u.cfg.ID, msg)
	}
}

// Position returns the UE's current position.
func (u *UE) Position() mobility.Position { return u.pos }

// ServingRU returns the id of the radio unit currently serving this UE.
func (u *UE) ServingRU() string { return u.cfg.ServingRU }
