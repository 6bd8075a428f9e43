package scenario

import (
	"fmt"

	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/mobility"
	"github.com/oransim/oransim/sim/nodes"
	"github.com/oransim/oransim/sim/ric"
	"github.com/oransim/oransim/sim/trace"
)

// Simulation is one fully wired run: scheduler, controllers, network
// functions, metrics, and trace. Each Build call produces an independent
// instance, so parameter sweeps can construct many without
// cross-contamination.
type Simulation struct {
	cfg     *Config
	sched   *sim.Scheduler
	metrics *sim.Metrics
	tr      *trace.RunTrace
	rngs    *sim.PartitionedRNG

	nonRT  map[string]*ric.NonRTRIC
	nearRT map[string]*ric.NearRTRIC
	dus    map[string]*nodes.ODU
	rus    map[string]*nodes.ORU
	cucps  map[string]*nodes.OCUCP
	cuups  map[string]*nodes.OCUUP
	ues    map[string]*nodes.UE
}

// Build wires a validated configuration into a runnable simulation.
// Entities are registered in declaration order, which fixes the sequence
// numbers of all construction-time events and keeps runs reproducible.
func Build(cfg *Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics := sim.NewMetrics()
	s := &Simulation{
		cfg:     cfg,
		sched:   sim.NewScheduler(metrics),
		metrics: metrics,
		tr:      trace.NewRunTrace(),
		rngs:    sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)),
		nonRT:   make(map[string]*ric.NonRTRIC),
		nearRT:  make(map[string]*ric.NearRTRIC),
		dus:     make(map[string]*nodes.ODU),
		rus:     make(map[string]*nodes.ORU),
		cucps:   make(map[string]*nodes.OCUCP),
		cuups:   make(map[string]*nodes.OCUUP),
		ues:     make(map[string]*nodes.UE),
	}

	delays := nodes.Delays{
		Response: cfg.Delays.E2,
		Report:   cfg.Delays.Report,
	}

	for _, rc := range cfg.NearRTRICs {
		r := ric.NewNearRTRIC(rc.ID, rc.MaxNodes, cfg.Delays.E2, cfg.Delays.Control, cfg.Delays.A1, metrics, s.tr)
		if err := s.sched.Register(r); err != nil {
			return nil, err
		}
		s.nearRT[rc.ID] = r
	}

	for _, rc := range cfg.NonRTRICs {
		r := ric.NewNonRTRIC(rc.ID, cfg.Delays.A1, rc.OptimizeEvery, metrics)
		for _, managed := range rc.Manages {
			r.AddManagedRIC(managed)
		}
		if err := s.sched.Register(r); err != nil {
			return nil, err
		}
		if err := r.Start(s.sched); err != nil {
			return nil, err
		}
		s.nonRT[rc.ID] = r
	}

	for _, nc := range cfg.CUCPs {
		cu := nodes.NewOCUCP(nc.ID, nc.Controller, delays, metrics)
		if err := s.register(cu, nc.Controller); err != nil {
			return nil, err
		}
		s.cucps[nc.ID] = cu
	}

	for _, nc := range cfg.CUUPs {
		cu := nodes.NewOCUUP(nc.ID, nc.CUCP, nc.Controller, delays, metrics)
		if err := s.register(cu, nc.Controller); err != nil {
			return nil, err
		}
		s.cuups[nc.ID] = cu
	}

	for _, nc := range cfg.DUs {
		threshold := nc.LoadThreshold
		if threshold == 0 {
			threshold = 0.7
		}
		du := nodes.NewODU(nodes.DUConfig{
			ID:            nc.ID,
			CellID:        nc.CellID,
			CUCP:          nc.CUCP,
			Controller:    nc.Controller,
			MaxUEs:        nc.MaxUEs,
			SchedulerName: nc.Scheduler,
			LoadThreshold: threshold,
		}, delays, metrics)
		if err := s.register(du, nc.Controller); err != nil {
			return nil, err
		}
		s.dus[nc.ID] = du
	}

	ruDU := make(map[string]string)
	for _, nc := range cfg.RUs {
		ru := nodes.NewORU(nodes.RUConfig{
			ID:            nc.ID,
			DU:            nc.DU,
			Controller:    nc.Controller,
			Pos:           mobility.Position{X: nc.Position.X, Y: nc.Position.Y},
			FrequencyHz:   nc.FrequencyHz,
			BandwidthHz:   nc.BandwidthHz,
			TxPowerDBm:    nc.TxPowerDBm,
			FrameInterval: nc.FrameInterval,
			FrameLatMean:  nc.FrameLatMean,
			FrameLatStd:   nc.FrameLatStd,
		}, delays, s.rngs.ForSubsystem(sim.SubsystemFronthaul), metrics)
		if err := s.register(ru, nc.Controller); err != nil {
			return nil, err
		}
		if err := ru.Start(s.sched); err != nil {
			return nil, err
		}
		s.rus[nc.ID] = ru
		ruDU[nc.ID] = nc.DU
	}

	for _, nc := range cfg.UEs {
		model, err := mobility.New(nc.Mobility, nc.SpeedMps, nc.Area.Width, nc.Area.Height)
		if err != nil {
			return nil, fmt.Errorf("ue %q: %w", nc.ID, err)
		}
		ue := nodes.NewUE(nodes.UEConfig{
			ID:        nc.ID,
			ServingRU: nc.RU,
			Start:     mobility.Position{X: nc.Position.X, Y: nc.Position.Y},
			Interval:  nc.UpdateInterval,
		}, model, s.rngs.ForSubsystem(sim.SubsystemNode(nc.ID)))
		if err := s.sched.Register(ue); err != nil {
			return nil, err
		}
		if err := ue.Start(s.sched); err != nil {
			return nil, err
		}
		s.ues[nc.ID] = ue

		// Initial attachment lands at tick 0, before any subscription can be
		// active, so it seeds cell state without emitting reports.
		if _, err := s.sched.Schedule(0, ruDU[nc.RU], nodes.AttachUE{UE: nc.ID, RU: nc.RU}); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// register adds a network function to the scheduler and to its managing
// Near-RT RIC. A capacity overflow is a construction-time error.
func (s *Simulation) register(ent sim.Entity, controller string) error {
	if err := s.sched.Register(ent); err != nil {
		return err
	}
	r, ok := s.nearRT[controller]
	if !ok {
		return fmt.Errorf("node %q: unknown controller %q: %w", ent.NodeID(), controller, sim.ErrUnknownEntity)
	}
	return r.AddNode(ent.NodeID(), ent.Kind())
}

// Run drives the simulation until the given virtual time.
func (s *Simulation) Run(until sim.VirtualTime) error { return s.sched.Run(until) }

// RunToHorizon drives the simulation to the configured horizon.
func (s *Simulation) RunToHorizon() error { return s.sched.Run(s.cfg.Horizon) }

// Scheduler exposes the kernel for drivers that schedule command payloads.
func (s *Simulation) Scheduler() *sim.Scheduler { return s.sched }

// Metrics returns the run's metrics collector.
func (s *Simulation) Metrics() *sim.Metrics { return s.metrics }

// Trace returns the run's deterministic event trace.
func (s *Simulation) Trace() *trace.RunTrace { return s.tr }

// NonRT returns a tier-1 controller by id.
func (s *Simulation) NonRT(id string) *ric.NonRTRIC { return s.nonRT[id] }

// NearRT returns a tier-2 controller by id.
func (s *Simulation) NearRT(id string) *ric.NearRTRIC { return s.nearRT[id] }

// DU returns a distributed unit by id.
func (s *Simulation) DU(id string) *nodes.ODU { return s.dus[id] }

// RU returns a radio unit by id.
func (s *Simulation) RU(id string) *nodes.ORU { return s.rus[id] }

// CUCP returns a control-plane central unit by id.
func (s *Simulation) CUCP(id string) *nodes.OCUCP { return s.cucps[id] }

// CUUP returns a user-plane central unit by id.
func (s *Simulation) CUUP(id string) *nodes.OCUUP { return s.cuups[id] }

// UE returns a user equipment by id.
func (s *Simulation) UE(id string) *nodes.UE { return s.ues[id] }
