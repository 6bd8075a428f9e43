// Package scenario loads, validates, and wires topology configurations into
// runnable simulations. All reference checking happens here, before any run
// call: a cell naming a missing unit is a construction-time error, never a
// runtime one.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Point is a 2D coordinate in the topology file.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Area bounds a mobility model.
type Area struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// DelayConfig groups the modeled protocol propagation delays, in ticks.
type DelayConfig struct {
	A1      int64 `yaml:"a1_ticks"`      // policy request/decision propagation
	E2      int64 `yaml:"e2_ticks"`      // subscription request/response propagation
	Control int64 `yaml:"control_ticks"` // control action execution delay
	Report  int64 `yaml:"report_ticks"`  // indication reporting delay
}

// NonRTRICConfig declares a tier-1 controller and its managed tier-2 set.
type NonRTRICConfig struct {
	ID            string   `yaml:"id"`
	OptimizeEvery int64    `yaml:"optimize_every_ticks"`
	Manages       []string `yaml:"manages"`
}

// NearRTRICConfig declares a tier-2 controller.
type NearRTRICConfig struct {
	ID       string `yaml:"id"`
	MaxNodes int    `yaml:"max_nodes"`
}

// DUConfig declares a distributed unit.
type DUConfig struct {
	ID            string  `yaml:"id"`
	CellID        int     `yaml:"cell_id"`
	CUCP          string  `yaml:"cu_cp"`
	Controller    string  `yaml:"controller"`
	MaxUEs        int     `yaml:"max_ues"`
	Scheduler     string  `yaml:"scheduler"`
	LoadThreshold float64 `yaml:"load_threshold"`
}

// RUConfig declares a radio unit.
type RUConfig struct {
	ID            string  `yaml:"id"`
	DU            string  `yaml:"du"`
	Controller    string  `yaml:"controller"`
	FrequencyHz   float64 `yaml:"frequency_hz"`
	BandwidthHz   float64 `yaml:"bandwidth_hz"`
	TxPowerDBm    float64 `yaml:"tx_power_dbm"`
	Position      Point   `yaml:"position"`
	FrameInterval int64   `yaml:"frame_interval_ticks"`
	FrameLatMean  int64   `yaml:"frame_latency_mean_ticks"`
	FrameLatStd   int64   `yaml:"frame_latency_std_ticks"`
}

// CUCPConfig declares a central-unit control plane.
type CUCPConfig struct {
	ID         string `yaml:"id"`
	Controller string `yaml:"controller"`
}

// CUUPConfig declares a central-unit user plane.
type CUUPConfig struct {
	ID         string `yaml:"id"`
	CUCP       string `yaml:"cu_cp"`
	Controller string `yaml:"controller"`
}

// UEConfig declares a user equipment and its mobility model.
type UEConfig struct {
	ID             string  `yaml:"id"`
	RU             string  `yaml:"ru"`
	Mobility       string  `yaml:"mobility"`
	SpeedMps       float64 `yaml:"speed_mps"`
	Area           Area    `yaml:"area"`
	Position       Point   `yaml:"position"`
	UpdateInterval int64   `yaml:"update_interval_ticks"`
}

// Config is the root topology configuration, keyed by node identity.
type Config struct {
	Seed       int64             `yaml:"seed"`
	Horizon    int64             `yaml:"horizon_ticks"`
	Delays     DelayConfig       `yaml:"delays"`
	NonRTRICs  []NonRTRICConfig  `yaml:"non_rt_rics"`
	NearRTRICs []NearRTRICConfig `yaml:"near_rt_rics"`
	DUs        []DUConfig        `yaml:"dus"`
	RUs        []RUConfig        `yaml:"rus"`
	CUCPs      []CUCPConfig      `yaml:"cu_cps"`
	CUUPs      []CUUPConfig      `yaml:"cu_ups"`
	UEs        []UEConfig        `yaml:"ues"`
}

// Load reads and validates a topology file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse topology %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("topology %s: %w", path, err)
	}
	return &cfg, nil
}

// knownSchedulers are the DU scheduler names the simulator accepts.
var knownSchedulers = map[string]bool{
	"":                  true, // defaults to round-robin
	"round-robin":       true,
	"proportional-fair": true,
}

// Validate checks internal consistency: unique ids, resolvable references,
// sane delays and capacities. Any violation is fatal before the first run.
func (c *Config) Validate() error {
	if c.Horizon <= 0 {
		return fmt.Errorf("horizon_ticks must be positive, got %d", c.Horizon)
	}
	for _, d := range []struct {
		name string
		v    int64
	}{
		{"a1_ticks", c.Delays.A1},
		{"e2_ticks", c.Delays.E2},
		{"control_ticks", c.Delays.Control},
		{"report_ticks", c.Delays.Report},
	} {
		if d.v < 0 {
			return fmt.Errorf("delays.%s must be non-negative, got %d", d.name, d.v)
		}
	}

	ids := make(map[string]string)
	claim := func(id, kind string) error {
		if id == "" {
			return fmt.Errorf("%s with empty id", kind)
		}
		if prev, ok := ids[id]; ok {
			return fmt.Errorf("id %q used by both %s and %s", id, prev, kind)
		}
		ids[id] = kind
		return nil
	}

	nearRT := make(map[string]bool)
	for _, r := range c.NearRTRICs {
		if err := claim(r.ID, "near-rt-ric"); err != nil {
			return err
		}
		nearRT[r.ID] = true
	}
	for _, r := range c.NonRTRICs {
		if err := claim(r.ID, "non-rt-ric"); err != nil {
			return err
		}
		for _, managed := range r.Manages {
			if !nearRT[managed] {
				return fmt.Errorf("non-rt-ric %q manages unknown near-rt-ric %q", r.ID, managed)
			}
		}
	}

	cucps := make(map[string]bool)
	for _, cu := range c.CUCPs {
		if err := claim(cu.ID, "cu-cp"); err != nil {
			return err
		}
		if !nearRT[cu.Controller] {
			return fmt.Errorf("cu-cp %q names unknown controller %q", cu.ID, cu.Controller)
		}
		cucps[cu.ID] = true
	}
	for _, cu := range c.CUUPs {
		if err := claim(cu.ID, "cu-up"); err != nil {
			return err
		}
		if !cucps[cu.CUCP] {
			return fmt.Errorf("cu-up %q names unknown cu-cp %q", cu.ID, cu.CUCP)
		}
		if !nearRT[cu.Controller] {
			return fmt.Errorf("cu-up %q names unknown controller %q", cu.ID, cu.Controller)
		}
	}

	dus := make(map[string]bool)
	for _, du := range c.DUs {
		if err := claim(du.ID, "du"); err != nil {
			return err
		}
		if !cucps[du.CUCP] {
			return fmt.Errorf("du %q names unknown cu-cp %q", du.ID, du.CUCP)
		}
		if !nearRT[du.Controller] {
			return fmt.Errorf("du %q names unknown controller %q", du.ID, du.Controller)
		}
		if du.MaxUEs < 1 {
			return fmt.Errorf("du %q: max_ues must be at least 1, got %d", du.ID, du.MaxUEs)
		}
		if !knownSchedulers[du.Scheduler] {
			return fmt.Errorf("du %q: unknown scheduler %q", du.ID, du.Scheduler)
		}
		if du.LoadThreshold < 0 || du.LoadThreshold > 1 {
			return fmt.Errorf("du %q: load_threshold must be in [0,1], got %g", du.ID, du.LoadThreshold)
		}
		dus[du.ID] = true
	}

	rus := make(map[string]bool)
	for _, ru := range c.RUs {
		if err := claim(ru.ID, "ru"); err != nil {
			return err
		}
		if !dus[ru.DU] {
			return fmt.Errorf("ru %q names unknown du %q", ru.ID, ru.DU)
		}
		if !nearRT[ru.Controller] {
			return fmt.Errorf("ru %q names unknown controller %q", ru.ID, ru.Controller)
		}
		if ru.FrameInterval < 0 || ru.FrameLatMean < 0 || ru.FrameLatStd < 0 {
			return fmt.Errorf("ru %q: fronthaul timing must be non-negative", ru.ID)
		}
		rus[ru.ID] = true
	}

	for _, ue := range c.UEs {
		if err := claim(ue.ID, "ue"); err != nil {
			return err
		}
		if !rus[ue.RU] {
			return fmt.Errorf("ue %q names unknown ru %q", ue.ID, ue.RU)
		}
		if ue.UpdateInterval <= 0 {
			return fmt.Errorf("ue %q: update_interval_ticks must be positive, got %d", ue.ID, ue.UpdateInterval)
		}
		switch ue.Mobility {
		case "random-walk", "random-waypoint":
		default:
			return fmt.Errorf("ue %q: unknown mobility model %q", ue.ID, ue.Mobility)
		}
	}

	// Capacity check: every node assigned to a controller counts against its
	// max_nodes budget.
	assigned := make(map[string]int)
	for _, du := range c.DUs {
		assigned[du.Controller]++
	}
	for _, ru := range c.RUs {
		assigned[ru.Controller]++
	}
	for _, cu := range c.CUCPs {
		assigned[cu.Controller]++
	}
	for _, cu := range c.CUUPs {
		assigned[cu.Controller]++
	}
	for _, r := range c.NearRTRICs {
		if r.MaxNodes > 0 && assigned[r.ID] > r.MaxNodes {
			return fmt.Errorf("near-rt-ric %q: %d nodes assigned, max_nodes is %d", r.ID, assigned[r.ID], r.MaxNodes)
		}
	}
	return nil
}
