// Package mobility provides the UE movement models consumed by the
// simulator. Models are pure: each step maps (position, elapsed, rng) to a
// new position, so determinism is inherited from the partitioned RNG that
// the caller passes in.
package mobility

import (
	"fmt"
	"math"
	"math/rand"
)

// Position is a 2D coordinate in meters.
type Position struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance to other.
func (p Position) Distance(other Position) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Model advances a position by elapsed seconds.
type Model interface {
	Next(cur Position, elapsed float64, rng *rand.Rand) Position
}

// RandomWalk moves at a fixed speed in a freshly drawn direction each step.
type RandomWalk struct {
	Speed float64 // meters per second
}

func (m *RandomWalk) Next(cur Position, elapsed float64, rng *rand.Rand) Position {
	angle := rng.Float64() * 2 * math.Pi
	return Position{
		X: cur.X + m.Speed*math.Cos(angle)*elapsed,
		Y: cur.Y + m.Speed*math.Sin(angle)*elapsed,
	}
}

// RandomWaypoint draws a destination inside the area, moves toward it at a
// fixed speed, pauses on arrival, then draws the next destination.
type RandomWaypoint struct {
	Speed     float64 // meters per second
	Width     float64
	Height    float64
	PauseMean float64 // seconds
	PauseStd  float64

	target    *Position
	pauseLeft float64
}

func (m *RandomWaypoint) Next(cur Position, elapsed float64, rng *rand.Rand) Position {
	if m.pauseLeft > 0 {
		m.pauseLeft -= elapsed
		return cur
	}
	if m.target == nil {
		m.target = &Position{X: rng.Float64() * m.Width, Y: rng.Float64() * m.Height}
	}
	dist := cur.Distance(*m.target)
	reach := m.Speed * elapsed
	if dist <= reach {
		arrived := *m.target
		m.target = nil
		m.pauseLeft = math.Max(0, rng.NormFloat64()*m.PauseStd+m.PauseMean)
		return arrived
	}
	return Position{
		X: cur.X + (m.target.X-cur.X)/dist*reach,
		Y: cur.Y + (m.target.Y-cur.Y)/dist*reach,
	}
}

// New builds a model by configuration name.
func New(name string, speed, width, height float64) (Model, error) {
	switch name {
	case "random-walk":
		return &RandomWalk{Speed: speed}, nil
	case "random-waypoint":
		return &RandomWaypoint{Speed: speed, Width: width, Height: height, PauseMean: 5, PauseStd: 2}, nil
	default:
		return nil, fmt.Errorf("unknown mobility model %q", name)
	}
}
