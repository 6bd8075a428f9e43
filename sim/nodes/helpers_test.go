package nodes

import (
	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/e2"
)

// sink is a catch-all entity standing in for a controller (or any peer) and
// sorting received messages by type.
type sink struct {
	id   string
	kind sim.Kind

	responses []e2.SubscriptionResponse
	inds      []e2.Indication
	fails     []e2.ControlFailure
	positions []PositionUpdate
	frames    []FronthaulFrame
	other     []sim.Message
}

func newSink(id string, kind sim.Kind) *sink {
	return &sink{id: id, kind: kind}
}

func (s *sink) NodeID() string { return s.id }
func (s *sink) Kind() sim.Kind { return s.kind }

func (s *sink) Handle(sched *sim.Scheduler, now sim.VirtualTime, msg sim.Message) {
	switch m := msg.(type) {
	case e2.SubscriptionResponse:
		s.responses = append(s.responses, m)
	case e2.Indication:
		s.inds = append(s.inds, m)
	case e2.ControlFailure:
		s.fails = append(s.fails, m)
	case PositionUpdate:
		s.positions = append(s.positions, m)
	case FronthaulFrame:
		s.frames = append(s.frames, m)
	default:
		s.other = append(s.other, msg)
	}
}

func testDelays() Delays {
	return Delays{Response: 1, Report: 1}
}

func subRequest(subID, target string, trigger e2.Trigger) e2.SubscriptionRequest {
	return e2.SubscriptionRequest{
		Sub: e2.Subscription{
			SubID:      subID,
			Subscriber: "xapp-test",
			Target:     target,
			Trigger:    trigger,
			Actions:    []string{"report"},
		},
		ReplyTo: "ctrl",
	}
}
