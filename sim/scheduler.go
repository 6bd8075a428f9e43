package sim

import (
	"container/heap"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Scheduler owns the virtual clock, the event queue, and the entity
// registry. It is the only component that mutates the queue, and all entity
// handlers run on its single dispatch loop, so no locking is needed as long
// as mutation happens from handlers or between Run calls.
type Scheduler struct {
	clock    VirtualTime
	queue    eventQueue
	nextSeq  EventID
	pending  map[EventID]*event
	entities map[string]Entity
	metrics  *Metrics
	running  bool
}

// NewScheduler creates an empty scheduler at tick 0. metrics may be nil.
func NewScheduler(metrics *Metrics) *Scheduler {
	return &Scheduler{
		queue:    make(eventQueue, 0),
		pending:  make(map[EventID]*event),
		entities: make(map[string]Entity),
		metrics:  metrics,
	}
}

// Now returns the current virtual clock value.
func (s *Scheduler) Now() VirtualTime { return s.clock }

// Register adds an entity to the simulation. The id must be unused.
func (s *Scheduler) Register(ent Entity) error {
	id := ent.NodeID()
	if _, ok := s.entities[id]; ok {
		return fmt.Errorf("register %q: id already in use", id)
	}
	s.entities[id] = ent
	s.metrics.SetRegisteredEntities(len(s.entities))
	logrus.Debugf("[tick %07d] registered %s %q", s.clock, ent.Kind(), id)
	return nil
}

// Deregister removes an entity and cancels every pending event addressed to
// it. Events already dispatched are not retracted. Subsequent Schedule calls
// targeting the id fail with ErrUnknownEntity.
func (s *Scheduler) Deregister(id string) error {
	if _, ok := s.entities[id]; !ok {
		return fmt.Errorf("deregister %q: %w", id, ErrUnknownEntity)
	}
	delete(s.entities, id)
	for seq, ev := range s.pending {
		if ev.target == id {
			ev.cancelled = true
			delete(s.pending, seq)
			s.metrics.IncEventsCancelled()
		}
	}
	s.metrics.SetRegisteredEntities(len(s.entities))
	logrus.Debugf("[tick %07d] deregistered %q", s.clock, id)
	return nil
}

// Lookup returns the registered entity for id, if any. Cross-component
// liveness checks go through this accessor rather than shared references.
func (s *Scheduler) Lookup(id string) (Entity, bool) {
	ent, ok := s.entities[id]
	return ent, ok
}

// Schedule enqueues payload for delivery to target after delay ticks,
// measured from the current clock. Events scheduled during dispatch use the
// in-progress event's time as baseline, so zero-delay follow-ups land at the
// same tick and preserve FIFO order among equal-time events.
func (s *Scheduler) Schedule(delay VirtualTime, target string, payload Message) (EventID, error) {
	if delay < 0 {
		return 0, fmt.Errorf("schedule to %q: delay %d: %w", target, delay, ErrInvalidDelay)
	}
	if _, ok := s.entities[target]; !ok {
		return 0, fmt.Errorf("schedule to %q: %w", target, ErrUnknownEntity)
	}
	s.nextSeq++
	ev := &event{
		due:     s.clock + delay,
		seq:     s.nextSeq,
		target:  target,
		payload: payload,
	}
	heap.Push(&s.queue, ev)
	s.pending[ev.seq] = ev
	return ev.seq, nil
}

// Cancel removes a not-yet-dispatched event. Cancelling an event that was
// already dispatched (or never existed) returns ErrAlreadyConsumed, which is
// benign: the caller logs it and continues.
func (s *Scheduler) Cancel(id EventID) error {
	ev, ok := s.pending[id]
	if !ok {
		return fmt.Errorf("cancel event %d: %w", id, ErrAlreadyConsumed)
	}
	ev.cancelled = true
	delete(s.pending, id)
	s.metrics.IncEventsCancelled()
	return nil
}

// Run dispatches events in (due, seq) order until the queue holds no event
// due at or before until. The clock only advances by processing events and
// never moves backwards. Run is top-level only: handlers must not call it.
//
// A panic inside an entity handler is recovered and logged; it never unwinds
// through the dispatch loop.
func (s *Scheduler) Run(until VirtualTime) error {
	if s.running {
		return fmt.Errorf("run(until=%d): dispatch loop already running", until)
	}
	s.running = true
	defer func() { s.running = false }()

	for {
		next := s.queue.peekNext()
		if next == nil || next.due > until {
			break
		}
		ev := s.queue.popNext()
		delete(s.pending, ev.seq)
		s.clock = ev.due

		ent, ok := s.entities[ev.target]
		if !ok {
			// Deregistration cancels pending events, so this only fires if an
			// entity vanished without going through Deregister.
			logrus.Warnf("[tick %07d] dropping event %d for %q: %v", s.clock, ev.seq, ev.target, ErrUnknownEntity)
			continue
		}
		logrus.Debugf("[tick %07d] dispatching %T to %q", s.clock, ev.payload, ev.target)
		s.dispatch(ent, ev)
	}
	logrus.Infof("[tick %07d] run(until=%d) drained", s.clock, until)
	return nil
}

func (s *Scheduler) dispatch(ent Entity, ev *event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[tick %07d] handler panic in %q on %T: %v", s.clock, ev.target, ev.payload, r)
		}
	}()
	ent.Handle(s, s.clock, ev.payload)
	s.metrics.IncEventsDispatched()
}

// PendingEvents reports the number of live queued events. Intended for tests
// and post-run inspection.
func (s *Scheduler) PendingEvents() int { return len(s.pending) }
