package sim

import "container/heap"

// VirtualTime is simulated time in ticks (1 tick = 1 microsecond).
type VirtualTime = int64

// EventID identifies a scheduled event. IDs are the strictly increasing
// sequence numbers assigned at scheduling time, so they double as the
// deterministic tie-break for events due at the same tick.
type EventID int64

// Message is an opaque typed payload dispatched to an entity's handler.
// Concrete message types live in the protocol sub-packages.
type Message any

// event is immutable once queued; cancellation flips a flag rather than
// mutating ordering fields, so the heap invariant is never disturbed.
type event struct {
	due       VirtualTime
	seq       EventID
	target    string
	payload   Message
	cancelled bool
}

// eventQueue implements heap.Interface ordered by (due, seq).
// See the canonical example: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventQueue []*event

func (eq eventQueue) Len() int { return len(eq) }

func (eq eventQueue) Less(i, j int) bool {
	if eq[i].due != eq[j].due {
		return eq[i].due < eq[j].due
	}
	return eq[i].seq < eq[j].seq
}

func (eq eventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *eventQueue) Push(x any) {
	*eq = append(*eq, x.(*event))
}

func (eq *eventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*eq = old[0 : n-1]
	return item
}

// popNext removes and returns the minimum live event, discarding cancelled
// entries along the way. Returns nil when the queue is drained.
func (eq *eventQueue) popNext() *event {
	for eq.Len() > 0 {
		ev := heap.Pop(eq).(*event)
		if ev.cancelled {
			continue
		}
		return ev
	}
	return nil
}

// peekNext returns the minimum live event without removing it.
func (eq *eventQueue) peekNext() *event {
	for eq.Len() > 0 {
		if ev := (*eq)[0]; !ev.cancelled {
			return ev
		}
		heap.Pop(eq)
	}
	return nil
}
