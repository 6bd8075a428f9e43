package sim

// Kind is the closed set of simulated entity types. Entities are dispatched
// through the one Entity capability and switch on message type internally;
// Kind exists for registry bookkeeping, configuration, and trigger support
// checks, not for behavioral dispatch.
type Kind string

const (
	KindORU       Kind = "o-ru"
	KindODU       Kind = "o-du"
	KindOCUCP     Kind = "o-cu-cp"
	KindOCUUP     Kind = "o-cu-up"
	KindUE        Kind = "ue"
	KindNearRTRIC Kind = "near-rt-ric"
	KindNonRTRIC  Kind = "non-rt-ric"
)

// Entity is anything that runs as an independent simulated process: radio
// units, distributed units, central units, UEs, and both RIC tiers.
//
// Handle is invoked by the scheduler's dispatch loop with the current clock
// value. A handler may schedule follow-up events (including its own future
// wake) but must never block: an entity "suspends" by scheduling its next
// wake event and returning.
type Entity interface {
	NodeID() string
	Kind() Kind
	Handle(sched *Scheduler, now VirtualTime, msg Message)
}
