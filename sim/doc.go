// Package sim provides the discrete-event kernel for the O-RAN control
// architecture simulator.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - event.go: the immutable (due, seq, target, payload) event and the heap
//     that orders dispatch by (due time, scheduling sequence)
//   - entity.go: the Entity capability every simulated node and controller
//     implements
//   - scheduler.go: the virtual clock, the entity registry, and the event loop
//
// # Architecture
//
// The sim package owns virtual time and causality only; domain behavior lives
// in sub-packages:
//   - sim/a1/: policy protocol types and the versioned policy store
//   - sim/e2/: subscription, indication, and control protocol types
//   - sim/ric/: Near-RT and Non-RT RIC entities plus the xApp/rApp framework
//   - sim/nodes/: O-RU, O-DU, O-CU, and UE entities
//   - sim/mobility/: UE mobility models
//   - sim/trace/: deterministic run-trace recording
//   - sim/scenario/: topology configuration loading, validation, and wiring
//
// Entities never call each other directly. Every interaction is a payload
// scheduled on the kernel's event queue, which is what makes a run
// reproducible for a fixed seed and configuration: events at distinct times
// dispatch in time order, and events at equal times dispatch in scheduling
// order.
package sim
