// Package a1 models the policy protocol spoken between the Non-RT RIC and
// its managed Near-RT RICs: versioned policy create/update/delete/query with
// conflict semantics, plus the message types exchanged over the event queue.
package a1

import (
	"fmt"
	"sort"

	"github.com/oransim/oransim/sim"
)

// PolicyType names a policy class (e.g. "qos", "traffic-steering").
type PolicyType string

// State is the lifecycle state of one policy identity.
type State string

const (
	StateActive  State = "active"
	StateDeleted State = "deleted"
)

// Key is the policy identity: at most one active version exists per Key at
// any virtual time.
type Key struct {
	Type PolicyType
	ID   string
}

func (k Key) String() string { return fmt.Sprintf("%s/%s", k.Type, k.ID) }

// Policy is a versioned, targeted configuration object. Target names either
// a managed Near-RT RIC or a downstream network function the policy steers.
type Policy struct {
	Type    PolicyType
	ID      string
	Content map[string]any
	Version int64
	Target  string
	State   State
}

// Key returns the policy identity.
func (p Policy) Key() Key { return Key{Type: p.Type, ID: p.ID} }

// Store holds the policy table of one controller instance. It is exclusively
// owned and mutated by that controller; other components read through
// Snapshot. Not safe for concurrent use, which the single dispatch loop
// makes irrelevant.
type Store struct {
	policies map[Key]*Policy
}

// NewStore creates an empty policy store.
func NewStore() *Store {
	return &Store{policies: make(map[Key]*Policy)}
}

// Create installs a new policy. The identity must be absent (or deleted, for
// recreation) and the version must be exactly 1.
func (s *Store) Create(p Policy) error {
	key := p.Key()
	if cur, ok := s.policies[key]; ok && cur.State != StateDeleted {
		return fmt.Errorf("create %s: %w", key, sim.ErrConflict)
	}
	if p.Version != 1 {
		return fmt.Errorf("create %s: version %d: %w", key, p.Version, sim.ErrVersionConflict)
	}
	stored := p
	stored.State = StateActive
	s.policies[key] = &stored
	return nil
}

// Update replaces the content of an active policy. The submitted version
// must be exactly current+1; a stale replay is rejected idempotently rather
// than silently overwriting.
func (s *Store) Update(key Key, content map[string]any, version int64) error {
	cur, ok := s.policies[key]
	if !ok || cur.State == StateDeleted {
		return fmt.Errorf("update %s: %w", key, sim.ErrNotFound)
	}
	if version != cur.Version+1 {
		return fmt.Errorf("update %s: version %d, current %d: %w", key, version, cur.Version, sim.ErrVersionConflict)
	}
	cur.Content = content
	cur.Version = version
	return nil
}

// Delete transitions the identity to deleted. Further operations fail
// NotFound until a fresh Create recreates it.
func (s *Store) Delete(key Key) error {
	cur, ok := s.policies[key]
	if !ok || cur.State == StateDeleted {
		return fmt.Errorf("delete %s: %w", key, sim.ErrNotFound)
	}
	cur.State = StateDeleted
	return nil
}

// Query returns the current policy for key. Never mutates.
func (s *Store) Query(key Key) (Policy, error) {
	cur, ok := s.policies[key]
	if !ok || cur.State == StateDeleted {
		return Policy{}, fmt.Errorf("query %s: %w", key, sim.ErrNotFound)
	}
	return *cur, nil
}

// ActiveCount reports the number of policies in the active state.
func (s *Store) ActiveCount() int {
	n := 0
	for _, p := range s.policies {
		if p.State == StateActive {
			n++
		}
	}
	return n
}

// Snapshot returns all non-deleted policies in key order, for inspection
// between run calls.
func (s *Store) Snapshot() []Policy {
	out := make([]Policy, 0, len(s.policies))
	for _, p := range s.policies {
		if p.State != StateDeleted {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out
}
