package a1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oransim/oransim/sim"
)

func qosPolicy(version int64) Policy {
	return Policy{
		Type:    "qos",
		ID:      "p-1",
		Content: map[string]any{"max_load": 0.8},
		Version: version,
		Target:  "near-rt-ric-1",
	}
}

func TestStore_CreateThenQuery(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(qosPolicy(1)))

	got, err := s.Query(Key{Type: "qos", ID: "p-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, StateActive, got.State)
	assert.Equal(t, 1, s.ActiveCount())
}

func TestStore_CreateExisting_Conflicts(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(qosPolicy(1)))
	assert.ErrorIs(t, s.Create(qosPolicy(1)), sim.ErrConflict)
}

func TestStore_CreateWithWrongVersion_Fails(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.Create(qosPolicy(3)), sim.ErrVersionConflict)
}

func TestStore_Update_VersionMustBeNext(t *testing.T) {
	// GIVEN an active policy at version 1
	s := NewStore()
	key := Key{Type: "qos", ID: "p-1"}
	require.NoError(t, s.Create(qosPolicy(1)))

	// WHEN the next version is submitted
	require.NoError(t, s.Update(key, map[string]any{"max_load": 0.5}, 2))

	// THEN a replay of the same version is rejected and the stored state is
	// unchanged by the replay
	err := s.Update(key, map[string]any{"max_load": 0.1}, 2)
	assert.ErrorIs(t, err, sim.ErrVersionConflict)

	got, err := s.Query(key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, 0.5, got.Content["max_load"])

	// AND a skipped version is equally rejected
	assert.ErrorIs(t, s.Update(key, nil, 4), sim.ErrVersionConflict)
}

func TestStore_UpdateMissing_NotFound(t *testing.T) {
	s := NewStore()
	err := s.Update(Key{Type: "qos", ID: "ghost"}, nil, 2)
	assert.ErrorIs(t, err, sim.ErrNotFound)
}

func TestStore_DeleteThenOperations_NotFound(t *testing.T) {
	// GIVEN a deleted policy
	s := NewStore()
	key := Key{Type: "qos", ID: "p-1"}
	require.NoError(t, s.Create(qosPolicy(1)))
	require.NoError(t, s.Delete(key))

	// THEN every further operation except recreation fails NotFound
	_, err := s.Query(key)
	assert.ErrorIs(t, err, sim.ErrNotFound)
	assert.ErrorIs(t, s.Update(key, nil, 2), sim.ErrNotFound)
	assert.ErrorIs(t, s.Delete(key), sim.ErrNotFound)
	assert.Equal(t, 0, s.ActiveCount())

	// AND recreation starts a fresh version lineage at 1
	require.NoError(t, s.Create(qosPolicy(1)))
	got, err := s.Query(key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestStore_Snapshot_SortedAndExcludesDeleted(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Create(Policy{Type: "ts", ID: "b", Version: 1}))
	require.NoError(t, s.Create(Policy{Type: "qos", ID: "z", Version: 1}))
	require.NoError(t, s.Create(Policy{Type: "qos", ID: "a", Version: 1}))
	require.NoError(t, s.Delete(Key{Type: "qos", ID: "z"}))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, Key{Type: "qos", ID: "a"}, snap[0].Key())
	assert.Equal(t, Key{Type: "ts", ID: "b"}, snap[1].Key())
}

func TestCauseFor_RoundTripsThroughDecision(t *testing.T) {
	cases := []struct {
		err   error
		cause string
	}{
		{sim.ErrConflict, CauseConflict},
		{sim.ErrVersionConflict, CauseVersionConflict},
		{sim.ErrNotFound, CauseNotFound},
		{sim.ErrRejected, CauseRejected},
	}
	for _, tc := range cases {
		cause := CauseFor(tc.err)
		assert.Equal(t, tc.cause, cause)

		d := Decision{Accepted: false, Cause: cause}
		assert.ErrorIs(t, d.Err(), tc.err, "cause %s", cause)
	}
	assert.NoError(t, Decision{Accepted: true}.Err())
}
