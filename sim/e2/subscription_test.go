package e2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_MatchingPreservesCreationOrder(t *testing.T) {
	// GIVEN three subscriptions added in order, two for cell-load
	tbl := NewTable()
	tbl.Add(Subscription{SubID: "s-1", Trigger: Trigger{EventType: EventTypeCellLoad}})
	tbl.Add(Subscription{SubID: "s-2", Trigger: Trigger{EventType: EventTypeLinkQuality}})
	tbl.Add(Subscription{SubID: "s-3", Trigger: Trigger{EventType: EventTypeCellLoad}})

	// THEN matching returns only cell-load subscriptions, in creation order
	got := tbl.Matching(EventTypeCellLoad)
	require.Len(t, got, 2)
	assert.Equal(t, "s-1", got[0].SubID)
	assert.Equal(t, "s-3", got[1].SubID)
	assert.Equal(t, StatusActive, got[0].Status)
}

func TestTable_RemoveDropsEntry(t *testing.T) {
	tbl := NewTable()
	tbl.Add(Subscription{SubID: "s-1", Trigger: Trigger{EventType: EventTypeCellLoad}})
	tbl.Add(Subscription{SubID: "s-2", Trigger: Trigger{EventType: EventTypeCellLoad}})

	require.NoError(t, tbl.Remove("s-1"))
	assert.Equal(t, 1, tbl.Len())

	got := tbl.Matching(EventTypeCellLoad)
	require.Len(t, got, 1)
	assert.Equal(t, "s-2", got[0].SubID)

	assert.Error(t, tbl.Remove("s-1"))
}

func TestTable_PeriodicFiltersByPeriod(t *testing.T) {
	tbl := NewTable()
	tbl.Add(Subscription{SubID: "event-driven", Trigger: Trigger{EventType: EventTypeCellLoad}})
	tbl.Add(Subscription{SubID: "standing", Trigger: Trigger{EventType: EventTypeCellLoad, Period: 1000}})

	got := tbl.Periodic()
	require.Len(t, got, 1)
	assert.Equal(t, "standing", got[0].SubID)
}
