package ric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/e2"
)

// fakeNode is a scriptable network function for exercising the controller's
// subscription and control paths without a full node implementation.
type fakeNode struct {
	id            string
	acceptSubs    bool
	rejectCause   string
	rejectControl bool

	controls []e2.ControlRequest
	deleted  []string
}

func (f *fakeNode) NodeID() string { return f.id }
func (f *fakeNode) Kind() sim.Kind { return sim.KindODU }

func (f *fakeNode) Handle(sched *sim.Scheduler, now sim.VirtualTime, msg sim.Message) {
	switch m := msg.(type) {
	case e2.SubscriptionRequest:
		_, _ = sched.Schedule(1, m.ReplyTo, e2.SubscriptionResponse{
			SubID:    m.Sub.SubID,
			Target:   f.id,
			Accepted: f.acceptSubs,
			Cause:    f.rejectCause,
		})
	case e2.SubscriptionDelete:
		f.deleted = append(f.deleted, m.SubID)
	case e2.ControlRequest:
		f.controls = append(f.controls, m)
		if f.rejectControl {
			_, _ = sched.Schedule(1, m.From, e2.ControlFailure{
				Target: f.id,
				Issuer: m.Issuer,
				Action: m.Action,
				Cause:  "unsupported action",
			})
		}
	}
}

// scriptedXApp records indications into a shared sink so fan-out order across
// units is observable. panicOnce makes the first indication blow up.
type scriptedXApp struct {
	name      string
	types     []e2.EventType
	sink      *[]string
	got       []e2.Indication
	panicOnce bool
}

func (x *scriptedXApp) Name() string { return x.name }

func (x *scriptedXApp) EventTypes() []e2.EventType { return x.types }

func (x *scriptedXApp) HandleIndication(ctrl *NearRTRIC, sched *sim.Scheduler, now sim.VirtualTime, ind e2.Indication) {
	if x.panicOnce {
		x.panicOnce = false
		panic("scripted unit failure")
	}
	x.got = append(x.got, ind)
	if x.sink != nil {
		*x.sink = append(*x.sink, x.name)
	}
}

func newNearFixture(t *testing.T, acceptSubs bool) (*sim.Scheduler, *NearRTRIC, *fakeNode) {
	t.Helper()
	sched := sim.NewScheduler(nil)
	ric := NewNearRTRIC("near-1", 4, 1, 1, 1, nil, nil)
	node := &fakeNode{id: "du-1", acceptSubs: acceptSubs, rejectCause: "unsupported event type"}
	require.NoError(t, sched.Register(ric))
	require.NoError(t, sched.Register(node))
	require.NoError(t, ric.AddNode(node.id, sim.KindODU))
	return sched, ric, node
}

func cellLoadTrigger() e2.Trigger {
	return e2.Trigger{EventType: e2.EventTypeCellLoad, Threshold: 0.7}
}

func TestNearRTRIC_SubscriptionBecomesActiveOnAccept(t *testing.T) {
	// GIVEN a pending subscription toward an accepting node
	sched, ric, _ := newNearFixture(t, true)
	subID, err := ric.Subscribe(sched, "xapp-1", "du-1", cellLoadTrigger(), []string{"report"})
	require.NoError(t, err)

	sub, ok := ric.Subscription(subID)
	require.True(t, ok)
	assert.Equal(t, e2.StatusPending, sub.Status)

	// WHEN the node's response arrives
	require.NoError(t, sched.Run(10))

	// THEN the registry entry is active
	sub, _ = ric.Subscription(subID)
	assert.Equal(t, e2.StatusActive, sub.Status)
}

func TestNearRTRIC_RejectedSubscriptionIsTerminal(t *testing.T) {
	sched, ric, _ := newNearFixture(t, false)
	subID, err := ric.Subscribe(sched, "xapp-1", "du-1", cellLoadTrigger(), nil)
	require.NoError(t, err)
	require.NoError(t, sched.Run(10))

	sub, _ := ric.Subscription(subID)
	assert.Equal(t, e2.StatusRejected, sub.Status)

	// Rejection is terminal: the identity cannot be cancelled afterwards.
	assert.ErrorIs(t, ric.Unsubscribe(sched, subID), sim.ErrRejected)
}

func TestNearRTRIC_SubscribeToUnmanagedNode_Fails(t *testing.T) {
	sched, ric, _ := newNearFixture(t, true)
	_, err := ric.Subscribe(sched, "xapp-1", "ghost", cellLoadTrigger(), nil)
	assert.ErrorIs(t, err, sim.ErrUnknownEntity)
}

func TestNearRTRIC_UnsubscribeNotifiesTarget(t *testing.T) {
	// GIVEN an active subscription
	sched, ric, node := newNearFixture(t, true)
	subID, err := ric.Subscribe(sched, "xapp-1", "du-1", cellLoadTrigger(), nil)
	require.NoError(t, err)
	require.NoError(t, sched.Run(10))

	// WHEN it is cancelled
	require.NoError(t, ric.Unsubscribe(sched, subID))
	require.NoError(t, sched.Run(20))

	// THEN the registry marks it cancelled and the node dropped its entry
	sub, _ := ric.Subscription(subID)
	assert.Equal(t, e2.StatusCancelled, sub.Status)
	assert.Equal(t, []string{subID}, node.deleted)

	assert.ErrorIs(t, ric.Unsubscribe(sched, "near-1-sub-99"), sim.ErrNotFound)
}

func TestNearRTRIC_IndicationFanOut_RegistrationOrder(t *testing.T) {
	// GIVEN two interested xApps and one uninterested one
	sched, ric, _ := newNearFixture(t, true)
	var order []string
	x1 := &scriptedXApp{name: "x-1", types: []e2.EventType{e2.EventTypeCellLoad}, sink: &order}
	x2 := &scriptedXApp{name: "x-2", types: []e2.EventType{e2.EventTypeCellLoad}, sink: &order}
	x3 := &scriptedXApp{name: "x-3", types: []e2.EventType{e2.EventTypeLinkQuality}, sink: &order}
	require.NoError(t, ric.RegisterXApp(x1))
	require.NoError(t, ric.RegisterXApp(x2))
	require.NoError(t, ric.RegisterXApp(x3))

	subID, err := ric.Subscribe(sched, "x-1", "du-1", cellLoadTrigger(), nil)
	require.NoError(t, err)
	require.NoError(t, sched.Run(10))

	// WHEN a matching indication arrives
	_, err = sched.Schedule(1, "near-1", e2.Indication{
		Source:    "du-1",
		SubID:     subID,
		EventType: e2.EventTypeCellLoad,
		Payload:   map[string]any{"load": 0.9},
	})
	require.NoError(t, err)
	require.NoError(t, sched.Run(20))

	// THEN interested units run in registration order, the rest are skipped
	assert.Equal(t, []string{"x-1", "x-2"}, order)
	require.Len(t, x1.got, 1)
	assert.Equal(t, 0.9, x1.got[0].Payload["load"])
	assert.Empty(t, x3.got)
}

func TestNearRTRIC_PanickingXApp_DeregisteredAndIsolated(t *testing.T) {
	// GIVEN a unit that panics on its first indication
	sched, ric, _ := newNearFixture(t, true)
	var order []string
	bad := &scriptedXApp{name: "bad", types: []e2.EventType{e2.EventTypeCellLoad}, sink: &order, panicOnce: true}
	good := &scriptedXApp{name: "good", types: []e2.EventType{e2.EventTypeCellLoad}, sink: &order}
	require.NoError(t, ric.RegisterXApp(bad))
	require.NoError(t, ric.RegisterXApp(good))

	subID, err := ric.Subscribe(sched, "bad", "du-1", cellLoadTrigger(), nil)
	require.NoError(t, err)
	require.NoError(t, sched.Run(10))

	ind := e2.Indication{Source: "du-1", SubID: subID, EventType: e2.EventTypeCellLoad, Payload: map[string]any{"load": 0.8}}
	_, err = sched.Schedule(1, "near-1", ind)
	require.NoError(t, err)
	_, err = sched.Schedule(2, "near-1", ind)
	require.NoError(t, err)

	// WHEN two indications are processed
	require.NoError(t, sched.Run(20))

	// THEN the failing unit handled neither, was deregistered with a recorded
	// failure, and the healthy unit saw both
	assert.Equal(t, []string{"good", "good"}, order)
	failures := ric.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "bad", failures[0].Unit)
	assert.Equal(t, "near-1", failures[0].Controller)
	assert.Contains(t, failures[0].Cause, "scripted unit failure")

	// AND the name is free for a replacement registration
	assert.NoError(t, ric.RegisterXApp(&scriptedXApp{name: "bad"}))
}

func TestNearRTRIC_IndicationForInactiveSubscription_Dropped(t *testing.T) {
	sched, ric, _ := newNearFixture(t, true)
	x := &scriptedXApp{name: "x-1", types: []e2.EventType{e2.EventTypeCellLoad}}
	require.NoError(t, ric.RegisterXApp(x))

	subID, err := ric.Subscribe(sched, "x-1", "du-1", cellLoadTrigger(), nil)
	require.NoError(t, err)
	require.NoError(t, sched.Run(10))
	require.NoError(t, ric.Unsubscribe(sched, subID))

	_, err = sched.Schedule(1, "near-1", e2.Indication{Source: "du-1", SubID: subID, EventType: e2.EventTypeCellLoad})
	require.NoError(t, err)
	require.NoError(t, sched.Run(20))

	assert.Empty(t, x.got)
}

func TestNearRTRIC_ControlRejection_Reported(t *testing.T) {
	// GIVEN a node that rejects every control action
	sched, ric, node := newNearFixture(t, true)
	node.rejectControl = true

	require.NoError(t, ric.SendControl(sched, "x-1", "du-1", "set-max-ues", map[string]any{"max_ues": -1.0}))
	require.NoError(t, sched.Run(10))

	// THEN the rejection came back instead of being dropped
	failures := ric.ControlFailures()
	require.Len(t, failures, 1)
	assert.Equal(t, "du-1", failures[0].Target)
	assert.Equal(t, "x-1", failures[0].Issuer)
	assert.Equal(t, "set-max-ues", failures[0].Action)

	assert.ErrorIs(t, ric.SendControl(sched, "x-1", "ghost", "noop", nil), sim.ErrUnknownEntity)
}

func TestNearRTRIC_AddNode_IdempotentAndBounded(t *testing.T) {
	ric := NewNearRTRIC("near-1", 2, 1, 1, 1, nil, nil)
	require.NoError(t, ric.AddNode("du-1", sim.KindODU))
	require.NoError(t, ric.AddNode("du-1", sim.KindODU))
	assert.Error(t, ric.AddNode("du-1", sim.KindORU))

	require.NoError(t, ric.AddNode("du-2", sim.KindODU))
	assert.Error(t, ric.AddNode("du-3", sim.KindODU))
	assert.Equal(t, []string{"du-1", "du-2"}, ric.ManagedNodes())
}

func TestNearRTRIC_RemoveNode_CancelsSubscriptionsAndDeregisters(t *testing.T) {
	// GIVEN an active subscription on a managed node
	sched, ric, _ := newNearFixture(t, true)
	subID, err := ric.Subscribe(sched, "x-1", "du-1", cellLoadTrigger(), nil)
	require.NoError(t, err)
	require.NoError(t, sched.Run(10))

	// WHEN the node is removed from management
	require.NoError(t, ric.RemoveNode(sched, "du-1"))

	// THEN its subscriptions are cancelled, the entity is gone from the
	// scheduler, and control toward it fails
	sub, _ := ric.Subscription(subID)
	assert.Equal(t, e2.StatusCancelled, sub.Status)
	_, alive := sched.Lookup("du-1")
	assert.False(t, alive)
	assert.ErrorIs(t, ric.SendControl(sched, "x-1", "du-1", "noop", nil), sim.ErrUnknownEntity)
	assert.Empty(t, ric.ManagedNodes())

	assert.ErrorIs(t, ric.RemoveNode(sched, "du-1"), sim.ErrUnknownEntity)
}

func TestNearRTRIC_RegisterXApp_DuplicateName_Fails(t *testing.T) {
	ric := NewNearRTRIC("near-1", 0, 1, 1, 1, nil, nil)
	require.NoError(t, ric.RegisterXApp(&scriptedXApp{name: "x-1"}))
	assert.Error(t, ric.RegisterXApp(&scriptedXApp{name: "x-1"}))
}
