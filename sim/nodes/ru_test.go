package nodes

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/e2"
	"github.com/oransim/oransim/sim/mobility"
)

func newRUFixture(t *testing.T, cfg RUConfig) (*sim.Scheduler, *ORU, *sink) {
	t.Helper()
	sched := sim.NewScheduler(nil)
	ctrl := newSink("ctrl", sim.KindNearRTRIC)
	ru := NewORU(cfg, testDelays(), rand.New(rand.NewSource(1)), nil)
	require.NoError(t, sched.Register(ctrl))
	require.NoError(t, sched.Register(ru))
	return sched, ru, ctrl
}

func defaultRUConfig() RUConfig {
	return RUConfig{
		ID:          "ru-1",
		DU:          "du-1",
		Controller:  "ctrl",
		Pos:         mobility.Position{X: 0, Y: 0},
		FrequencyHz: 3.5e9,
		BandwidthHz: 100e6,
		TxPowerDBm:  46,
	}
}

// rsrpAt mirrors the free-space path-loss model for expected values.
func rsrpAt(cfg RUConfig, dist float64) float64 {
	return cfg.TxPowerDBm - (20*math.Log10(dist) + 20*math.Log10(cfg.FrequencyHz) - 147.55)
}

func TestORU_FronthaulFrameLoop(t *testing.T) {
	// GIVEN a radio unit streaming frames every 10 ticks with a fixed 2-tick
	// latency
	cfg := defaultRUConfig()
	cfg.FrameInterval = 10
	cfg.FrameLatMean = 2
	sched, ru, _ := newRUFixture(t, cfg)
	du := newSink("du-1", sim.KindODU)
	require.NoError(t, sched.Register(du))
	require.NoError(t, ru.Start(sched))

	// WHEN three frame intervals elapse
	require.NoError(t, sched.Run(35))

	// THEN three frames arrived in sequence order
	assert.Equal(t, int64(3), ru.FramesSent())
	require.Len(t, du.frames, 3)
	for i, f := range du.frames {
		assert.Equal(t, "ru-1", f.RU)
		assert.Equal(t, int64(i+1), f.Seq)
	}
}

func TestORU_LinkQuality_ThresholdFilter(t *testing.T) {
	// GIVEN a link-quality subscription reporting only samples at or below
	// -50 dBm
	cfg := defaultRUConfig()
	sched, _, ctrl := newRUFixture(t, cfg)
	trigger := e2.Trigger{EventType: e2.EventTypeLinkQuality, Threshold: -50}
	_, err := sched.Schedule(1, "ru-1", subRequest("s-1", "ru-1", trigger))
	require.NoError(t, err)

	// WHEN a near and a far position update arrive
	_, err = sched.Schedule(5, "ru-1", PositionUpdate{UE: "ue-1", Pos: mobility.Position{X: 1, Y: 0}})
	require.NoError(t, err)
	_, err = sched.Schedule(6, "ru-1", PositionUpdate{UE: "ue-1", Pos: mobility.Position{X: 1000, Y: 0}})
	require.NoError(t, err)
	require.NoError(t, sched.Run(100))

	// THEN only the far sample (below the threshold) was reported
	require.Len(t, ctrl.inds, 1)
	ind := ctrl.inds[0]
	assert.Equal(t, e2.EventTypeLinkQuality, ind.EventType)
	assert.Equal(t, "ue-1", ind.Payload["ue"])
	assert.Equal(t, "du-1", ind.Payload["serving_du"])
	assert.InDelta(t, rsrpAt(cfg, 1000), ind.Payload["rsrp"].(float64), 1e-9)
	assert.Equal(t, 1000.0, ind.Payload["distance_m"])
}

func TestORU_LinkQuality_ZeroThresholdReportsAll(t *testing.T) {
	sched, _, ctrl := newRUFixture(t, defaultRUConfig())
	_, err := sched.Schedule(1, "ru-1", subRequest("s-1", "ru-1", e2.Trigger{EventType: e2.EventTypeLinkQuality}))
	require.NoError(t, err)

	_, err = sched.Schedule(5, "ru-1", PositionUpdate{UE: "ue-1", Pos: mobility.Position{X: 1, Y: 0}})
	require.NoError(t, err)
	_, err = sched.Schedule(6, "ru-1", PositionUpdate{UE: "ue-1", Pos: mobility.Position{X: 500, Y: 0}})
	require.NoError(t, err)
	require.NoError(t, sched.Run(100))

	assert.Len(t, ctrl.inds, 2)
}

func TestORU_PeriodicSubscription_Rejected(t *testing.T) {
	sched, _, ctrl := newRUFixture(t, defaultRUConfig())
	trigger := e2.Trigger{EventType: e2.EventTypeLinkQuality, Period: 5}
	_, err := sched.Schedule(1, "ru-1", subRequest("s-1", "ru-1", trigger))
	require.NoError(t, err)
	require.NoError(t, sched.Run(10))

	require.Len(t, ctrl.responses, 1)
	assert.False(t, ctrl.responses[0].Accepted)
	assert.Equal(t, "periodic reporting unsupported", ctrl.responses[0].Cause)
}

func TestORU_SetTxPower(t *testing.T) {
	// GIVEN a radio unit at 46 dBm
	sched, ru, ctrl := newRUFixture(t, defaultRUConfig())

	// WHEN a valid power level is applied
	_, err := sched.Schedule(1, "ru-1", e2.ControlRequest{
		From:   "ctrl",
		Action: "set-tx-power",
		Params: map[string]any{"tx_power_dbm": 30.0},
	})
	require.NoError(t, err)
	require.NoError(t, sched.Run(10))
	assert.Equal(t, 30.0, ru.TxPowerDBm())
	assert.Empty(t, ctrl.fails)

	// THEN out-of-range levels are rejected unchanged
	_, err = sched.Schedule(1, "ru-1", e2.ControlRequest{
		From:   "ctrl",
		Action: "set-tx-power",
		Params: map[string]any{"tx_power_dbm": 70.0},
	})
	require.NoError(t, err)
	require.NoError(t, sched.Run(20))
	require.Len(t, ctrl.fails, 1)
	assert.Contains(t, ctrl.fails[0].Cause, "out of range")
	assert.Equal(t, 30.0, ru.TxPowerDBm())
}
