package ric

import (
	"github.com/sirupsen/logrus"

	"github.com/oransim/oransim/sim"
	"github.com/oransim/oransim/sim/a1"
	"github.com/oransim/oransim/sim/e2"
)

// HandoverTarget names the cell a UE should be moved to when its serving
// radio unit reports poor link quality.
type HandoverTarget struct {
	DU string
	RU string
}

// HandoverXApp is a closed-loop unit that watches link-quality indications
// and issues handover control actions when the reported RSRP drops below its
// threshold. Neighbor relations are static, keyed by serving radio unit.
type HandoverXApp struct {
	name          string
	rsrpThreshold float64
	neighbors     map[string]HandoverTarget
}

// NewHandoverXApp creates a handover unit with a static neighbor map.
func NewHandoverXApp(name string, rsrpThreshold float64, neighbors map[string]HandoverTarget) *HandoverXApp {
	return &HandoverXApp{name: name, rsrpThreshold: rsrpThreshold, neighbors: neighbors}
}

func (x *HandoverXApp) Name() string { return x.name }

func (x *HandoverXApp) EventTypes() []e2.EventType {
	return []e2.EventType{e2.EventTypeLinkQuality}
}

func (x *HandoverXApp) HandleIndication(ctrl *NearRTRIC, sched *sim.Scheduler, now sim.VirtualTime, ind e2.Indication) {
	rsrp, ok := ind.Payload["rsrp"].(float64)
	if !ok || rsrp >= x.rsrpThreshold {
		return
	}
	ue, _ := ind.Payload["ue"].(string)
	servingDU, _ := ind.Payload["serving_du"].(string)
	target, ok := x.neighbors[ind.Source]
	if !ok || ue == "" || servingDU == "" {
		return
	}
	logrus.Infof("[tick %07d] %s: rsrp %.1f dBm for %q below %.1f, handing over to %s/%s",
		now, x.name, rsrp, ue, x.rsrpThreshold, target.DU, target.RU)
	err := ctrl.SendControl(sched, x.name, servingDU, "handover", map[string]any{
		"ue":        ue,
		"target_du": target.DU,
		"target_ru": target.RU,
	})
	if err != nil {
		logrus.Warnf("[tick %07d] %s: handover control failed: %v", now, x.name, err)
	}
}

// LoadBalancingRApp is an optimization unit that maintains one qos policy on
// its Near-RT RIC, creating it on the first optimization round and bumping
// the version on every following round. At most one operation is in flight
// at a time; retry on rejection waits for the next round.
type LoadBalancingRApp struct {
	name     string
	ric      string
	policyID string
	maxLoad  float64

	version  int64 // last acknowledged version
	round    int64
	inFlight bool
}

// NewLoadBalancingRApp creates a load-balancing unit steering the given
// Near-RT RIC.
func NewLoadBalancingRApp(name, ric, policyID string, maxLoad float64) *LoadBalancingRApp {
	return &LoadBalancingRApp{name: name, ric: ric, policyID: policyID, maxLoad: maxLoad}
}

func (r *LoadBalancingRApp) Name() string { return r.name }

func (r *LoadBalancingRApp) Optimize(client *PolicyClient, now sim.VirtualTime) {
	if r.inFlight {
		return
	}
	r.round++
	content := map[string]any{"max_load": r.maxLoad, "round": r.round}

	var err error
	if r.version == 0 {
		err = client.Create(r.ric, "qos", r.policyID, content, r.ric)
	} else {
		err = client.Update(r.ric, "qos", r.policyID, content, r.version+1)
	}
	if err != nil {
		logrus.Warnf("[tick %07d] %s: policy operation not issued: %v", now, r.name, err)
		return
	}
	r.inFlight = true
}

func (r *LoadBalancingRApp) HandleDecision(client *PolicyClient, now sim.VirtualTime, d a1.Decision) {
	r.inFlight = false
	if !d.Accepted {
		logrus.Warnf("[tick %07d] %s: policy %s v%d rejected: %s", now, r.name, d.Op, d.Version, d.Cause)
		return
	}
	r.version = d.Version
}

// Version returns the last acknowledged policy version.
func (r *LoadBalancingRApp) Version() int64 { return r.version }
