package trace

import "fmt"

// Summary aggregates a RunTrace for end-of-run reporting.
type Summary struct {
	RunID             string
	Indications       int
	PolicyApplied     int
	PolicyRejected    int
	IndicationsByType map[string]int
}

// Summarize computes aggregate counts over the recorded streams.
func (rt *RunTrace) Summarize() Summary {
	s := Summary{
		RunID:             rt.RunID(),
		Indications:       len(rt.Indications),
		IndicationsByType: make(map[string]int),
	}
	for _, rec := range rt.Indications {
		s.IndicationsByType[rec.EventType]++
	}
	for _, rec := range rt.Policies {
		if rec.Applied {
			s.PolicyApplied++
		} else {
			s.PolicyRejected++
		}
	}
	return s
}

// String renders the summary in a single line suitable for logging.
func (s Summary) String() string {
	return fmt.Sprintf("run %s: %d indications, %d policy ops applied, %d rejected",
		s.RunID, s.Indications, s.PolicyApplied, s.PolicyRejected)
}
