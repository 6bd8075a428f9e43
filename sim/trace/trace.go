// Package trace records the externally visible event stream of a run: the
// indications and policy notifications that analytics consumers observe
// read-only. For a fixed configuration, seed, and operation sequence the
// serialized stream is byte-identical across runs, which is the determinism
// surface the test suite asserts on.
package trace

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// RunTrace collects indication and policy records during one simulation run,
// in emission order.
type RunTrace struct {
	runID       string
	Indications []IndicationRecord
	Policies    []PolicyRecord
}

// NewRunTrace creates a RunTrace ready for recording. The run id is a fresh
// uuid; it identifies the run in summaries but is kept out of the
// deterministic record stream.
func NewRunTrace() *RunTrace {
	return &RunTrace{
		runID:       uuid.NewString(),
		Indications: make([]IndicationRecord, 0),
		Policies:    make([]PolicyRecord, 0),
	}
}

// RunID returns this run's identifier.
func (rt *RunTrace) RunID() string { return rt.runID }

// RecordIndication appends an indication record. Nil-receiver safe so
// components can run untraced.
func (rt *RunTrace) RecordIndication(rec IndicationRecord) {
	if rt != nil {
		rt.Indications = append(rt.Indications, rec)
	}
}

// RecordPolicy appends a policy outcome record.
func (rt *RunTrace) RecordPolicy(rec PolicyRecord) {
	if rt != nil {
		rt.Policies = append(rt.Policies, rec)
	}
}

// WriteJSONL serializes all records to w as JSON lines, indications first
// then policy records, each stream in emission order. encoding/json emits
// map keys sorted, so equal runs serialize to equal bytes.
func (rt *RunTrace) WriteJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, rec := range rt.Indications {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode indication record: %w", err)
		}
	}
	for _, rec := range rt.Policies {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode policy record: %w", err)
		}
	}
	return nil
}
