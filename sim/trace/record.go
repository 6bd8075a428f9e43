package trace

// IndicationRecord captures one indication delivered to a Near-RT RIC.
type IndicationRecord struct {
	At        int64          `json:"at"`
	EmittedAt int64          `json:"emitted_at"`
	Source    string         `json:"source"`
	SubID     string         `json:"sub_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// PolicyRecord captures the outcome of one policy operation as observed at
// the owning Near-RT RIC.
type PolicyRecord struct {
	At       int64  `json:"at"`
	Op       string `json:"op"`
	Type     string `json:"type"`
	PolicyID string `json:"policy_id"`
	Version  int64  `json:"version"`
	Applied  bool   `json:"applied"`
	Cause    string `json:"cause,omitempty"`
}
