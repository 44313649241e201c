package metadata

import (
	"encoding/json"
	"time"
)

// Trace captures provenance for one query run: which hooks were consulted,
// in what order, and which one produced the answer.
type Trace struct {
	Subject string       `json:"subject"`
	Strand  string       `json:"strand"`
	Key     string       `json:"key,omitempty"`
	At      time.Time    `json:"at"`
	Steps   []Provenance `json:"steps"`
}

// Provenance details one hook's contribution to a traced run.
type Provenance struct {
	Hook    string `json:"hook"`
	Outcome string `json:"outcome"`
	Value   any    `json:"value,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ToJSON serialises the trace for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload previously produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// traceValue projects a result into the compact representation recorded in
// provenance steps.
func traceValue(result Result) any {
	switch {
	case result.StrandView != nil:
		return result.StrandView.ValueMap()
	case result.Values != nil:
		return result.Values
	case result.Kind == QueryExists:
		return result.Exists
	case result.Kind == QueryCount:
		return result.Count
	default:
		return result.Value
	}
}
