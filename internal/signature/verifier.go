// Package signature defines how evidence signatures are checked.
package signature

import (
	"encoding/json"

	"meshgate/internal/evidence"
)

// Verifier checks a detached signature over an evidence payload.
type Verifier interface {
	Verify(payload []byte, signature string) bool
}

// AcceptAll accepts every payload. It is the default until nodes carry keys.
type AcceptAll struct{}

func (AcceptAll) Verify([]byte, string) bool { return true }

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(payload []byte, signature string) bool

func (f VerifierFunc) Verify(payload []byte, signature string) bool {
	return f(payload, signature)
}

// signedFields is the portion of a record covered by its signature.
type signedFields struct {
	NodeID       string             `json:"node_id"`
	Timestamp    string             `json:"timestamp"`
	SuiteVersion string             `json:"suite_version"`
	Scores       map[string]float64 `json:"scores"`
	Notes        *string            `json:"notes,omitempty"`
}

// Payload returns the canonical bytes a node signs: the record without its
// signature, with keys in a stable order.
func Payload(rec evidence.Record) ([]byte, error) {
	return json.Marshal(signedFields{
		NodeID:       rec.NodeID,
		Timestamp:    rec.ObservedAt,
		SuiteVersion: rec.SuiteVersion,
		Scores:       rec.Scores,
		Notes:        rec.Notes,
	})
}
