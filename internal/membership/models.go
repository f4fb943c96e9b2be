package membership

import (
	"fmt"
	"time"
)

// Status is the membership verdict for a node.
type Status string

const (
	StatusAllowed Status = "ALLOWED"
	StatusDenied  Status = "DENIED"
	StatusUnknown Status = "UNKNOWN"
)

// ReasonCode is the structured cause attached to every decision.
type ReasonCode string

const (
	ReasonOK           ReasonCode = "OK"
	ReasonNoEvidence   ReasonCode = "NO_EVIDENCE"
	ReasonStale        ReasonCode = "STALE"
	ReasonLowScore     ReasonCode = "LOW_SCORE"
	ReasonNotEvaluated ReasonCode = "NOT_EVALUATED"
)

// Decision is the result of one policy evaluation for one node.
// Optional fields are set only by the branches that measure them.
type Decision struct {
	NodeID      string
	EpochID     uint64
	Status      Status
	Reason      ReasonCode
	Score       *float64
	Threshold   *float64
	EvidenceAge *time.Duration
	MaxAge      time.Duration
	EvaluatedAt time.Time
}

// Unknown is the placeholder for a node no rotation has evaluated yet.
func Unknown(nodeID string) Decision {
	return Decision{NodeID: nodeID, Status: StatusUnknown, Reason: ReasonNotEvaluated}
}

// Allowed reports whether the node may receive keying material.
func (d Decision) Allowed() bool {
	return d.Status == StatusAllowed
}

// Detail renders the reason for humans and logs.
func (d Decision) Detail() string {
	switch d.Reason {
	case ReasonNoEvidence:
		return "no benchmark submitted"
	case ReasonStale:
		if d.EvidenceAge == nil {
			return "benchmark timestamp unparsable"
		}
		return fmt.Sprintf("benchmark too old (%.0fs > %.0fs)", d.EvidenceAge.Seconds(), d.MaxAge.Seconds())
	case ReasonLowScore:
		return fmt.Sprintf("score %.2f < threshold %.2f", deref(d.Score), deref(d.Threshold))
	case ReasonOK:
		return fmt.Sprintf("score %.2f >= %.2f, fresh", deref(d.Score), deref(d.Threshold))
	default:
		return "no membership decision"
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
