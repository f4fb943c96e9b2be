// Package status renders the control-plane state into snapshots and exports
// them to observability sinks.
package status

import (
	"time"

	"meshgate/internal/epoch"
	"meshgate/internal/evidence"
	"meshgate/internal/membership"
)

// Snapshot is the exported view of one committed rotation.
type Snapshot struct {
	Epoch       EpochSummary          `json:"epoch"`
	Nodes       map[string]NodeStatus `json:"nodes"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// EpochSummary never carries the secret.
type EpochSummary struct {
	ID         uint64    `json:"id"`
	ExpiryUTC  time.Time `json:"expiry_utc"`
	SecretHash string    `json:"secret_hash"`
}

type NodeStatus struct {
	Membership    membership.Status     `json:"membership"`
	Reason        membership.ReasonCode `json:"reason,omitempty"`
	Detail        string                `json:"detail,omitempty"`
	LastUpdateUTC time.Time             `json:"last_update_utc"`
	LastBenchmark *BenchmarkSummary     `json:"last_benchmark,omitempty"`
}

type BenchmarkSummary struct {
	Overall      float64 `json:"overall"`
	ObservedAt   string  `json:"timestamp"`
	SuiteVersion string  `json:"suite_version"`
}

// Build assembles a snapshot. Every decision yields a node entry; records
// provide the last benchmark summary when present.
func Build(ep epoch.Record, decisions []membership.Decision, records map[string]evidence.Record, now time.Time) Snapshot {
	snap := Snapshot{
		Epoch: EpochSummary{
			ID:         ep.ID,
			ExpiryUTC:  ep.Expiry.UTC(),
			SecretHash: ep.Fingerprint,
		},
		Nodes:       make(map[string]NodeStatus, len(decisions)),
		GeneratedAt: now.UTC(),
	}

	for _, d := range decisions {
		node := NodeStatus{
			Membership:    d.Status,
			Reason:        d.Reason,
			Detail:        d.Detail(),
			LastUpdateUTC: now.UTC(),
		}
		if rec, ok := records[d.NodeID]; ok {
			overall, _ := rec.Overall()
			node.LastBenchmark = &BenchmarkSummary{
				Overall:      overall,
				ObservedAt:   rec.ObservedAt,
				SuiteVersion: rec.SuiteVersion,
			}
		}
		snap.Nodes[d.NodeID] = node
	}
	return snap
}
