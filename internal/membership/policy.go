package membership

import (
	"errors"
	"math"
	"strings"
	"time"

	"meshgate/internal/evidence"
)

// naiveLayouts are ISO-8601 forms without a zone; they are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

var errUnparsableTimestamp = errors.New("unparsable timestamp")

// ParseObservedAt parses a node-reported timestamp: RFC 3339 with optional
// fractional seconds, or an offset-less ISO-8601 value interpreted as UTC.
func ParseObservedAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errUnparsableTimestamp
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errUnparsableTimestamp
}

// Evaluate applies the membership rule chain. This is pure domain logic - no
// I/O, no side effects. Rule priority (first match wins):
//  1. No evidence on file - NO_EVIDENCE
//  2. Unparsable observed_at - STALE, fail closed with no age
//  3. Age strictly greater than maxAge - STALE
//  4. Missing primary metric counts as a score of 0
//  5. Primary metric strictly below threshold - LOW_SCORE
//  6. Otherwise - OK
func Evaluate(nodeID string, rec *evidence.Record, now time.Time, threshold float64, maxAge time.Duration) Decision {
	d := Decision{NodeID: nodeID, Status: StatusDenied, EvaluatedAt: now}

	// Rule 1: no evidence
	if rec == nil {
		d.Reason = ReasonNoEvidence
		return d
	}

	// Rule 2: malformed timestamps are never fresh
	observed, err := ParseObservedAt(rec.ObservedAt)
	if err != nil {
		d.Reason = ReasonStale
		d.MaxAge = maxAge
		return d
	}

	// Rule 3: freshness
	age := now.Sub(observed)
	d.EvidenceAge = &age
	if age > maxAge {
		d.Reason = ReasonStale
		d.MaxAge = maxAge
		return d
	}

	// Rule 4: absent or non-finite primary metric is the lowest score
	score, ok := rec.Overall()
	if !ok || math.IsNaN(score) || math.IsInf(score, -1) {
		score = 0
	}
	d.Score = &score
	d.Threshold = &threshold

	// Rule 5: quality
	if score < threshold {
		d.Reason = ReasonLowScore
		return d
	}

	// Rule 6: allowed
	d.Status = StatusAllowed
	d.Reason = ReasonOK
	return d
}

// Policy binds the configured thresholds.
type Policy struct {
	Threshold float64
	MaxAge    time.Duration
}

// Evaluate applies the policy to one node.
func (p Policy) Evaluate(nodeID string, rec *evidence.Record, now time.Time) Decision {
	return Evaluate(nodeID, rec, now, p.Threshold, p.MaxAge)
}

// EvaluateAll produces one decision per roster node, in roster order, stamped
// with epochID. records is a snapshot taken before the call.
func (p Policy) EvaluateAll(nodeIDs []string, records map[string]evidence.Record, now time.Time, epochID uint64) []Decision {
	out := make([]Decision, 0, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		var rec *evidence.Record
		if r, ok := records[nodeID]; ok {
			rec = &r
		}
		d := p.Evaluate(nodeID, rec, now)
		d.EpochID = epochID
		out = append(out, d)
	}
	return out
}
