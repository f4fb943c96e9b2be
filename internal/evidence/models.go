package evidence

import (
	"maps"
	"time"
)

// PrimaryMetric is the score the membership policy gates on.
const PrimaryMetric = "overall"

// Record is the most recent benchmark a node submitted.
// ObservedAt is kept verbatim as the node sent it; parsing is the policy's job.
type Record struct {
	NodeID       string
	ObservedAt   string
	SuiteVersion string
	Scores       map[string]float64
	Notes        *string
	Signature    *string
	ReceivedAt   time.Time
}

// Overall returns the primary metric and whether it was present.
func (r Record) Overall() (float64, bool) {
	v, ok := r.Scores[PrimaryMetric]
	return v, ok
}

// Clone returns a deep copy so stored records never alias caller memory.
func (r Record) Clone() Record {
	out := r
	if r.Scores != nil {
		out.Scores = maps.Clone(r.Scores)
	}
	if r.Notes != nil {
		notes := *r.Notes
		out.Notes = &notes
	}
	if r.Signature != nil {
		sig := *r.Signature
		out.Signature = &sig
	}
	return out
}
