// Package roster holds the fixed, ordered set of member nodes supplied at startup.
package roster

import (
	"fmt"
	"strings"
)

// Roster is an immutable ordered set of node identifiers.
type Roster struct {
	ids   []string
	index map[string]struct{}
}

// New builds a roster, rejecting empty and duplicate ids.
func New(ids ...string) (Roster, error) {
	r := Roster{
		ids:   make([]string, 0, len(ids)),
		index: make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return Roster{}, fmt.Errorf("roster: empty node id")
		}
		if _, dup := r.index[id]; dup {
			return Roster{}, fmt.Errorf("roster: duplicate node id %q", id)
		}
		r.index[id] = struct{}{}
		r.ids = append(r.ids, id)
	}
	if len(r.ids) == 0 {
		return Roster{}, fmt.Errorf("roster: at least one node id is required")
	}
	return r, nil
}

// Parse builds a roster from a comma separated list.
func Parse(csv string) (Roster, error) {
	var ids []string
	for part := range strings.SplitSeq(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}
	return New(ids...)
}

// IDs returns the node ids in roster order. The slice is a copy.
func (r Roster) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Contains reports whether nodeID is a member.
func (r Roster) Contains(nodeID string) bool {
	_, ok := r.index[nodeID]
	return ok
}

// Len returns the number of members.
func (r Roster) Len() int {
	return len(r.ids)
}
