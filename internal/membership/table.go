package membership

import (
	"maps"
	"sync"
)

// Table holds the latest decision per node.
type Table struct {
	mu        sync.RWMutex
	decisions map[string]Decision
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{decisions: make(map[string]Decision)}
}

// Get returns the node's decision, or ok=false when none exists.
func (t *Table) Get(nodeID string) (Decision, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.decisions[nodeID]
	return d, ok
}

// All returns a copy of every decision.
func (t *Table) All() map[string]Decision {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.decisions)
}

// Upsert stores a single decision.
func (t *Table) Upsert(d Decision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.decisions[d.NodeID] = d
}

// ReplaceAll rewrites the whole table; nodes absent from decisions are dropped.
func (t *Table) ReplaceAll(decisions []Decision) {
	next := make(map[string]Decision, len(decisions))
	for _, d := range decisions {
		next[d.NodeID] = d
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.decisions = next
}
