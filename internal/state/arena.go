// Package state owns the shared control-plane state: the epoch registry, the
// evidence store and the membership table. The rotator and the request
// handlers both receive the same Arena.
package state

import (
	"fmt"
	"sync"

	"meshgate/internal/epoch"
	"meshgate/internal/evidence"
	"meshgate/internal/membership"
	"meshgate/pkg/platform/sentinel"
)

// Arena pairs epoch and membership writes under one commit lock so readers
// always see decisions computed for the epoch they are reading. Evidence
// writes bypass the lock; the store synchronizes itself.
type Arena struct {
	mu          sync.RWMutex
	epochs      *epoch.Registry
	evidence    evidence.Store
	memberships *membership.Table
}

// View is a consistent read of the current epoch and its decisions.
type View struct {
	Epoch     epoch.Record
	Decisions map[string]membership.Decision
}

// Decision returns the node's decision, or UNKNOWN when none was committed.
func (v View) Decision(nodeID string) membership.Decision {
	if d, ok := v.Decisions[nodeID]; ok {
		return d
	}
	return membership.Unknown(nodeID)
}

// New builds an arena around store. A nil store gets an in-memory one.
func New(store evidence.Store) *Arena {
	if store == nil {
		store = evidence.NewInMemoryStore()
	}
	return &Arena{
		epochs:      epoch.NewRegistry(),
		evidence:    store,
		memberships: membership.NewTable(),
	}
}

// Evidence exposes the evidence store for submissions and rotation snapshots.
func (a *Arena) Evidence() evidence.Store {
	return a.evidence
}

// Epoch returns the current epoch record.
func (a *Arena) Epoch() epoch.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.epochs.Current()
}

// Commit installs next and rewrites the membership table in one step. Every
// decision must be stamped with next.ID.
func (a *Arena) Commit(next epoch.Record, decisions []membership.Decision) error {
	for _, d := range decisions {
		if d.EpochID != next.ID {
			return fmt.Errorf("%w: decision for %s computed for epoch %d, committing %d",
				sentinel.ErrInvalidState, d.NodeID, d.EpochID, next.ID)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.epochs.Replace(next); err != nil {
		return err
	}
	a.memberships.ReplaceAll(decisions)
	return nil
}

// View returns the current epoch with a copy of the membership table.
func (a *Arena) View() View {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return View{
		Epoch:     a.epochs.Current(),
		Decisions: a.memberships.All(),
	}
}

// NodeView returns the current epoch and one node's decision as a matched pair.
func (a *Arena) NodeView(nodeID string) (epoch.Record, membership.Decision) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	d, ok := a.memberships.Get(nodeID)
	if !ok {
		d = membership.Unknown(nodeID)
	}
	return a.epochs.Current(), d
}
