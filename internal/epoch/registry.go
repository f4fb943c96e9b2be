package epoch

import (
	"fmt"
	"sync/atomic"

	"meshgate/pkg/platform/sentinel"
)

// Registry holds the single current epoch. Readers always observe a complete
// record because replacement swaps one pointer.
type Registry struct {
	current atomic.Pointer[Record]
}

// NewRegistry returns a registry holding the uninitialized epoch.
func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(&Record{})
	return r
}

// Current returns the active epoch. Before any rotation it is the zero record.
func (r *Registry) Current() Record {
	if rec := r.current.Load(); rec != nil {
		return *rec
	}
	return Record{}
}

// Replace installs next as the current epoch. The id must strictly increase.
func (r *Registry) Replace(next Record) error {
	stored := next
	stored.Secret = append([]byte(nil), next.Secret...)
	for {
		prev := r.current.Load()
		var prevID uint64
		if prev != nil {
			prevID = prev.ID
		}
		if next.ID <= prevID {
			return fmt.Errorf("%w: epoch id %d does not follow %d", sentinel.ErrInvalidState, next.ID, prevID)
		}
		if r.current.CompareAndSwap(prev, &stored) {
			return nil
		}
	}
}
