package status

import "context"

// Sink persists or exports a snapshot. Implementations must honor ctx.
type Sink interface {
	Name() string
	Write(ctx context.Context, snap Snapshot) error
}
