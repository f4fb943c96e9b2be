package agent

import (
	"context"
	"fmt"
	"log/slog"

	"meshgate/internal/keys"
	"meshgate/internal/platform/logger"
)

// Applier installs keying material for an epoch on the local interface.
type Applier interface {
	Apply(ctx context.Context, epochID uint64, material []byte) error
}

// LogApplier validates the material as a WireGuard preshared key and logs its
// fingerprint. It never logs the key itself.
type LogApplier struct {
	Logger *slog.Logger
}

func (a LogApplier) Apply(ctx context.Context, epochID uint64, material []byte) error {
	if _, err := keys.PresharedKey(material); err != nil {
		return fmt.Errorf("apply epoch %d key: %w", epochID, err)
	}
	log := a.Logger
	if log == nil {
		log = logger.Discard()
	}
	log.InfoContext(ctx, "preshared key applied",
		"epoch_id", epochID,
		"psk_fingerprint", keys.Fingerprint(material),
	)
	return nil
}
