// Package epoch owns the time-boxed secret lifecycle.
package epoch

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"meshgate/internal/keys"
)

// SecretSize is the length of every freshly minted epoch secret.
const SecretSize = 32

// Record is one epoch. The zero value is the uninitialized epoch (ID 0) that
// exists before the first rotation.
type Record struct {
	ID          uint64
	Secret      []byte
	Expiry      time.Time
	Fingerprint string
}

// Initialized reports whether the record came from a rotation.
func (r Record) Initialized() bool {
	return r.ID > 0
}

// Next mints the successor of prev: a fresh random secret, id prev.ID+1, and
// expiry now+interval. entropy defaults to crypto/rand.
func Next(prev Record, now time.Time, interval time.Duration, entropy io.Reader) (Record, error) {
	if entropy == nil {
		entropy = rand.Reader
	}
	secret := make([]byte, SecretSize)
	if _, err := io.ReadFull(entropy, secret); err != nil {
		return Record{}, fmt.Errorf("generate epoch secret: %w", err)
	}
	return Record{
		ID:          prev.ID + 1,
		Secret:      secret,
		Expiry:      now.Add(interval).UTC(),
		Fingerprint: keys.Fingerprint(secret),
	}, nil
}

// LogValue keeps the secret out of structured logs.
func (r Record) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("epoch_id", r.ID),
		slog.Time("expiry", r.Expiry),
		slog.String("secret_fingerprint", r.Fingerprint),
	)
}

// String keeps the secret out of fmt output.
func (r Record) String() string {
	return fmt.Sprintf("epoch{id=%d expiry=%s fingerprint=%s}", r.ID, r.Expiry.Format(time.RFC3339), r.Fingerprint)
}

// MarshalJSON never serializes the secret.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          uint64    `json:"epoch_id"`
		Expiry      time.Time `json:"expiry_utc"`
		Fingerprint string    `json:"secret_hash"`
	}{r.ID, r.Expiry, r.Fingerprint})
}
