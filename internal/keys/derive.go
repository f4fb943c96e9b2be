// Package keys derives per-node keying material from an epoch secret.
//
// The HMAC deriver is a single keyed pass (extended with counter blocks for
// outputs longer than one digest). The HKDF deriver follows RFC 5869. Neither
// retains its inputs, performs I/O, or logs; callers surface only Fingerprint.
package keys

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DefaultLength is the derived key size when callers pass length <= 0.
// It matches a WireGuard preshared key.
const DefaultLength = 32

// maxLength caps derivation output well below the HKDF limit of 255 digests.
const maxLength = 255 * sha256.Size

// hkdfInfoPrefix domain-separates PSK derivation from any other HKDF use of the secret.
const hkdfInfoPrefix = "meshgate psk "

// Deriver maps (secret, node id) to deterministic keying material.
type Deriver interface {
	Derive(secret []byte, nodeID string, length int) []byte
}

// HMAC derives HMAC-SHA256(secret, nodeID) truncated or counter-extended to length.
type HMAC struct{}

// Derive implements Deriver.
func (HMAC) Derive(secret []byte, nodeID string, length int) []byte {
	length = normalizeLength(length)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(nodeID))
	out := mac.Sum(nil)

	var counter [4]byte
	for i := uint32(1); len(out) < length; i++ {
		mac.Reset()
		mac.Write([]byte(nodeID))
		binary.BigEndian.PutUint32(counter[:], i)
		mac.Write(counter[:])
		out = mac.Sum(out)
	}
	return out[:length]
}

// HKDF derives material with HKDF-SHA256, the node id bound into the info field.
type HKDF struct{}

// Derive implements Deriver.
func (HKDF) Derive(secret []byte, nodeID string, length int) []byte {
	length = normalizeLength(length)
	out := make([]byte, length)
	r := hkdf.New(sha256.New, secret, nil, []byte(hkdfInfoPrefix+nodeID))
	// Reads up to 255*HashLen never fail; length is capped below that.
	_, _ = io.ReadFull(r, out)
	return out
}

// Derive uses the default HMAC deriver.
func Derive(secret []byte, nodeID string, length int) []byte {
	return HMAC{}.Derive(secret, nodeID, length)
}

// ParseKDF returns the deriver for a configured name.
func ParseKDF(name string) (Deriver, error) {
	switch name {
	case "", "hmac":
		return HMAC{}, nil
	case "hkdf":
		return HKDF{}, nil
	default:
		return nil, fmt.Errorf("unknown key derivation %q", name)
	}
}

// Fingerprint is a short non-reversible digest safe for logs and status output.
func Fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])[:16]
}

func normalizeLength(length int) int {
	if length <= 0 {
		return DefaultLength
	}
	return min(length, maxLength)
}
