package keys

import (
	"encoding/base64"
	"fmt"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// PresharedKey converts 32 bytes of derived material into a WireGuard key.
func PresharedKey(material []byte) (wgtypes.Key, error) {
	if len(material) != wgtypes.KeyLen {
		return wgtypes.Key{}, fmt.Errorf("preshared key must be %d bytes, got %d", wgtypes.KeyLen, len(material))
	}
	return wgtypes.NewKey(material)
}

// Encode renders derived material as standard base64. 32-byte material goes
// through wgtypes so the encoding is exactly what `wg set ... preshared-key` reads.
func Encode(material []byte) string {
	if key, err := PresharedKey(material); err == nil {
		return key.String()
	}
	return base64.StdEncoding.EncodeToString(material)
}
