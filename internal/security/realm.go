package security

import (
	"crypto/rand"
	"encoding/hex"
)

// NewRealmNonce returns a random hex string used to build a one-shot Basic
// auth realm. A realm name the browser has never seen forces a fresh
// credential prompt even when it has credentials cached for the default realm.
func NewRealmNonce() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf)
}
