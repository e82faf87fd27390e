package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
)

// DefaultSecret is the pre-shared key the availability API expects
const DefaultSecret = "2355062e-40ae-454c-bcaa-b450e42fe54c"

// Signer computes the per-request HMAC token the availability API expects
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer for the given shared secret.
// An empty secret falls back to DefaultSecret.
func NewSigner(secret string) *Signer {
	if secret == "" {
		secret = DefaultSecret
	}
	return &Signer{secret: []byte(secret)}
}

// Sign returns the lowercase hex HMAC-SHA512 digest of
// nonce + ":" + the compact JSON payload. The payload keys must be
// serialized in the exact order startDate, daysToCheck; key order is part
// of the signature, so the payload is built by hand instead of going
// through a map.
func (s *Signer) Sign(nonce, startDate, daysToCheck string) string {
	payload := fmt.Sprintf(`{"startDate":%q,"daysToCheck":%q}`, startDate, daysToCheck)
	mac := hmac.New(sha512.New, s.secret)
	mac.Write([]byte(nonce + ":" + payload))
	return hex.EncodeToString(mac.Sum(nil))
}
