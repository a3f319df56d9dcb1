// Package signature verifies HMAC-SHA256 webhook signatures.
//
// Senders sign the raw request body with a shared secret and send the
// lowercase hex digest in the X-Signature header. Verification fails closed:
// an unset secret or an empty signature never verifies.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Header is the request header carrying the hex signature.
const Header = "X-Signature"

// Sign returns the lowercase hex HMAC-SHA256 of body keyed by secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether provided is the signature of body under secret.
// The comparison is constant-time with respect to the signature contents.
func Verify(secret string, body []byte, provided string) bool {
	if secret == "" || provided == "" {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(provided))
}
