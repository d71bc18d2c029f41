package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// VerifySignature recomputes the gateway signature, SHA-512 over
// orderID + statusCode + grossAmount + serverKey hex-encoded, and compares it
// against the presented one. When enforce is false (non-production) the check
// always passes. Pure function, no side effects.
func VerifySignature(n *Notification, serverKey string, enforce bool) bool {
	if !enforce {
		return true
	}

	payload := n.OrderID + n.StatusCode + string(n.GrossAmount) + serverKey
	sum := sha512.Sum512([]byte(payload))
	expected := hex.EncodeToString(sum[:])

	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.Signature)) == 1
}
