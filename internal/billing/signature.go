package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Sign computes the webhook signature over the exact raw body:
// base64(HMAC-SHA256(body, secret)).
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the X-Webhook-Signature header against the raw
// (unparsed) request body. The body must not have been through a JSON
// round-trip — re-serialization would not byte-reproduce the payload.
// Comparison is constant-time; missing or malformed signatures fail closed.
func VerifySignature(body []byte, signatureHeader string, secret []byte) bool {
	if signatureHeader == "" || len(secret) == 0 {
		return false
	}
	received, err := base64.StdEncoding.DecodeString(signatureHeader)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	// hmac.Equal is constant-time and rejects length mismatches.
	return hmac.Equal(received, expected)
}
