package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureVerifier checks platform webhook signatures. The platform signs
// the raw request body with HMAC-SHA256 keyed by the app secret and sends
// the base64 digest in a header.
type SignatureVerifier struct {
	secret []byte
}

// NewSignatureVerifier creates a verifier with the shared app secret.
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Verify reports whether provided matches the HMAC of rawBody. It fails
// closed: an empty secret or an empty signature never verifies.
func (v *SignatureVerifier) Verify(rawBody []byte, provided string) bool {
	if len(v.secret) == 0 || provided == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(provided))
}
