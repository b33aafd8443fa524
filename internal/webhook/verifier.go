package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/orderrelay/orderrelay/internal/logger"
)

// Verifier validates that an inbound webhook body was signed with the
// shared secret configured on the WooCommerce side.
type Verifier interface {
	Verify(body []byte, signature string) bool
}

type hmacVerifier struct {
	secret []byte
	logger *logger.Logger
}

// NewVerifier creates an HMAC-SHA256 verifier for the given shared secret
func NewVerifier(secret string, logger *logger.Logger) Verifier {
	return &hmacVerifier{
		secret: []byte(secret),
		logger: logger,
	}
}

// Verify recomputes Base64(HMAC-SHA256(secret, body)) over the exact raw
// request bytes and compares it against the header-supplied signature.
// The body must be the bytes as transmitted: any re-serialization before
// this point invalidates the hash.
func (v *hmacVerifier) Verify(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	computed := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// Constant-time comparison to prevent timing attacks
	isValid := hmac.Equal([]byte(computed), []byte(signature))

	if !isValid {
		v.logger.Warnw("webhook signature verification failed",
			"body_length", len(body))
	}

	return isValid
}
