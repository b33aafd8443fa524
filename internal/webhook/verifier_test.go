package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orderrelay/orderrelay/internal/logger"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	secret := "wc-shared-secret"
	body := []byte(`{"id":1001,"total":"25.00"}`)
	v := NewVerifier(secret, logger.NewNop())

	t.Run("valid_signature", func(t *testing.T) {
		assert.True(t, v.Verify(body, sign(secret, body)))
	})

	t.Run("empty_signature", func(t *testing.T) {
		assert.False(t, v.Verify(body, ""))
	})

	t.Run("wrong_secret", func(t *testing.T) {
		assert.False(t, v.Verify(body, sign("other-secret", body)))
	})

	t.Run("mutated_body", func(t *testing.T) {
		signature := sign(secret, body)

		mutated := make([]byte, len(body))
		copy(mutated, body)
		mutated[0] ^= 0x01

		assert.False(t, v.Verify(mutated, signature))
	})

	t.Run("reserialized_body_fails", func(t *testing.T) {
		// Same document, different bytes: whitespace changes break the hash
		assert.False(t, v.Verify([]byte(`{"id": 1001, "total": "25.00"}`), sign(secret, body)))
	})

	t.Run("garbage_signature", func(t *testing.T) {
		assert.False(t, v.Verify(body, "not-a-real-signature"))
	})
}
