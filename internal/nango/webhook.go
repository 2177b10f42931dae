package nango

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// VerifySignature checks the X-Nango-Signature header against the raw
// webhook body. Nango signs deliveries with the hex SHA-256 of the secret
// concatenated with the body.
func VerifySignature(secret string, body []byte, signature string) bool {
	sum := sha256.Sum256(append([]byte(secret), body...))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// ParseAuthWebhook decodes an auth webhook payload.
func ParseAuthWebhook(body []byte) (*AuthWebhook, error) {
	var hook AuthWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	if hook.Type != "auth" {
		return nil, fmt.Errorf("unsupported webhook type %q", hook.Type)
	}

	return &hook, nil
}

// DeliveryKey derives a deduplication key for a webhook delivery. Two
// deliveries of the same auth event produce the same key.
func (w *AuthWebhook) DeliveryKey() string {
	sum := sha256.Sum256([]byte(w.Type + "|" + w.Operation + "|" + w.ConnectionID + "|" + w.ProviderConfigKey))
	return hex.EncodeToString(sum[:8])
}
