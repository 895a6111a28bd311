package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// DefaultWindow is how far in the past a signed timestamp may lie.
const DefaultWindow = 30 * time.Minute

var (
	// ErrExpired is returned when the signed timestamp is outside the window
	ErrExpired = errors.New("signature timestamp expired")
	// ErrMismatch is returned when the supplied signature does not match
	ErrMismatch = errors.New("signature mismatch")
)

// Verifier authenticates scan requests with HMAC-SHA256 over
// "{sceneId}:{timestamp}:{nonce}". The secret is process-wide configuration
// and must never appear in logs or error messages.
type Verifier struct {
	secret []byte
	window time.Duration
	now    func() time.Time
}

// NewVerifier creates a Verifier with the given shared secret and window.
func NewVerifier(secret string, window time.Duration) *Verifier {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Verifier{secret: []byte(secret), window: window, now: time.Now}
}

// Sign computes the hex HMAC for the given tuple. Used by tests and by
// clients sharing the secret.
func (v *Verifier) Sign(sceneID string, timestamp int64, nonce string) string {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%s:%d:%s", sceneID, timestamp, nonce)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the timestamp window first, then the MAC, so an expired but
// correctly signed request reports ErrExpired rather than ErrMismatch.
// timestamp is a millisecond epoch.
func (v *Verifier) Verify(sceneID string, timestamp int64, nonce, sig string) error {
	if v.now().Sub(time.UnixMilli(timestamp)) > v.window {
		return ErrExpired
	}

	expected := v.Sign(sceneID, timestamp, nonce)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrMismatch
	}
	return nil
}
