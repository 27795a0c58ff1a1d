// Package webhook authenticates CMS change notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	TimestampHeader = "X-Webhook-Timestamp"
	SignatureHeader = "X-Webhook-Signature"

	DefaultTolerance = 5 * time.Minute

	// Timestamps above this are taken to be in milliseconds.
	millisecondThreshold = 1_000_000_000_000
)

var ErrUnauthorized = errors.New("unauthorized")

// Verifier checks HMAC-SHA256 signatures over "{timestamp}:{body}".
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier returns a verifier for secret. An empty secret disables
// verification.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

func (v *Verifier) Tolerance() time.Duration {
	return v.tolerance
}

// Verify authenticates body against the timestamp and signature header
// values. Every failure wraps ErrUnauthorized.
func (v *Verifier) Verify(timestamp, signature string, body []byte) error {
	if !v.Enabled() {
		return nil
	}
	if timestamp == "" || signature == "" {
		return fmt.Errorf("%w: missing signature headers", ErrUnauthorized)
	}

	sent, err := parseTimestamp(timestamp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	age := v.now().Sub(sent)
	if age > v.tolerance {
		return fmt.Errorf("%w: timestamp too old", ErrUnauthorized)
	}
	if age < -v.tolerance {
		return fmt.Errorf("%w: timestamp in the future", ErrUnauthorized)
	}

	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil {
		return fmt.Errorf("%w: malformed signature", ErrUnauthorized)
	}
	if !hmac.Equal(got, v.sign(timestamp, body)) {
		return fmt.Errorf("%w: signature mismatch", ErrUnauthorized)
	}
	return nil
}

// Sign returns the hex signature for timestamp and body.
func (v *Verifier) Sign(timestamp string, body []byte) string {
	return hex.EncodeToString(v.sign(timestamp, body))
}

func (v *Verifier) sign(timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte(":"))
	mac.Write(body)
	return mac.Sum(nil)
}

func parseTimestamp(s string) (time.Time, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	if n > millisecondThreshold {
		return time.UnixMilli(n), nil
	}
	return time.Unix(n, 0), nil
}
