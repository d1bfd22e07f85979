// Package webhooksig signs the callback URLs we register with the telephony
// provider and verifies the signature when those callbacks come back in.
package webhooksig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// RotationReplayWindow is a reasonable window for deployments that re-sign
// and re-register their callback URL on a schedule. The provider normally
// stores one signed URL at registration and replays its ts/sig on every
// event, so no window is applied unless one is configured.
const RotationReplayWindow = 5 * time.Minute

// Signer computes HMAC-SHA256 signatures over "<timestamp>:<url>" with a
// shared secret.
type Signer struct {
	secret       []byte
	replayWindow time.Duration
	now          func() time.Time
}

// New creates a Signer with the given secret and replay window.
func New(secret string, replayWindow time.Duration) *Signer {
	return &Signer{
		secret:       []byte(secret),
		replayWindow: replayWindow,
		now:          time.Now,
	}
}

// Sign appends ts and sig query parameters to url. The timestamp is
// milliseconds since the epoch.
func (s *Signer) Sign(url string) string {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)
	return fmt.Sprintf("%s?ts=%s&sig=%s", url, ts, s.compute(ts, url))
}

// Verify recomputes the signature for url and timestamp and compares it in
// constant time against the supplied signature. Timestamps older than the
// replay window (when one is configured) fail verification even if the
// signature itself is valid.
func (s *Signer) Verify(url, timestamp, signature string) bool {
	if s.replayWindow > 0 {
		ms, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return false
		}
		age := s.now().Sub(time.UnixMilli(ms))
		if age >= s.replayWindow || age < -time.Minute {
			return false
		}
	}

	expected := s.compute(timestamp, url)
	return hmac.Equal([]byte(signature), []byte(expected))
}

func (s *Signer) compute(timestamp, url string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(timestamp + ":" + url))
	return hex.EncodeToString(mac.Sum(nil))
}
