// Package auth issues and validates the short-lived tokens clients present when opening the
// signaling websocket
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
)

// TokenValidity is how long an issued token stays valid
const TokenValidity = 10 * time.Minute

// Validation errors, their messages are used as websocket close reasons
var (
	ErrMissingToken     = errors.New("Unauthorized: No token provided")
	ErrInvalidSignature = errors.New("Unauthorized: Invalid signature")
	ErrTokenExpired     = errors.New("Unauthorized: Token expired")
	ErrMalformedToken   = errors.New("Unauthorized: Invalid token format")
)

// claims is the signed payload. Field order matters: the payload is signed exactly as serialized.
type claims struct {
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

// Signer issues and validates tokens with a shared secret
type Signer struct {
	secret []byte
	clock  clock.Clock
}

// Issue creates a token valid from now for TokenValidity
func (s *Signer) Issue() (string, error) {
	iat := s.clock.Now().Unix()
	payload, marshalErr := json.Marshal(claims{
		IssuedAt:  iat,
		ExpiresAt: iat + int64(TokenValidity/time.Second),
	})
	if marshalErr != nil {
		return "", fmt.Errorf("failed to encode token payload: %w", marshalErr)
	}
	return string(payload) + "." + s.sign(string(payload)), nil
}

// Validate checks the signature of the token and that the current time lies between its issue
// and expiry timestamps, both inclusive
func (s *Signer) Validate(token string) error {
	if token == "" {
		return ErrMissingToken
	}
	separator := strings.LastIndex(token, ".")
	if separator < 0 {
		return ErrMalformedToken
	}
	payload, signature := token[:separator], token[separator+1:]
	if !hmac.Equal([]byte(signature), []byte(s.sign(payload))) {
		return ErrInvalidSignature
	}
	var c claims
	if unmarshalErr := json.Unmarshal([]byte(payload), &c); unmarshalErr != nil {
		return ErrMalformedToken
	}
	now := s.clock.Now().Unix()
	if now < c.IssuedAt || now > c.ExpiresAt {
		return ErrTokenExpired
	}
	return nil
}

func (s *Signer) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewSigner creates a Signer using the wall clock
func NewSigner(secret string) *Signer {
	return NewSignerWithClock(secret, clock.New())
}

// NewSignerWithClock creates a Signer reading time from given clock
func NewSignerWithClock(secret string, c clock.Clock) *Signer {
	return &Signer{
		secret: []byte(secret),
		clock:  c,
	}
}
