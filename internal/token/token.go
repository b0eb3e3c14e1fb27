// Package token inspects bearer credentials on the client side. It never
// verifies signatures: the server is the authority, the client only needs the
// expiry claim to decide whether a credential is still worth sending.
package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrMalformed     = errors.New("token: malformed credential")
	ErrMissingExpiry = errors.New("token: missing exp claim")
)

// IsExpired reports whether the credential can no longer be used. Any decode
// failure counts as expired.
func IsExpired(token string) bool {
	return IsExpiredAt(token, time.Now())
}

// IsExpiredAt is IsExpired against an explicit reference time.
func IsExpiredAt(token string, now time.Time) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return true
	}
	return !exp.After(now.Truncate(time.Millisecond))
}

// ExpiresAt decodes the exp claim of a three-part credential.
func ExpiresAt(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[1] == "" {
		return time.Time{}, ErrMalformed
	}

	payload, err := jwt.DecodeSegment(strings.TrimRight(parts[1], "="))
	if err != nil {
		return time.Time{}, ErrMalformed
	}

	claims := jwt.MapClaims{}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return time.Time{}, ErrMalformed
	}

	raw, ok := claims["exp"].(json.Number)
	if !ok {
		return time.Time{}, ErrMissingExpiry
	}
	seconds, err := raw.Float64()
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return time.Time{}, ErrMissingExpiry
	}
	return time.UnixMilli(int64(seconds * 1000)), nil
}
