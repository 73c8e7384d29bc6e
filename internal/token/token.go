// Package token encodes and decodes the check-in token embedded in QR codes.
//
// A token has the form
//
//	JTM-EVENT:<eventID>:<userID>:<issuedAtEpochSeconds>
//
// It is a lookup key, not a credential: holders of a token gain nothing the
// attendance store does not independently confirm.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tag is the fixed first field of every check-in token.
const Tag = "JTM-EVENT"

const (
	sep       = ":"
	numParts  = 4
	maxIDSize = 64
)

var (
	// ErrMalformedToken is returned when the token does not have exactly four
	// fields or does not start with Tag.
	ErrMalformedToken = errors.New("malformed check-in token")

	// ErrTypeMismatch is returned when a field has the right position but the
	// wrong shape (bad identifier, non-numeric timestamp).
	ErrTypeMismatch = errors.New("check-in token field has wrong type")

	// ErrExpiredToken is returned by Codec.Check for stale or future-dated tokens.
	ErrExpiredToken = errors.New("check-in token expired")
)

// Ref is the decoded content of a token.
type Ref struct {
	EventID  string
	UserID   string
	IssuedAt time.Time
}

// Encode builds the token for an event/registrant pair.
func Encode(eventID, userID string, issuedAt time.Time) string {
	return strings.Join([]string{Tag, eventID, userID, strconv.FormatInt(issuedAt.Unix(), 10)}, sep)
}

// Decode parses a token. Surrounding whitespace is ignored since scanners
// usually terminate the payload with a newline.
func Decode(s string) (Ref, error) {
	parts := strings.Split(strings.TrimSpace(s), sep)
	if len(parts) != numParts || parts[0] != Tag {
		return Ref{}, ErrMalformedToken
	}
	if !ValidID(parts[1]) {
		return Ref{}, fmt.Errorf("%w: event id %q", ErrTypeMismatch, parts[1])
	}
	if !ValidID(parts[2]) {
		return Ref{}, fmt.Errorf("%w: user id %q", ErrTypeMismatch, parts[2])
	}
	epoch, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: issued-at %q", ErrTypeMismatch, parts[3])
	}
	return Ref{EventID: parts[1], UserID: parts[2], IssuedAt: time.Unix(epoch, 0).UTC()}, nil
}

// ValidID reports whether s is a syntactically valid identifier:
// 1 to 64 characters from [A-Za-z0-9_-]. UUIDs qualify.
func ValidID(s string) bool {
	if s == "" || len(s) > maxIDSize {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// Codec issues tokens and enforces their age window. With the service's
// default TOKEN_MAX_AGE of 720h, tokens issued more than 30 days ago are
// refused; set TOKEN_MAX_AGE=0 to accept them regardless of age.
type Codec struct {
	// MaxAge is how long a token stays valid after issuance. Zero disables the check.
	MaxAge time.Duration
	// Skew is how far in the future an issuance timestamp may lie.
	Skew time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Issue encodes a token stamped with the current time.
func (c Codec) Issue(eventID, userID string) (string, error) {
	if !ValidID(eventID) || !ValidID(userID) {
		return "", ErrTypeMismatch
	}
	return Encode(eventID, userID, c.now()), nil
}

// Check rejects tokens outside the validity window.
func (c Codec) Check(ref Ref) error {
	now := c.now()
	if ref.IssuedAt.After(now.Add(c.Skew)) {
		return fmt.Errorf("%w: issued in the future (%s)", ErrExpiredToken, ref.IssuedAt.Format(time.RFC3339))
	}
	if c.MaxAge > 0 && now.Sub(ref.IssuedAt) > c.MaxAge {
		return fmt.Errorf("%w: issued %s", ErrExpiredToken, ref.IssuedAt.Format(time.RFC3339))
	}
	return nil
}

// Parse decodes s and checks its age in one step.
func (c Codec) Parse(s string) (Ref, error) {
	ref, err := Decode(s)
	if err != nil {
		return Ref{}, err
	}
	if err := c.Check(ref); err != nil {
		return Ref{}, err
	}
	return ref, nil
}
