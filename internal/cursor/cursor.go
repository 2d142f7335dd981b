// Package cursor encodes and decodes the opaque pagination tokens used by
// descending-time listings.
//
// A token is the unpadded base64url encoding of "<unix-nanos>" or
// "<unix-nanos>:<id>". The id breaks ties between rows that share a
// timestamp. Tokens without an id still decode; callers then filter on the
// timestamp alone.
//
// Timestamps are carried as int64 nanoseconds, so only times between the
// years 1678 and 2262 round-trip. Times before the Unix epoch are valid.
package cursor

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidCursor is returned when a token does not decode to a position.
var ErrInvalidCursor = errors.New("invalid cursor")

const sep = ":"

// Position is the sort key of the last row on a page.
type Position struct {
	CreatedAt time.Time
	ID        string
}

// HasTieBreak reports whether the position carries a row id.
func (p Position) HasTieBreak() bool {
	return p.ID != ""
}

// Encode returns the opaque token for p.
func Encode(p Position) string {
	raw := strconv.FormatInt(p.CreatedAt.UnixNano(), 10)
	if p.ID != "" {
		raw += sep + p.ID
	}
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// EncodeTime returns a timestamp-only token.
func EncodeTime(t time.Time) string {
	return Encode(Position{CreatedAt: t})
}

// Decode parses a token produced by Encode. The returned time is in UTC.
func Decode(token string) (Position, error) {
	if token == "" {
		return Position{}, ErrInvalidCursor
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return Position{}, ErrInvalidCursor
	}

	ts, id, _ := strings.Cut(string(raw), sep)
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Position{}, ErrInvalidCursor
	}

	return Position{CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}

// Next returns the token for the page after rows, or nil when hasNext is false.
func Next(hasNext bool, last Position) *string {
	if !hasNext {
		return nil
	}
	token := Encode(last)
	return &token
}
