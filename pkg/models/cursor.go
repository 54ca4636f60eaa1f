package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var errMalformedCursor = errors.New("malformed cursor")

// ReplyCursor is the keyset position after the last reply of a page.
// Replies are ordered by (createdAt, id) ascending.
type ReplyCursor struct {
	CreatedAt time.Time
	ID        int64
}

// After reports whether c sorts strictly after the cursor position
func (rc ReplyCursor) After(c *Comment) bool {
	if c.CreatedAt.Equal(rc.CreatedAt) {
		return c.ID > rc.ID
	}
	return c.CreatedAt.After(rc.CreatedAt)
}

// CursorAt returns the cursor positioned on c
func CursorAt(c *Comment) ReplyCursor {
	return ReplyCursor{CreatedAt: c.CreatedAt, ID: c.ID}
}

// Encode renders the cursor as an opaque URL-safe token
func (rc ReplyCursor) Encode() string {
	raw := fmt.Sprintf("%d:%d", rc.CreatedAt.UnixNano(), rc.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeReplyCursor parses a token produced by Encode
func DecodeReplyCursor(token string) (ReplyCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ReplyCursor{}, errMalformedCursor
	}

	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return ReplyCursor{}, errMalformedCursor
	}

	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return ReplyCursor{}, errMalformedCursor
	}
	i, err := strconv.ParseInt(id, 10, 64)
	if err != nil || i < 1 {
		return ReplyCursor{}, errMalformedCursor
	}

	return ReplyCursor{CreatedAt: time.Unix(0, n).UTC(), ID: i}, nil
}
