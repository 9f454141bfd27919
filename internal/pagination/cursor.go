// Package pagination pages newest-first listings with opaque keyset cursors
// over (created_at, id).
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the key of the last row of a page. The next page starts
// strictly after it.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

type cursorWire struct {
	ID string `json:"i"`
	At int64  `json:"t"`
}

// Encode returns the opaque form handed to clients
func (c Cursor) Encode() string {
	if c.LastID == "" {
		return ""
	}
	raw, _ := json.Marshal(cursorWire{ID: c.LastID, At: c.Timestamp.UnixMicro()})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor. "" decodes to nil, the first page.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var w cursorWire
	if err := json.Unmarshal(raw, &w); err != nil || w.ID == "" || w.At <= 0 {
		return nil, ErrInvalidCursor
	}
	return &Cursor{LastID: w.ID, Timestamp: time.UnixMicro(w.At).UTC()}, nil
}

// Page is one slice of a listing
type Page[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

// ClampLimit maps non-positive limits to DefaultLimit and caps at MaxLimit
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// NewPage trims rows fetched with LIMIT limit+1 down to limit. The extra
// row only tells us a next page exists.
func NewPage[T any](rows []T, limit int, key func(T) Cursor) *Page[T] {
	page := &Page[T]{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		page.HasMore = true
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	if page.HasMore && len(page.Items) > 0 {
		page.Cursor = key(page.Items[len(page.Items)-1]).Encode()
	}
	return page
}
