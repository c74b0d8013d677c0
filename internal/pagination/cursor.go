// Package pagination implements keyset paging over search history,
// ordered newest first by (created_at, id).
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor is the position of the last history entry a client has seen.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

// EncodeCursor returns an opaque token safe to pass unescaped in a query
// string. An empty id yields an empty cursor.
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + strconv.FormatInt(timestamp.UTC().UnixNano(), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token from EncodeCursor. The empty token means
// "first page" and decodes to nil.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	id, nanos, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, ErrInvalidCursor
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: time.Unix(0, n).UTC()}, nil
}

// TrimPage builds a page from rows fetched with LIMIT limit+1: the extra
// row only signals that another page exists and is dropped.
func TrimPage[T any](rows []T, limit int, key func(T) (string, time.Time)) *PageResult[T] {
	page := &PageResult[T]{Items: rows}
	if limit <= 0 || len(rows) <= limit {
		return page
	}

	page.Items = rows[:limit]
	page.HasMore = true
	page.Cursor = EncodeCursor(key(page.Items[limit-1]))
	return page
}

// MapPage converts the items of a page, keeping its cursor.
func MapPage[T, U any](page *PageResult[T], fn func(T) U) *PageResult[U] {
	items := make([]U, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, fn(item))
	}
	return &PageResult[U]{Items: items, Cursor: page.Cursor, HasMore: page.HasMore}
}

// NormalizeLimit clamps a requested page size to [1, MaxLimit], using
// DefaultLimit for non-positive values.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
