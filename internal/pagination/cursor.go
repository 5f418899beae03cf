// Package pagination provides opaque keyset cursors for newest-first lists.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	prefix = "id:"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Encode returns an opaque cursor pointing just past id.
func Encode(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(prefix + strconv.FormatInt(id, 10)))
}

// Decode parses a cursor produced by Encode. An empty cursor yields 0,
// meaning "start from the newest".
func Decode(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, ErrInvalidCursor
	}

	rest, ok := strings.CutPrefix(string(raw), prefix)
	if !ok {
		return 0, ErrInvalidCursor
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidCursor
	}

	return id, nil
}

// ClampLimit maps a requested page size into [1, MaxLimit], using
// DefaultLimit for non-positive input.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// ComputePage takes items fetched with limit+1, trims them to limit and
// returns the cursor for the next page ("" when there is none).
func ComputePage[T any](items []T, limit int, key func(T) int64) ([]T, string) {
	if len(items) <= limit {
		return items, ""
	}

	items = items[:limit]

	return items, Encode(key(items[len(items)-1]))
}
