package store

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/kassa/internal/model"
)

// NameKey returns the search key stored beside a product name.
//
// The key is NFC normalized and Unicode case folded so that prefix search is
// case-insensitive beyond ASCII (SQLite's LIKE only folds ASCII).
func NameKey(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

// prefixUpperBound returns the smallest string greater than every string
// starting with prefix under BINARY collation.
// U+10FFFF encodes as F4 8F BF BF, the largest valid UTF-8 sequence.
func prefixUpperBound(prefix string) string {
	return prefix + "\U0010FFFF"
}

// marshalTime converts a timestamp to its TEXT storage form.
func marshalTime(t time.Time) string {
	return model.FormatTime(t)
}

// unmarshalTime parses a stored TEXT timestamp.
func unmarshalTime(s string) (time.Time, error) {
	t, err := model.ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal time: %w", err)
	}
	return t, nil
}

// marshalBool converts a flag to its INTEGER storage form.
func marshalBool(b bool) int {
	if b {
		return 1
	}
	return 0
}
