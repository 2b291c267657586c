// Package keys builds cache keys that identify a loaded source.
package keys

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Source returns a stable key for a source of the given kind. The readable
// part keeps the last path segment; the hash covers the full identity.
func Source(kind, source string) string {
	id := normalizeSource(source)
	label := sanitizeForKey(filepath.Base(id))

	const maxLabelLen = 64
	if len(label) > maxLabelLen {
		label = label[:maxLabelLen]
	}

	sum := xxhash.Sum64String(kind + "\x00" + id)
	return fmt.Sprintf("src:%s:%s:h=%016x", sanitizeForKey(strings.TrimSpace(kind)), label, sum)
}

// normalizeSource trims the source and cleans local paths so that
// "./data/x.csv" and "data/x.csv" share a key. URLs are left as given.
func normalizeSource(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "://") {
		return s
	}
	return filepath.Clean(s)
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '.' || r == '_' || r == '-':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
