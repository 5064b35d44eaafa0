// Package keys derives quote ids and the redis keys they are stored under.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const quotePrefix = "quote:"

// QuoteID returns a stable id for an estimate request. Inputs are rounded to
// the 6 decimals the lookup API works with, so repeated requests for the same
// pickup, delivery and weight map to one quote.
func QuoteID(pickupLat, pickupLng, deliveryLat, deliveryLng, weight float64) string {
	canon := fmt.Sprintf("%.6f,%.6f|%.6f,%.6f|%.3f", pickupLat, pickupLng, deliveryLat, deliveryLng, weight)
	return fmt.Sprintf("%016x", xxhash.Sum64String(canon))
}

// QuoteKey returns the redis key for a quote id. Ids come from request paths,
// so anything outside [A-Za-z0-9_-] is replaced.
func QuoteKey(id string) string {
	return quotePrefix + sanitizeForKey(strings.TrimSpace(id))
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
		case isAlphaNum(r) || r == '_' || r == '-':
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
		(r < unicode.MaxASCII && unicode.IsDigit(r))
}
