package scopus

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Identifier prefixes that Scopus attaches to the same underlying document ID.
// "SCOPUS_ID:" appears in dc:identifier fields; "2-s2.0-" is the EID form.
var identifierPrefixes = []string{
	"SCOPUS_ID:",
	"2-s2.0-",
}

// Normalize canonicalizes a Scopus identifier by stripping any recognized
// prefixes and surrounding whitespace. Prefixes are matched
// case-insensitively and stripped repeatedly, so "SCOPUS_ID:2-s2.0-123"
// normalizes to "123". Normalize never fails: input that is empty after
// stripping yields "", which callers treat as "no identifier".
//
// Examples:
//   - SCOPUS_ID:85012345678
//   - 2-s2.0-85012345678
//   - "  85012345678 "
func Normalize(raw string) string {
	id := strings.TrimSpace(raw)
	for {
		stripped := false
		for _, prefix := range identifierPrefixes {
			if len(id) >= len(prefix) && strings.EqualFold(id[:len(prefix)], prefix) {
				id = strings.TrimSpace(id[len(prefix):])
				stripped = true
			}
		}
		if !stripped {
			return id
		}
	}
}

// NormalizeAny normalizes an identifier decoded from JSON. Seed files
// converted from spreadsheets carry IDs as strings or as numbers; any other
// value (null, object, bool) yields "".
func NormalizeAny(v any) string {
	switch id := v.(type) {
	case string:
		return Normalize(id)
	case json.Number:
		return Normalize(id.String())
	case float64:
		return Normalize(strconv.FormatFloat(id, 'f', -1, 64))
	case int:
		return Normalize(strconv.Itoa(id))
	case int64:
		return Normalize(strconv.FormatInt(id, 10))
	default:
		return ""
	}
}

// EID returns the electronic identifier form ("2-s2.0-<id>") of a normalized ID.
func EID(id string) string {
	id = Normalize(id)
	if id == "" {
		return ""
	}
	return "2-s2.0-" + id
}

// coverYear returns the year portion of a prism:coverDate value: its first
// four bytes. Shorter values are returned unchanged and absent values are
// empty; no attempt is made to validate the date.
func coverYear(coverDate string) string {
	if len(coverDate) <= 4 {
		return coverDate
	}
	return coverDate[:4]
}
