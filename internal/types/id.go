// README: Identifier and coordinate value objects shared by all modules.
package types

import "strings"

type ID string

// placeholderIDs are values UI layers leak into ride routes before a real id exists.
var placeholderIDs = map[string]struct{}{
	"undefined": {},
	"null":      {},
	"new":       {},
	"nan":       {},
	"0":         {},
}

// Valid reports whether id can name a real ride: non-empty, not a placeholder,
// at most 64 chars of letters, digits, '-' or '_'.
func (id ID) Valid() bool {
	v := string(id)
	if v == "" || len(v) > 64 {
		return false
	}
	if _, ok := placeholderIDs[strings.ToLower(v)]; ok {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports an unset coordinate pair.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}
