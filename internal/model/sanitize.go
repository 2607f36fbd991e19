package model

import "strings"

// Sanitize converts an arbitrary string, typically a page title, into a
// value usable as a storage key or file name segment.
//
// Every character outside [a-zA-Z0-9] becomes '_', the result is
// lowercased, runs of '_' collapse into one and leading/trailing '_' are
// removed. The function is total: empty or all-symbol input yields "".
func Sanitize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	pendingSep := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		default:
			pendingSep = true
			continue
		}
		// Separators are only written between two kept characters, which
		// collapses runs and trims both ends in one pass.
		if pendingSep && sb.Len() > 0 {
			sb.WriteByte('_')
		}
		pendingSep = false
		sb.WriteRune(r)
	}

	return sb.String()
}
