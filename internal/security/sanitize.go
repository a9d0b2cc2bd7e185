// Package security holds input hygiene helpers for values that cross a
// trust boundary, such as recording names read from container headers.
package security

import "strings"

// maxFilenameLen bounds sanitized names so artifact paths stay well under
// filesystem limits even with the kind prefix and frame suffix attached.
const maxFilenameLen = 128

// SanitizeFilename makes a safe filename component from an arbitrary
// string. Characters outside ASCII letters, digits, dot, underscore and
// dash are replaced with an underscore, runs of replacements collapse to
// one, and the result is length-limited. Recording names pass through
// here before they are embedded in artifact filenames and manifest rows.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
