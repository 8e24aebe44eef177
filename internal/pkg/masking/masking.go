// Package masking hides parts of personal data before it is shown publicly.
package masking

import "strings"

// Name keeps the first and last character of a name and replaces the rest
// with '*'. Two-character names become first + "*"; single characters are
// returned unchanged.
func Name(name string) string {
	r := []rune(name)
	switch len(r) {
	case 0, 1:
		return name
	case 2:
		return string(r[0]) + "*"
	default:
		return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1])
	}
}

// IdentityNumber replaces every character except the last four with '*'.
func IdentityNumber(id string) string {
	r := []rune(id)
	if len(r) <= 4 {
		return id
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}
