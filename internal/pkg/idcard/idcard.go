// Package idcard validates 18-character PRC resident identity numbers.
package idcard

import "strings"

// Length is the number of characters in a resident identity number.
const Length = 18

var weights = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}

var checkCodes = [11]byte{'1', '0', 'X', '9', '8', '7', '6', '5', '4', '3', '2'}

// Validate reports whether s is a well-formed identity number whose last
// character matches the checksum computed from the first 17 digits.
// A trailing lowercase x is accepted.
func Validate(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < Length-1; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	last := s[Length-1]
	if last == 'x' {
		last = 'X'
	}
	if (last < '0' || last > '9') && last != 'X' {
		return false
	}

	code, ok := CheckCode(s[:Length-1])
	return ok && code == last
}

// CheckCode computes the check character for the first 17 digits of an
// identity number. ok is false if body is not exactly 17 ASCII digits.
func CheckCode(body string) (code byte, ok bool) {
	if len(body) != Length-1 {
		return 0, false
	}
	sum := 0
	for i := 0; i < len(body); i++ {
		d := body[i]
		if d < '0' || d > '9' {
			return 0, false
		}
		sum += int(d-'0') * weights[i]
	}
	return checkCodes[sum%11], true
}

// Normalize trims surrounding whitespace and upper-cases a trailing x so that
// equal identities have one stored spelling.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// LastFour returns the final four characters of s, or s itself when shorter.
func LastFour(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
