package guard

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	RoomCodeLen    = 6
	MinUsernameLen = 2
	MaxUsernameLen = 20
)

var upper = cases.Upper(language.Und)

// ValidateUsername trims and NFC-normalizes a display name and checks its
// length in characters, not bytes.
func ValidateUsername(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	n := utf8.RuneCountInString(name)
	if n < MinUsernameLen || n > MaxUsernameLen {
		return "", reject(InvalidUsername)
	}
	return name, nil
}

// NormalizeRoomCode uppercases a room code and checks it is exactly six characters.
func NormalizeRoomCode(code string) (string, error) {
	code = upper.String(norm.NFC.String(strings.TrimSpace(code)))
	if utf8.RuneCountInString(code) != RoomCodeLen || strings.ContainsAny(code, " \t") {
		return "", reject(InvalidRoomCode)
	}
	return code, nil
}
