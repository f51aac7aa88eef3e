package uniuri

import (
	"crypto/rand"
	"fmt"
)

const (
	// PasswordLen gives roughly 95 bits of entropy with StdChars.
	PasswordLen = 16
	// SessionIDLen gives roughly 380 bits of entropy with StdChars.
	SessionIDLen = 64
)

// StdChars is the alphabet used by New and NewLen.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// New returns a random password sized string.
func New() (string, error) {
	return NewLenChars(PasswordLen, StdChars)
}

// NewLen returns a random string of length characters from StdChars.
func NewLen(length int) (string, error) {
	return NewLenChars(length, StdChars)
}

// NewLenChars returns a random string of length characters from chars.
// Bytes at or above the largest multiple of len(chars) are rejected so
// every character is equally likely.
func NewLenChars(length int, chars []byte) (string, error) {
	if len(chars) < 2 || len(chars) > 256 {
		return "", fmt.Errorf("uniuri: charset length %d out of range", len(chars))
	}

	limit := 256 - 256%len(chars)
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("uniuri: read random bytes: %w", err)
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, chars[int(b)%len(chars)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
