package lobby

import (
	"math/rand/v2"
	"strings"
)

const (
	DefaultIDFormat = "AA9A-AA9A"

	alphaChars        = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numericChars      = "0123456789"
	alphaNumericChars = numericChars + alphaChars
)

// IDGenerator produces candidate game ids.
type IDGenerator func() string

// FormatGenerator returns a generator for format, where 'A' is a letter, '9' a digit,
// 'X' either, and any other character is copied as is.
func FormatGenerator(format string) IDGenerator {
	return func() string {
		var b strings.Builder
		b.Grow(len(format))
		for _, ch := range format {
			switch ch {
			case 'A':
				b.WriteByte(alphaChars[rand.IntN(len(alphaChars))])
			case '9':
				b.WriteByte(numericChars[rand.IntN(len(numericChars))])
			case 'X':
				b.WriteByte(alphaNumericChars[rand.IntN(len(alphaNumericChars))])
			default:
				b.WriteRune(ch)
			}
		}
		return b.String()
	}
}
