// Package shortcode generates and validates the short identifiers that
// stand in for full URLs.
package shortcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength is the length of generated codes.
const DefaultLength = 6

// maxAttempts bounds the generate-and-check loop so a misbehaving store
// can't turn generation into an infinite loop.
const maxAttempts = 10

// ErrExhausted is returned when no unique code was found within the attempt
// bound. With 62^6 codes that effectively means the store is unhealthy.
var ErrExhausted = errors.New("couldn't generate a unique shortcode")

var formatRe = regexp.MustCompile(`^[A-Za-z0-9]{4,12}$`)

// CodeChecker is the slice of the store the generator needs.
type CodeChecker interface {
	Exists(ctx context.Context, code string) (bool, error)
}

// Random returns a code of the given length drawn uniformly from the
// 62-symbol alphabet. Uses crypto/rand with rejection sampling so no symbol
// is favored.
func Random(length int) (string, error) {
	// Largest multiple of 62 that fits in a byte; anything above is
	// rejected to avoid modulo bias.
	const limit = byte(248)

	var b strings.Builder
	b.Grow(length)
	buf := make([]byte, length)
	for b.Len() < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("couldn't read random bytes: %w", err)
		}
		for _, v := range buf {
			if v >= limit {
				continue
			}
			b.WriteByte(alphabet[int(v)%len(alphabet)])
			if b.Len() == length {
				break
			}
		}
	}
	return b.String(), nil
}

// Unique generates random codes until one is absent from the store,
// skipping reserved words, giving up after maxAttempts.
func Unique(ctx context.Context, checker CodeChecker, length int) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := Random(length)
		if err != nil {
			return "", err
		}
		if Reserved(code) {
			continue
		}
		exists, err := checker.Exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("error checking shortcode: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrExhausted
}

// ValidFormat reports whether a code is 4-12 alphanumeric characters.
func ValidFormat(code string) bool {
	return formatRe.MatchString(code)
}
