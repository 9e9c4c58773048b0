// Package hashcode generates the short random tokens that reference drops
// and trades in public snippets without exposing their numeric ids.
package hashcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	// Length is the size of newly generated hashcodes.
	Length = 6
	// LegacyLength is the size of hashcodes produced by older releases.
	// They remain valid but are never generated.
	LegacyLength = 40
	// MaxAttempts caps the number of candidates tried by Allocate.
	MaxAttempts = 100
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrExhausted is returned when no unique hashcode was found within
// MaxAttempts. It signals a broken random source or a saturated scope.
var ErrExhausted = errors.New("hashcode: no unique value found")

// ExistsFunc reports whether code is already taken in the caller's scope.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generate returns a random hashcode. It is not guaranteed to be unique.
func Generate() (string, error) {
	result := make([]byte, Length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating hashcode: %w", err)
		}
		result[i] = alphabet[n.Int64()]
	}
	return string(result), nil
}

// Valid reports whether s is a well-formed hashcode in the current or the
// legacy format.
func Valid(s string) bool {
	if len(s) != Length && len(s) != LegacyLength {
		return false
	}
	return Alphanumeric(s)
}

// Alphanumeric reports whether s is non-empty and consists of ASCII letters
// and digits only.
func Alphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// Allocate generates hashcodes until exists reports one as free.
func Allocate(ctx context.Context, exists ExistsFunc) (string, error) {
	return allocate(ctx, exists, Generate, MaxAttempts)
}

func allocate(ctx context.Context, exists ExistsFunc, gen func() (string, error), attempts int) (string, error) {
	for range attempts {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := gen()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking hashcode: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}
