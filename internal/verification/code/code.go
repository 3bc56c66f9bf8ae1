// Package code generates and hashes one-time verification codes. Codes are
// never stored in clear; the tracker keeps only the bcrypt hash as its
// opaque attempt payload.
package code

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// Length is the number of digits in a verification code.
const Length = 6

// Generate returns a random numeric code, zero-padded to Length digits.
func Generate() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < Length; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", Length, n), nil
}

// Hash returns the bcrypt hash of a code.
func Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
}

// Matches reports whether plaintext hashes to hash.
func Matches(hash []byte, plaintext string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}
