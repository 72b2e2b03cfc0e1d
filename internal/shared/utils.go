// Package shared provides random code generation and secure memory wiping.
package shared

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// CodeAlphabet is the character set of one-time codes: digits and
// uppercase latin letters.
const CodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// randInt is replaced in tests.
var randInt = rand.Int

// RandomCode returns n characters drawn uniformly from CodeAlphabet using
// crypto/rand.
func RandomCode(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("code length must be positive")
	}

	max := big.NewInt(int64(len(CodeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := randInt(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = CodeAlphabet[idx.Int64()]
	}

	return string(b), nil
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
