// Package cryptox hashes and verifies user passwords.
//
// Secrets are first keyed with a server-side pepper (HMAC-SHA256) and the
// digest is then stretched with argon2id. The stored form is the usual
// self-describing string:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
//
// so parameters can be raised later without invalidating old hashes.
package cryptox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/blogkeeper/internal/shared"
	"golang.org/x/crypto/argon2"
)

var (
	ErrEmptyPepper   = errors.New("password pepper is empty")
	ErrMalformedHash = errors.New("malformed password hash")
)

// Params are the argon2id cost parameters.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  int
	KeyLength   uint32
}

// DefaultParams is used for new hashes.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// maxMemory bounds the memory parameter accepted from a stored hash.
const maxMemory = 1024 * 1024

type PasswordHasher struct {
	pepper []byte
	params Params
}

type Option func(*PasswordHasher)

func WithParams(p Params) Option {
	return func(h *PasswordHasher) { h.params = p }
}

func NewPasswordHasher(pepper string, opts ...Option) (*PasswordHasher, error) {
	if pepper == "" {
		return nil, ErrEmptyPepper
	}
	h := &PasswordHasher{pepper: []byte(pepper), params: DefaultParams}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Hash returns the encoded argon2id hash of secret.
func (h *PasswordHasher) Hash(secret string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	keyed := h.keyed(secret)
	defer shared.WipeByteArray(keyed)

	sum := argon2.IDKey(keyed, salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify reports whether secret matches encoded. A mismatch is (false, nil);
// an error is returned only when encoded cannot be parsed.
func (h *PasswordHasher) Verify(encoded, secret string) (bool, error) {
	p, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	keyed := h.keyed(secret)
	defer shared.WipeByteArray(keyed)

	got := argon2.IDKey(keyed, salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(want)))

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func (h *PasswordHasher) keyed(secret string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(secret))
	return mac.Sum(nil)
}

func decodeHash(encoded string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported version", ErrMalformedHash)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if p.Memory == 0 || p.Memory > maxMemory || p.Iterations == 0 || p.Parallelism == 0 {
		return p, nil, nil, fmt.Errorf("%w: parameters out of range", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return p, nil, nil, fmt.Errorf("%w: hash", ErrMalformedHash)
	}

	return p, salt, sum, nil
}
