// Package auth mints and decodes session tokens.
//
// A token is an ES256-signed JWT whose compact form is additionally wrapped
// in unpadded base64url so it can travel in a cookie or header as-is.
package auth

import (
	"crypto/ecdsa"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by a session token. Subject is the principal's public id,
// Audience its username.
type Claims struct {
	Email      string      `json:"email"`
	Role       models.Role `json:"role"`
	IsVerified bool        `json:"isverified"`
	jwt.RegisteredClaims
}

// UserClaims builds the claims describing u.
func UserClaims(u *models.User) Claims {
	return Claims{
		Email:      u.Email,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  u.Subject(),
			Audience: jwt.ClaimStrings{u.UserName},
		},
	}
}

// Codec is immutable after construction and safe for concurrent use.
// A codec built without a private key can only decode.
type Codec struct {
	private *ecdsa.PrivateKey
	public  *ecdsa.PublicKey
	issuer  string
	now     func() time.Time
}

type CodecOption func(*Codec)

// WithClock replaces time.Now for both minting and validation.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

func NewCodec(private *ecdsa.PrivateKey, public *ecdsa.PublicKey, issuer string, opts ...CodecOption) (*Codec, error) {
	if public == nil {
		return nil, errors.New("public key is required")
	}
	if issuer == "" {
		return nil, errors.New("issuer is required")
	}

	c := &Codec{private: private, public: public, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewCodecFromPEM parses the key pair and builds a Codec. An empty
// privatePEM yields a decode-only codec.
func NewCodecFromPEM(privatePEM, publicPEM []byte, issuer string, opts ...CodecOption) (*Codec, error) {
	var private *ecdsa.PrivateKey
	if len(privatePEM) > 0 {
		k, err := ParsePrivateKey(privatePEM)
		if err != nil {
			return nil, err
		}
		private = k
	}

	public, err := ParsePublicKey(publicPEM)
	if err != nil {
		return nil, err
	}

	return NewCodec(private, public, issuer, opts...)
}

// Mint signs claims with iat=now, exp=now+ttl and the configured issuer.
// A random jti is generated when claims has none.
func (c *Codec) Mint(claims Claims, ttl time.Duration) (string, error) {
	if c.private == nil {
		return "", &SigningError{Reason: "signing key not configured"}
	}
	if ttl <= 0 {
		return "", &SigningError{Reason: "ttl must be positive"}
	}
	if claims.Email == "" {
		return "", &SigningError{Reason: "email claim is empty"}
	}
	if claims.Subject == "" {
		return "", &SigningError{Reason: "subject claim is empty"}
	}
	if !claims.Role.Valid() {
		return "", &SigningError{Reason: "role claim is invalid"}
	}

	now := c.now()
	claims.Issuer = c.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(c.private)
	if err != nil {
		return "", &SigningError{Reason: "sign", Err: err}
	}

	return base64.RawURLEncoding.EncodeToString([]byte(signed)), nil
}

// Decode verifies token and returns its claims. Every failure is a
// *TokenError.
func (c *Codec) Decode(token string) (*Claims, error) {
	raw, err := unwrap(token)
	if err != nil {
		return nil, &TokenError{Kind: TokenMalformed, Err: err}
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(raw, &Claims{})
	if unverified == nil || unverified.Header == nil {
		return nil, &TokenError{Kind: TokenMalformed, Err: err}
	}
	alg, _ := unverified.Header["alg"].(string)
	if alg == "" {
		return nil, &TokenError{Kind: TokenMalformed, Err: errors.New("missing alg header")}
	}
	if alg != jwt.SigningMethodES256.Alg() {
		return nil, &TokenError{Kind: TokenAlgorithmRejected, Err: errors.New("alg " + alg + " is not allowed")}
	}
	if err != nil {
		return nil, &TokenError{Kind: TokenMalformed, Err: err}
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(raw, claims, c.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, &TokenError{Kind: classify(err), Err: err}
	}

	if claims.Email == "" || claims.Subject == "" || !claims.Role.Valid() {
		return nil, &TokenError{Kind: TokenMalformed, Err: errors.New("required claims missing")}
	}

	return claims, nil
}

func (c *Codec) key(*jwt.Token) (any, error) {
	return c.public, nil
}

func classify(err error) TokenErrorKind {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return TokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return TokenSignatureMismatch
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return TokenMalformed
	default:
		return TokenUnknown
	}
}

// unwrap reverses the transport encoding. Standard and URL alphabets are
// both accepted, with or without padding.
func unwrap(token string) (string, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return "", errors.New("empty token")
	}
	s = strings.TrimRight(s, "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
