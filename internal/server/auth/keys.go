package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ParsePrivateKey reads a P-256 private key from PEM (PKCS#8 or SEC 1).
func ParsePrivateKey(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	if len(pemBytes) == 0 {
		return nil, errors.New("private key is empty")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if key.Curve != elliptic.P256() {
		return nil, errors.New("private key is not on curve P-256")
	}
	return key, nil
}

// ParsePublicKey reads a P-256 public key from PEM (PKIX or certificate).
func ParsePublicKey(pemBytes []byte) (*ecdsa.PublicKey, error) {
	if len(pemBytes) == 0 {
		return nil, errors.New("public key is empty")
	}
	key, err := jwt.ParseECPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	if key.Curve != elliptic.P256() {
		return nil, errors.New("public key is not on curve P-256")
	}
	return key, nil
}
