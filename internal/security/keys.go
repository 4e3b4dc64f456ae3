package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
)

const minRSABits = 2048

// SigningKey is the RSA key RS256 tokens are signed with. Its public half is
// published at /.well-known/jwks.json under ID.
type SigningKey struct {
	ID   string
	priv *rsa.PrivateKey
}

// LoadSigningKey reads a PKCS#1 or PKCS#8 PEM file.
func LoadSigningKey(id, path string) (*SigningKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	return ParseSigningKey(id, b)
}

func ParseSigningKey(id string, pemBytes []byte) (*SigningKey, error) {
	if id == "" {
		return nil, errors.New("signing key id is empty")
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block in signing key")
	}
	var (
		parsed any
		err    error
	)
	switch block.Type {
	case "RSA PRIVATE KEY":
		parsed, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing key is %T, want RSA", parsed)
	}
	if priv.N.BitLen() < minRSABits {
		return nil, fmt.Errorf("signing key has %d bits, want at least %d", priv.N.BitLen(), minRSABits)
	}
	return &SigningKey{ID: id, priv: priv}, nil
}

func (k *SigningKey) Public() *rsa.PublicKey { return &k.priv.PublicKey }

// JWK is the RFC 7517 subset needed for RSA signature keys.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWKS returns the one-entry key set clients verify tokens against.
func (k *SigningKey) JWKS() JWKS {
	pub := k.Public()
	return JWKS{Keys: []JWK{{
		Kty: "RSA",
		Kid: k.ID,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}
}
