package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// KeySet holds the RSA material used to sign and verify tokens.
// It is loaded once at startup and read only afterwards.
type KeySet struct {
	Signing    *rsa.PrivateKey
	SigningKID string
	// ServiceVerify verifies service tokens minted by peers
	ServiceVerify *rsa.PublicKey
	// UserVerify verifies user tokens
	UserVerify *rsa.PublicKey
}

// KeyPaths locates PEM files on disk. Empty verification paths
// default to the public counterpart of the signing key.
type KeyPaths struct {
	PrivateKey       string
	PublicKey        string
	ServicePublicKey string
}

// LoadKeySet reads and parses all key material.
func LoadKeySet(paths KeyPaths) (*KeySet, error) {
	if paths.PrivateKey == "" {
		return nil, goerrors.New("private key path is required", goerrors.CategoryBadInput)
	}

	priv, err := ReadPrivateKey(paths.PrivateKey)
	if err != nil {
		return nil, err
	}

	userPub := &priv.PublicKey
	if paths.PublicKey != "" {
		if userPub, err = ReadPublicKey(paths.PublicKey); err != nil {
			return nil, err
		}
	}

	servicePub := userPub
	if paths.ServicePublicKey != "" {
		if servicePub, err = ReadPublicKey(paths.ServicePublicKey); err != nil {
			return nil, err
		}
	}

	return NewKeySet(priv, userPub, servicePub)
}

// NewKeySet builds a KeySet from parsed keys. Nil public keys
// default to the signing key's public half.
func NewKeySet(priv *rsa.PrivateKey, userPub, servicePub *rsa.PublicKey) (*KeySet, error) {
	if priv == nil {
		return nil, goerrors.New("signing key is required", goerrors.CategoryBadInput)
	}
	if userPub == nil {
		userPub = &priv.PublicKey
	}
	if servicePub == nil {
		servicePub = userPub
	}

	kid, err := KeyID(&priv.PublicKey)
	if err != nil {
		return nil, err
	}

	return &KeySet{
		Signing:       priv,
		SigningKID:    kid,
		ServiceVerify: servicePub,
		UserVerify:    userPub,
	}, nil
}

// ReadPrivateKey parses a PEM encoded RSA private key (PKCS#1 or PKCS#8)
func ReadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("unable to read private key %s", path))
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("unable to parse private key %s", path))
	}
	return key, nil
}

// ReadPublicKey parses a PEM encoded RSA public key
func ReadPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("unable to read public key %s", path))
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM(raw)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("unable to parse public key %s", path))
	}
	return key, nil
}

// KeyID derives a stable key id from the public key
func KeyID(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "unable to encode public key")
	}
	sum := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(sum[:])[:16], nil
}

// DefaultKeyBits is the modulus size used by GenerateKey
const DefaultKeyBits = 2048

// GenerateKey creates a new RSA signing key
func GenerateKey(bits int) (*rsa.PrivateKey, error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to generate RSA key")
	}
	return key, nil
}

// EncodePrivateKeyPEM encodes key as a PKCS#1 PEM block
func EncodePrivateKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// EncodePublicKeyPEM encodes pub as a PKIX PEM block
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to encode public key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
