// Package cryptox holds the asymmetric key material helpers used for actor
// signing keys: generation, PEM encoding and fingerprints.
package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

const (
	// AlgorithmRSA is the only algorithm actors are provisioned with.
	AlgorithmRSA = "rsa"

	// MinKeyBits is the smallest modulus accepted for signing keys.
	MinKeyBits = 2048
)

var (
	ErrWeakKey      = errors.New("key size below minimum")
	ErrInvalidPEM   = errors.New("invalid PEM block")
	ErrNotRSAPublic = errors.New("public key is not RSA")
)

// KeyPair is a freshly generated signing key pair in PEM text form.
type KeyPair struct {
	Algorithm  string
	Bits       int
	PublicKey  string
	PrivateKey string
}

// GenerateKeyPair produces a new RSA key pair of the given size.
//
// The private key is encoded as PKCS#8 ("PRIVATE KEY") and the public key as
// PKIX ("PUBLIC KEY"), which is the form remote servers expect in
// publicKeyPem.
//
// Returns ErrWeakKey when bits is below MinKeyBits.
func GenerateKeyPair(bits int) (*KeyPair, error) {
	if bits < MinKeyBits {
		return nil, fmt.Errorf("%w: %d < %d", ErrWeakKey, bits, MinKeyBits)
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	return &KeyPair{
		Algorithm:  AlgorithmRSA,
		Bits:       bits,
		PublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
	}, nil
}

// ParsePublicKeyPEM decodes a PKIX or PKCS#1 RSA public key.
func ParsePublicKeyPEM(data string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, ErrInvalidPEM
	}

	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, ErrNotRSAPublic
		}
		return rsaKey, nil
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unexpected type %q", ErrInvalidPEM, block.Type)
	}
}

// ParsePrivateKeyPEM decodes a PKCS#8 or PKCS#1 RSA private key.
func ParsePrivateKeyPEM(data string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, ErrInvalidPEM
	}

	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: private key is not RSA", ErrInvalidPEM)
		}
		return rsaKey, nil
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unexpected type %q", ErrInvalidPEM, block.Type)
	}
}

// Fingerprint returns the SHA256 fingerprint ("SHA256:<base64>") of a PEM
// public key, in the same notation ssh-keygen prints.
func Fingerprint(publicKeyPEM string) (string, error) {
	pub, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return "", err
	}
	sshKey, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", err
	}
	return ssh.FingerprintSHA256(sshKey), nil
}
