package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
)

// ErrKeySize is returned when a key object cannot be built at the requested size.
var ErrKeySize = errors.New("unsupported key size")

const (
	minRSABits = 1024
	maxRSABits = 4096
)

// GenerateSymmetricKey returns bits/8 random bytes.
func GenerateSymmetricKey(bits int) ([]byte, error) {
	if bits <= 0 || bits%8 != 0 {
		return nil, fmt.Errorf("%w: %d bits", ErrKeySize, bits)
	}
	key := make([]byte, bits/8)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate symmetric key: %w", err)
	}
	return key, nil
}

// GenerateRSAKey creates an RSA key pair with the given modulus size.
func GenerateRSAKey(bits int) (*rsa.PrivateKey, error) {
	if bits < minRSABits || bits > maxRSABits || bits%8 != 0 {
		return nil, fmt.Errorf("%w: rsa %d bits", ErrKeySize, bits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return key, nil
}

// GenerateECDSAKey creates an ECDSA key pair on the NIST curve matching bits.
func GenerateECDSAKey(bits int) (*ecdsa.PrivateKey, error) {
	curve, err := curveForBits(bits)
	if err != nil {
		return nil, err
	}
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ecdsa key: %w", err)
	}
	return key, nil
}

func curveForBits(bits int) (elliptic.Curve, error) {
	switch bits {
	case 256:
		return elliptic.P256(), nil
	case 384:
		return elliptic.P384(), nil
	default:
		return nil, fmt.Errorf("%w: ec %d bits", ErrKeySize, bits)
	}
}
