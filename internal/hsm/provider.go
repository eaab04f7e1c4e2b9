package hsm

import (
	"crypto/ecdsa"
	"crypto/rsa"
)

// DigestSize is the HMAC output size every provider must produce.
const DigestSize = 32

// Provider abstracts the primitives the engine and key store consume.
// Real implementations would delegate to PKCS#11 or a secure element.
type Provider interface {
	// HMAC computes HMAC-SHA-256 of message under key. It must be stateless.
	HMAC(key, message []byte) [DigestSize]byte
	GenerateSymmetric(bits int) ([]byte, error)
	GenerateRSA(bits int) (*rsa.PrivateKey, error)
	GenerateEC(bits int) (*ecdsa.PrivateKey, error)
}
