package hsm

import (
	"crypto/ecdsa"
	"crypto/rsa"

	"github.com/glinharesb/hkdf-vault/internal/crypto"
)

// SoftwareHSM is a software-only provider for development and testing.
type SoftwareHSM struct{}

func NewSoftwareHSM() *SoftwareHSM {
	return &SoftwareHSM{}
}

func (s *SoftwareHSM) HMAC(key, message []byte) [DigestSize]byte {
	return crypto.HMACSHA256(key, message)
}

func (s *SoftwareHSM) GenerateSymmetric(bits int) ([]byte, error) {
	return crypto.GenerateSymmetricKey(bits)
}

func (s *SoftwareHSM) GenerateRSA(bits int) (*rsa.PrivateKey, error) {
	return crypto.GenerateRSAKey(bits)
}

func (s *SoftwareHSM) GenerateEC(bits int) (*ecdsa.PrivateKey, error) {
	return crypto.GenerateECDSAKey(bits)
}
