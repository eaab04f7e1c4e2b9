package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// KEKSize is the key-encryption key size used by WrapKey (AES-256).
const KEKSize = 32

// WrapKey seals key material under kek with AES-256-GCM.
// Output layout: [nonce | sealed | tag]. aad binds the material to its owner.
func WrapKey(kek, material, aad []byte) ([]byte, error) {
	gcm, err := newGCM(kek)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(material)+gcm.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, material, aad), nil
}

// UnwrapKey reverses WrapKey. aad must match the value used when wrapping.
func UnwrapKey(kek, wrapped, aad []byte) ([]byte, error) {
	gcm, err := newGCM(kek)
	if err != nil {
		return nil, err
	}

	ns := gcm.NonceSize()
	if len(wrapped) < ns+gcm.Overhead() {
		return nil, fmt.Errorf("wrapped key too short")
	}
	material, err := gcm.Open(nil, wrapped[:ns], wrapped[ns:], aad)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}
	return material, nil
}

func newGCM(kek []byte) (cipher.AEAD, error) {
	if len(kek) != KEKSize {
		return nil, fmt.Errorf("kek must be %d bytes, got %d", KEKSize, len(kek))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("aes new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("aes gcm: %w", err)
	}
	return gcm, nil
}
