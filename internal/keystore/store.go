package keystore

import (
	"crypto"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrInvalidLength        = errors.New("invalid key length")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrNoSymmetricMaterial  = errors.New("key has no symmetric material")
	ErrKeyDestroyed         = errors.New("key has been destroyed")
	ErrStoreDestroyed       = errors.New("key store has been destroyed")
)

// KeyType identifies the algorithm family of a key. Values follow the
// Java Card KeyBuilder type constants so dispatch layers can pass them through.
type KeyType byte

const (
	TypeDES        KeyType = 3
	TypeRSAPublic  KeyType = 4
	TypeRSAPrivate KeyType = 5
	TypeECPrivate  KeyType = 12
	TypeAES        KeyType = 15
)

func (t KeyType) String() string {
	switch t {
	case TypeDES:
		return "DES"
	case TypeRSAPublic:
		return "RSA_PUBLIC"
	case TypeRSAPrivate:
		return "RSA_PRIVATE"
	case TypeECPrivate:
		return "EC_PRIVATE"
	case TypeAES:
		return "AES"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(t))
	}
}

var allowedLengths = map[KeyType][]int{
	TypeDES: {64, 128, 192},
	TypeAES: {128, 192, 256},
}

// Identity is the lookup key of the store: at most one live entry per identity.
type Identity struct {
	Type   KeyType
	Length int
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%d", id.Type, id.Length)
}

// LegacySlot folds the identity into one byte as type XOR low byte of length.
// Distinct identities can share a slot (RSA_PUBLIC/1024 and RSA_PUBLIC/2048).
func (id Identity) LegacySlot() byte {
	return byte(id.Type) ^ byte(id.Length&0xFF)
}

// KeyEntry is the handle returned by the store. Two handles refer to the
// same key material exactly when they are the same pointer (and share ID).
type KeyEntry struct {
	ID                 string
	Identity           Identity
	SupportsEncryption bool
	CreatedAt          time.Time

	symmetric bool
	signer    crypto.Signer
	public    crypto.PublicKey
	unwrap    func(wrapped, aad []byte) ([]byte, error)

	mu        sync.RWMutex
	secret    []byte // symmetric material, wrapped when SupportsEncryption
	destroyed bool
}

// Symmetric reports whether the entry holds raw key bytes (DES, AES).
func (e *KeyEntry) Symmetric() bool {
	return e.symmetric
}

// Material returns a copy of the symmetric key bytes, unwrapping them if the
// entry was created with SupportsEncryption.
func (e *KeyEntry) Material() ([]byte, error) {
	if !e.symmetric {
		return nil, fmt.Errorf("%s: %w", e.Identity, ErrNoSymmetricMaterial)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.destroyed {
		return nil, fmt.Errorf("%s: %w", e.Identity, ErrKeyDestroyed)
	}
	if !e.SupportsEncryption {
		return append([]byte(nil), e.secret...), nil
	}
	return e.unwrap(e.secret, e.aad())
}

// Destroyed reports whether the entry was removed from its store.
func (e *KeyEntry) Destroyed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.destroyed
}

// Signer returns the private key of RSA_PRIVATE and EC_PRIVATE entries.
func (e *KeyEntry) Signer() (crypto.Signer, bool) {
	return e.signer, e.signer != nil
}

// Public returns the public half of an asymmetric entry, or nil.
func (e *KeyEntry) Public() crypto.PublicKey {
	return e.public
}

func (e *KeyEntry) aad() []byte {
	return []byte(e.Identity.String() + "|" + e.ID)
}

// Store defines the key lifecycle interface.
type Store interface {
	GetKey(t KeyType, length int, supportsEncryption bool) (*KeyEntry, error)
	DeleteKey(t KeyType, length int)
	UpdateKey(t KeyType, length int, supportsEncryption bool) (*KeyEntry, error)
	List() []*KeyEntry
	Clear()
}
