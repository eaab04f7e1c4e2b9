package keystore

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	vcrypto "github.com/glinharesb/hkdf-vault/internal/crypto"
	"github.com/glinharesb/hkdf-vault/internal/hsm"
)

const maxKeyLength = 1<<16 - 1

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithLegacySlots keys entries by Identity.LegacySlot instead of the full
// identity, reproducing the one-byte fold of older deployments. Colliding
// identities then share one entry.
func WithLegacySlots() Option {
	return func(m *MemoryStore) { m.legacy = true }
}

// WithKEK sets the key-encryption key that wraps material of entries created
// with SupportsEncryption. Without it a random KEK is generated.
func WithKEK(kek []byte) Option {
	return func(m *MemoryStore) { m.kek = append([]byte(nil), kek...) }
}

// MemoryStore is a thread-safe in-memory key store backed by sync.RWMutex.
type MemoryStore struct {
	mu        sync.RWMutex
	hsm       hsm.Provider
	kek       []byte
	legacy    bool
	keys      map[uint32]*KeyEntry
	destroyed bool
}

func NewMemoryStore(h hsm.Provider, opts ...Option) (*MemoryStore, error) {
	m := &MemoryStore{
		hsm:  h,
		keys: make(map[uint32]*KeyEntry),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.kek == nil {
		kek, err := h.GenerateSymmetric(vcrypto.KEKSize * 8)
		if err != nil {
			return nil, fmt.Errorf("generate kek: %w", err)
		}
		m.kek = kek
	}
	if len(m.kek) != vcrypto.KEKSize {
		return nil, fmt.Errorf("kek must be %d bytes, got %d", vcrypto.KEKSize, len(m.kek))
	}
	return m, nil
}

// GetKey returns the live entry for (t, length), creating it on first use.
// An existing entry is returned as is; supportsEncryption only applies when
// the entry is created.
func (m *MemoryStore) GetKey(t KeyType, length int, supportsEncryption bool) (*KeyEntry, error) {
	id := Identity{Type: t, Length: length}
	if length < 0 || length > maxKeyLength {
		return nil, fmt.Errorf("%s: %w", id, ErrInvalidLength)
	}

	m.mu.RLock()
	entry, ok := m.keys[m.slot(id)]
	kek, err := m.kekLocked(supportsEncryption)
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if ok {
		vcrypto.Wipe(kek)
		return entry, nil
	}

	// Key generation can take seconds for large RSA moduli, so it runs
	// without the store lock. A concurrent caller may insert first; its
	// entry wins and ours is destroyed.
	built, err := m.build(id, supportsEncryption, kek)
	vcrypto.Wipe(kek)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		destroy(built)
		return nil, ErrStoreDestroyed
	}
	k := m.slot(id)
	if e, ok := m.keys[k]; ok {
		destroy(built)
		return e, nil
	}
	m.keys[k] = built
	return built, nil
}

// DeleteKey removes and destroys the entry for (t, length). Deleting an
// absent key is not an error.
func (m *MemoryStore) DeleteKey(t KeyType, length int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(Identity{Type: t, Length: length})
}

// UpdateKey replaces the entry for (t, length) with freshly generated
// material. The old entry stays deleted if creating the new one fails.
func (m *MemoryStore) UpdateKey(t KeyType, length int, supportsEncryption bool) (*KeyEntry, error) {
	id := Identity{Type: t, Length: length}
	if length < 0 || length > maxKeyLength {
		return nil, fmt.Errorf("%s: %w", id, ErrInvalidLength)
	}

	m.mu.RLock()
	kek, err := m.kekLocked(supportsEncryption)
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	built, buildErr := m.build(id, supportsEncryption, kek)
	vcrypto.Wipe(kek)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		if built != nil {
			destroy(built)
		}
		return nil, ErrStoreDestroyed
	}
	m.deleteLocked(id)
	if buildErr != nil {
		return nil, buildErr
	}
	m.keys[m.slot(id)] = built
	return built, nil
}

// List returns the live entries ordered by type, then length.
func (m *MemoryStore) List() []*KeyEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*KeyEntry, 0, len(m.keys))
	for _, e := range m.keys {
		result = append(result, e)
	}
	slices.SortFunc(result, func(a, b *KeyEntry) int {
		if c := cmp.Compare(a.Identity.Type, b.Identity.Type); c != 0 {
			return c
		}
		return cmp.Compare(a.Identity.Length, b.Identity.Length)
	})
	return result
}

// Clear destroys every entry. The store stays usable.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

// Destroy clears the store and wipes its key-encryption key. Later calls
// to GetKey and UpdateKey fail with ErrStoreDestroyed.
func (m *MemoryStore) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearLocked()
	vcrypto.Wipe(m.kek)
	m.destroyed = true
}

func (m *MemoryStore) clearLocked() {
	for k, e := range m.keys {
		destroy(e)
		delete(m.keys, k)
	}
}

func (m *MemoryStore) slot(id Identity) uint32 {
	if m.legacy {
		return uint32(id.LegacySlot())
	}
	return uint32(id.Type)<<16 | uint32(id.Length)
}

func (m *MemoryStore) deleteLocked(id Identity) {
	k := m.slot(id)
	if e, ok := m.keys[k]; ok {
		destroy(e)
		delete(m.keys, k)
	}
}

// kekLocked returns a copy of the KEK when the new entry will be wrapped.
// The caller wipes it.
func (m *MemoryStore) kekLocked(supportsEncryption bool) ([]byte, error) {
	if m.destroyed {
		return nil, ErrStoreDestroyed
	}
	if !supportsEncryption {
		return nil, nil
	}
	return slices.Clone(m.kek), nil
}

func (m *MemoryStore) build(id Identity, supportsEncryption bool, kek []byte) (*KeyEntry, error) {
	e := &KeyEntry{
		ID:                 uuid.NewString(),
		Identity:           id,
		SupportsEncryption: supportsEncryption,
		CreatedAt:          time.Now(),
		unwrap:             m.unwrap,
	}

	switch id.Type {
	case TypeDES, TypeAES:
		if !slices.Contains(allowedLengths[id.Type], id.Length) {
			return nil, fmt.Errorf("%s: %w", id, ErrInvalidLength)
		}
		secret, err := m.hsm.GenerateSymmetric(id.Length)
		if err != nil {
			return nil, keyObjectError(id, err)
		}
		if supportsEncryption {
			wrapped, err := vcrypto.WrapKey(kek, secret, e.aad())
			vcrypto.Wipe(secret)
			if err != nil {
				return nil, fmt.Errorf("wrap %s: %w", id, err)
			}
			secret = wrapped
		}
		e.symmetric = true
		e.secret = secret

	case TypeRSAPublic, TypeRSAPrivate:
		priv, err := m.hsm.GenerateRSA(id.Length)
		if err != nil {
			return nil, keyObjectError(id, err)
		}
		e.public = &priv.PublicKey
		if id.Type == TypeRSAPrivate {
			e.signer = priv
		}

	case TypeECPrivate:
		priv, err := m.hsm.GenerateEC(id.Length)
		if err != nil {
			return nil, keyObjectError(id, err)
		}
		e.public = &priv.PublicKey
		e.signer = priv

	default:
		return nil, fmt.Errorf("key type %d: %w", byte(id.Type), ErrUnsupportedAlgorithm)
	}
	return e, nil
}

func (m *MemoryStore) unwrap(wrapped, aad []byte) ([]byte, error) {
	return vcrypto.UnwrapKey(m.kek, wrapped, aad)
}

func keyObjectError(id Identity, err error) error {
	if errors.Is(err, vcrypto.ErrKeySize) {
		return fmt.Errorf("%s: %w", id, ErrInvalidLength)
	}
	return fmt.Errorf("build %s: %w", id, err)
}

func destroy(e *KeyEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.secret != nil {
		vcrypto.Wipe(e.secret)
		e.secret = nil
	}
	e.destroyed = true
}
