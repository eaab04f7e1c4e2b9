// Package session owns the per-caller derivation state: every session has
// its own engine and its own key store, so nothing leaks between callers.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glinharesb/hkdf-vault/internal/crypto"
	"github.com/glinharesb/hkdf-vault/internal/hsm"
	"github.com/glinharesb/hkdf-vault/internal/kdf"
	"github.com/glinharesb/hkdf-vault/internal/keystore"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrLimit    = errors.New("session limit reached")
)

var kekInfo = []byte("hkdf-vault keystore kek")

// Session is one logical derivation context.
type Session struct {
	ID        string
	Engine    *kdf.Engine
	Keys      *keystore.MemoryStore
	CreatedAt time.Time
}

// Options configures a Manager.
type Options struct {
	KDF         kdf.Config
	MaxSessions int
	// KEKSecret, when set, derives each session's key-encryption key as
	// HKDF(secret, salt=session ID). Otherwise every store draws a random KEK.
	KEKSecret   []byte
	LegacySlots bool
}

// Manager creates, looks up and destroys sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	hsm  hsm.Provider
	opts Options
}

func NewManager(h hsm.Provider, opts Options) (*Manager, error) {
	// Build one engine up front so a bad KDF config fails at startup.
	if _, err := kdf.New(opts.KDF, h.HMAC); err != nil {
		return nil, fmt.Errorf("kdf config: %w", err)
	}
	opts.KEKSecret = append([]byte(nil), opts.KEKSecret...)
	return &Manager{
		sessions: make(map[string]*Session),
		hsm:      h,
		opts:     opts,
	}, nil
}

// Open creates a new session.
func (m *Manager) Open() (*Session, error) {
	id := uuid.NewString()

	engine, err := kdf.New(m.opts.KDF, m.hsm.HMAC)
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}

	var storeOpts []keystore.Option
	if m.opts.LegacySlots {
		storeOpts = append(storeOpts, keystore.WithLegacySlots())
	}
	if len(m.opts.KEKSecret) > 0 {
		kek, err := crypto.DeriveKey(m.opts.KEKSecret, []byte(id), kekInfo, crypto.KEKSize)
		if err != nil {
			return nil, fmt.Errorf("derive kek: %w", err)
		}
		storeOpts = append(storeOpts, keystore.WithKEK(kek))
		crypto.Wipe(kek)
	}
	store, err := keystore.NewMemoryStore(m.hsm, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("new key store: %w", err)
	}

	s := &Session{
		ID:        id,
		Engine:    engine,
		Keys:      store,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		destroy(s)
		return nil, fmt.Errorf("%w (%d)", ErrLimit, m.opts.MaxSessions)
	}
	m.sessions[id] = s
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close wipes the session's engine, destroys its keys and key-encryption
// key, and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	destroy(s)
	return nil
}

// CloseAll destroys every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		destroy(s)
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func destroy(s *Session) {
	s.Engine.Wipe()
	s.Keys.Destroy()
}
