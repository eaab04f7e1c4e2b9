// Package kdf implements an HKDF-SHA256 engine (RFC 5869) with an extra
// Rotate step, operating on buffers sized once at construction.
package kdf

import (
	"errors"
	"fmt"
	"sync"

	"github.com/glinharesb/hkdf-vault/internal/crypto"
)

var (
	ErrInvalidLength      = errors.New("invalid length")
	ErrPreconditionNotMet = errors.New("precondition not met")
	ErrOutputTooLarge     = errors.New("output too large")
)

const (
	// PRKSize is the pseudorandom key size, equal to the HMAC-SHA-256 digest size.
	PRKSize = 32
	// MaxSaltSize is the largest salt accepted by SetSalt.
	MaxSaltSize = 64
	// MaxBlocks is the largest block counter; the counter is a single byte.
	MaxBlocks = 255
	// MaxOutputLength is the largest Expand output, 255 * 32 bytes.
	MaxOutputLength = MaxBlocks * PRKSize
	// DefaultMaxInfo bounds info when Config.MaxInfo is zero.
	DefaultMaxInfo = 255
	// MaxInfoLimit is the largest MaxInfo a Config may request.
	MaxInfoLimit = 1<<16 - 1
	// DefaultOutputLength is what dispatch layers use when a caller gives no
	// output length. The engine itself rejects a zero length.
	DefaultOutputLength = 16
)

// DefaultRotateLabel is used when Config.RotateLabel is empty.
var DefaultRotateLabel = []byte("rotate")

// MAC is the keyed digest the engine is built on. It must be stateless.
type MAC func(key, message []byte) [PRKSize]byte

// Config selects the salt mode and the constants of an Engine.
type Config struct {
	// StaticSalt, when set, is loaded at construction so Extract may be
	// called immediately. Leave nil to require SetSalt first.
	StaticSalt []byte
	// RotateLabel is the fixed input of Rotate; the counter byte 0x01 is appended.
	RotateLabel []byte
	// MaxInfo bounds the info parameter of Expand and sizes the scratch buffer.
	MaxInfo int
}

// Engine holds one salt and one PRK. All methods are safe for concurrent
// use; Do serializes a sequence of operations.
type Engine struct {
	mu sync.Mutex

	mac     MAC
	label   []byte
	maxInfo int
	static  []byte

	salt    [MaxSaltSize]byte
	saltLen int

	prk    [PRKSize]byte
	prkSet bool

	// scratch holds T(i-1) || info || i during Expand and label || 0x01 during Rotate.
	scratch []byte
}

// New builds an engine. mac is usually hsm.Provider.HMAC.
func New(cfg Config, mac MAC) (*Engine, error) {
	if mac == nil {
		return nil, errors.New("kdf: nil mac")
	}
	if cfg.StaticSalt != nil && (len(cfg.StaticSalt) == 0 || len(cfg.StaticSalt) > MaxSaltSize) {
		return nil, fmt.Errorf("static salt length %d: %w", len(cfg.StaticSalt), ErrInvalidLength)
	}

	maxInfo := cfg.MaxInfo
	if maxInfo == 0 {
		maxInfo = DefaultMaxInfo
	}
	if maxInfo < 0 || maxInfo > MaxInfoLimit {
		return nil, fmt.Errorf("max info %d: %w", cfg.MaxInfo, ErrInvalidLength)
	}

	label := DefaultRotateLabel
	if len(cfg.RotateLabel) > 0 {
		label = cfg.RotateLabel
	}
	label = append([]byte(nil), label...)

	size := max(PRKSize+maxInfo+1, len(label)+1)
	e := &Engine{
		mac:     mac,
		label:   label,
		maxInfo: maxInfo,
		scratch: make([]byte, size),
	}
	if cfg.StaticSalt != nil {
		e.static = append([]byte(nil), cfg.StaticSalt...)
		e.saltLen = copy(e.salt[:], e.static)
	}
	return e, nil
}

// MaxInfo reports the largest info accepted by Expand.
func (e *Engine) MaxInfo() int {
	return e.maxInfo
}

// State reports where the engine is in the salt/PRK lifecycle.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

// SetSalt replaces the salt. The PRK is left untouched.
func (e *Engine) SetSalt(salt []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setSalt(salt)
}

// Extract computes PRK = HMAC(salt, ikm), stores it and returns a copy.
func (e *Engine) Extract(ikm []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.extract(ikm)
}

// Expand returns the first length bytes of T(1) || ... || T(n).
func (e *Engine) Expand(info []byte, length int) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expand(info, length)
}

// Rotate replaces the PRK with HMAC(PRK, label || 0x01) and returns a copy.
func (e *Engine) Rotate() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rotate()
}

// Do runs fn while holding the engine lock, so no other caller can change
// the PRK between the steps fn performs. When fn returns an error the salt
// and PRK are restored to what they were before fn ran.
func (e *Engine) Do(fn func(tx *Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		salt    = e.salt
		saltLen = e.saltLen
		prk     = e.prk
		prkSet  = e.prkSet
	)
	defer crypto.Wipe(salt[:])
	defer crypto.Wipe(prk[:])

	if err := fn(&Tx{e: e}); err != nil {
		e.salt, e.saltLen = salt, saltLen
		e.prk, e.prkSet = prk, prkSet
		return err
	}
	return nil
}

// Wipe zeroes all secret state and returns the engine to its initial state.
// A static salt is reloaded.
func (e *Engine) Wipe() {
	e.mu.Lock()
	defer e.mu.Unlock()

	crypto.Wipe(e.salt[:])
	crypto.Wipe(e.prk[:])
	crypto.Wipe(e.scratch)
	e.saltLen = 0
	e.prkSet = false
	if e.static != nil {
		e.saltLen = copy(e.salt[:], e.static)
	}
}

func (e *Engine) state() State {
	switch {
	case e.prkSet:
		return StatePRKSet
	case e.saltLen > 0:
		return StateSaltSet
	default:
		return StateNoSalt
	}
}

func (e *Engine) setSalt(salt []byte) error {
	if len(salt) == 0 || len(salt) > MaxSaltSize {
		return fmt.Errorf("salt length %d: %w", len(salt), ErrInvalidLength)
	}
	crypto.Wipe(e.salt[:])
	e.saltLen = copy(e.salt[:], salt)
	return nil
}

func (e *Engine) extract(ikm []byte) ([]byte, error) {
	if len(ikm) == 0 {
		return nil, fmt.Errorf("ikm length 0: %w", ErrInvalidLength)
	}
	if e.saltLen == 0 {
		return nil, fmt.Errorf("extract: salt not set: %w", ErrPreconditionNotMet)
	}

	prk := e.mac(e.salt[:e.saltLen], ikm)
	e.replacePRK(&prk)
	return e.prkCopy(), nil
}

func (e *Engine) expand(info []byte, length int) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("output length %d: %w", length, ErrInvalidLength)
	}
	n := (length + PRKSize - 1) / PRKSize
	if n > MaxBlocks {
		return nil, fmt.Errorf("output length %d needs %d blocks: %w", length, n, ErrOutputTooLarge)
	}
	if len(info) > e.maxInfo {
		return nil, fmt.Errorf("info length %d exceeds %d: %w", len(info), e.maxInfo, ErrInvalidLength)
	}
	if !e.prkSet {
		return nil, fmt.Errorf("expand: prk not set: %w", ErrPreconditionNotMet)
	}

	okm := make([]byte, length)
	var t [PRKSize]byte
	defer crypto.Wipe(t[:])
	defer crypto.Wipe(e.scratch)

	written := 0
	for i := 1; i <= n; i++ {
		off := 0
		if i > 1 {
			off = copy(e.scratch, t[:])
		}
		off += copy(e.scratch[off:], info)
		e.scratch[off] = byte(i)

		t = e.mac(e.prk[:], e.scratch[:off+1])
		written += copy(okm[written:], t[:])
	}
	return okm, nil
}

func (e *Engine) rotate() ([]byte, error) {
	if !e.prkSet {
		return nil, fmt.Errorf("rotate: prk not set: %w", ErrPreconditionNotMet)
	}

	n := copy(e.scratch, e.label)
	e.scratch[n] = 0x01
	next := e.mac(e.prk[:], e.scratch[:n+1])
	crypto.Wipe(e.scratch[:n+1])

	e.replacePRK(&next)
	return e.prkCopy(), nil
}

// replacePRK overwrites the stored PRK with next and wipes next.
func (e *Engine) replacePRK(next *[PRKSize]byte) {
	crypto.Wipe(e.prk[:])
	copy(e.prk[:], next[:])
	crypto.Wipe(next[:])
	e.prkSet = true
}

func (e *Engine) prkCopy() []byte {
	out := make([]byte, PRKSize)
	copy(out, e.prk[:])
	return out
}

// Tx exposes engine operations inside Do. It must not escape fn.
type Tx struct {
	e *Engine
}

func (tx *Tx) State() State                       { return tx.e.state() }
func (tx *Tx) SetSalt(salt []byte) error          { return tx.e.setSalt(salt) }
func (tx *Tx) Extract(ikm []byte) ([]byte, error) { return tx.e.extract(ikm) }
func (tx *Tx) Rotate() ([]byte, error)            { return tx.e.rotate() }

func (tx *Tx) Expand(info []byte, length int) ([]byte, error) {
	return tx.e.expand(info, length)
}
