package kdf

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"golang.org/x/crypto/hkdf"

	"github.com/glinharesb/hkdf-vault/internal/crypto"
)

var sampleSalt = []byte{
	0xDA, 0xAC, 0x3E, 0x10, 0x55, 0xB5, 0xF1, 0x3E,
	0x53, 0xE4, 0x70, 0xA8, 0x77, 0x79, 0x8E, 0x0A,
	0x89, 0xAE, 0x96, 0x5F, 0x19, 0x5D, 0x53, 0x62,
	0x58, 0x84, 0x2C, 0x09, 0xAD, 0x6E, 0x20, 0xD4,
}

var sampleIKM = []byte{
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10,
}

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg, crypto.HMACSHA256)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func referenceHKDF(t *testing.T, salt, ikm, info []byte, length int) (prk, okm []byte) {
	t.Helper()
	prk = hkdf.Extract(sha256.New, ikm, salt)
	okm = make([]byte, length)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, info), okm); err != nil {
		t.Fatalf("reference expand: %v", err)
	}
	return prk, okm
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return b
}

func TestEndToEndVector(t *testing.T) {
	e := newEngine(t, Config{})
	if err := e.SetSalt(sampleSalt); err != nil {
		t.Fatalf("set salt: %v", err)
	}

	prk, err := e.Extract(sampleIKM)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	okm, err := e.Expand([]byte("aes-key"), 16)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	wantPRK, wantOKM := referenceHKDF(t, sampleSalt, sampleIKM, []byte("aes-key"), 16)
	if !bytes.Equal(prk, wantPRK) {
		t.Fatalf("prk: got %x, want %x", prk, wantPRK)
	}
	if !bytes.Equal(okm, wantOKM) {
		t.Fatalf("okm: got %x, want %x", okm, wantOKM)
	}
}

func TestRFC5869Vectors(t *testing.T) {
	tests := []struct {
		name string
		ikm  string
		salt string
		info string
		prk  string
		okm  string
	}{
		{
			name: "A.1 basic",
			ikm:  "0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b",
			salt: "000102030405060708090a0b0c",
			info: "f0f1f2f3f4f5f6f7f8f9",
			prk:  "077709362c2e32df0ddc3f0dc47bba6390b6c73bb50f9c3122ec844ad7c2b3e5",
			okm:  "3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf34007208d5b887185865",
		},
		{
			// An absent salt is HashLen zero bytes.
			name: "A.3 zero salt and empty info",
			ikm:  "0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b",
			salt: "0000000000000000000000000000000000000000000000000000000000000000",
			info: "",
			prk:  "19ef24a32c717b167f33a91d6f648bdf96596776afdb6377ac434c1c293ccb04",
			okm:  "8da4e775a563c18f715f802a063c5a31b8a11f5c5ee1879ec3454e5f3c738d2d9d201395faa4b61a96c8",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, Config{StaticSalt: mustHex(t, tc.salt)})

			prk, err := e.Extract(mustHex(t, tc.ikm))
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if hex.EncodeToString(prk) != tc.prk {
				t.Fatalf("prk: got %x, want %s", prk, tc.prk)
			}

			want := mustHex(t, tc.okm)
			okm, err := e.Expand(mustHex(t, tc.info), len(want))
			if err != nil {
				t.Fatalf("expand: %v", err)
			}
			if !bytes.Equal(okm, want) {
				t.Fatalf("okm: got %x, want %x", okm, want)
			}
		})
	}
}

func TestExpandMatchesReferenceAcrossLengths(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	if _, err := e.Extract(sampleIKM); err != nil {
		t.Fatalf("extract: %v", err)
	}

	info := []byte("context")
	for _, length := range []int{1, 16, 31, 32, 33, 64, 100, 1000, MaxOutputLength} {
		_, want := referenceHKDF(t, sampleSalt, sampleIKM, info, length)
		got, err := e.Expand(info, length)
		if err != nil {
			t.Fatalf("L=%d: %v", length, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("L=%d: output differs from reference", length)
		}
	}
}

func TestExtractBeforeSaltFails(t *testing.T) {
	e := newEngine(t, Config{})
	if e.State() != StateNoSalt {
		t.Fatalf("initial state: got %v", e.State())
	}

	if _, err := e.Extract(sampleIKM); !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("expected ErrPreconditionNotMet, got %v", err)
	}

	if err := e.SetSalt(bytes.Repeat([]byte{0x01}, 32)); err != nil {
		t.Fatalf("set salt: %v", err)
	}
	if e.State() != StateSaltSet {
		t.Fatalf("state after set salt: got %v", e.State())
	}

	prk, err := e.Extract(sampleIKM)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(prk) != PRKSize {
		t.Fatalf("prk length: got %d", len(prk))
	}
	if e.State() != StatePRKSet {
		t.Fatalf("state after extract: got %v", e.State())
	}
}

func TestStaticSaltExtractsImmediately(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	if e.State() != StateSaltSet {
		t.Fatalf("initial state: got %v", e.State())
	}

	prk, err := e.Extract(sampleIKM)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want, _ := referenceHKDF(t, sampleSalt, sampleIKM, nil, 1)
	if !bytes.Equal(prk, want) {
		t.Fatalf("prk: got %x, want %x", prk, want)
	}
}

func TestSetSaltLength(t *testing.T) {
	e := newEngine(t, Config{})

	if err := e.SetSalt(nil); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("empty salt: expected ErrInvalidLength, got %v", err)
	}
	if err := e.SetSalt(make([]byte, MaxSaltSize+1)); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("65-byte salt: expected ErrInvalidLength, got %v", err)
	}
	if e.State() != StateNoSalt {
		t.Fatal("rejected salt must not change state")
	}
	if err := e.SetSalt(make([]byte, MaxSaltSize)); err != nil {
		t.Fatalf("64-byte salt: %v", err)
	}
	if err := e.SetSalt([]byte{0xff}); err != nil {
		t.Fatalf("1-byte salt: %v", err)
	}
}

func TestSetSaltKeepsPRK(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	e.Extract(sampleIKM)
	before, _ := e.Expand(nil, 32)

	if err := e.SetSalt([]byte("another salt")); err != nil {
		t.Fatalf("set salt: %v", err)
	}
	if e.State() != StatePRKSet {
		t.Fatalf("state: got %v", e.State())
	}
	after, _ := e.Expand(nil, 32)
	if !bytes.Equal(before, after) {
		t.Fatal("set salt must not touch the prk")
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})

	p1, _ := e.Extract(sampleIKM)
	p2, _ := e.Extract(sampleIKM)
	if !bytes.Equal(p1, p2) {
		t.Fatal("extract with same salt and ikm should be deterministic")
	}

	p3, _ := e.Extract([]byte{0x42})
	if bytes.Equal(p1, p3) {
		t.Fatal("different ikm should give different prk")
	}
}

func TestExtractReturnsCopy(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	p1, _ := e.Extract(sampleIKM)
	ref := append([]byte(nil), p1...)
	p1[0] ^= 0xff

	okm1, _ := e.Expand(nil, 32)
	e.Extract(sampleIKM)
	okm2, _ := e.Expand(nil, 32)
	if !bytes.Equal(okm1, okm2) {
		t.Fatal("mutating the returned prk must not change engine state")
	}
	if !bytes.Equal(e.prk[:], ref) {
		t.Fatal("stored prk differs from returned value")
	}
}

func TestExtractEmptyIKM(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	if _, err := e.Extract(nil); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
	if e.State() != StateSaltSet {
		t.Fatal("failed extract must not set a prk")
	}
}

func TestFailedExtractKeepsPRK(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	e.Extract(sampleIKM)
	before, _ := e.Expand([]byte("x"), 32)

	if _, err := e.Extract([]byte{}); err == nil {
		t.Fatal("empty ikm should fail")
	}
	after, _ := e.Expand([]byte("x"), 32)
	if !bytes.Equal(before, after) {
		t.Fatal("failed extract must not modify the prk")
	}
}

func TestExpandPrefixProperty(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	e.Extract(sampleIKM)
	info := []byte("prefix")

	long, err := e.Expand(info, 200)
	if err != nil {
		t.Fatalf("expand 200: %v", err)
	}
	for _, l := range []int{1, 7, 32, 33, 64, 65, 199} {
		short, err := e.Expand(info, l)
		if err != nil {
			t.Fatalf("expand %d: %v", l, err)
		}
		if !bytes.Equal(short, long[:l]) {
			t.Fatalf("expand(%d) is not a prefix of expand(200)", l)
		}
	}
}

func TestExpandTruncatesFinalBlock(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	e.Extract(sampleIKM)

	for _, l := range []int{5, 37, 70} {
		out, err := e.Expand(nil, l)
		if err != nil {
			t.Fatalf("expand %d: %v", l, err)
		}
		if len(out) != l {
			t.Fatalf("expand %d returned %d bytes", l, len(out))
		}
	}
}

func TestExpandLengthBounds(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	e.Extract(sampleIKM)

	if _, err := e.Expand(nil, 0); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("L=0: expected ErrInvalidLength, got %v", err)
	}
	if _, err := e.Expand(nil, -1); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("L=-1: expected ErrInvalidLength, got %v", err)
	}
	if _, err := e.Expand(nil, MaxOutputLength+1); !errors.Is(err, ErrOutputTooLarge) {
		t.Fatalf("L=8161: expected ErrOutputTooLarge, got %v", err)
	}
	if _, err := e.Expand(nil, 65535); !errors.Is(err, ErrOutputTooLarge) {
		t.Fatalf("L=65535: expected ErrOutputTooLarge, got %v", err)
	}
	out, err := e.Expand(nil, MaxOutputLength)
	if err != nil {
		t.Fatalf("L=8160: %v", err)
	}
	if len(out) != MaxOutputLength {
		t.Fatalf("L=8160 returned %d bytes", len(out))
	}
}

func TestExpandInfoBound(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt, MaxInfo: 8})
	e.Extract(sampleIKM)

	if _, err := e.Expand(make([]byte, 8), 40); err != nil {
		t.Fatalf("8-byte info: %v", err)
	}
	if _, err := e.Expand(make([]byte, 9), 40); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("9-byte info: expected ErrInvalidLength, got %v", err)
	}
}

func TestExpandBeforeExtractFails(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	if _, err := e.Expand([]byte("info"), 16); !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("expected ErrPreconditionNotMet, got %v", err)
	}
}

func TestExpandDoesNotMutatePRK(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	prk, _ := e.Extract(sampleIKM)

	e.Expand([]byte("a"), 500)
	e.Expand([]byte("b"), 17)
	if !bytes.Equal(e.prk[:], prk) {
		t.Fatal("expand changed the prk")
	}
}

func TestExpandWipesScratch(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	e.Extract(sampleIKM)
	e.Expand([]byte("sensitive info"), 100)

	if !bytes.Equal(e.scratch, make([]byte, len(e.scratch))) {
		t.Fatal("scratch buffer not wiped after expand")
	}
}

func TestExpandBlockCount(t *testing.T) {
	calls := 0
	mac := func(key, msg []byte) [PRKSize]byte {
		calls++
		return crypto.HMACSHA256(key, msg)
	}
	e, err := New(Config{StaticSalt: sampleSalt}, mac)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	e.Extract(sampleIKM)

	for _, tc := range []struct{ length, blocks int }{{1, 1}, {32, 1}, {33, 2}, {96, 3}, {MaxOutputLength, 255}} {
		calls = 0
		if _, err := e.Expand(nil, tc.length); err != nil {
			t.Fatalf("L=%d: %v", tc.length, err)
		}
		if calls != tc.blocks {
			t.Fatalf("L=%d: got %d mac calls, want %d", tc.length, calls, tc.blocks)
		}
	}
}

func TestRotateFormula(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	prk, _ := e.Extract(sampleIKM)

	m := hmac.New(sha256.New, prk)
	m.Write([]byte("rotate\x01"))
	want := m.Sum(nil)

	got, err := e.Rotate()
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("rotate: got %x, want %x", got, want)
	}
	if !bytes.Equal(e.prk[:], want) {
		t.Fatal("rotate did not store the new prk")
	}
}

func TestRotateCustomLabel(t *testing.T) {
	label := []byte("epoch-label")
	e := newEngine(t, Config{StaticSalt: sampleSalt, RotateLabel: label})
	prk, _ := e.Extract(sampleIKM)

	m := hmac.New(sha256.New, prk)
	m.Write(append(append([]byte(nil), label...), 0x01))
	want := m.Sum(nil)

	got, _ := e.Rotate()
	if !bytes.Equal(got, want) {
		t.Fatalf("rotate: got %x, want %x", got, want)
	}
}

func TestRotateLongLabel(t *testing.T) {
	label := bytes.Repeat([]byte("L"), 400)
	e := newEngine(t, Config{StaticSalt: sampleSalt, RotateLabel: label, MaxInfo: 4})
	e.Extract(sampleIKM)

	if _, err := e.Rotate(); err != nil {
		t.Fatalf("rotate with label longer than info bound: %v", err)
	}
}

func TestRotateDeterministicAndChanging(t *testing.T) {
	e1 := newEngine(t, Config{StaticSalt: sampleSalt})
	e2 := newEngine(t, Config{StaticSalt: sampleSalt})
	start, _ := e1.Extract(sampleIKM)
	e2.Extract(sampleIKM)

	r1a, _ := e1.Rotate()
	r1b, _ := e2.Rotate()
	if !bytes.Equal(r1a, r1b) {
		t.Fatal("rotate from the same prk should be deterministic")
	}
	if bytes.Equal(r1a, start) {
		t.Fatal("rotate left the prk unchanged")
	}

	r2, _ := e1.Rotate()
	if bytes.Equal(r2, r1a) || bytes.Equal(r2, start) {
		t.Fatal("consecutive rotations should keep changing the prk")
	}
}

func TestRotateChangesExpandOutput(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	e.Extract(sampleIKM)

	before, _ := e.Expand([]byte("k"), 32)
	e.Rotate()
	after, _ := e.Expand([]byte("k"), 32)
	if bytes.Equal(before, after) {
		t.Fatal("expand output should change after rotate")
	}
}

func TestRotateBeforeExtractFails(t *testing.T) {
	e := newEngine(t, Config{})
	if _, err := e.Rotate(); !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("expected ErrPreconditionNotMet, got %v", err)
	}
}

func TestWipe(t *testing.T) {
	e := newEngine(t, Config{})
	e.SetSalt(sampleSalt)
	e.Extract(sampleIKM)

	e.Wipe()
	if e.State() != StateNoSalt {
		t.Fatalf("state after wipe: got %v", e.State())
	}
	if !bytes.Equal(e.prk[:], make([]byte, PRKSize)) {
		t.Fatal("prk not zeroed")
	}
	if !bytes.Equal(e.salt[:], make([]byte, MaxSaltSize)) {
		t.Fatal("salt not zeroed")
	}
	if _, err := e.Expand(nil, 16); !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("expand after wipe: expected ErrPreconditionNotMet, got %v", err)
	}
}

func TestWipeReloadsStaticSalt(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	p1, _ := e.Extract(sampleIKM)
	e.Wipe()

	if e.State() != StateSaltSet {
		t.Fatalf("state after wipe: got %v", e.State())
	}
	p2, _ := e.Extract(sampleIKM)
	if !bytes.Equal(p1, p2) {
		t.Fatal("static salt not restored after wipe")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("nil mac should fail")
	}
	if _, err := New(Config{StaticSalt: []byte{}}, crypto.HMACSHA256); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("empty static salt: expected ErrInvalidLength, got %v", err)
	}
	if _, err := New(Config{StaticSalt: make([]byte, 65)}, crypto.HMACSHA256); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("65-byte static salt: expected ErrInvalidLength, got %v", err)
	}
	if _, err := New(Config{MaxInfo: -1}, crypto.HMACSHA256); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("negative max info: expected ErrInvalidLength, got %v", err)
	}
	if _, err := New(Config{MaxInfo: MaxInfoLimit + 1}, crypto.HMACSHA256); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("oversized max info: expected ErrInvalidLength, got %v", err)
	}
}

func TestConfigIsCopied(t *testing.T) {
	salt := append([]byte(nil), sampleSalt...)
	label := []byte("rotate")
	e := newEngine(t, Config{StaticSalt: salt, RotateLabel: label})

	salt[0] ^= 0xff
	label[0] = 'X'

	prk, _ := e.Extract(sampleIKM)
	want, _ := referenceHKDF(t, sampleSalt, sampleIKM, nil, 1)
	if !bytes.Equal(prk, want) {
		t.Fatal("engine must keep its own copy of the static salt")
	}

	m := hmac.New(sha256.New, prk)
	m.Write([]byte("rotate\x01"))
	got, _ := e.Rotate()
	if !bytes.Equal(got, m.Sum(nil)) {
		t.Fatal("engine must keep its own copy of the rotate label")
	}
}

func TestDoSerializesSequences(t *testing.T) {
	e := newEngine(t, Config{StaticSalt: sampleSalt})
	info := []byte("seq")

	const workers = 32
	wants := make([][]byte, workers)
	for i := 0; i < workers; i++ {
		_, wants[i] = referenceHKDF(t, sampleSalt, []byte(fmt.Sprintf("ikm-%d", i)), info, 48)
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ikm := []byte(fmt.Sprintf("ikm-%d", i))
			want := wants[i]

			err := e.Do(func(tx *Tx) error {
				if _, err := tx.Extract(ikm); err != nil {
					return err
				}
				got, err := tx.Expand(info, 48)
				if err != nil {
					return err
				}
				if !bytes.Equal(got, want) {
					return fmt.Errorf("ikm-%d: interleaved derivation", i)
				}
				_, err = tx.Rotate()
				return err
			})
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
	if e.State() != StatePRKSet {
		t.Fatalf("final state: got %v", e.State())
	}
}

func TestDoPropagatesError(t *testing.T) {
	e := newEngine(t, Config{})
	err := e.Do(func(tx *Tx) error {
		if tx.State() != StateNoSalt {
			return errors.New("unexpected state")
		}
		_, err := tx.Extract(sampleIKM)
		return err
	})
	if !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("expected ErrPreconditionNotMet, got %v", err)
	}
}

func TestDoRestoresStateOnError(t *testing.T) {
	e := newEngine(t, Config{})
	e.SetSalt([]byte("salt-A"))
	e.Extract([]byte("ikm"))
	before, _ := e.Expand(nil, 32)

	err := e.Do(func(tx *Tx) error {
		if err := tx.SetSalt([]byte("salt-B")); err != nil {
			return err
		}
		if _, err := tx.Extract([]byte("other")); err != nil {
			return err
		}
		if _, err := tx.Rotate(); err != nil {
			return err
		}
		_, err := tx.Expand(make([]byte, 1000), 32)
		return err
	})
	if !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}

	after, _ := e.Expand(nil, 32)
	if !bytes.Equal(before, after) {
		t.Fatal("failed sequence changed the prk")
	}

	// The salt is restored too: extracting the same ikm gives the same prk.
	prk, _ := e.Extract([]byte("ikm"))
	want, _ := referenceHKDF(t, []byte("salt-A"), []byte("ikm"), nil, 1)
	if !bytes.Equal(prk, want) {
		t.Fatal("failed sequence changed the salt")
	}
}

func TestDoRestoresEmptyState(t *testing.T) {
	e := newEngine(t, Config{})
	err := e.Do(func(tx *Tx) error {
		tx.SetSalt([]byte("salt"))
		tx.Extract([]byte("ikm"))
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if e.State() != StateNoSalt {
		t.Fatalf("state: got %v, want NO_SALT", e.State())
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateNoSalt:  "NO_SALT",
		StateSaltSet: "SALT_SET",
		StatePRKSet:  "PRK_SET",
		State(9):     "UNKNOWN",
	} {
		if s.String() != want {
			t.Fatalf("%d: got %s, want %s", s, s.String(), want)
		}
	}
}

// Benchmarks

func BenchmarkExtract(b *testing.B) {
	e, _ := New(Config{StaticSalt: sampleSalt}, crypto.HMACSHA256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Extract(sampleIKM)
	}
}

func BenchmarkExpand16(b *testing.B) {
	e, _ := New(Config{StaticSalt: sampleSalt}, crypto.HMACSHA256)
	e.Extract(sampleIKM)
	info := []byte("aes-key")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Expand(info, 16)
	}
}

func BenchmarkExpandMax(b *testing.B) {
	e, _ := New(Config{StaticSalt: sampleSalt}, crypto.HMACSHA256)
	e.Extract(sampleIKM)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Expand(nil, MaxOutputLength)
	}
}

func BenchmarkRotate(b *testing.B) {
	e, _ := New(Config{StaticSalt: sampleSalt}, crypto.HMACSHA256)
	e.Extract(sampleIKM)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Rotate()
	}
}
