package crypto

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/awnumar/memguard"
)

// DigestSize is the output size of HMACSHA256 in bytes.
const DigestSize = sha256.Size

// HMACSHA256 computes HMAC-SHA-256 of message under key.
func HMACSHA256(key, message []byte) [DigestSize]byte {
	var out [DigestSize]byte
	m := hmac.New(sha256.New, key)
	m.Write(message)
	m.Sum(out[:0])
	return out
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}
