package api

import (
	"time"

	"github.com/glinharesb/hkdf-vault/internal/audit"
)

// Byte fields are base64 in JSON.

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

type StateResponse struct {
	State string `json:"state"`
}

type SetSaltRequest struct {
	SessionID string `json:"session_id"`
	Salt      []byte `json:"salt"`
}

type ExtractRequest struct {
	SessionID string `json:"session_id"`
	IKM       []byte `json:"ikm"`
}

// PRKResponse carries the pseudorandom key produced by Extract or Rotate.
type PRKResponse struct {
	PRK   []byte `json:"prk"`
	State string `json:"state"`
}

// ExpandRequest asks for Length bytes of output keying material. A zero
// Length selects the server default of 16 bytes.
type ExpandRequest struct {
	SessionID string `json:"session_id"`
	Info      []byte `json:"info,omitempty"`
	Length    uint32 `json:"length"`
}

type ExpandResponse struct {
	OKM []byte `json:"okm"`
}

// DeriveRequest runs SetSalt (when Salt is non-empty), Extract and Expand as
// one uninterrupted sequence on the session engine.
type DeriveRequest struct {
	SessionID string `json:"session_id"`
	Salt      []byte `json:"salt,omitempty"`
	IKM       []byte `json:"ikm"`
	Info      []byte `json:"info,omitempty"`
	Length    uint32 `json:"length"`
}

// KeyRequest names a key identity. Type uses the KeyBuilder type codes
// (3 DES, 4 RSA public, 5 RSA private, 12 EC private, 15 AES).
type KeyRequest struct {
	SessionID          string `json:"session_id"`
	Type               uint32 `json:"type"`
	Length             uint32 `json:"length"`
	SupportsEncryption bool   `json:"supports_encryption,omitempty"`
}

// KeyMetadata describes a stored key. Secret material is never included.
type KeyMetadata struct {
	ID                 string    `json:"id"`
	Type               uint32    `json:"type"`
	TypeName           string    `json:"type_name"`
	Length             uint32    `json:"length"`
	SupportsEncryption bool      `json:"supports_encryption"`
	Symmetric          bool      `json:"symmetric"`
	CreatedAt          time.Time `json:"created_at"`
	PublicKeyDER       []byte    `json:"public_key_der,omitempty"`
}

type ListKeysResponse struct {
	Keys []*KeyMetadata `json:"keys"`
}

type QueryAuditRequest struct {
	SessionID string    `json:"session_id,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Start     time.Time `json:"start,omitzero"`
	End       time.Time `json:"end,omitzero"`
	Limit     uint32    `json:"limit,omitempty"`
}

type QueryAuditResponse struct {
	Entries []audit.Entry `json:"entries"`
}

type StreamAuditRequest struct {
	SessionID string `json:"session_id,omitempty"`
}
