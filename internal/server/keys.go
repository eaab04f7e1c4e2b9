package server

import (
	"context"
	"crypto/x509"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/glinharesb/hkdf-vault/internal/api"
	"github.com/glinharesb/hkdf-vault/internal/audit"
	"github.com/glinharesb/hkdf-vault/internal/keystore"
	"github.com/glinharesb/hkdf-vault/internal/session"
)

type KeyServer struct {
	sessions *session.Manager
	audit    *audit.Logger
}

func NewKeyServer(m *session.Manager, a *audit.Logger) *KeyServer {
	return &KeyServer{sessions: m, audit: a}
}

func (s *KeyServer) GetKey(ctx context.Context, req *api.KeyRequest) (*api.KeyMetadata, error) {
	return s.obtain(ctx, "GetKey", req, keystore.Store.GetKey)
}

func (s *KeyServer) UpdateKey(ctx context.Context, req *api.KeyRequest) (*api.KeyMetadata, error) {
	return s.obtain(ctx, "UpdateKey", req, keystore.Store.UpdateKey)
}

func (s *KeyServer) DeleteKey(ctx context.Context, req *api.KeyRequest) (*emptypb.Empty, error) {
	subject := subjectOf(req)
	t, length, err := identity(req)
	var sess *session.Session
	if err == nil {
		sess, err = s.sessions.Get(req.SessionID)
	}
	if err != nil {
		return nil, record(ctx, s.audit, "DeleteKey", req.SessionID, subject, err, nil)
	}

	sess.Keys.DeleteKey(t, length)
	record(ctx, s.audit, "DeleteKey", req.SessionID, subject, nil, nil)
	return &emptypb.Empty{}, nil
}

func (s *KeyServer) ListKeys(ctx context.Context, req *api.SessionRequest) (*api.ListKeysResponse, error) {
	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}

	keys := make([]*api.KeyMetadata, 0)
	for _, e := range sess.Keys.List() {
		meta, err := entryToAPI(e)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "marshal public key: %v", err)
		}
		keys = append(keys, meta)
	}
	return &api.ListKeysResponse{Keys: keys}, nil
}

func (s *KeyServer) obtain(ctx context.Context, op string, req *api.KeyRequest,
	fn func(keystore.Store, keystore.KeyType, int, bool) (*keystore.KeyEntry, error),
) (*api.KeyMetadata, error) {
	subject := subjectOf(req)
	meta := map[string]string{"supports_encryption": strconv.FormatBool(req.SupportsEncryption)}

	t, length, err := identity(req)
	var sess *session.Session
	if err == nil {
		sess, err = s.sessions.Get(req.SessionID)
	}
	var entry *keystore.KeyEntry
	if err == nil {
		entry, err = fn(sess.Keys, t, length, req.SupportsEncryption)
	}
	if err != nil {
		return nil, record(ctx, s.audit, op, req.SessionID, subject, err, meta)
	}

	out, err := entryToAPI(entry)
	if err != nil {
		return nil, record(ctx, s.audit, op, req.SessionID, subject,
			status.Errorf(codes.Internal, "marshal public key: %v", err), meta)
	}
	meta["key_id"] = entry.ID
	record(ctx, s.audit, op, req.SessionID, subject, nil, meta)
	return out, nil
}

// identity narrows the wire fields to the byte type and 16-bit length the
// store takes.
func identity(req *api.KeyRequest) (keystore.KeyType, int, error) {
	if req.Type > 0xFF {
		return 0, 0, status.Errorf(codes.Unimplemented, "key type %d: %v", req.Type, keystore.ErrUnsupportedAlgorithm)
	}
	if req.Length > maxWireLength {
		return 0, 0, status.Errorf(codes.InvalidArgument, "key length %d: %v", req.Length, keystore.ErrInvalidLength)
	}
	return keystore.KeyType(req.Type), int(req.Length), nil
}

func subjectOf(req *api.KeyRequest) string {
	if req.Type > 0xFF {
		return strconv.FormatUint(uint64(req.Type), 10) + "/" + strconv.FormatUint(uint64(req.Length), 10)
	}
	return keystore.Identity{Type: keystore.KeyType(req.Type), Length: int(req.Length)}.String()
}

func entryToAPI(e *keystore.KeyEntry) (*api.KeyMetadata, error) {
	meta := &api.KeyMetadata{
		ID:                 e.ID,
		Type:               uint32(e.Identity.Type),
		TypeName:           e.Identity.Type.String(),
		Length:             uint32(e.Identity.Length),
		SupportsEncryption: e.SupportsEncryption,
		Symmetric:          e.Symmetric(),
		CreatedAt:          e.CreatedAt,
	}
	if pub := e.Public(); pub != nil {
		der, err := x509.MarshalPKIXPublicKey(pub)
		if err != nil {
			return nil, err
		}
		meta.PublicKeyDER = der
	}
	return meta, nil
}
