package server

import (
	"context"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/glinharesb/hkdf-vault/internal/api"
	"github.com/glinharesb/hkdf-vault/internal/audit"
	"github.com/glinharesb/hkdf-vault/internal/crypto"
	"github.com/glinharesb/hkdf-vault/internal/kdf"
	"github.com/glinharesb/hkdf-vault/internal/session"
)

// maxWireLength is the largest length the 16-bit core boundary accepts.
const maxWireLength = 1<<16 - 1

type KDFServer struct {
	sessions *session.Manager
	audit    *audit.Logger
}

func NewKDFServer(m *session.Manager, a *audit.Logger) *KDFServer {
	return &KDFServer{sessions: m, audit: a}
}

func (s *KDFServer) OpenSession(ctx context.Context, _ *emptypb.Empty) (*api.SessionResponse, error) {
	sess, err := s.sessions.Open()
	if err != nil {
		return nil, record(ctx, s.audit, "OpenSession", "", "", err, nil)
	}
	record(ctx, s.audit, "OpenSession", sess.ID, "", nil, nil)
	return &api.SessionResponse{
		SessionID: sess.ID,
		State:     sess.Engine.State().String(),
		CreatedAt: sess.CreatedAt,
	}, nil
}

func (s *KDFServer) CloseSession(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	id := req.GetValue()
	if err := s.sessions.Close(id); err != nil {
		return nil, record(ctx, s.audit, "CloseSession", id, "", err, nil)
	}
	record(ctx, s.audit, "CloseSession", id, "", nil, nil)
	return &emptypb.Empty{}, nil
}

func (s *KDFServer) State(ctx context.Context, req *api.SessionRequest) (*api.StateResponse, error) {
	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.StateResponse{State: sess.Engine.State().String()}, nil
}

func (s *KDFServer) SetSalt(ctx context.Context, req *api.SetSaltRequest) (*api.StateResponse, error) {
	meta := map[string]string{"salt_len": strconv.Itoa(len(req.Salt))}
	sess, err := s.sessions.Get(req.SessionID)
	if err == nil {
		err = sess.Engine.SetSalt(req.Salt)
	}
	if err != nil {
		return nil, record(ctx, s.audit, "SetSalt", req.SessionID, "", err, meta)
	}
	record(ctx, s.audit, "SetSalt", req.SessionID, "", nil, meta)
	return &api.StateResponse{State: sess.Engine.State().String()}, nil
}

func (s *KDFServer) Extract(ctx context.Context, req *api.ExtractRequest) (*api.PRKResponse, error) {
	meta := map[string]string{"ikm_len": strconv.Itoa(len(req.IKM))}
	sess, err := s.sessions.Get(req.SessionID)
	var prk []byte
	if err == nil {
		prk, err = sess.Engine.Extract(req.IKM)
	}
	if err != nil {
		return nil, record(ctx, s.audit, "Extract", req.SessionID, "", err, meta)
	}
	record(ctx, s.audit, "Extract", req.SessionID, "", nil, meta)
	return &api.PRKResponse{PRK: prk, State: kdf.StatePRKSet.String()}, nil
}

func (s *KDFServer) Expand(ctx context.Context, req *api.ExpandRequest) (*api.ExpandResponse, error) {
	length := outputLength(req.Length)
	meta := map[string]string{
		"info_len": strconv.Itoa(len(req.Info)),
		"length":   strconv.Itoa(length),
	}

	sess, err := s.sessions.Get(req.SessionID)
	var okm []byte
	if err == nil {
		okm, err = expand(sess.Engine.Expand, req.Info, length)
	}
	if err != nil {
		return nil, record(ctx, s.audit, "Expand", req.SessionID, "", err, meta)
	}
	record(ctx, s.audit, "Expand", req.SessionID, "", nil, meta)
	return &api.ExpandResponse{OKM: okm}, nil
}

func (s *KDFServer) Rotate(ctx context.Context, req *api.SessionRequest) (*api.PRKResponse, error) {
	sess, err := s.sessions.Get(req.SessionID)
	var prk []byte
	if err == nil {
		prk, err = sess.Engine.Rotate()
	}
	if err != nil {
		return nil, record(ctx, s.audit, "Rotate", req.SessionID, "", err, nil)
	}
	record(ctx, s.audit, "Rotate", req.SessionID, "", nil, nil)
	return &api.PRKResponse{PRK: prk, State: kdf.StatePRKSet.String()}, nil
}

// Derive runs salt, extract and expand under one engine lock, so a
// concurrent Rotate on the same session cannot slip between the steps.
// A failed Derive leaves the salt and PRK as they were.
func (s *KDFServer) Derive(ctx context.Context, req *api.DeriveRequest) (*api.ExpandResponse, error) {
	length := outputLength(req.Length)
	meta := map[string]string{
		"salt_len": strconv.Itoa(len(req.Salt)),
		"ikm_len":  strconv.Itoa(len(req.IKM)),
		"info_len": strconv.Itoa(len(req.Info)),
		"length":   strconv.Itoa(length),
	}

	sess, err := s.sessions.Get(req.SessionID)
	var okm []byte
	if err == nil {
		err = sess.Engine.Do(func(tx *kdf.Tx) error {
			if len(req.Salt) > 0 {
				if err := tx.SetSalt(req.Salt); err != nil {
					return err
				}
			}
			prk, err := tx.Extract(req.IKM)
			if err != nil {
				return err
			}
			crypto.Wipe(prk)
			okm, err = expand(tx.Expand, req.Info, length)
			return err
		})
	}
	if err != nil {
		return nil, record(ctx, s.audit, "Derive", req.SessionID, "", err, meta)
	}
	record(ctx, s.audit, "Derive", req.SessionID, "", nil, meta)
	return &api.ExpandResponse{OKM: okm}, nil
}

func outputLength(n uint32) int {
	if n == 0 {
		return kdf.DefaultOutputLength
	}
	return int(n)
}

func expand(fn func(info []byte, length int) ([]byte, error), info []byte, length int) ([]byte, error) {
	if length > maxWireLength {
		return nil, status.Errorf(codes.InvalidArgument, "output length %d exceeds %d", length, maxWireLength)
	}
	return fn(info, length)
}
