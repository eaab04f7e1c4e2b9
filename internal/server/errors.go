package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/glinharesb/hkdf-vault/internal/audit"
	"github.com/glinharesb/hkdf-vault/internal/kdf"
	"github.com/glinharesb/hkdf-vault/internal/keystore"
	"github.com/glinharesb/hkdf-vault/internal/session"
)

// toStatus maps core error kinds onto gRPC codes. Errors that already carry
// a status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, kdf.ErrInvalidLength), errors.Is(err, keystore.ErrInvalidLength):
		code = codes.InvalidArgument
	case errors.Is(err, kdf.ErrPreconditionNotMet):
		code = codes.FailedPrecondition
	case errors.Is(err, kdf.ErrOutputTooLarge):
		code = codes.OutOfRange
	case errors.Is(err, keystore.ErrUnsupportedAlgorithm):
		code = codes.Unimplemented
	case errors.Is(err, session.ErrNotFound), errors.Is(err, keystore.ErrStoreDestroyed):
		code = codes.NotFound
	case errors.Is(err, session.ErrLimit):
		code = codes.ResourceExhausted
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// record writes one audit entry for an RPC outcome and returns err mapped to
// a status. meta must never hold secret bytes.
func record(ctx context.Context, logger *audit.Logger, op, sessionID, subject string, err error, meta map[string]string) error {
	err = toStatus(err)
	logger.Log(audit.Record{
		Operation:   op,
		SessionID:   sessionID,
		Subject:     subject,
		Status:      status.Code(err).String(),
		PeerAddress: peerAddr(ctx),
		Metadata:    meta,
	})
	return err
}
