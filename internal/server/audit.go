package server

import (
	"context"

	"google.golang.org/grpc"

	"github.com/glinharesb/hkdf-vault/internal/api"
	"github.com/glinharesb/hkdf-vault/internal/audit"
)

type AuditServer struct {
	logger *audit.Logger
}

func NewAuditServer(logger *audit.Logger) *AuditServer {
	return &AuditServer{logger: logger}
}

func (s *AuditServer) QueryAudit(ctx context.Context, req *api.QueryAuditRequest) (*api.QueryAuditResponse, error) {
	entries := s.logger.Query(audit.Filter{
		SessionID: req.SessionID,
		Operation: req.Operation,
		Start:     req.Start,
		End:       req.End,
		Limit:     int(req.Limit),
	})
	if entries == nil {
		entries = []audit.Entry{}
	}
	return &api.QueryAuditResponse{Entries: entries}, nil
}

func (s *AuditServer) StreamAudit(req *api.StreamAuditRequest, stream grpc.ServerStreamingServer[audit.Entry]) error {
	sub := s.logger.Subscribe()
	defer s.logger.Unsubscribe(sub)

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case entry, ok := <-sub.C:
			if !ok {
				return nil
			}
			if req.SessionID != "" && entry.SessionID != req.SessionID {
				continue
			}
			if err := stream.Send(&entry); err != nil {
				return err
			}
		}
	}
}
