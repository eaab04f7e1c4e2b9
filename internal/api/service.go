package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/glinharesb/hkdf-vault/internal/audit"
)

const (
	KDFServiceName   = "hkdf.v1.KDFService"
	KeyServiceName   = "hkdf.v1.KeyService"
	AuditServiceName = "hkdf.v1.AuditService"
)

// KDFServer drives the engine of one session per call.
type KDFServer interface {
	OpenSession(context.Context, *emptypb.Empty) (*SessionResponse, error)
	CloseSession(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	State(context.Context, *SessionRequest) (*StateResponse, error)
	SetSalt(context.Context, *SetSaltRequest) (*StateResponse, error)
	Extract(context.Context, *ExtractRequest) (*PRKResponse, error)
	Expand(context.Context, *ExpandRequest) (*ExpandResponse, error)
	Rotate(context.Context, *SessionRequest) (*PRKResponse, error)
	Derive(context.Context, *DeriveRequest) (*ExpandResponse, error)
}

// KeyServer manages the key store of one session per call.
type KeyServer interface {
	GetKey(context.Context, *KeyRequest) (*KeyMetadata, error)
	DeleteKey(context.Context, *KeyRequest) (*emptypb.Empty, error)
	UpdateKey(context.Context, *KeyRequest) (*KeyMetadata, error)
	ListKeys(context.Context, *SessionRequest) (*ListKeysResponse, error)
}

type AuditServer interface {
	QueryAudit(context.Context, *QueryAuditRequest) (*QueryAuditResponse, error)
	StreamAudit(*StreamAuditRequest, grpc.ServerStreamingServer[audit.Entry]) error
}

var KDFServiceDesc = grpc.ServiceDesc{
	ServiceName: KDFServiceName,
	HandlerType: (*KDFServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(KDFServiceName, "OpenSession", KDFServer.OpenSession),
		unary(KDFServiceName, "CloseSession", KDFServer.CloseSession),
		unary(KDFServiceName, "State", KDFServer.State),
		unary(KDFServiceName, "SetSalt", KDFServer.SetSalt),
		unary(KDFServiceName, "Extract", KDFServer.Extract),
		unary(KDFServiceName, "Expand", KDFServer.Expand),
		unary(KDFServiceName, "Rotate", KDFServer.Rotate),
		unary(KDFServiceName, "Derive", KDFServer.Derive),
	},
	Metadata: "hkdf/v1/kdf",
}

var KeyServiceDesc = grpc.ServiceDesc{
	ServiceName: KeyServiceName,
	HandlerType: (*KeyServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(KeyServiceName, "GetKey", KeyServer.GetKey),
		unary(KeyServiceName, "DeleteKey", KeyServer.DeleteKey),
		unary(KeyServiceName, "UpdateKey", KeyServer.UpdateKey),
		unary(KeyServiceName, "ListKeys", KeyServer.ListKeys),
	},
	Metadata: "hkdf/v1/keys",
}

var AuditServiceDesc = grpc.ServiceDesc{
	ServiceName: AuditServiceName,
	HandlerType: (*AuditServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(AuditServiceName, "QueryAudit", AuditServer.QueryAudit),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamAudit",
			Handler:       streamAuditHandler,
			ServerStreams: true,
		},
	},
	Metadata: "hkdf/v1/audit",
}

func RegisterKDFServer(s grpc.ServiceRegistrar, srv KDFServer) {
	s.RegisterService(&KDFServiceDesc, srv)
}

func RegisterKeyServer(s grpc.ServiceRegistrar, srv KeyServer) {
	s.RegisterService(&KeyServiceDesc, srv)
}

func RegisterAuditServer(s grpc.ServiceRegistrar, srv AuditServer) {
	s.RegisterService(&AuditServiceDesc, srv)
}

// unary builds the method descriptor for one RPC. call is a method
// expression such as KDFServer.Expand.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func streamAuditHandler(srv any, stream grpc.ServerStream) error {
	in := new(StreamAuditRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(AuditServer).StreamAudit(in, &grpc.GenericServerStream[StreamAuditRequest, audit.Entry]{ServerStream: stream})
}
