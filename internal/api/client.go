package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/glinharesb/hkdf-vault/internal/audit"
)

// Client is a typed wrapper over a connection to an hkdf-vault server.
type Client struct {
	cc grpc.ClientConnInterface
}

// DialOptions returns the options a connection needs: the JSON content
// subtype and, when token is set, bearer authentication.
func DialOptions(token string) []grpc.DialOption {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	if token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerToken(token)))
	}
	return opts
}

// Dial connects to addr. The caller closes the returned connection.
func Dial(addr, token string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, DialOptions(token)...)
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn), conn, nil
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) OpenSession(ctx context.Context) (*SessionResponse, error) {
	out := new(SessionResponse)
	err := c.cc.Invoke(ctx, "/"+KDFServiceName+"/OpenSession", &emptypb.Empty{}, out)
	return out, err
}

func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	return c.cc.Invoke(ctx, "/"+KDFServiceName+"/CloseSession", wrapperspb.String(sessionID), &emptypb.Empty{})
}

func (c *Client) State(ctx context.Context, sessionID string) (*StateResponse, error) {
	out := new(StateResponse)
	err := c.cc.Invoke(ctx, "/"+KDFServiceName+"/State", &SessionRequest{SessionID: sessionID}, out)
	return out, err
}

func (c *Client) SetSalt(ctx context.Context, sessionID string, salt []byte) (*StateResponse, error) {
	out := new(StateResponse)
	err := c.cc.Invoke(ctx, "/"+KDFServiceName+"/SetSalt", &SetSaltRequest{SessionID: sessionID, Salt: salt}, out)
	return out, err
}

func (c *Client) Extract(ctx context.Context, sessionID string, ikm []byte) (*PRKResponse, error) {
	out := new(PRKResponse)
	err := c.cc.Invoke(ctx, "/"+KDFServiceName+"/Extract", &ExtractRequest{SessionID: sessionID, IKM: ikm}, out)
	return out, err
}

func (c *Client) Expand(ctx context.Context, req *ExpandRequest) (*ExpandResponse, error) {
	out := new(ExpandResponse)
	err := c.cc.Invoke(ctx, "/"+KDFServiceName+"/Expand", req, out)
	return out, err
}

func (c *Client) Rotate(ctx context.Context, sessionID string) (*PRKResponse, error) {
	out := new(PRKResponse)
	err := c.cc.Invoke(ctx, "/"+KDFServiceName+"/Rotate", &SessionRequest{SessionID: sessionID}, out)
	return out, err
}

func (c *Client) Derive(ctx context.Context, req *DeriveRequest) (*ExpandResponse, error) {
	out := new(ExpandResponse)
	err := c.cc.Invoke(ctx, "/"+KDFServiceName+"/Derive", req, out)
	return out, err
}

func (c *Client) GetKey(ctx context.Context, req *KeyRequest) (*KeyMetadata, error) {
	out := new(KeyMetadata)
	err := c.cc.Invoke(ctx, "/"+KeyServiceName+"/GetKey", req, out)
	return out, err
}

func (c *Client) DeleteKey(ctx context.Context, req *KeyRequest) error {
	return c.cc.Invoke(ctx, "/"+KeyServiceName+"/DeleteKey", req, &emptypb.Empty{})
}

func (c *Client) UpdateKey(ctx context.Context, req *KeyRequest) (*KeyMetadata, error) {
	out := new(KeyMetadata)
	err := c.cc.Invoke(ctx, "/"+KeyServiceName+"/UpdateKey", req, out)
	return out, err
}

func (c *Client) ListKeys(ctx context.Context, sessionID string) (*ListKeysResponse, error) {
	out := new(ListKeysResponse)
	err := c.cc.Invoke(ctx, "/"+KeyServiceName+"/ListKeys", &SessionRequest{SessionID: sessionID}, out)
	return out, err
}

func (c *Client) QueryAudit(ctx context.Context, req *QueryAuditRequest) (*QueryAuditResponse, error) {
	out := new(QueryAuditResponse)
	err := c.cc.Invoke(ctx, "/"+AuditServiceName+"/QueryAudit", req, out)
	return out, err
}

// StreamAudit follows new audit entries until ctx is cancelled.
func (c *Client) StreamAudit(ctx context.Context, req *StreamAuditRequest) (grpc.ServerStreamingClient[audit.Entry], error) {
	stream, err := c.cc.NewStream(ctx, &AuditServiceDesc.Streams[0], "/"+AuditServiceName+"/StreamAudit")
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[StreamAuditRequest, audit.Entry]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Health reports the serving status of service ("" for the whole server).
func (c *Client) Health(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := healthpb.NewHealthClient(c.cc).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

type bearerToken string

func (t bearerToken) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(t)}, nil
}

func (bearerToken) RequireTransportSecurity() bool {
	return false
}
