package proxy

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName  = "papier.proxy.v1.Proxy"
	invokeMethod = "/" + serviceName + "/Invoke"
)

// proxyServer has a single unary method carrying a JSON encoded request and response.
type proxyServer interface {
	Invoke(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

func invokeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(proxyServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: invokeMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(proxyServer).Invoke(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*proxyServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Invoke",
			Handler:    invokeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "papier/proxy/v1/proxy.proto",
}

type grpcReceiver struct {
	receiver *Receiver
}

// RegisterGrpcReceiver serves the requests of remote clients on s.
func RegisterGrpcReceiver(s *grpc.Server, receiver *Receiver) {
	s.RegisterService(&serviceDesc, &grpcReceiver{receiver: receiver})
}

func (g *grpcReceiver) Invoke(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req Request
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "unable to decode request: %v", err)
	}
	if req.Op == OpStop {
		return nil, status.Error(codes.PermissionDenied, "the server lifecycle is not remotely controllable")
	}
	raw, err := json.Marshal(g.receiver.Handle(&req))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "unable to encode response: %v", err)
	}
	return wrapperspb.Bytes(raw), nil
}

// GrpcChannel reaches a receiver registered on a remote gRPC server.
type GrpcChannel struct {
	conn *grpc.ClientConn
}

func DialGrpc(target string, opts ...grpc.DialOption) (*GrpcChannel, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &GrpcChannel{conn: conn}, nil
}

func (c *GrpcChannel) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, invokeMethod, wrapperspb.Bytes(raw), out); err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(out.GetValue(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GrpcChannel) Close() error {
	return c.conn.Close()
}
