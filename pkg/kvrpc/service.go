// Package kvrpc describes the KV remote-call service: its gRPC descriptor,
// its wire codec and a thin client stub. The service is registered under a
// caller-chosen name so several named stores can share one gRPC server.
package kvrpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	"github.com/heysubinoy/remotekv/pkg/kv"
)

// ServicePrefix is prepended to the bound service name.
const ServicePrefix = "remotekv."

// DispatchMethod is the single RPC of the service.
const DispatchMethod = "Dispatch"

// ServiceName returns the fully qualified gRPC service name for name.
func ServiceName(name string) string {
	return ServicePrefix + name
}

// FullMethod returns the method path used on the wire for name.
func FullMethod(name string) string {
	return "/" + ServiceName(name) + "/" + DispatchMethod
}

// KVServer is the server-side API of the service.
type KVServer interface {
	Dispatch(ctx context.Context, req *kv.Request) (*kv.Response, error)
}

// RegisterKVServer binds srv under name on s.
func RegisterKVServer(s grpc.ServiceRegistrar, name string, srv KVServer) {
	fullMethod := FullMethod(name)
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName(name),
		HandlerType: (*KVServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: DispatchMethod,
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := new(kv.Request)
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return srv.(KVServer).Dispatch(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
					handler := func(ctx context.Context, req any) (any, error) {
						return srv.(KVServer).Dispatch(ctx, req.(*kv.Request))
					}
					return interceptor(ctx, in, info, handler)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "remotekv",
	}, srv)
}

// Invoke calls the service bound under name and returns the raw reply
// payload. Decoding is left to the caller so a reply of the wrong shape can
// be told apart from a failed call.
func Invoke(ctx context.Context, cc grpc.ClientConnInterface, name string, req *kv.Request, opts ...grpc.CallOption) (json.RawMessage, error) {
	var out json.RawMessage
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(name), req, &out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
