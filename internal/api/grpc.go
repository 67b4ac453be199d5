package api

import (
	"context"
	"net"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-hclog"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/heysubinoy/remotekv/internal/dispatch"
	"github.com/heysubinoy/remotekv/pkg/kv"
	"github.com/heysubinoy/remotekv/pkg/kvrpc"
)

// GRPCServer implements the kvrpc.KVServer interface.
// It hands every call to a Dispatcher together with the caller's host.
type GRPCServer struct {
	Dispatcher *dispatch.Dispatcher
}

var _ kvrpc.KVServer = (*GRPCServer)(nil)

// NewGRPCServer creates a new gRPC server over the given dispatcher.
func NewGRPCServer(d *dispatch.Dispatcher) *GRPCServer {
	return &GRPCServer{
		Dispatcher: d,
	}
}

// Dispatch runs one request against the store.
func (s *GRPCServer) Dispatch(ctx context.Context, req *kv.Request) (*kv.Response, error) {
	resp, err := s.Dispatcher.Dispatch(ctx, callerHost(ctx), *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &resp, nil
}

func callerHost(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	return hostOf(p.Addr.String())
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, kv.ErrInvalidRequestType):
		st := status.New(codes.InvalidArgument, err.Error())
		if detailed, derr := st.WithDetails(&errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{{
				Field:       "op",
				Description: "must be one of put, get, delete",
			}},
		}); derr == nil {
			st = detailed
		}
		return st.Err()
	case errors.Is(err, kv.ErrInvalidEncoding):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// RecoveryInterceptor turns a panic in a handler into an Internal status so
// one bad call cannot take the server down.
func RecoveryInterceptor(logger hclog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in handler", "method", info.FullMethod, "panic", r)
				err = status.Errorf(codes.Internal, "internal error in %s", info.FullMethod)
			}
		}()
		return handler(ctx, req)
	}
}
