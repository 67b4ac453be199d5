// Package client is the calling side of the KV service. It turns every
// failure into one of a small set of categories so callers can branch on
// errors.Is instead of parsing gRPC statuses.
package client

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/heysubinoy/remotekv/pkg/kv"
	"github.com/heysubinoy/remotekv/pkg/kvrpc"
)

var (
	// ErrUnreachable means the server could not be reached at all.
	ErrUnreachable = errors.New("unable to connect to the server")
	// ErrNotBound means the server is up but has no store under the name.
	ErrNotBound = errors.New("service name not bound")
	// ErrRemoteCall means the call reached the server but failed there or
	// could not be encoded. The error text carries the diagnostic.
	ErrRemoteCall = errors.New("remote call failed")
	// ErrMalformedResponse means the reply could not be read as a Response.
	ErrMalformedResponse = errors.New("received malformed response from the server")
)

// DefaultTimeout bounds a single call when no deadline is set on the context.
const DefaultTimeout = 5 * time.Second

// Client talks to one named store on one server.
type Client struct {
	conn    *grpc.ClientConn
	name    string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout  time.Duration
	dialOpts []grpc.DialOption
}

// WithTimeout bounds each call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithDialOptions appends gRPC dial options, e.g. a custom dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, opts...) }
}

// Address joins host and port into a dial target.
func Address(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// New creates a client for the store bound under name at addr. No
// connection is made until the first call; use Lookup to check eagerly.
func New(addr, name string, opts ...Option) (*Client, error) {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, o.dialOpts...)

	// passthrough keeps the address as-is instead of resolving it via DNS.
	conn, err := grpc.NewClient("passthrough:///"+addr, dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "creating client for %s", addr)
	}
	return &Client{conn: conn, name: name, timeout: o.timeout}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Lookup checks that the server is reachable and serves name.
func (c *Client) Lookup(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{
		Service: kvrpc.ServiceName(c.name),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.Wrapf(ErrNotBound, "%q", c.name)
		}
		return classify(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return errors.Wrapf(ErrNotBound, "%q is %s", c.name, resp.GetStatus())
	}
	return nil
}

// Put stores value under key.
func (c *Client) Put(ctx context.Context, key, value string) (kv.Response, error) {
	return c.Do(ctx, kv.Request{Op: kv.OpPut, Key: key, Value: value})
}

// Get fetches key.
func (c *Client) Get(ctx context.Context, key string) (kv.Response, error) {
	return c.Do(ctx, kv.Request{Op: kv.OpGet, Key: key})
}

// Delete removes key.
func (c *Client) Delete(ctx context.Context, key string) (kv.Response, error) {
	return c.Do(ctx, kv.Request{Op: kv.OpDelete, Key: key})
}

// Do sends req. An invalid op tag fails with kv.ErrInvalidRequestType and a
// key or value that is not valid UTF-8 with kv.ErrInvalidEncoding, both
// before anything is sent. A missing key is a StatusNotFound Response with
// a nil error.
func (c *Client) Do(ctx context.Context, req kv.Request) (kv.Response, error) {
	if err := req.Validate(); err != nil {
		return kv.Response{}, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := kvrpc.Invoke(ctx, c.conn, c.name, &req)
	if err != nil {
		return kv.Response{}, classify(err)
	}
	return decodeResponse(raw)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func decodeResponse(raw json.RawMessage) (kv.Response, error) {
	var resp *kv.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return kv.Response{}, errors.Mark(errors.Wrap(err, ErrMalformedResponse.Error()), ErrMalformedResponse)
	}
	if resp == nil || !resp.Valid() {
		return kv.Response{}, errors.Wrapf(ErrMalformedResponse, "payload %s", string(raw))
	}
	return *resp, nil
}

// classify maps a failed gRPC call onto the client's error categories.
func classify(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return errors.Mark(errors.Wrap(err, ErrRemoteCall.Error()), ErrRemoteCall)
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return errors.Mark(errors.Newf("%s: %s", ErrUnreachable.Error(), st.Message()), ErrUnreachable)
	case codes.InvalidArgument:
		if badOp(st) {
			return errors.Mark(errors.Newf("%s", st.Message()), kv.ErrInvalidRequestType)
		}
	}
	return errors.Mark(errors.Newf("%s: %s", ErrRemoteCall.Error(), st.Message()), ErrRemoteCall)
}

// badOp reports whether st carries a field violation on the op tag.
func badOp(st *status.Status) bool {
	for _, d := range st.Details() {
		br, ok := d.(*errdetails.BadRequest)
		if !ok {
			continue
		}
		for _, v := range br.GetFieldViolations() {
			if v.GetField() == "op" {
				return true
			}
		}
	}
	return false
}
