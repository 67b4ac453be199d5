// Package dispatch routes remote calls to the store and records each
// accepted call in the access log.
package dispatch

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-hclog"

	"github.com/heysubinoy/remotekv/internal/logging"
	"github.com/heysubinoy/remotekv/pkg/kv"
)

// Dispatcher is the remote-call boundary in front of a kv.Store.
// It is safe for concurrent use; serialization is the store's job.
type Dispatcher struct {
	store  kv.Store
	access *AccessLog
	logger hclog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAccessLog sets where access lines are written. Defaults to stdout.
func WithAccessLog(w io.Writer) Option {
	return func(d *Dispatcher) { d.access = NewAccessLog(w) }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l hclog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher over store.
func New(store kv.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		access: NewAccessLog(os.Stdout),
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch validates req, runs it against the store and logs the outcome.
// origin identifies the caller, usually its network host.
//
// An unknown op tag yields kv.ErrInvalidRequestType without touching the
// store. A not-found key is a normal Response, not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, origin string, req kv.Request) (kv.Response, error) {
	if err := req.Validate(); err != nil {
		d.logger.Warn("rejected request", "origin", origin, "op", req.Op, "error", err)
		return kv.Response{}, err
	}
	// A call abandoned by the transport never reaches the store.
	if err := ctx.Err(); err != nil {
		return kv.Response{}, errors.Wrapf(err, "%s %q", req.Op, req.Key)
	}

	var (
		resp kv.Response
		err  error
	)
	switch req.Op {
	case kv.OpPut:
		resp, err = d.store.Put(req.Key, req.Value)
	case kv.OpGet:
		resp, err = d.store.Get(req.Key)
	case kv.OpDelete:
		resp, err = d.store.Delete(req.Key)
	}
	if err != nil {
		d.logger.Error("store operation failed", "origin", origin, "op", req.Op, "key", req.Key, "error", err)
		return kv.Response{}, errors.Wrapf(err, "%s %q", req.Op, req.Key)
	}

	d.access.Record(time.Now(), origin, req, resp)
	return resp, nil
}

// AccessLog writes one line per accepted call:
//
//	<timestamp> Received PUT REQUEST FROM <origin> with key = k and value = v Response{...}
type AccessLog struct {
	mu sync.Mutex
	w  io.Writer
}

// NewAccessLog returns an AccessLog writing to w.
func NewAccessLog(w io.Writer) *AccessLog {
	return &AccessLog{w: w}
}

// Record writes the access line for req. Write errors are dropped.
func (a *AccessLog) Record(at time.Time, origin string, req kv.Request, resp kv.Response) {
	var b strings.Builder
	b.WriteString(logging.Timestamp(at))
	b.WriteString(" Received ")
	b.WriteString(strings.ToUpper(string(req.Op)))
	b.WriteString(" REQUEST FROM ")
	b.WriteString(origin)
	b.WriteString(" with key = ")
	b.WriteString(req.Key)
	if req.Op == kv.OpPut {
		b.WriteString(" and value = ")
		b.WriteString(req.Value)
	}
	b.WriteByte(' ')
	b.WriteString(resp.String())
	b.WriteByte('\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = io.WriteString(a.w, b.String())
}
