package store

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/heysubinoy/remotekv/pkg/kv"
)

// statusError labels operations that failed inside the backend.
const statusError = "error"

// InstrumentedStore wraps any kv.Store implementation with Prometheus
// metrics. This pattern works for both the in-memory and Raft-backed stores.
type InstrumentedStore struct {
	store    kv.Store
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Compile-time check to ensure InstrumentedStore implements kv.Store.
var _ kv.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps a store and registers its collectors with reg.
func NewInstrumentedStore(store kv.Store, reg prometheus.Registerer) (*InstrumentedStore, error) {
	s := &InstrumentedStore{
		store: store,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remotekv",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by op and response status.",
		}, []string{"op", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "remotekv",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency of store operations.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{s.ops, s.duration} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering store metrics")
		}
	}
	return s, nil
}

// Put delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Put(key, value string) (kv.Response, error) {
	start := time.Now()
	resp, err := s.store.Put(key, value)
	s.observe(kv.OpPut, start, resp, err)
	return resp, err
}

// Get delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Get(key string) (kv.Response, error) {
	start := time.Now()
	resp, err := s.store.Get(key)
	s.observe(kv.OpGet, start, resp, err)
	return resp, err
}

// Delete delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Delete(key string) (kv.Response, error) {
	start := time.Now()
	resp, err := s.store.Delete(key)
	s.observe(kv.OpDelete, start, resp, err)
	return resp, err
}

func (s *InstrumentedStore) observe(op kv.Op, start time.Time, resp kv.Response, err error) {
	s.duration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())

	status := resp.Status
	if err != nil {
		status = statusError
	}
	s.ops.WithLabelValues(string(op), status).Inc()
}
