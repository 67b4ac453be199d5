package store

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"

	"github.com/heysubinoy/remotekv/pkg/kv"
)

// RaftOptions configures a RaftStore.
type RaftOptions struct {
	NodeID       string
	ApplyTimeout time.Duration
	Logger       hclog.Logger
}

// raftCommand is one store operation as it is written to the Raft log.
type raftCommand struct {
	Op    kv.Op  `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// RaftStore sequences every operation, reads included, through a
// single-voter Raft log and applies it to a MemStore from the FSM goroutine.
// Log, stable and snapshot storage are all in memory: nothing survives a
// restart and there are no peers.
type RaftStore struct {
	fsm       *fsm
	raft      *raft.Raft
	transport *raft.InmemTransport
	timeout   time.Duration
}

// Compile-time check to ensure RaftStore implements kv.Store.
var _ kv.Store = (*RaftStore)(nil)

// OpenRaftStore bootstraps a single-node cluster and blocks until the node
// has become leader or ctx is done.
func OpenRaftStore(ctx context.Context, opts RaftOptions) (*RaftStore, error) {
	if opts.NodeID == "" {
		opts.NodeID = "node-1"
	}
	if opts.ApplyTimeout <= 0 {
		opts.ApplyTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	conf := raft.DefaultConfig()
	conf.LocalID = raft.ServerID(opts.NodeID)
	conf.Logger = opts.Logger
	conf.HeartbeatTimeout = 100 * time.Millisecond
	conf.ElectionTimeout = 100 * time.Millisecond
	conf.LeaderLeaseTimeout = 100 * time.Millisecond
	conf.CommitTimeout = 5 * time.Millisecond

	logs := raft.NewInmemStore()
	snaps := raft.NewInmemSnapshotStore()
	addr, transport := raft.NewInmemTransport("")

	f := &fsm{store: NewMemStore()}
	r, err := raft.NewRaft(conf, f, logs, logs, snaps, transport)
	if err != nil {
		transport.Close()
		return nil, errors.Wrap(err, "starting raft")
	}

	rs := &RaftStore{fsm: f, raft: r, transport: transport, timeout: opts.ApplyTimeout}

	bootstrap := raft.Configuration{
		Servers: []raft.Server{{ID: conf.LocalID, Address: addr}},
	}
	if err := r.BootstrapCluster(bootstrap).Error(); err != nil {
		_ = rs.Close()
		return nil, errors.Wrap(err, "bootstrapping raft")
	}
	if err := rs.waitLeader(ctx); err != nil {
		_ = rs.Close()
		return nil, err
	}
	return rs, nil
}

func (rs *RaftStore) waitLeader(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if rs.raft.State() == raft.Leader {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for raft leadership")
		case <-ticker.C:
		}
	}
}

// Put submits a put command to Raft.
func (rs *RaftStore) Put(key, value string) (kv.Response, error) {
	return rs.apply(raftCommand{Op: kv.OpPut, Key: key, Value: value})
}

// Get submits a get command to Raft so it is ordered with the writes.
func (rs *RaftStore) Get(key string) (kv.Response, error) {
	return rs.apply(raftCommand{Op: kv.OpGet, Key: key})
}

// Delete submits a delete command to Raft.
func (rs *RaftStore) Delete(key string) (kv.Response, error) {
	return rs.apply(raftCommand{Op: kv.OpDelete, Key: key})
}

func (rs *RaftStore) apply(cmd raftCommand) (kv.Response, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return kv.Response{}, errors.Wrap(err, "encoding raft command")
	}

	future := rs.raft.Apply(data, rs.timeout)
	if err := future.Error(); err != nil {
		return kv.Response{}, errors.Wrapf(err, "applying %s", cmd.Op)
	}

	switch v := future.Response().(type) {
	case kv.Response:
		return v, nil
	case error:
		return kv.Response{}, v
	default:
		return kv.Response{}, errors.Newf("unexpected fsm response %T", v)
	}
}

// Len returns the number of entries in the applied state.
func (rs *RaftStore) Len() int {
	return rs.fsm.store.Len()
}

// Close shuts down Raft and its transport.
func (rs *RaftStore) Close() error {
	err := rs.raft.Shutdown().Error()
	if cerr := rs.transport.Close(); err == nil {
		err = cerr
	}
	return errors.Wrap(err, "closing raft store")
}

// fsm applies committed commands to the wrapped MemStore.
type fsm struct {
	store *MemStore
}

// Apply applies a Raft log entry to the local store.
func (f *fsm) Apply(log *raft.Log) interface{} {
	var cmd raftCommand
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return errors.Wrap(err, "decoding raft command")
	}

	var (
		resp kv.Response
		err  error
	)
	switch cmd.Op {
	case kv.OpPut:
		resp, err = f.store.Put(cmd.Key, cmd.Value)
	case kv.OpGet:
		resp, err = f.store.Get(cmd.Key)
	case kv.OpDelete:
		resp, err = f.store.Delete(cmd.Key)
	default:
		return errors.Wrapf(kv.ErrInvalidRequestType, "%q", cmd.Op)
	}
	if err != nil {
		return err
	}
	return resp
}

func (f *fsm) Snapshot() (raft.FSMSnapshot, error) {
	return &mapSnapshot{data: f.store.Snapshot()}, nil
}

func (f *fsm) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	data := make(map[string]string)
	if err := json.NewDecoder(rc).Decode(&data); err != nil {
		return errors.Wrap(err, "decoding snapshot")
	}
	f.store.Restore(data)
	return nil
}

type mapSnapshot struct {
	data map[string]string
}

func (s *mapSnapshot) Persist(sink raft.SnapshotSink) error {
	if err := json.NewEncoder(sink).Encode(s.data); err != nil {
		_ = sink.Cancel()
		return errors.Wrap(err, "writing snapshot")
	}
	return sink.Close()
}

func (s *mapSnapshot) Release() {}
