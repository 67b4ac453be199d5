package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/heysubinoy/remotekv/internal/store"
	"github.com/heysubinoy/remotekv/pkg/client"
	"github.com/heysubinoy/remotekv/pkg/kv"
)

// storeCaller runs requests straight against a MemStore.
type storeCaller struct {
	s *store.MemStore
}

func (c storeCaller) Do(_ context.Context, req kv.Request) (kv.Response, error) {
	if err := req.Validate(); err != nil {
		return kv.Response{}, err
	}
	switch req.Op {
	case kv.OpPut:
		return c.s.Put(req.Key, req.Value)
	case kv.OpGet:
		return c.s.Get(req.Key)
	default:
		return c.s.Delete(req.Key)
	}
}

type errCaller struct{ err error }

func (c errCaller) Do(context.Context, kv.Request) (kv.Response, error) {
	return kv.Response{}, c.err
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 2, 3, 4, 5, 6*int(time.Millisecond), time.UTC)
}

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestSessionMenu(t *testing.T) {
	in := strings.Join([]string{
		"1", "key1", "value1",
		"2", "key1",
		"3", "key1",
		"2", "key1",
		"9",
		"4",
	}, "\n") + "\n"

	var out bytes.Buffer
	s := &Session{Caller: storeCaller{store.NewMemStore()}, In: strings.NewReader(in), Out: &out, Now: fixedNow}
	require.NoError(t, s.Run(context.Background()))

	got := out.String()
	require.Contains(t, got, "2024-01-02 03:04:05:006 "+kv.PutOK("key1", "value1").String())
	require.Contains(t, got, kv.GetOK("key1", "value1").String())
	require.Contains(t, got, kv.DeleteOK("key1").String())
	require.Contains(t, got, kv.NotFound("key1").String())
	require.Contains(t, got, "Please enter valid Input")
	require.Contains(t, got, "\n"+menu+"\n")
	require.True(t, strings.HasSuffix(got, "Client Closed\n"))
}

func TestSessionEndsOnEOF(t *testing.T) {
	var out bytes.Buffer
	s := &Session{Caller: storeCaller{store.NewMemStore()}, In: strings.NewReader("1\nhalf"), Out: &out}
	require.NoError(t, s.Run(context.Background()))
}

func TestSessionReportsFailureCategories(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want string
	}{
		{errors.Wrap(client.ErrUnreachable, "refused"), "Unable to connect to the Server."},
		{errors.Wrap(client.ErrMalformedResponse, "payload"), "Received malformed response from the server"},
		{errors.Mark(errors.New("remote call failed: boom"), client.ErrRemoteCall), "remote call failed: boom"},
		{kv.ErrInvalidRequestType, "Please enter valid request type"},
	} {
		var out bytes.Buffer
		s := &Session{Caller: errCaller{tc.err}, Out: &out, Now: fixedNow}
		s.Send(context.Background(), kv.Request{Op: kv.OpGet, Key: "k"})
		require.Equal(t, "2024-01-02 03:04:05:006 "+tc.want+"\n", out.String())
	}
}

func TestPrepopulate(t *testing.T) {
	ms := store.NewMemStore()
	var out bytes.Buffer
	s := &Session{Caller: storeCaller{ms}, Out: &out, Now: fixedNow}
	s.Prepopulate(context.Background())

	require.Equal(t, map[string]string{"key2": "value2", "key3": "value3", "key5": "value6"}, ms.Snapshot())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(PrepopulateScript))
	require.Contains(t, lines[len(lines)-1], kv.NotFound("INVALID").String())
}
