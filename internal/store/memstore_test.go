package store

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysubinoy/remotekv/pkg/kv"
)

func TestMemStoreMissingKey(t *testing.T) {
	s := NewMemStore()

	resp, err := s.Get("nope")
	require.NoError(t, err)
	require.Equal(t, kv.NotFound("nope"), resp)

	resp, err = s.Delete("nope")
	require.NoError(t, err)
	require.Equal(t, kv.StatusNotFound, resp.Status)
	require.Equal(t, 0, s.Len())
}

func TestMemStorePutGetOverwrite(t *testing.T) {
	s := NewMemStore()

	resp, err := s.Put("key5", "value5")
	require.NoError(t, err)
	require.Equal(t, kv.PutOK("key5", "value5"), resp)

	_, err = s.Put("key5", "value6")
	require.NoError(t, err)

	resp, err = s.Get("key5")
	require.NoError(t, err)
	require.Equal(t, kv.GetOK("key5", "value6"), resp)
	require.Equal(t, 1, s.Len())
}

func TestMemStoreDeleteTwice(t *testing.T) {
	s := NewMemStore()
	_, _ = s.Put("key1", "value1")

	resp, _ := s.Delete("key1")
	require.Equal(t, kv.DeleteOK("key1"), resp)

	resp, _ = s.Get("key1")
	require.Equal(t, kv.StatusNotFound, resp.Status)

	// A second delete must not look like the first one.
	resp, _ = s.Delete("key1")
	require.Equal(t, kv.NotFound("key1"), resp)
}

func TestMemStoreEmptyStrings(t *testing.T) {
	s := NewMemStore()
	_, _ = s.Put("", "")

	resp, _ := s.Get("")
	require.Equal(t, kv.StatusOK, resp.Status)
}

func TestMemStoreConcurrentDistinctKeys(t *testing.T) {
	s := NewMemStore()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := s.Put(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
			assert.NoError(t, err)
			assert.True(t, resp.OK())
		}(i)
	}
	wg.Wait()

	require.Equal(t, n, s.Len())
	for i := 0; i < n; i++ {
		resp, _ := s.Get(fmt.Sprintf("key%d", i))
		require.Equal(t, kv.GetOK(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i)), resp)
	}
}

func TestMemStoreConcurrentSameKey(t *testing.T) {
	s := NewMemStore()
	const n = 200

	written := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		written[fmt.Sprintf("value%d", i)] = true
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Put("shared", fmt.Sprintf("value%d", i))
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, s.Len())
	got := s.Snapshot()["shared"]
	require.True(t, written[got], "unexpected value %q", got)
}

func TestMemStoreDeleteRacingGet(t *testing.T) {
	s := NewMemStore()
	_, _ = s.Put("k", "v")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.Delete("k")
	}()

	var resp kv.Response
	go func() {
		defer wg.Done()
		resp, _ = s.Get("k")
	}()
	wg.Wait()

	if resp.OK() {
		require.Equal(t, kv.GetOK("k", "v"), resp)
	} else {
		require.Equal(t, kv.NotFound("k"), resp)
	}
}

func TestMemStoreSnapshotRestore(t *testing.T) {
	s := NewMemStore()
	_, _ = s.Put("a", "1")

	snap := s.Snapshot()
	snap["b"] = "2"
	require.Equal(t, 1, s.Len(), "snapshot must be a copy")

	s.Restore(snap)
	require.Equal(t, 2, s.Len())
	resp, _ := s.Get("b")
	require.True(t, strings.HasSuffix(resp.Message, "value = 2"))
}

func BenchmarkMemStore_Put(b *testing.B) {
	s := NewMemStore()
	for i := 0; i < b.N; i++ {
		_, _ = s.Put(randomKey(), "testVal")
	}

	opsPerSec := float64(b.N) / b.Elapsed().Seconds()
	b.ReportMetric(opsPerSec, "ops/s")
}

func BenchmarkMemStore_GetParallel(b *testing.B) {
	s := NewMemStore()
	for i := 0; i < 100_000; i++ {
		_, _ = s.Put(randomKey(), "testVal")
	}
	_, _ = s.Put("Foxtrot", "testVal")
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = s.Get("Foxtrot")
		}
	})

	opsPerSec := float64(b.N) / b.Elapsed().Seconds()
	b.ReportMetric(opsPerSec, "ops/s")
}

func randomKey() string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 10)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b)
}
