package handshake

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/types"
)

func TestRegistry_AddDuplicate(t *testing.T) {
	r := NewRegistry()
	s := newFakeSession(endpoint(t, "10.0.0.1:6346"))

	require.NoError(t, r.Add(s))
	assert.ErrorIs(t, r.Add(s), ErrDuplicateSession)
	assert.ErrorIs(t, r.Add(nil), ErrNilSession)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RemoveClosesOnce(t *testing.T) {
	r := NewRegistry()
	s := newFakeSession(endpoint(t, "10.0.0.1:6346"))
	require.NoError(t, r.Add(s))

	assert.True(t, r.Remove(s))
	assert.False(t, r.Remove(s))
	assert.Equal(t, int32(1), s.closes.Load())
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ContainsIgnoresPort(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(newFakeSession(endpoint(t, "10.0.0.1:6346"))))

	assert.True(t, r.Contains(netip.MustParseAddr("10.0.0.1")))
	assert.True(t, r.Contains(netip.MustParseAddr("::ffff:10.0.0.1")))
	assert.False(t, r.Contains(netip.MustParseAddr("10.0.0.2")))
}

func TestRegistry_PumpRemovesDoneKeepsOrder(t *testing.T) {
	r := NewRegistry()
	var sessions []*fakeSession
	for i := 0; i < 4; i++ {
		s := newFakeSession(types.NewEndpoint(netip.AddrFrom4([4]byte{10, 0, 0, byte(i + 1)}), 6346))
		sessions = append(sessions, s)
		require.NoError(t, r.Add(s))
	}
	sessions[1].advanceFn = func() types.AdvanceResult { return types.Done }

	st, ok := r.Pump(context.Background())
	require.True(t, ok)
	assert.Equal(t, PumpStats{Advanced: 4, Removed: 1, Remaining: 3}, st)

	got := r.Sessions()
	require.Len(t, got, 3)
	assert.Equal(t, sessions[0].ID(), got[0].ID())
	assert.Equal(t, sessions[2].ID(), got[1].ID())
	assert.Equal(t, sessions[3].ID(), got[2].ID())
	assert.Equal(t, int32(1), sessions[1].closes.Load())
	assert.Equal(t, int32(0), sessions[0].closes.Load())
}

func TestRegistry_PumpSurvivesPanic(t *testing.T) {
	r := NewRegistry()
	bad := newFakeSession(endpoint(t, "10.0.0.1:1"))
	bad.advanceFn = func() types.AdvanceResult { panic("boom") }
	good := newFakeSession(endpoint(t, "10.0.0.2:1"))
	require.NoError(t, r.Add(bad))
	require.NoError(t, r.Add(good))

	st, ok := r.Pump(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, st.Panicked)
	assert.Equal(t, 1, st.Removed)
	assert.Equal(t, int32(1), good.advances.Load())
	assert.Equal(t, int32(1), bad.closes.Load())
	assert.False(t, r.Contains(netip.MustParseAddr("10.0.0.1")))
}

func TestRegistry_PumpLockTimeout(t *testing.T) {
	r := NewRegistry()
	s := newFakeSession(endpoint(t, "10.0.0.1:1"))
	require.NoError(t, r.Add(s))

	// 其他线程长期持有注册表锁
	r.acquire()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, ok := r.Pump(ctx)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(0), s.advances.Load())

	r.release()
	_, ok = r.Pump(context.Background())
	assert.True(t, ok)
	assert.Equal(t, int32(1), s.advances.Load())
}

func TestRegistry_ClearReleasesAll(t *testing.T) {
	r := NewRegistry()
	var sessions []*fakeSession
	for i := 0; i < 3; i++ {
		s := newFakeSession(endpoint(t, "10.0.0.1:1"))
		sessions = append(sessions, s)
		require.NoError(t, r.Add(s))
	}

	n, err := r.Clear()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 0, r.Len())
	for _, s := range sessions {
		assert.Equal(t, int32(1), s.closes.Load())
	}

	// 清空后同一会话可以重新注册
	require.NoError(t, r.Add(sessions[0]))
}

func TestRegistry_CloseRejectsAddUntilReopen(t *testing.T) {
	r := NewRegistry()
	s := newFakeSession(endpoint(t, "10.0.0.1:1"))
	require.NoError(t, r.Add(s))

	tracker := NewStabilityTracker()
	tracker.RecordAccepted()
	var locked bool
	n, err := r.Close(func() {
		// 钩子在持有注册表锁时执行
		locked = !r.lock.TryAcquire(1)
		tracker.Reset()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, locked)
	assert.Equal(t, uint64(0), tracker.Accepted())
	assert.Equal(t, int32(1), s.closes.Load())

	late := newFakeSession(endpoint(t, "10.0.0.2:1"))
	assert.ErrorIs(t, r.Add(late), ErrNotListening)
	assert.Equal(t, 0, r.Len())

	r.Reopen()
	require.NoError(t, r.Add(late))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ForEachStops(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Add(newFakeSession(endpoint(t, "10.0.0.1:1"))))
	}

	visited := 0
	r.ForEach(func(interfaces.Session) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	ep := endpoint(t, "10.0.0.1:1")
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			s := newFakeSession(ep)
			if r.Add(s) == nil {
				r.Remove(s)
			}
		}()
		go func() {
			defer wg.Done()
			r.Pump(context.Background())
		}()
		go func() {
			defer wg.Done()
			r.Contains(netip.MustParseAddr("10.0.0.1"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
