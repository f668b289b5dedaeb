package resourcemgr

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSlots(t *testing.T, total, perHost int) *UploadSlots {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxUploads = total
	cfg.MaxUploadsPerHost = perHost
	u, err := NewUploadSlots(cfg)
	require.NoError(t, err)
	return u
}

func TestNewUploadSlots_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxUploadsPerHost = cfg.MaxUploads + 1
	_, err := NewUploadSlots(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestUploadSlots_PerHostLimit(t *testing.T) {
	u := newTestSlots(t, 4, 2)
	a := netip.MustParseAddr("10.0.0.1")
	b := netip.MustParseAddr("10.0.0.2")

	assert.True(t, u.TryReserveSlot(a, 50*time.Millisecond))
	require.NoError(t, u.BeginUpload(a))
	require.NoError(t, u.BeginUpload(a))

	// 单地址已满
	assert.False(t, u.TryReserveSlot(a, 50*time.Millisecond))
	assert.ErrorIs(t, u.BeginUpload(a), ErrUploadLimitExceeded)
	assert.True(t, u.TryReserveSlot(b, 50*time.Millisecond))

	u.EndUpload(a)
	assert.True(t, u.TryReserveSlot(a, 50*time.Millisecond))
	assert.Equal(t, 1, u.ActiveFor(a))
	assert.Equal(t, 1, u.Active())
}

func TestUploadSlots_TotalLimit(t *testing.T) {
	u := newTestSlots(t, 2, 1)
	require.NoError(t, u.BeginUpload(netip.MustParseAddr("10.0.0.1")))
	require.NoError(t, u.BeginUpload(netip.MustParseAddr("10.0.0.2")))

	assert.False(t, u.TryReserveSlot(netip.MustParseAddr("10.0.0.3"), 50*time.Millisecond))
}

func TestUploadSlots_EndUnknownIsHarmless(t *testing.T) {
	u := newTestSlots(t, 2, 1)
	u.EndUpload(netip.MustParseAddr("10.0.0.9"))
	assert.Equal(t, 0, u.Active())
}

func TestUploadSlots_LockContentionTimesOut(t *testing.T) {
	u := newTestSlots(t, 2, 1)

	// 外部长时间持有传输表锁
	require.NoError(t, u.lock.Acquire(context.Background(), 1))
	defer u.lock.Release(1)

	start := time.Now()
	ok := u.TryReserveSlot(netip.MustParseAddr("10.0.0.1"), 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestUploadSlots_Closed(t *testing.T) {
	u := newTestSlots(t, 2, 1)
	require.NoError(t, u.Close())

	assert.False(t, u.TryReserveSlot(netip.MustParseAddr("10.0.0.1"), 0))
	assert.ErrorIs(t, u.BeginUpload(netip.MustParseAddr("10.0.0.1")), ErrSlotsClosed)
}

func TestUploadSlots_Concurrent(t *testing.T) {
	u := newTestSlots(t, 64, 64)
	addr := netip.MustParseAddr("10.0.0.1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if u.BeginUpload(addr) == nil {
				u.EndUpload(addr)
			}
		}()
		go func() {
			defer wg.Done()
			u.TryReserveSlot(addr, 100*time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, u.Active())
}
