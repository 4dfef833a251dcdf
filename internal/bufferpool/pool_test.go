package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaspage/internal/storage"
)

// newTestPool creates a StorageManager and buffer pool over a temp directory.
func newTestPool(t *testing.T, capacity int, policy Policy) *Pool {
	t.Helper()

	sm := storage.NewStorageManager()
	fs := storage.LocalFileSet{
		Dir:  t.TempDir(),
		Base: "testfile",
	}
	require.NoError(t, sm.Create(fs))

	pool, err := NewPool(sm, fs, capacity, policy)
	require.NoError(t, err)
	return pool
}

func TestPool_GetPage_LoadsAndPins(t *testing.T) {
	pool := newTestPool(t, 4, PolicyLRU)

	buf1, err := pool.GetPage(0)
	require.NoError(t, err)
	require.Len(t, buf1, storage.PageSize)

	idx, ok := pool.pageTable[0]
	require.True(t, ok)
	frame := pool.frames[idx]
	require.NotNil(t, frame)
	require.Equal(t, int32(0), frame.PageNum)
	require.Equal(t, int32(1), frame.Pins.Get())
	require.False(t, frame.Dirty)

	// Second GetPage for the same page returns the same buffer and adds a pin.
	buf2, err := pool.GetPage(0)
	require.NoError(t, err)
	require.Same(t, &buf1[0], &buf2[0])
	require.Equal(t, int32(2), frame.Pins.Get())

	st := pool.Stats()
	require.Equal(t, uint64(2), st.LogicalReads)
	require.Equal(t, uint64(1), st.PhysicalReads)
}

func TestPool_GetPage_Full_NoFreeFrameError(t *testing.T) {
	pool := newTestPool(t, 1, PolicyClock)

	_, err := pool.GetPage(0)
	require.NoError(t, err)

	_, err = pool.GetPage(1)
	require.ErrorIs(t, err, ErrNoFreeFrame)
}

func TestPool_Unpin_NotPinned(t *testing.T) {
	pool := newTestPool(t, 2, PolicyLRU)

	require.ErrorIs(t, pool.Unpin(3, false), ErrPageNotPinned)

	_, err := pool.GetPage(0)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(0, false))
	require.ErrorIs(t, pool.Unpin(0, false), ErrPageNotPinned)
}

func TestPool_EvictDirtyFrameAndFlush(t *testing.T) {
	for _, policy := range []Policy{PolicyLRU, PolicyMRU, PolicyClock} {
		t.Run(string(policy), func(t *testing.T) {
			pool := newTestPool(t, 1, policy)

			buf0, err := pool.GetPage(0)
			require.NoError(t, err)
			buf0[0] = 42
			require.NoError(t, pool.Unpin(0, true))

			// Request page 1, forcing eviction of page 0.
			_, err = pool.GetPage(1)
			require.NoError(t, err)
			_, ok := pool.pageTable[0]
			require.False(t, ok)

			reloaded := make([]byte, storage.PageSize)
			require.NoError(t, pool.sm.ReadPage(pool.fs, 0, reloaded))
			require.Equal(t, byte(42), reloaded[0])

			st := pool.Stats()
			require.Equal(t, uint64(1), st.Evictions)
			require.Equal(t, uint64(1), st.PhysicalWrites)
		})
	}
}

func TestPool_LRUVictimOrder(t *testing.T) {
	pool := newTestPool(t, 2, PolicyLRU)

	for _, n := range []int32{0, 1} {
		_, err := pool.GetPage(n)
		require.NoError(t, err)
		require.NoError(t, pool.Unpin(n, false))
	}
	// touch 0 so page 1 is least recently used
	_, err := pool.GetPage(0)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(0, false))

	_, err = pool.GetPage(2)
	require.NoError(t, err)
	_, ok := pool.pageTable[1]
	require.False(t, ok)
	_, ok = pool.pageTable[0]
	require.True(t, ok)
}

func TestPool_MRUVictimOrder(t *testing.T) {
	pool := newTestPool(t, 2, PolicyMRU)

	for _, n := range []int32{0, 1} {
		_, err := pool.GetPage(n)
		require.NoError(t, err)
		require.NoError(t, pool.Unpin(n, false))
	}

	_, err := pool.GetPage(2)
	require.NoError(t, err)
	_, ok := pool.pageTable[1]
	require.False(t, ok)
	_, ok = pool.pageTable[0]
	require.True(t, ok)
}

func TestPool_NewPage_ZeroedAndDirty(t *testing.T) {
	pool := newTestPool(t, 2, PolicyLRU)

	buf, err := pool.NewPage(0)
	require.NoError(t, err)
	require.Equal(t, make([]byte, storage.PageSize), buf)
	buf[7] = 9

	_, err = pool.NewPage(0)
	require.Error(t, err)

	require.NoError(t, pool.Unpin(0, false))
	require.NoError(t, pool.FlushAll())

	n, err := pool.sm.CountPages(pool.fs)
	require.NoError(t, err)
	require.Equal(t, int32(1), n)
}

func TestPool_FlushAll_WritesDirtyFrames(t *testing.T) {
	pool := newTestPool(t, 2, PolicyClock)

	buf0, err := pool.GetPage(0)
	require.NoError(t, err)
	buf1, err := pool.GetPage(1)
	require.NoError(t, err)

	buf0[10] = 11
	buf1[20] = 22
	require.NoError(t, pool.Unpin(0, true))
	require.NoError(t, pool.Unpin(1, true))

	require.NoError(t, pool.FlushAll())
	require.False(t, pool.frames[pool.pageTable[0]].Dirty)
	require.False(t, pool.frames[pool.pageTable[1]].Dirty)

	reloaded := make([]byte, storage.PageSize)
	require.NoError(t, pool.sm.ReadPage(pool.fs, 0, reloaded))
	require.Equal(t, byte(11), reloaded[10])
	require.NoError(t, pool.sm.ReadPage(pool.fs, 1, reloaded))
	require.Equal(t, byte(22), reloaded[20])
}

func TestPool_DropAll(t *testing.T) {
	pool := newTestPool(t, 2, PolicyLRU)

	buf, err := pool.GetPage(0)
	require.NoError(t, err)
	buf[0] = 1
	require.Equal(t, 1, pool.PinnedCount())

	require.ErrorIs(t, pool.DropAll(), ErrPagePinned)

	require.NoError(t, pool.Unpin(0, true))
	require.Equal(t, 0, pool.PinnedCount())
	require.NoError(t, pool.DropAll())
	require.Empty(t, pool.pageTable)

	reloaded, err := pool.GetPage(0)
	require.NoError(t, err)
	require.Equal(t, byte(1), reloaded[0])
}

func TestNewPool_DefaultCapacityAndBadPolicy(t *testing.T) {
	sm := storage.NewStorageManager()
	fs := storage.LocalFileSet{Dir: t.TempDir(), Base: "testfile"}

	pool, err := NewPool(sm, fs, 0, PolicyLRU)
	require.NoError(t, err)
	require.Len(t, pool.frames, DefaultCapacity)

	_, err = NewPool(sm, fs, 4, Policy("FIFO"))
	require.ErrorIs(t, err, ErrUnknownPolicy)
}
