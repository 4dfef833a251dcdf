package engine

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaspage/internal/bufferpool"
	"github.com/tuannm99/novaspage/internal/codec"
	"github.com/tuannm99/novaspage/internal/heap"
	"github.com/tuannm99/novaspage/internal/pagefile"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db := NewDatabase(Options{DataDir: t.TempDir(), PoolCapacity: 4, MaxScans: 2})
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDatabase_CodecSurvivesReopen(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateFile("students", "snappy"))

	tbl, err := db.OpenFile("students", bufferpool.PolicyLRU)
	require.NoError(t, err)
	assert.Equal(t, "snappy", tbl.Codec().Name())

	rec := bytes.Repeat([]byte("computer science;"), 20)
	id, err := tbl.Insert(rec)
	require.NoError(t, err)

	st, err := tbl.Stats()
	require.NoError(t, err)
	require.Len(t, st.Pages, 1)
	// stored form is the compressed one
	assert.Less(t, st.UsedBytes, len(rec))

	require.NoError(t, tbl.Close())

	tbl, err = db.OpenFile("students", bufferpool.PolicyClock)
	require.NoError(t, err)
	assert.Equal(t, "snappy", tbl.Codec().Name())

	got, err := tbl.Get(id)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	require.NoError(t, tbl.Close())
}

func TestDatabase_OpenTwiceAndDrop(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateFile("f", ""))

	tbl, err := db.OpenFile("f", bufferpool.PolicyMRU)
	require.NoError(t, err)

	_, err = db.OpenFile("f", bufferpool.PolicyMRU)
	require.ErrorIs(t, err, ErrFileOpen)
	require.ErrorIs(t, db.DropFile("f"), ErrFileOpen)

	require.NoError(t, tbl.Close())
	require.ErrorIs(t, tbl.Close(), pagefile.ErrFileClosed)

	require.NoError(t, db.DropFile("f"))
	_, err = db.OpenFile("f", bufferpool.PolicyMRU)
	require.ErrorIs(t, err, pagefile.ErrFileNotFound)
}

func TestDatabase_UnknownCodec(t *testing.T) {
	db := newTestDB(t)
	require.ErrorIs(t, db.CreateFile("f", "gzip"), codec.ErrUnknownCodec)
}

func TestTable_ScanDecodesAndSkipsDeleted(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.CreateFile("f", "lz4"))
	tbl, err := db.OpenFile("f", bufferpool.PolicyLRU)
	require.NoError(t, err)

	var ids []heap.RecordID
	for _, s := range []string{"alpha", "beta", "gamma"} {
		id, err := tbl.Insert([]byte(s))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, tbl.Delete(ids[1]))

	var seen []string
	require.NoError(t, tbl.Scan(func(_ heap.RecordID, rec []byte) error {
		seen = append(seen, string(rec))
		return nil
	}))
	assert.Equal(t, []string{"alpha", "gamma"}, seen)
	assert.Equal(t, 0, tbl.PinnedPages())

	_, err = tbl.Insert(nil)
	require.ErrorIs(t, err, heap.ErrInvalidArgument)

	var dump strings.Builder
	require.NoError(t, tbl.DumpPage(0, &dump))
	assert.Contains(t, dump.String(), "slotCount=3")
}

func TestTable_ScanRegistrySharedAcrossFiles(t *testing.T) {
	db := newTestDB(t)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, db.CreateFile(name, "none"))
	}
	a, err := db.OpenFile("a", bufferpool.PolicyLRU)
	require.NoError(t, err)
	b, err := db.OpenFile("b", bufferpool.PolicyLRU)
	require.NoError(t, err)
	c, err := db.OpenFile("c", bufferpool.PolicyLRU)
	require.NoError(t, err)

	_, err = a.hf.OpenScan()
	require.NoError(t, err)
	_, err = b.hf.OpenScan()
	require.NoError(t, err)

	// MaxScans is 2 for the whole database
	_, err = c.hf.OpenScan()
	require.ErrorIs(t, err, heap.ErrTooManyScans)
}

func TestDatabase_Close(t *testing.T) {
	db := NewDatabase(Options{DataDir: t.TempDir()})
	require.NoError(t, db.CreateFile("f", "none"))
	tbl, err := db.OpenFile("f", bufferpool.PolicyLRU)
	require.NoError(t, err)
	_, err = tbl.Insert([]byte("x"))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	require.ErrorIs(t, db.Close(), ErrDatabaseClosed)
	require.ErrorIs(t, db.CreateFile("g", "none"), ErrDatabaseClosed)

	db2 := NewDatabase(Options{DataDir: db.DataDir})
	defer db2.Close()
	tbl, err = db2.OpenFile("f", bufferpool.PolicyLRU)
	require.NoError(t, err)
	got, err := tbl.Get(heap.RecordID{PageNum: 0, SlotNum: 0})
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}
