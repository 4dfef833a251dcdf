package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tuannm99/novaspage/internal/bufferpool"
	"github.com/tuannm99/novaspage/internal/codec"
	"github.com/tuannm99/novaspage/internal/heap"
	"github.com/tuannm99/novaspage/internal/pagefile"
)

var (
	ErrDatabaseClosed = errors.New("novaspage: database is closed")
	ErrFileOpen       = errors.New("novaspage: file already open")
)

type Options struct {
	DataDir      string
	PoolCapacity int
	MaxScans     int
}

// FileMeta is kept next to the page segments so a reopen decodes records the
// way they were written.
type FileMeta struct {
	Name      string    `json:"name"`
	Codec     string    `json:"codec"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Database groups the slotted files of one data directory. All files share
// one scan registry.
type Database struct {
	DataDir string

	svc   *pagefile.Service
	scans *heap.ScanRegistry

	mu     sync.Mutex
	open   map[string]*Table
	closed bool
}

// NewDatabase creates a handle without touching the filesystem.
func NewDatabase(opts Options) *Database {
	db := &Database{
		DataDir: opts.DataDir,
		scans:   heap.NewScanRegistry(opts.MaxScans),
		open:    make(map[string]*Table),
	}
	db.svc = pagefile.New(pagefile.Config{
		Workdir:      db.fileDir(),
		PoolCapacity: opts.PoolCapacity,
	})
	return db
}

func (db *Database) fileDir() string { return filepath.Join(db.DataDir, "files") }
func (db *Database) metaDir() string { return filepath.Join(db.DataDir, "meta") }

func (db *Database) metaPath(name string) string {
	return filepath.Join(db.metaDir(), name+".meta.json")
}

func (db *Database) writeMeta(meta *FileMeta) error {
	if err := os.MkdirAll(db.metaDir(), 0o755); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(db.metaPath(meta.Name), data, 0o644)
}

// readMeta returns a "none" codec meta when the file predates its meta.
func (db *Database) readMeta(name string) (*FileMeta, error) {
	data, err := os.ReadFile(db.metaPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return &FileMeta{Name: name, Codec: codec.None{}.Name()}, nil
	}
	if err != nil {
		return nil, err
	}
	var meta FileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("meta %s: %w", name, err)
	}
	return &meta, nil
}

func (db *Database) check() error {
	if db.closed {
		return ErrDatabaseClosed
	}
	return nil
}

// CreateFile creates an empty slotted file whose records pass through the
// named codec.
func (db *Database) CreateFile(name, codecName string) error {
	c, err := codec.ByName(codecName)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check(); err != nil {
		return err
	}

	if err := db.svc.CreateFile(name); err != nil {
		return err
	}
	now := time.Now()
	return db.writeMeta(&FileMeta{Name: name, Codec: c.Name(), CreatedAt: now})
}

// DropFile removes a closed file and its meta.
func (db *Database) DropFile(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check(); err != nil {
		return err
	}
	if _, ok := db.open[name]; ok {
		return fmt.Errorf("%w: %s", ErrFileOpen, name)
	}

	if err := db.svc.DestroyFile(name); err != nil {
		return err
	}
	if err := os.Remove(db.metaPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (db *Database) OpenFile(name string, policy bufferpool.Policy) (*Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check(); err != nil {
		return nil, err
	}
	if _, ok := db.open[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrFileOpen, name)
	}

	meta, err := db.readMeta(name)
	if err != nil {
		return nil, err
	}
	c, err := codec.ByName(meta.Codec)
	if err != nil {
		return nil, err
	}

	pf, err := db.svc.OpenFile(name, policy)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Name:  name,
		db:    db,
		pf:    pf,
		hf:    heap.NewFile(pf, db.scans),
		codec: c,
	}
	db.open[name] = t
	slog.Info("engine: open file", "name", name, "pages", pf.PageCount(), "policy", policy, "codec", c.Name())
	return t, nil
}

func (db *Database) closeTable(t *Table) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.open[t.Name] != t {
		return fmt.Errorf("%w: %s", pagefile.ErrFileClosed, t.Name)
	}
	if err := db.svc.CloseFile(t.pf); err != nil {
		return err
	}
	delete(db.open, t.Name)
	return nil
}

// Close closes every file still open. Later calls report ErrDatabaseClosed.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check(); err != nil {
		return err
	}

	var errs []error
	for name, t := range db.open {
		if err := db.svc.CloseFile(t.pf); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(db.open, name)
	}
	db.closed = true
	return errors.Join(errs...)
}

// Table is an open slotted file. Records are encoded with the file's codec
// on the way in and decoded on the way out; ids refer to the stored form.
type Table struct {
	Name string

	db    *Database
	pf    *pagefile.File
	hf    *heap.File
	codec codec.Codec
}

func (t *Table) Codec() codec.Codec { return t.codec }

func (t *Table) Insert(rec []byte) (heap.RecordID, error) {
	if len(rec) == 0 {
		return heap.RecordID{}, fmt.Errorf("%w: empty record", heap.ErrInvalidArgument)
	}
	enc, err := t.codec.Encode(rec)
	if err != nil {
		return heap.RecordID{}, err
	}
	return t.hf.Insert(enc)
}

func (t *Table) Get(id heap.RecordID) ([]byte, error) {
	raw, err := t.hf.Get(id)
	if err != nil {
		return nil, err
	}
	return t.codec.Decode(raw)
}

func (t *Table) Delete(id heap.RecordID) error {
	return t.hf.Delete(id)
}

// Scan visits every live record in (page, slot) order.
func (t *Table) Scan(fn func(id heap.RecordID, rec []byte) error) error {
	return t.hf.Scan(func(id heap.RecordID, raw []byte) error {
		rec, err := t.codec.Decode(raw)
		if err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
		return fn(id, rec)
	})
}

func (t *Table) Stats() (heap.FileStats, error) { return t.hf.Stats() }
func (t *Table) PageStats(num int32) (heap.PageStats, error) { return t.hf.PageStats(num) }
func (t *Table) DumpPage(num int32, w io.Writer) error { return t.hf.DumpPage(num, w) }
func (t *Table) IOStats() pagefile.Stats { return t.pf.Stats() }
func (t *Table) PageCount() int32 { return t.pf.PageCount() }
func (t *Table) PinnedPages() int { return t.pf.PinnedPages() }
func (t *Table) Flush() error { return t.pf.Flush() }

func (t *Table) Close() error { return t.db.closeTable(t) }
