// Package pagefile is the paged-file service: named files of fixed-size pages
// cached through a per-file buffer pool, with allocation, sequential
// enumeration and direct pinning by page number.
package pagefile

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/tuannm99/novaspage/internal/bufferpool"
	"github.com/tuannm99/novaspage/internal/storage"
)

var (
	ErrFileExists   = storage.ErrFileExists
	ErrFileNotFound = storage.ErrFileNotFound
	ErrFileOpen     = errors.New("pagefile: file is open")
	ErrFileClosed   = errors.New("pagefile: file is closed")
	ErrInvalidPage  = errors.New("pagefile: invalid page number")
	ErrInvalidName  = errors.New("pagefile: invalid file name")
)

type Config struct {
	Workdir      string
	PoolCapacity int
}

// Service owns the working directory and the set of open files.
type Service struct {
	cfg Config
	sm  *storage.StorageManager

	mu   sync.Mutex
	open map[string]*File
}

// New prepares the service; it must precede any file operation.
func New(cfg Config) *Service {
	if cfg.PoolCapacity <= 0 {
		cfg.PoolCapacity = bufferpool.DefaultCapacity
	}
	return &Service{
		cfg:  cfg,
		sm:   storage.NewStorageManager(),
		open: make(map[string]*File),
	}
}

func (s *Service) fileSet(name string) (storage.LocalFileSet, error) {
	if name == "" || strings.ContainsRune(name, filepath.Separator) || name == "." || name == ".." {
		return storage.LocalFileSet{}, errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return storage.LocalFileSet{Dir: s.cfg.Workdir, Base: name}, nil
}

// CreateFile creates an empty page-addressable file.
func (s *Service) CreateFile(name string) error {
	fs, err := s.fileSet(name)
	if err != nil {
		return err
	}
	if err := s.sm.Create(fs); err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	slog.Debug("pagefile: created", "name", name, "dir", fs.Dir)
	return nil
}

// DestroyFile removes every segment of a closed file.
func (s *Service) DestroyFile(name string) error {
	fs, err := s.fileSet(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	_, isOpen := s.open[name]
	s.mu.Unlock()
	if isOpen {
		return errors.Wrapf(ErrFileOpen, "destroy %s", name)
	}

	removed, err := storage.RemoveAllSegments(fs)
	if err != nil {
		return errors.Wrapf(err, "destroy %s", name)
	}
	if removed == 0 {
		return errors.Wrapf(ErrFileNotFound, "destroy %s", name)
	}
	return nil
}

// OpenFile opens an existing file with the given replacement policy tag.
// A file can be open at most once at a time.
func (s *Service) OpenFile(name string, policy bufferpool.Policy) (*File, error) {
	fs, err := s.fileSet(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.open[name]; ok {
		return nil, errors.Wrapf(ErrFileOpen, "open %s", name)
	}

	pages, err := s.sm.CountPages(fs)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	pool, err := bufferpool.NewPool(s.sm, fs, s.cfg.PoolCapacity, policy)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}

	f := &File{name: name, pool: pool, pageCount: pages}
	s.open[name] = f
	slog.Debug("pagefile: opened", "name", name, "pages", pages, "policy", policy)
	return f, nil
}

// CloseFile flushes and releases f. All pins must have been released.
func (s *Service) CloseFile(f *File) error {
	if f == nil {
		return ErrFileClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open[f.name] != f {
		return errors.Wrapf(ErrFileClosed, "close %s", f.name)
	}
	if err := f.pool.DropAll(); err != nil {
		return errors.Wrapf(err, "close %s", f.name)
	}
	delete(s.open, f.name)

	f.mu.Lock()
	f.closed = true
	pages := f.pageCount
	f.mu.Unlock()

	slog.Debug("pagefile: closed", "name", f.name, "pages", pages)
	return nil
}

// File is one open paged file.
type File struct {
	name string
	pool *bufferpool.Pool

	mu        sync.Mutex
	pageCount int32
	allocated uint64
	closed    bool
}

func (f *File) Name() string { return f.name }

func (f *File) PageCount() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCount
}

func (f *File) checkOpen() error {
	if f.closed {
		return errors.Wrapf(ErrFileClosed, "%s", f.name)
	}
	return nil
}

// AllocPage grows the file by one page and returns it pinned. Its contents
// are zero; formatting is up to the caller.
func (f *File) AllocPage() (int32, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return -1, nil, err
	}
	num := f.pageCount
	buf, err := f.pool.NewPage(num)
	if err != nil {
		return -1, nil, errors.Wrapf(err, "alloc page %d of %s", num, f.name)
	}
	f.pageCount++
	f.allocated++
	return num, buf, nil
}

// GetFirstPage pins page 0; io.EOF when the file has no pages.
func (f *File) GetFirstPage() (int32, []byte, error) {
	return f.GetNextPage(-1)
}

// GetNextPage pins the page after cur in file order; io.EOF past the last.
func (f *File) GetNextPage(cur int32) (int32, []byte, error) {
	next := cur + 1
	if next < 0 {
		return -1, nil, errors.Wrapf(ErrInvalidPage, "next after %d", cur)
	}
	if next >= f.PageCount() {
		return -1, nil, io.EOF
	}
	buf, err := f.GetThisPage(next)
	if err != nil {
		return -1, nil, err
	}
	return next, buf, nil
}

// GetThisPage pins page num.
func (f *File) GetThisPage(num int32) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	if num < 0 || num >= f.pageCount {
		return nil, errors.Wrapf(ErrInvalidPage, "page %d of %s (count %d)", num, f.name, f.pageCount)
	}
	buf, err := f.pool.GetPage(num)
	if err != nil {
		return nil, errors.Wrapf(err, "pin page %d of %s", num, f.name)
	}
	return buf, nil
}

// UnfixPage releases one pin on num; dirty schedules a write-back.
func (f *File) UnfixPage(num int32, dirty bool) error {
	if err := f.pool.Unpin(num, dirty); err != nil {
		return errors.Wrapf(err, "unfix page %d of %s", num, f.name)
	}
	return nil
}

// Flush writes every dirty cached page.
func (f *File) Flush() error {
	if err := f.pool.FlushAll(); err != nil {
		return errors.Wrapf(err, "flush %s", f.name)
	}
	return nil
}

// PinnedPages is the number of pages currently pinned.
func (f *File) PinnedPages() int {
	return f.pool.PinnedCount()
}

// Stats mirrors the classic PF layer counters.
type Stats struct {
	LogicalReads   uint64
	PhysicalReads  uint64
	PhysicalWrites uint64
	PagesAllocated uint64
}

func (f *File) Stats() Stats {
	ps := f.pool.Stats()

	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{
		LogicalReads:   ps.LogicalReads,
		PhysicalReads:  ps.PhysicalReads,
		PhysicalWrites: ps.PhysicalWrites,
		PagesAllocated: f.allocated,
	}
}
