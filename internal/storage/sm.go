package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/tuannm99/novaspage/internal/alias/util"
)

var (
	ErrFileExists   = errors.New("storage_manager: file already exists")
	ErrFileNotFound = errors.New("storage_manager: file not found")
)

type FileSet interface {
	OpenSegment(segNo int32) (*os.File, error)
	Segments() ([]int32, error)
}

var _ FileSet = (*LocalFileSet)(nil)

// LocalFileSet represents a local directory + base file name.
// Segments are stored as: Base, Base.1, Base.2, ...
type LocalFileSet struct {
	Dir  string
	Base string
}

func (lfs LocalFileSet) OpenSegment(segNo int32) (*os.File, error) {
	path := filepath.Join(lfs.Dir, SegFileName(lfs.Base, segNo))
	if err := os.MkdirAll(lfs.Dir, FileMode0755); err != nil {
		return nil, err
	}
	// RDWR | CREATE (no truncate)
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
}

func (lfs LocalFileSet) Segments() ([]int32, error) {
	return listSegmentsLocal(lfs)
}

// StorageManager maps a logical page number -> (segment, offset).
type StorageManager struct{}

func NewStorageManager() *StorageManager {
	return &StorageManager{}
}

func (sm *StorageManager) locate(pageNum int32) (segNo int32, offset int64) {
	segNo = pageNum / MaxPagePerSegment
	pageInSeg := pageNum % MaxPagePerSegment
	return segNo, int64(pageInSeg) * PageSize
}

// Exists reports whether the base segment of fs is on disk.
func (sm *StorageManager) Exists(fs FileSet) (bool, error) {
	segs, err := fs.Segments()
	if err != nil {
		return false, err
	}
	for _, s := range segs {
		if s == 0 {
			return true, nil
		}
	}
	return false, nil
}

// Create makes an empty base segment. It fails if the file already exists.
func (sm *StorageManager) Create(fs FileSet) error {
	ok, err := sm.Exists(fs)
	if err != nil {
		return err
	}
	if ok {
		return ErrFileExists
	}
	f, err := fs.OpenSegment(0)
	if err != nil {
		return errors.Wrap(err, "create base segment")
	}
	util.CloseFileFunc(f)
	return nil
}

// ReadPage reads exactly one page (PageSize bytes) into dst.
// If the underlying file is smaller than the requested offset+PageSize,
// the remainder is zero-filled.
func (sm *StorageManager) ReadPage(fs FileSet, pageNum int32, dst []byte) error {
	if len(dst) != PageSize {
		return fmt.Errorf("dst must be exactly %d bytes", PageSize)
	}
	if pageNum < 0 {
		return fmt.Errorf("invalid page number: %d", pageNum)
	}
	segNo, off := sm.locate(pageNum)
	f, err := fs.OpenSegment(segNo)
	if err != nil {
		return errors.Wrapf(err, "open segment %d", segNo)
	}
	defer util.CloseFileFunc(f)

	n, err := f.ReadAt(dst, off)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "read page %d", pageNum)
	}
	// Zero-fill the rest of the page if we hit EOF early or a short read.
	for i := n; i < PageSize; i++ {
		dst[i] = 0
	}
	return nil
}

// WritePage writes exactly one page (PageSize bytes) from src to disk
// at the location computed from pageNum.
func (sm *StorageManager) WritePage(fs FileSet, pageNum int32, src []byte) error {
	if len(src) != PageSize {
		return fmt.Errorf("src must be exactly %d bytes", PageSize)
	}
	if pageNum < 0 {
		return fmt.Errorf("invalid page number: %d", pageNum)
	}
	segNo, off := sm.locate(pageNum)
	f, err := fs.OpenSegment(segNo)
	if err != nil {
		return errors.Wrapf(err, "open segment %d", segNo)
	}
	defer util.CloseFileFunc(f)

	n, err := f.WriteAt(src, off)
	if err != nil {
		return errors.Wrapf(err, "write page %d", pageNum)
	}
	if n != PageSize {
		return io.ErrShortWrite
	}
	return nil
}

// CountPages computes total pages for a given FileSet from its segments.
// Only the last segment may be partial.
func (sm *StorageManager) CountPages(fs FileSet) (int32, error) {
	segs, err := fs.Segments()
	if err != nil {
		return 0, err
	}
	if len(segs) == 0 {
		return 0, ErrFileNotFound
	}

	last := segs[len(segs)-1]
	f, err := fs.OpenSegment(last)
	if err != nil {
		return 0, errors.Wrapf(err, "open segment %d", last)
	}
	info, statErr := f.Stat()
	util.CloseFileFunc(f)
	if statErr != nil {
		return 0, errors.Wrapf(statErr, "stat segment %d", last)
	}

	return last*MaxPagePerSegment + int32(info.Size()/PageSize), nil
}
