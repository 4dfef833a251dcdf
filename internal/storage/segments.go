package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// SegFileName returns segment file name:
//   - seg 0: base
//   - seg N>0: base.N
func SegFileName(base string, segNo int32) string {
	if segNo <= 0 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, segNo)
}

// segNoOf parses a directory entry name into a segment number of base.
func segNoOf(base, name string) (int32, bool) {
	if name == base {
		return 0, true
	}
	suf, ok := strings.CutPrefix(name, base+".")
	if !ok {
		return 0, false
	}
	n64, err := strconv.ParseInt(suf, 10, 32)
	if err != nil || n64 <= 0 {
		return 0, false
	}
	return int32(n64), true
}

// listSegmentsLocal returns the segment numbers of lfs in ascending order.
// A missing directory yields no segments.
func listSegmentsLocal(lfs LocalFileSet) ([]int32, error) {
	ents, err := os.ReadDir(lfs.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var segs []int32
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if n, ok := segNoOf(lfs.Base, e.Name()); ok {
			segs = append(segs, n)
		}
	}
	slices.Sort(segs)
	return segs, nil
}

// RemoveAllSegments removes Base, Base.1, Base.2, ... and reports how many
// files were deleted.
func RemoveAllSegments(lfs LocalFileSet) (int, error) {
	segs, err := listSegmentsLocal(lfs)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, segNo := range segs {
		path := filepath.Join(lfs.Dir, SegFileName(lfs.Base, segNo))
		if err := os.Remove(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return removed, err
		}
		removed++
	}
	return removed, nil
}
