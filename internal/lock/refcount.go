// Package lock holds the pin counter shared by buffer pool frames.
// A frame may be evicted or written back only while its count is zero.
package lock

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var ErrUnderflow = errors.New("lock: pin count would drop below zero")

type RefCount struct {
	count atomic.Int32
}

// Inc adds a pin and returns the new count.
func (r *RefCount) Inc() int32 {
	return r.count.Add(1)
}

// Dec drops a pin and returns the new count. An unpinned counter is left
// untouched and reports ErrUnderflow.
func (r *RefCount) Dec() (int32, error) {
	for {
		cur := r.count.Load()
		if cur <= 0 {
			return cur, ErrUnderflow
		}
		if r.count.CompareAndSwap(cur, cur-1) {
			return cur - 1, nil
		}
	}
}

func (r *RefCount) Get() int32 {
	return r.count.Load()
}

func (r *RefCount) Pinned() bool { return r.Get() > 0 }

func (r *RefCount) String() string {
	return fmt.Sprintf("RefCount: %d", r.Get())
}
