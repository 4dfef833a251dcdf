package bufferpool

import (
	"fmt"
	"strings"

	"github.com/tuannm99/novaspage/pkg/lrux"
)

// Replacer picks victim frames among those with pin == 0.
type Replacer interface {
	RecordAccess(frameID int)
	SetEvictable(frameID int, evictable bool)
	Evict() (frameID int, ok bool)
	Remove(frameID int)
	Size() int
}

// Policy is the replacement policy tag passed when a file is opened.
type Policy string

const (
	PolicyLRU   Policy = "LRU"
	PolicyMRU   Policy = "MRU"
	PolicyClock Policy = "CLOCK"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToUpper(strings.TrimSpace(s))); p {
	case PolicyLRU, PolicyMRU, PolicyClock:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

func newReplacer(policy Policy, capacity int) (Replacer, error) {
	switch policy {
	case PolicyLRU:
		return newLRUAdapter(capacity, lrux.LRU), nil
	case PolicyMRU:
		return newLRUAdapter(capacity, lrux.MRU), nil
	case PolicyClock:
		return newClockAdapter(capacity), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}
