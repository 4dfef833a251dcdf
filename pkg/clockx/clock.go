package clockx

type entry struct {
	present   bool
	evictable bool
	ref       bool
}

// Clock implements CLOCK (second-chance) replacement for a fixed number of slots.
// Slot IDs are [0..capacity).
type Clock struct {
	slots []entry
	hand  int
	size  int // number of evictable slots
}

func New(capacity int) *Clock {
	if capacity <= 0 {
		capacity = 1
	}
	return &Clock{slots: make([]entry, capacity)}
}

func (c *Clock) Capacity() int { return len(c.slots) }

func (c *Clock) valid(id int) bool {
	return id >= 0 && id < len(c.slots)
}

// Touch marks slot as recently accessed and starts tracking it.
func (c *Clock) Touch(id int) {
	if !c.valid(id) {
		return
	}
	c.slots[id].present = true
	c.slots[id].ref = true
}

// SetEvictable marks whether slot can be evicted (pin == 0).
// Untracked slots are ignored.
func (c *Clock) SetEvictable(id int, evictable bool) {
	if !c.valid(id) {
		return
	}
	e := &c.slots[id]
	if !e.present || e.evictable == evictable {
		return
	}
	e.evictable = evictable
	if evictable {
		c.size++
	} else {
		c.size--
	}
}

// Evict returns a victim and stops tracking it.
func (c *Clock) Evict() (id int, ok bool) {
	n := len(c.slots)
	if c.size == 0 {
		return -1, false
	}

	// two sweeps: the first may only clear ref bits
	for i := 0; i < 2*n; i++ {
		idx := c.hand
		c.hand = (c.hand + 1) % n

		e := &c.slots[idx]
		if !e.present || !e.evictable {
			continue
		}
		if e.ref {
			e.ref = false
			continue
		}
		*e = entry{}
		c.size--
		return idx, true
	}
	return -1, false
}

// Remove stops tracking slot.
func (c *Clock) Remove(id int) {
	if !c.valid(id) || !c.slots[id].present {
		return
	}
	if c.slots[id].evictable {
		c.size--
	}
	c.slots[id] = entry{}
}

func (c *Clock) Size() int { return c.size }
