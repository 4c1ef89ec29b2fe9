package snapshot

// History is a fixed-capacity FIFO of states. Once full, pushing a state
// evicts the oldest one.
type History struct {
	buf   []*StateBlob
	start int
	count int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		panic("snapshot: history capacity must be positive")
	}
	return &History{buf: make([]*StateBlob, capacity)}
}

func (h *History) Cap() int { return len(h.buf) }
func (h *History) Len() int { return h.count }

// Push appends b to the history and returns the evicted state, if any.
func (h *History) Push(b *StateBlob) (evicted *StateBlob) {
	end := (h.start + h.count) % len(h.buf)
	if h.count == len(h.buf) {
		evicted = h.buf[h.start]
		h.start = (h.start + 1) % len(h.buf)
	} else {
		h.count++
	}
	h.buf[end] = b
	return evicted
}

// At returns the i-th oldest state, or nil if i is out of range.
func (h *History) At(i int) *StateBlob {
	if i < 0 || i >= h.count {
		return nil
	}
	return h.buf[(h.start+i)%len(h.buf)]
}

// Last returns the most recent state, or nil if the history is empty.
func (h *History) Last() *StateBlob {
	return h.At(h.count - 1)
}

// Clear removes all states.
func (h *History) Clear() {
	clear(h.buf)
	h.start = 0
	h.count = 0
}
