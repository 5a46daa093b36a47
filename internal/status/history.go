package status

// history keeps the newest samples in a fixed ring. Callers must
// synchronize.
type history struct {
	ring []Sample
	next int
	n    int
}

func newHistory(size int) *history {
	return &history{ring: make([]Sample, size)}
}

func (h *history) add(s Sample) {
	if len(h.ring) == 0 {
		return
	}
	h.ring[h.next] = s
	h.next = (h.next + 1) % len(h.ring)
	if h.n < len(h.ring) {
		h.n++
	}
}

// list returns a copy of the samples, oldest first.
func (h *history) list() []Sample {
	if h.n == 0 {
		return nil
	}
	out := make([]Sample, h.n)
	first := (h.next - h.n + len(h.ring)) % len(h.ring)
	for i := range out {
		out[i] = h.ring[(first+i)%len(h.ring)]
	}
	return out
}
