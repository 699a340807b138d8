package db

// history is a bounded FIFO of probe results.
// Once full, every push evicts the oldest result.
type history struct {
	buf   []ProbeResult
	start int
	size  int
}

func newHistory(capacity int) *history {
	return &history{buf: make([]ProbeResult, capacity)}
}

func (h *history) push(r ProbeResult) {
	end := (h.start + h.size) % len(h.buf)
	h.buf[end] = r
	if h.size < len(h.buf) {
		h.size++
		return
	}
	h.start = (h.start + 1) % len(h.buf)
}

// snapshot returns a copy of the results, oldest first
func (h *history) snapshot() []ProbeResult {
	out := make([]ProbeResult, h.size)
	for i := range h.size {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

func (h *history) len() int {
	return h.size
}
