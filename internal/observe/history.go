package observe

import (
	"errors"
	"fmt"
)

// Default stack depths for the low-level policy and the motion encoder.
const (
	PolicySteps  = 2
	EncoderSteps = 6
)

var ErrObservationDim = errors.New("observation dimension mismatch")

// History is a fixed-capacity ring of encoded observations. It is not safe
// for concurrent use.
type History struct {
	dim   int
	buf   [][]float32
	next  int
	count int
}

func NewHistory(dim, capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	buf := make([][]float32, capacity)
	for i := range buf {
		buf[i] = make([]float32, dim)
	}
	return &History{dim: dim, buf: buf}
}

func (h *History) Dim() int { return h.dim }

func (h *History) Capacity() int { return len(h.buf) }

// Len is the number of stored observations.
func (h *History) Len() int { return h.count }

// Push copies obs into the ring, evicting the oldest entry when full.
func (h *History) Push(obs []float32) error {
	if len(obs) != h.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrObservationDim, len(obs), h.dim)
	}
	copy(h.buf[h.next], obs)
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
	return nil
}

// Current returns the newest observation, or zeros when empty.
func (h *History) Current() []float32 {
	out := make([]float32, h.dim)
	if h.count == 0 {
		return out
	}
	latest := (h.next - 1 + len(h.buf)) % len(h.buf)
	copy(out, h.buf[latest])
	return out
}

// Stacked concatenates the last n observations oldest to newest. Slots past
// the available history stay zero.
func (h *History) Stacked(n int) []float32 {
	out := make([]float32, n*h.dim)
	available := min(n, h.count)
	for s := 0; s < available; s++ {
		idx := (h.next - available + s + len(h.buf)) % len(h.buf)
		copy(out[s*h.dim:], h.buf[idx])
	}
	return out
}

// Reset drops every stored observation.
func (h *History) Reset() {
	h.next = 0
	h.count = 0
	for _, frame := range h.buf {
		clear(frame)
	}
}
