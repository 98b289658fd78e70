package observe

import (
	"errors"
	"testing"
)

func obsOf(dim int, v float32) []float32 {
	out := make([]float32, dim)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestHistoryCurrentEmptyIsZero(t *testing.T) {
	h := NewHistory(4, EncoderSteps)
	for i, v := range h.Current() {
		if v != 0 {
			t.Fatalf("current[%d]=%f want 0", i, v)
		}
	}
}

func TestHistoryStackedOldestToNewestWithPadding(t *testing.T) {
	h := NewHistory(2, EncoderSteps)
	for _, v := range []float32{1, 2} {
		if err := h.Push(obsOf(2, v)); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	got := h.Stacked(3)
	want := []float32{1, 1, 2, 2, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stacked: got=%v want=%v", got, want)
		}
	}
	if cur := h.Current(); cur[0] != 2 {
		t.Fatalf("current: got=%v", cur)
	}
}

func TestHistoryWrapsAround(t *testing.T) {
	h := NewHistory(1, 3)
	for v := float32(1); v <= 5; v++ {
		if err := h.Push([]float32{v}); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	if h.Len() != 3 {
		t.Fatalf("len: got=%d want=3", h.Len())
	}
	got := h.Stacked(PolicySteps)
	if got[0] != 4 || got[1] != 5 {
		t.Fatalf("policy stack: got=%v want=[4 5]", got)
	}
	got = h.Stacked(3)
	if got[0] != 3 || got[1] != 4 || got[2] != 5 {
		t.Fatalf("full stack: got=%v want=[3 4 5]", got)
	}
}

func TestHistoryPushCopiesInput(t *testing.T) {
	h := NewHistory(2, 2)
	in := []float32{1, 2}
	if err := h.Push(in); err != nil {
		t.Fatalf("push: %v", err)
	}
	in[0] = 99
	if got := h.Current(); got[0] != 1 {
		t.Fatalf("history aliased caller slice: %v", got)
	}
}

func TestHistoryResetAndDimCheck(t *testing.T) {
	h := NewHistory(2, 2)
	if err := h.Push([]float32{1}); !errors.Is(err, ErrObservationDim) {
		t.Fatalf("expected ErrObservationDim, got: %v", err)
	}
	_ = h.Push([]float32{1, 1})
	h.Reset()
	if h.Len() != 0 {
		t.Fatalf("len after reset: %d", h.Len())
	}
	for _, v := range h.Stacked(2) {
		if v != 0 {
			t.Fatalf("expected zeros after reset")
		}
	}
}

func TestEncoderStackMatchesInputWidth(t *testing.T) {
	if got := EncoderSteps * 102; got != 612 {
		t.Fatalf("encoder input width: got=%d want=612", got)
	}
}
