package feed

import (
	"fmt"
	"testing"
)

func TestBuffer_NewestFirst(t *testing.T) {
	b := NewBuffer(5)
	b.Push("a")
	b.Push("b")
	b.Push("c")

	got := b.Snapshot()
	want := []RawFrame{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d frames, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBuffer_BoundedEviction(t *testing.T) {
	b := NewBuffer(DefaultBufferSize)

	// Every prefix of the push sequence must respect the bound and the order.
	for n := 1; n <= 250; n++ {
		b.Push(RawFrame(fmt.Sprintf("f%d", n)))

		snap := b.Snapshot()
		wantLen := n
		if wantLen > DefaultBufferSize {
			wantLen = DefaultBufferSize
		}
		if len(snap) != wantLen {
			t.Fatalf("after %d pushes: len = %d, want %d", n, len(snap), wantLen)
		}
		for i, f := range snap {
			want := RawFrame(fmt.Sprintf("f%d", n-i))
			if f != want {
				t.Fatalf("after %d pushes: snap[%d] = %s, want %s", n, i, f, want)
			}
		}
	}

	if b.Len() != DefaultBufferSize {
		t.Errorf("Len = %d, want %d", b.Len(), DefaultBufferSize)
	}
}

func TestBuffer_SnapshotIsCopy(t *testing.T) {
	b := NewBuffer(3)
	b.Push("a")

	snap := b.Snapshot()
	snap[0] = "mutated"
	b.Push("b")

	again := b.Snapshot()
	if again[1] != "a" {
		t.Errorf("Snapshot mutation leaked into buffer: %v", again)
	}
	if len(snap) != 1 {
		t.Errorf("Earlier snapshot should not grow, got %d", len(snap))
	}
}

func TestBuffer_DefaultCapacity(t *testing.T) {
	if got := NewBuffer(0).Cap(); got != DefaultBufferSize {
		t.Errorf("Cap = %d, want %d", got, DefaultBufferSize)
	}
	if got := NewBuffer(0).Len(); got != 0 {
		t.Errorf("Empty buffer Len = %d", got)
	}
}
