package feed

import "sync"

// DefaultBufferSize is the number of recent frames kept for projection
const DefaultBufferSize = 100

// Buffer keeps the most recent frames in a fixed ring.
// One writer (the sequencer) pushes; any number of readers take snapshots.
type Buffer struct {
	mu     sync.RWMutex
	frames []RawFrame
	head   int // Next write position
	count  int
}

// NewBuffer creates a buffer holding at most capacity frames.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &Buffer{frames: make([]RawFrame, capacity)}
}

// Push stores frame as the newest entry, evicting the oldest when full.
func (b *Buffer) Push(frame RawFrame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames[b.head] = frame
	b.head = (b.head + 1) % len(b.frames)
	if b.count < len(b.frames) {
		b.count++
	}
}

// Snapshot returns a copy of the buffered frames, newest first.
func (b *Buffer) Snapshot() []RawFrame {
	b.mu.RLock()
	defer b.mu.RUnlock()

	size := len(b.frames)
	out := make([]RawFrame, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.frames[(b.head-1-i+size)%size]
	}
	return out
}

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.frames)
}
