package runner

import (
	"sync"
)

// tailBuffer keeps only the last N bytes written to it, so a chatty candidate's
// stderr can be attached to its result without holding all of it in memory.
type tailBuffer struct {
	maxBytes int

	mu       sync.Mutex
	total    int64
	contents []byte
}

func newTailBuffer(maxBytes int) *tailBuffer {
	if maxBytes <= 0 {
		maxBytes = defaultStderrTailBytes
	}
	return &tailBuffer{
		maxBytes: maxBytes,
		contents: make([]byte, 0, 1024),
	}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))
	b.contents = append(b.contents, p...)
	if len(b.contents) > b.maxBytes {
		b.contents = b.contents[len(b.contents)-b.maxBytes:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.contents)
}

func (b *tailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.contents)) < b.total
}

// cappedBuffer keeps the first maxBytes written to it and drops the rest. Writes never
// fail, so the child is not disturbed by a full buffer.
type cappedBuffer struct {
	maxBytes int

	mu       sync.Mutex
	contents []byte
	dropped  int64
}

func newCappedBuffer(maxBytes int) *cappedBuffer {
	if maxBytes <= 0 {
		maxBytes = defaultStdoutLimitBytes
	}
	return &cappedBuffer{maxBytes: maxBytes}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	keep := b.maxBytes - len(b.contents)
	if keep > len(p) {
		keep = len(p)
	}
	if keep > 0 {
		b.contents = append(b.contents, p[:keep]...)
	}
	b.dropped += int64(len(p) - keep)
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contents
}

// Overflowed reports whether any output was dropped.
func (b *cappedBuffer) Overflowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped > 0
}
