package lifecycle

// consoleBuffer accumulates run output up to a fixed capacity. Once full,
// further bytes are dropped silently: under runaway output (an infinite
// loop flooding stdout) the earliest text is the diagnostically relevant
// part, and memory stays bounded.
type consoleBuffer struct {
	buf []byte
	cap int
}

func newConsoleBuffer(capacity int) *consoleBuffer {
	return &consoleBuffer{buf: make([]byte, 0, min(capacity, 64<<10)), cap: capacity}
}

// Append stores as much of chunk as fits. Returns the number of bytes kept.
func (b *consoleBuffer) Append(chunk string) int {
	remaining := b.cap - len(b.buf)
	if remaining <= 0 {
		return 0
	}
	if len(chunk) > remaining {
		chunk = chunk[:remaining]
	}
	b.buf = append(b.buf, chunk...)
	return len(chunk)
}

func (b *consoleBuffer) Len() int { return len(b.buf) }

func (b *consoleBuffer) String() string { return string(b.buf) }

func (b *consoleBuffer) Reset() { b.buf = b.buf[:0] }
