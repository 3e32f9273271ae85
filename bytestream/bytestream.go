// Package bytestream implements a bounded single-producer/single-consumer
// byte queue with a finite capacity, end-of-stream signalling and sticky
// error signalling. It is the innermost component of the transport core: a
// Reassembler feeds one on the receive path, and a TCPSender drains one on
// the send path
package bytestream

import (
	"github.com/shadoxx152/minnow/buffer"
)

// ByteStream is a ring buffer of bytes bounded by a fixed capacity chosen at
// construction. The zero value is not usable; use New
type ByteStream struct {
	buf buffer.View

	// head is the index of the oldest buffered byte, tail the index one
	// past the newest. Both are taken modulo len(buf)
	head, tail int
	size       int

	pushed uint64
	popped uint64

	closed  bool
	errored bool
}

// New returns a ByteStream with the given capacity, in bytes. A zero
// capacity is legal: push is always a no-op and the stream starts at
// capacity
func New(capacity int) *ByteStream {
	return &ByteStream{
		buf: buffer.NewView(capacity),
	}
}

// Push appends as many leading bytes of data as fit in the available
// capacity; any suffix that does not fit is silently dropped. It is a no-op
// once the stream is closed
func (b *ByteStream) Push(data []byte) int {
	if b.closed {
		return 0
	}

	n := len(data)
	if avail := b.availableCapacity(); n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}

	capacity := len(b.buf)
	for i := 0; i < n; i++ {
		b.buf[b.tail] = data[i]
		b.tail = (b.tail + 1) % capacity
	}

	b.size += n
	b.pushed += uint64(n)
	return n
}

// Close marks the stream closed. Idempotent; does not affect buffered bytes
func (b *ByteStream) Close() {
	b.closed = true
}

// IsClosed reports whether Close has been called
func (b *ByteStream) IsClosed() bool {
	return b.closed
}

// AvailableCapacity returns the number of bytes that may still be pushed
func (b *ByteStream) AvailableCapacity() int {
	return b.availableCapacity()
}

func (b *ByteStream) availableCapacity() int {
	return len(b.buf) - b.size
}

// BytesPushed returns the cumulative number of bytes ever accepted by Push
func (b *ByteStream) BytesPushed() uint64 {
	return b.pushed
}

// HasError reports whether SetError has been called
func (b *ByteStream) HasError() bool {
	return b.errored
}

// SetError marks the stream as having encountered an unrecoverable error.
// Sticky: once set it cannot be cleared. Does not itself affect buffered
// bytes or the closed flag
func (b *ByteStream) SetError() {
	b.errored = true
}

// Peek returns a borrowed view of a contiguous prefix of the buffered
// bytes. Its length is min(bytesBuffered, contiguous bytes before the ring
// wraps), so more than one Peek may be needed to see everything buffered.
// The returned slice aliases the stream's internal buffer and is only valid
// until the next Push or Pop
func (b *ByteStream) Peek() []byte {
	if b.size == 0 {
		return nil
	}

	capacity := len(b.buf)
	contiguous := capacity - b.head
	if contiguous > b.size {
		contiguous = b.size
	}
	return b.buf[b.head : b.head+contiguous]
}

// Pop discards min(n, bytesBuffered) bytes from the front of the stream
func (b *ByteStream) Pop(n int) {
	if n > b.size {
		n = b.size
	}
	if n == 0 {
		return
	}

	capacity := len(b.buf)
	b.head = (b.head + n) % capacity
	b.size -= n
	b.popped += uint64(n)
}

// IsFinished reports whether the stream is closed and fully drained
func (b *ByteStream) IsFinished() bool {
	return b.closed && b.size == 0
}

// BytesBuffered returns the number of bytes currently held, unread
func (b *ByteStream) BytesBuffered() int {
	return b.size
}

// BytesPopped returns the cumulative number of bytes ever removed by Pop
func (b *ByteStream) BytesPopped() uint64 {
	return b.popped
}
