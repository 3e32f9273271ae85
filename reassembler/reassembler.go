// Package reassembler merges out-of-order, possibly overlapping stream
// fragments into strict offset order and feeds the result to a ByteStream,
// holding future fragments under the stream's own capacity bound
package reassembler

import (
	"github.com/shadoxx152/minnow/bytestream"
	"github.com/shadoxx152/minnow/ilist"
)

// fragment is a pending, out-of-order, non-empty run of bytes, kept in an
// ilist ordered ascending by firstIndex. Stored fragments never overlap and
// are never adjacent: mergeable neighbors are coalesced on insert
type fragment struct {
	ilist.Entry

	firstIndex uint64
	data       []byte
}

func (f *fragment) lastIndex() uint64 {
	return f.firstIndex + uint64(len(f.data)) - 1
}

// Reassembler owns the inbound ByteStream and the set of pending fragments
// waiting on missing bytes before them
type Reassembler struct {
	output  *bytestream.ByteStream
	pending ilist.List

	// finalIndex is the absolute index one past the last byte of the
	// stream, once some accepted fragment has told us where the stream
	// ends. It is independent of which bytes have actually been pushed
	// yet: once bytesPushed reaches it, the output stream closes
	finalIndex    uint64
	finalIndexSet bool
}

// New returns a Reassembler that writes reassembled bytes into output
func New(output *bytestream.ByteStream) *Reassembler {
	return &Reassembler{output: output}
}

// Output returns the underlying ByteStream
func (r *Reassembler) Output() *bytestream.ByteStream {
	return r.output
}

// Insert accepts a fragment of the stream. See spec §4.3 for the full case
// analysis; this implementation follows it step by step
func (r *Reassembler) Insert(firstIndex uint64, data []byte, isLast bool) {
	if r.output.IsClosed() || r.output.HasError() {
		return
	}

	ni := r.output.BytesPushed()
	winEnd := ni + uint64(r.output.AvailableCapacity())

	// Trim already-consumed prefix
	if firstIndex < ni {
		trim := ni - firstIndex
		if trim > uint64(len(data)) {
			trim = uint64(len(data))
		}
		data = data[trim:]
		firstIndex = ni
	}

	// Reject entirely-past (or exactly-at-the-edge, zero-length) data.
	// A zero-length fragment landing exactly at ni still closes the
	// stream if it claims to be the end
	if firstIndex+uint64(len(data)) <= ni {
		if isLast && firstIndex+uint64(len(data)) == ni {
			r.markFinal(firstIndex + uint64(len(data)))
			r.closeIfFinished()
		}
		return
	}

	// Trim past-window suffix; a truncated tail can no longer be the end
	// of the stream. A fragment that starts at or beyond the window's
	// exclusive upper bound is rejected outright (empty keep)
	if firstIndex+uint64(len(data)) > winEnd {
		if firstIndex >= winEnd {
			data = nil
		} else {
			data = data[:winEnd-firstIndex]
		}
		isLast = false
	}

	if isLast {
		r.markFinal(firstIndex + uint64(len(data)))
	}

	switch {
	case firstIndex == ni:
		r.write(data)
		r.drainPending()
	case len(data) == 0:
		// A future end-of-stream marker with nothing to merge; finalIndex
		// already recorded above, nothing else to store
	default:
		r.mergeIntoPending(firstIndex, data)
	}

	r.closeIfFinished()
}

func (r *Reassembler) markFinal(endIndex uint64) {
	r.finalIndex = endIndex
	r.finalIndexSet = true
}

func (r *Reassembler) closeIfFinished() {
	if r.finalIndexSet && r.output.BytesPushed() == r.finalIndex {
		r.output.Close()
	}
}

// write pushes data, which must start exactly at the stream's current
// bytesPushed
func (r *Reassembler) write(data []byte) {
	r.output.Push(data)
}

// drainPending repeatedly takes the pending fragment with the smallest key
// and pushes whatever of it is now contiguous with the output stream
func (r *Reassembler) drainPending() {
	for {
		e := r.pending.Front()
		if e == nil {
			return
		}
		f := e.(*fragment)

		ni := r.output.BytesPushed()
		if f.firstIndex > ni {
			return
		}

		r.pending.Remove(f)

		if f.lastIndex() < ni {
			// Already fully covered by what's been pushed; discard
			continue
		}

		r.write(f.data[ni-f.firstIndex:])
	}
}

// mergeIntoPending coalesces [firstIndex, firstIndex+len(data)) with any
// overlapping or abutting neighbors already stored, then inserts the
// merged fragment in its ordered place. data is never empty here
func (r *Reassembler) mergeIntoPending(firstIndex uint64, data []byte) {
	lastIndex := firstIndex + uint64(len(data)) - 1

	// Find the rightmost existing fragment whose key is still less than
	// firstIndex; it's the left-neighbor candidate for coalescing and the
	// eventual insertion anchor
	var insertAfter ilist.Linker
	for e := r.pending.Front(); e != nil; e = e.Next() {
		f := e.(*fragment)
		if f.firstIndex >= firstIndex {
			break
		}
		insertAfter = e
	}

	if insertAfter != nil {
		prev := insertAfter.(*fragment)
		if prev.lastIndex()+1 >= firstIndex {
			if prev.lastIndex() >= lastIndex {
				// New data is entirely covered by prev; nothing to do
				return
			}

			merged := append(append([]byte(nil), prev.data...), data[prev.lastIndex()-firstIndex+1:]...)
			firstIndex = prev.firstIndex
			data = merged

			r.pending.Remove(prev)
			insertAfter = prev.Prev()
		}
	}

	// Coalesce with every right neighbor whose key lies within, or
	// immediately after, the new fragment's extent
	for {
		var e ilist.Linker
		if insertAfter != nil {
			e = insertAfter.Next()
		} else {
			e = r.pending.Front()
		}
		if e == nil {
			break
		}
		f := e.(*fragment)
		if f.firstIndex > lastIndex+1 {
			break
		}

		if f.lastIndex() > lastIndex {
			data = append(append([]byte(nil), data...), f.data[lastIndex-f.firstIndex+1:]...)
			lastIndex = f.lastIndex()
		}

		r.pending.Remove(f)
	}

	nf := &fragment{firstIndex: firstIndex, data: data}
	switch {
	case insertAfter == nil:
		r.pending.PushFront(nf)
	case insertAfter.Next() != nil:
		r.pending.InsertBefore(insertAfter.Next(), nf)
	default:
		r.pending.PushBack(nf)
	}
}

// CountBytesPending returns the sum of stored-fragment payload sizes
// (stored bytes only, excluding the gaps between them)
func (r *Reassembler) CountBytesPending() int {
	n := 0
	for e := r.pending.Front(); e != nil; e = e.Next() {
		n += len(e.(*fragment).data)
	}
	return n
}

// SetError marks the underlying stream as having encountered an error.
// Subsequent inserts are dropped (see Insert), and the consumer observes
// HasError on the stream
func (r *Reassembler) SetError() {
	r.output.SetError()
}
