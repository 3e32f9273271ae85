package tcp

import (
	"github.com/shadoxx152/minnow/bytestream"
	"github.com/shadoxx152/minnow/reassembler"
	"github.com/shadoxx152/minnow/seqnum"
)

// maxWindowSize is the largest window_size a ReceiverMessage can advertise
const maxWindowSize = 1<<16 - 1

// TCPReceiver turns incoming segments into a reassembled byte stream and
// produces the ackno/window advertised back to the sender
type TCPReceiver struct {
	reassembler *reassembler.Reassembler

	isn    seqnum.Wrap32
	isnSet bool

	checkpoint uint64
	finSeen    bool
}

// NewTCPReceiver returns a TCPReceiver whose reassembled bytes land in output
func NewTCPReceiver(output *bytestream.ByteStream) *TCPReceiver {
	return &TCPReceiver{
		reassembler: reassembler.New(output),
	}
}

// Reassembler exposes the underlying reassembler, chiefly so the caller can
// reach its output stream
func (r *TCPReceiver) Reassembler() *reassembler.Reassembler {
	return r.reassembler
}

// Receive processes one incoming segment
func (r *TCPReceiver) Receive(seg *Segment) {
	if seg.RST {
		r.reassembler.SetError()
		return
	}

	if seg.SYN && !r.isnSet {
		r.isn = seg.Seqno
		r.isnSet = true
		r.finSeen = false
	}

	if seg.FIN {
		r.finSeen = true
	}

	if !r.isnSet {
		// Pre-SYN segments are dropped; we have no ISN to unwrap against
		return
	}

	abs := seg.Seqno.Unwrap(r.isn, r.checkpoint)

	var streamIndex uint64
	if seg.SYN {
		streamIndex = 0
	} else {
		// abs is at least 1 here: a non-SYN segment can't legitimately
		// unwrap to absolute seqno 0, since 0 is always the SYN itself
		streamIndex = abs - 1
	}

	r.reassembler.Insert(streamIndex, seg.Payload, seg.FIN)

	r.checkpoint = abs + uint64(len(seg.Payload))
}

// Send returns the message to report back to the peer's sender
func (r *TCPReceiver) Send() ReceiverMessage {
	output := r.reassembler.Output()

	msg := ReceiverMessage{
		RST: output.HasError(),
	}

	if r.isnSet {
		ackIndex := output.BytesPushed() + 1
		if output.IsClosed() && r.finSeen {
			ackIndex++
		}
		msg.Ackno = seqnum.Wrap(ackIndex, r.isn)
		msg.AcknoValid = true
	}

	win := output.AvailableCapacity()
	if win > maxWindowSize {
		win = maxWindowSize
	}
	msg.WindowSize = uint16(win)

	return msg
}
