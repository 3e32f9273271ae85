package tcp

import (
	"github.com/shadoxx152/minnow/bytestream"
	"github.com/shadoxx152/minnow/ilist"
	"github.com/shadoxx152/minnow/seqnum"
)

// MaxPayloadSize bounds the payload carried by any one segment a TCPSender
// emits
const MaxPayloadSize = 1000

// outstandingSegment is a sent-but-not-yet-fully-acked segment, kept in an
// ilist ordered by ascending absSeqno (the order segments are appended in,
// since last_seq only ever increases)
type outstandingSegment struct {
	ilist.Entry

	absSeqno uint64
	segment  Segment
}

func (o *outstandingSegment) lastAbsSeqno() uint64 {
	return o.absSeqno + o.segment.SequenceLength() - 1
}

// TransmitFunc is called synchronously with each segment a TCPSender wants
// sent. It must not reenter the sender
type TransmitFunc func(seg *Segment)

// TCPSender drains an outbound ByteStream into segments, tracks what is
// outstanding, and retransmits on timeout with exponential backoff
type TCPSender struct {
	outbound *bytestream.ByteStream

	isn   seqnum.Wrap32
	timer *retransmissionTimer

	outstanding ilist.List

	lastSeq uint64 // next absolute seqno to send
	lastAck uint64 // largest absolute ackno received so far; every seqno below it is acknowledged

	receiverWindow uint16

	synSent bool
	finSent bool
}

// NewTCPSender returns a TCPSender draining outbound, using isn as the wire
// ISN and initialRTOMs as the starting retransmission timeout
func NewTCPSender(outbound *bytestream.ByteStream, isn seqnum.Wrap32, initialRTOMs uint64) *TCPSender {
	return &TCPSender{
		outbound: outbound,
		isn:      isn,
		timer:    newRetransmissionTimer(initialRTOMs),
	}
}

// Outbound returns the ByteStream the sender drains. Callers outside the
// core (a conn) use it to push application data and signal half-close
func (s *TCPSender) Outbound() *bytestream.ByteStream {
	return s.outbound
}

func (s *TCPSender) effectiveWindow() uint64 {
	w := uint64(s.receiverWindow)
	if w == 0 {
		return 1
	}
	return w
}

func (s *TCPSender) windowAtLastAckWasZero() bool {
	return s.receiverWindow == 0
}

func (s *TCPSender) record(absSeqno uint64, seg Segment) {
	s.outstanding.PushBack(&outstandingSegment{absSeqno: absSeqno, segment: seg})
	if !s.timer.isRunning() {
		s.timer.start()
	}
}

// Push transmits only a SYN segment, and returns, if one hasn't gone out
// yet; otherwise it fills the send window with as much outbound data (and,
// eventually, FIN) as fits
func (s *TCPSender) Push(transmit TransmitFunc) {
	if !s.synSent {
		seg := Segment{Seqno: s.isn, SYN: true}
		transmit(&seg)
		s.record(0, seg)
		s.synSent = true
		s.lastSeq++
		return
	}

	for {
		rightEdge := s.lastAck + s.effectiveWindow()
		if s.lastSeq >= rightEdge {
			return
		}
		windowRemaining := rightEdge - s.lastSeq

		take := windowRemaining
		if take > MaxPayloadSize {
			take = MaxPayloadSize
		}

		payload := peekUpTo(s.outbound, int(take))

		seg := Segment{Seqno: seqnum.Wrap(s.lastSeq, s.isn), Payload: payload}

		if s.outbound.IsClosed() && !s.finSent {
			postFINSeqno := s.lastSeq + uint64(len(payload)) + 1
			if postFINSeqno <= rightEdge {
				seg.FIN = true
			}
		}

		if seg.SequenceLength() == 0 {
			return
		}

		transmit(&seg)
		s.record(s.lastSeq, seg)
		s.lastSeq += seg.SequenceLength()
		s.outbound.Pop(len(payload))
		if seg.FIN {
			s.finSent = true
		}
	}
}

// peekUpTo returns up to n bytes from the front of bs without popping them.
// A single Peek call only returns a contiguous run up to the ring's wrap
// point, so this may return fewer than n bytes even if more are buffered
func peekUpTo(bs *bytestream.ByteStream, n int) []byte {
	view := bs.Peek()
	if len(view) > n {
		view = view[:n]
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out
}

// Receive applies an incoming ReceiverMessage
func (s *TCPSender) Receive(msg *ReceiverMessage) {
	if msg.RST {
		s.outbound.SetError()
		return
	}

	if !msg.AcknoValid {
		return
	}

	s.receiverWindow = msg.WindowSize

	absAck := msg.Ackno.Unwrap(s.isn, s.lastAck)
	if absAck > s.lastSeq || absAck <= s.lastAck {
		return
	}

	s.lastAck = absAck

	for e := s.outstanding.Front(); e != nil; {
		o := e.(*outstandingSegment)
		next := e.Next()
		if o.lastAbsSeqno() < s.lastAck {
			s.outstanding.Remove(o)
		}
		e = next
	}

	s.timer.resetToInitial()

	if s.outstanding.Empty() {
		s.timer.stop()
	} else {
		s.timer.restart()
	}
}

// MakeEmptyMessage returns a bare segment carrying only the current seqno,
// for the outer protocol to use as an ack-only message. It carries RST if
// the outbound stream has recorded an error, so the peer learns of a local
// reset at the next opportunity to send
func (s *TCPSender) MakeEmptyMessage() Segment {
	return Segment{Seqno: seqnum.Wrap(s.lastSeq, s.isn), RST: s.outbound.HasError()}
}

// Tick advances the retransmission timer by msElapsed and retransmits the
// oldest outstanding segment if the current RTO has elapsed
func (s *TCPSender) Tick(msElapsed uint64, transmit TransmitFunc) {
	if !s.timer.isRunning() {
		return
	}

	s.timer.tick(msElapsed)
	if !s.timer.expired() || s.outstanding.Empty() {
		return
	}

	oldest := s.outstanding.Front().(*outstandingSegment)
	transmit(&oldest.segment)

	if !s.windowAtLastAckWasZero() {
		s.timer.backoff()
	}

	s.timer.restart()
}

// SequenceNumbersInFlight returns the total sequence length of all segments
// sent but not yet fully acknowledged
func (s *TCPSender) SequenceNumbersInFlight() uint64 {
	var n uint64
	for e := s.outstanding.Front(); e != nil; e = e.Next() {
		n += e.(*outstandingSegment).segment.SequenceLength()
	}
	return n
}

// ConsecutiveRetransmissions returns the current exponential-backoff count
func (s *TCPSender) ConsecutiveRetransmissions() uint64 {
	return s.timer.consecutiveRetransmissions
}
