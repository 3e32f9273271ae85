package tcp

import (
	"github.com/shadoxx152/minnow/seqnum"
)

// Segment is the unit exchanged between a TCPSender and the peer's
// TCPReceiver. Its sequence length is SYN + len(Payload) + FIN; SYN and FIN
// each consume one sequence number, independent of payload size
type Segment struct {
	Seqno seqnum.Wrap32

	SYN bool
	FIN bool
	RST bool

	Payload []byte
}

// SequenceLength returns the number of absolute sequence numbers this
// segment occupies
func (s *Segment) SequenceLength() uint64 {
	n := uint64(len(s.Payload))
	if s.SYN {
		n++
	}
	if s.FIN {
		n++
	}
	return n
}
