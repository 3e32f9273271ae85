package tcp

import (
	"github.com/shadoxx152/minnow/buffer"
	"github.com/shadoxx152/minnow/header"
	"github.com/shadoxx152/minnow/seqnum"
)

// EncodeWireSegment serialises seg, piggybacking ack (if any field of it is
// set) onto the same header the way a real TCP segment carries both a
// sequence number and an ack number at once. Framing, checksumming and IP
// encapsulation live outside the core; this is the thin seam a conn uses to
// turn a (Segment, ReceiverMessage) pair into bytes
func EncodeWireSegment(seg *Segment, ack *ReceiverMessage, srcPort, dstPort uint16) []byte {
	// The header is built back-to-front in a Prependable the way the
	// teacher's link-layer WritePacket builds a packet: the payload is
	// already laid out, and each header reserves and fills its own room
	// immediately in front of it
	hdr := buffer.NewPrependable(header.TCPMinimumSize)
	h := header.TCP(hdr.Prepend(header.TCPMinimumSize))

	var flags uint8
	if seg.SYN {
		flags |= header.TCPFlagSyn
	}
	if seg.FIN {
		flags |= header.TCPFlagFin
	}
	if seg.RST || (ack != nil && ack.RST) {
		flags |= header.TCPFlagRst
	}

	var ackNum uint32
	var windowSize uint16
	if ack != nil {
		windowSize = ack.WindowSize
		if ack.AcknoValid {
			flags |= header.TCPFlagAck
			ackNum = ack.Ackno.Raw()
		}
	}

	h.Encode(&header.TCPFields{
		SrcPort:    srcPort,
		DstPort:    dstPort,
		SeqNum:     seg.Seqno.Raw(),
		AckNum:     ackNum,
		DataOffset: header.TCPMinimumSize,
		Flags:      flags,
		WindowSize: windowSize,
	})

	return append(hdr.View(), seg.Payload...)
}

// DecodeWireSegment parses a raw TCP header plus payload back into the
// Segment it carries and the ReceiverMessage piggybacked on it. It does not
// validate the checksum; that is the transport collaborator's job
func DecodeWireSegment(raw []byte) (*Segment, *ReceiverMessage) {
	h := header.TCP(raw)
	flags := h.Flags()

	payload := h.Payload()
	owned := make([]byte, len(payload))
	copy(owned, payload)

	rst := flags&header.TCPFlagRst != 0

	seg := &Segment{
		Seqno:   seqnum.Value(h.SequenceNumber()),
		SYN:     flags&header.TCPFlagSyn != 0,
		FIN:     flags&header.TCPFlagFin != 0,
		RST:     rst,
		Payload: owned,
	}

	ack := &ReceiverMessage{
		WindowSize: h.WindowSize(),
		RST:        rst,
	}
	if flags&header.TCPFlagAck != 0 {
		ack.Ackno = seqnum.Value(h.AckNumber())
		ack.AcknoValid = true
	}

	return seg, ack
}
