package tcp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadoxx152/minnow/seqnum"
)

func TestWireRoundTripsSegmentAndAck(t *testing.T) {
	seg := &Segment{Seqno: seqnum.Value(100), SYN: true, Payload: []byte("hello")}
	ack := &ReceiverMessage{Ackno: seqnum.Value(55), AcknoValid: true, WindowSize: 4096}

	raw := EncodeWireSegment(seg, ack, 1234, 5678)
	gotSeg, gotAck := DecodeWireSegment(raw)

	require.Equal(t, seg.Seqno, gotSeg.Seqno)
	require.True(t, gotSeg.SYN)
	require.False(t, gotSeg.FIN)
	require.Equal(t, []byte("hello"), gotSeg.Payload)

	require.True(t, gotAck.AcknoValid)
	require.Equal(t, ack.Ackno, gotAck.Ackno)
	require.Equal(t, uint16(4096), gotAck.WindowSize)
}

func TestWireWithoutAckLeavesAckFlagUnset(t *testing.T) {
	seg := &Segment{Seqno: seqnum.Value(1), Payload: []byte("x")}
	raw := EncodeWireSegment(seg, nil, 1, 2)
	_, gotAck := DecodeWireSegment(raw)
	require.False(t, gotAck.AcknoValid)
}

func TestWireRstFlagFromEitherSide(t *testing.T) {
	seg := &Segment{Seqno: seqnum.Value(1)}
	ack := &ReceiverMessage{RST: true}
	raw := EncodeWireSegment(seg, ack, 1, 2)
	gotSeg, gotAck := DecodeWireSegment(raw)
	require.True(t, gotSeg.RST)
	require.True(t, gotAck.RST)
}
