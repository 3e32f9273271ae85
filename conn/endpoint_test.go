package conn

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadoxx152/minnow/seqnum"
	"github.com/shadoxx152/minnow/types"
)

// wireUp returns a pair of Endpoints, each one piping its outgoing bytes
// straight into the other's HandleWire. Segments are delivered synchronously
// within Poll, with no loss or reordering
func wireUp(t *testing.T, capacity int) (a, b *Endpoint) {
	t.Helper()

	a = New(capacity, 1000, seqnum.Value(100), 1000, 2000, nil)
	b = New(capacity, 1000, seqnum.Value(900), 2000, 1000, nil)
	return a, b
}

// exchange polls both endpoints once and delivers whatever either one sent
// to the other, simulating one round trip over a lossless wire
func exchange(a, b *Endpoint) {
	var aOut, bOut [][]byte
	a.Poll(0, func(raw []byte) { aOut = append(aOut, raw) })
	b.Poll(0, func(raw []byte) { bOut = append(bOut, raw) })
	for _, raw := range aOut {
		b.HandleWire(raw)
	}
	for _, raw := range bOut {
		a.HandleWire(raw)
	}
}

func TestEndpointHandshakeAndDataTransfer(t *testing.T) {
	a, b := wireUp(t, 64)

	var aOut, bOut [][]byte
	a.Poll(0, func(raw []byte) { aOut = append(aOut, raw) })
	require.Len(t, aOut, 1) // bare SYN

	for _, raw := range aOut {
		b.HandleWire(raw)
	}
	aOut = nil

	b.Poll(0, func(raw []byte) { bOut = append(bOut, raw) })
	require.NotEmpty(t, bOut) // SYN + ack piggyback
	for _, raw := range bOut {
		a.HandleWire(raw)
	}
	bOut = nil

	n, err := a.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	a.Poll(0, func(raw []byte) { aOut = append(aOut, raw) })
	require.NotEmpty(t, aOut)
	for _, raw := range aOut {
		b.HandleWire(raw)
	}

	buf := make([]byte, 16)
	got, err := b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:got]))
}

func TestEndpointReadWouldBlockThenEOFAfterClose(t *testing.T) {
	a, b := wireUp(t, 64)

	buf := make([]byte, 4)
	_, err := b.Read(buf)
	require.Equal(t, types.ErrWouldBlock, err)

	for i := 0; i < 3; i++ {
		exchange(a, b)
	}

	a.CloseWrite()
	for i := 0; i < 3; i++ {
		exchange(a, b)
	}

	_, err = b.Read(buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestEndpointWriteAfterCloseIsRejected(t *testing.T) {
	a, _ := wireUp(t, 64)
	a.CloseWrite()

	_, err := a.Write([]byte("x"))
	require.Equal(t, types.ErrClosedForSend, err)
}
