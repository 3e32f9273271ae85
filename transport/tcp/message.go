package tcp

import (
	"github.com/shadoxx152/minnow/seqnum"
)

// ReceiverMessage is what a TCPReceiver hands back to the outer protocol for
// delivery to the peer's TCPSender
type ReceiverMessage struct {
	Ackno      seqnum.Wrap32
	AcknoValid bool

	WindowSize uint16

	RST bool
}
