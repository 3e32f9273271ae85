package conn

import (
	"crypto/rand"
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/shadoxx152/minnow/ports"
	"github.com/shadoxx152/minnow/seqnum"
	"github.com/shadoxx152/minnow/types"
)

// Dialer hands out ephemeral local ports for outgoing Endpoints, the way a
// real host's connection table would
type Dialer struct {
	ports *ports.PortManager
	inUse map[uint16]bool
}

// NewDialer returns a Dialer with an empty port table
func NewDialer() *Dialer {
	return &Dialer{
		ports: ports.NewPortManager(),
		inUse: make(map[uint16]bool),
	}
}

// Dial picks an unused ephemeral local port and a random ISN, and returns a
// freshly-constructed Endpoint bound to remotePort. It does not perform a
// handshake: the caller drives that via Poll/HandleWire like any other
// traffic, exactly as the core's push()-synthesizes-SYN behavior expects
func (d *Dialer) Dial(capacity int, initialRTOMs uint64, remotePort uint16, log *zap.SugaredLogger) (*Endpoint, error) {
	localPort, err := d.ports.PickEphemeralPort(func(p uint16) (bool, error) {
		return !d.inUse[p], nil
	})
	if err != nil {
		return nil, err
	}
	d.inUse[localPort] = true

	isn, err := randomISN()
	if err != nil {
		return nil, err
	}

	return New(capacity, initialRTOMs, isn, localPort, remotePort, log), nil
}

// Release frees a previously Dial'd local port for reuse
func (d *Dialer) Release(localPort uint16) {
	delete(d.inUse, localPort)
}

func randomISN() (seqnum.Wrap32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return seqnum.Wrap32(0), types.ErrRandomSourceFailed
	}
	return seqnum.Value(binary.BigEndian.Uint32(b[:])), nil
}
