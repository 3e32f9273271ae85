// Package conn is the external collaborator spec §5 carves out of the core:
// a concurrent host that owns a TCPSender/TCPReceiver pair, serializes
// access to them with a try-lock mutex, and exposes readiness events to
// whatever is driving the connection (a select loop, a poller, a CLI demo)
package conn

import (
	"io"

	"go.uber.org/zap"

	"github.com/shadoxx152/minnow/bytestream"
	"github.com/shadoxx152/minnow/seqnum"
	"github.com/shadoxx152/minnow/tmutex"
	"github.com/shadoxx152/minnow/transport/tcp"
	"github.com/shadoxx152/minnow/types"
	"github.com/shadoxx152/minnow/waiter"
)

// Endpoint is one side of a connection: a TCPSender draining an outbound
// ByteStream, and a TCPReceiver filling an inbound one through its
// Reassembler. It is the single owner of both streams; callers only ever
// reach them through Endpoint's locked methods
type Endpoint struct {
	mu tmutex.Mutex

	readable waiter.Queue
	writable waiter.Queue

	sender   *tcp.TCPSender
	receiver *tcp.TCPReceiver

	localPort, remotePort uint16

	lastAnnounced tcp.ReceiverMessage

	log *zap.SugaredLogger
}

// New returns an Endpoint with the given stream capacity (applied to both
// directions), initial RTO in milliseconds, and wire ISN. log may be nil
func New(capacity int, initialRTOMs uint64, isn seqnum.Wrap32, localPort, remotePort uint16, log *zap.SugaredLogger) *Endpoint {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	e := &Endpoint{
		sender:     tcp.NewTCPSender(bytestream.New(capacity), isn, initialRTOMs),
		receiver:   tcp.NewTCPReceiver(bytestream.New(capacity)),
		localPort:  localPort,
		remotePort: remotePort,
		log:        log.With("local_port", localPort, "remote_port", remotePort),
	}
	e.mu.Init()
	return e
}

// ReadableEvents exposes the waiter queue notified whenever new bytes (or
// end-of-stream) become visible to Read
func (e *Endpoint) ReadableEvents() *waiter.Queue {
	return &e.readable
}

// WritableEvents exposes the waiter queue notified whenever Write regains
// room to accept more bytes
func (e *Endpoint) WritableEvents() *waiter.Queue {
	return &e.writable
}

// Write appends data to the outbound stream. It never blocks: if the
// stream is closed it returns types.ErrClosedForSend
func (e *Endpoint) Write(data []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	outbound := e.sender.Outbound()
	if outbound.IsClosed() {
		return 0, types.ErrClosedForSend
	}

	n := outbound.Push(data)
	return n, nil
}

// CloseWrite half-closes the outbound stream; a FIN is sent once the sender
// drains the remaining bytes
func (e *Endpoint) CloseWrite() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sender.Outbound().Close()
}

// Read copies buffered, reassembled bytes into buf. If nothing is currently
// available and the stream is not finished, it returns types.ErrWouldBlock;
// wait on ReadableEvents() before retrying. Once the stream is finished and
// drained, it returns io.EOF
func (e *Endpoint) Read(buf []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inbound := e.receiver.Reassembler().Output()
	view := inbound.Peek()
	if len(view) == 0 {
		if inbound.IsFinished() {
			return 0, io.EOF
		}
		return 0, types.ErrWouldBlock
	}

	n := copy(buf, view)
	inbound.Pop(n)
	return n, nil
}

// HandleWire decodes raw bytes arriving from the peer and applies the
// segment to the receiver and the piggybacked ack to the sender
func (e *Endpoint) HandleWire(raw []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	seg, ack := tcp.DecodeWireSegment(raw)

	if seg.RST || ack.RST {
		e.log.Warnw("peer reset connection")
	}

	e.receiver.Receive(seg)
	e.sender.Receive(ack)

	e.readable.Notify(waiter.EventIn)
	e.writable.Notify(waiter.EventOut)
}

// Poll drives time forward by msElapsed, lets the sender fill the window
// and retransmit as needed, and hands transmit every outgoing wire segment.
// It always piggybacks the receiver's current ack/window, and emits a bare
// ack-only segment when nothing else is due to go out but the advertised
// ack or window has changed since the last one sent
func (e *Endpoint) Poll(msElapsed uint64, transmit func(raw []byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var segs []*tcp.Segment
	emit := func(seg *tcp.Segment) { segs = append(segs, seg) }

	e.sender.Tick(msElapsed, emit)
	e.sender.Push(emit)

	ack := e.receiver.Send()

	if len(segs) == 0 && e.ackWorthResending(&ack) {
		empty := e.sender.MakeEmptyMessage()
		segs = append(segs, &empty)
	}

	for _, seg := range segs {
		transmit(tcp.EncodeWireSegment(seg, &ack, e.localPort, e.remotePort))
	}

	if len(segs) > 0 {
		e.lastAnnounced = ack
	}

	if e.sender.Outbound().IsClosed() {
		e.writable.Notify(waiter.EventOut)
	}
}

func (e *Endpoint) ackWorthResending(ack *tcp.ReceiverMessage) bool {
	return *ack != e.lastAnnounced
}

// Finished reports whether the inbound stream has been fully delivered and
// drained
func (e *Endpoint) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.receiver.Reassembler().Output().IsFinished()
}
