package main

import "math/rand"

// lossyLink is an in-memory channel between the client and server that
// drops, duplicates and reorders the raw wire segments passed over it,
// standing in for a real unreliable network
type lossyLink struct {
	rng *rand.Rand

	lossRate      float64
	duplicateRate float64

	toServer [][]byte
	toClient [][]byte
}

func newLossyLink(rng *rand.Rand, lossRate, duplicateRate float64) *lossyLink {
	return &lossyLink{rng: rng, lossRate: lossRate, duplicateRate: duplicateRate}
}

func (l *lossyLink) sendToServer(raw []byte) {
	l.toServer = append(l.toServer, l.scatter(raw)...)
}

func (l *lossyLink) sendToClient(raw []byte) {
	l.toClient = append(l.toClient, l.scatter(raw)...)
}

// scatter applies loss and duplication to a single outgoing segment,
// returning zero, one, or two copies of it
func (l *lossyLink) scatter(raw []byte) [][]byte {
	if l.rng.Float64() < l.lossRate {
		return nil
	}
	out := [][]byte{raw}
	if l.rng.Float64() < l.duplicateRate {
		out = append(out, raw)
	}
	return out
}

// deliverToServer returns, in random order, everything queued for the
// server since the last call, and clears the queue
func (l *lossyLink) deliverToServer() [][]byte {
	return l.drain(&l.toServer)
}

// deliverToClient is deliverToServer's mirror for the client side
func (l *lossyLink) deliverToClient() [][]byte {
	return l.drain(&l.toClient)
}

func (l *lossyLink) drain(queue *[][]byte) [][]byte {
	segs := *queue
	*queue = nil
	l.rng.Shuffle(len(segs), func(i, j int) { segs[i], segs[j] = segs[j], segs[i] })
	return segs
}
