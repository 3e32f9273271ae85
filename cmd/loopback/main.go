// Command loopback drives a pair of conn.Endpoint values across an
// in-memory, lossy, reordering, duplicating link to demonstrate the whole
// stack converging under adverse network conditions, per spec §8's
// end-to-end scenarios
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"

	"github.com/shadoxx152/minnow/conn"
	"github.com/shadoxx152/minnow/seqnum"
)

func main() {
	capacity := flag.Int("capacity", 64*1024, "byte stream capacity, in bytes")
	initialRTO := flag.Uint64("rto", 1000, "initial retransmission timeout, in ms")
	lossRate := flag.Float64("loss", 0.1, "probability a given segment is dropped in transit")
	duplicateRate := flag.Float64("dup", 0.05, "probability a given segment is duplicated in transit")
	payloadSize := flag.Int("bytes", 100_000, "number of bytes to transfer")
	seed := flag.Int64("seed", 1, "PRNG seed for the simulated link")
	tickMs := flag.Uint64("tick", 10, "milliseconds simulated per loop iteration")
	maxTicks := flag.Int("max-ticks", 200_000, "safety bound on loop iterations")
	verbose := flag.Bool("v", false, "debug-level logging")
	flag.Parse()

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if *verbose {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	rng := rand.New(rand.NewSource(*seed))

	client := conn.New(*capacity, *initialRTO, seqnum.Value(rng.Uint32()), 40000, 80, log.Named("client"))
	server := conn.New(*capacity, *initialRTO, seqnum.Value(rng.Uint32()), 80, 40000, log.Named("server"))

	link := newLossyLink(rng, *lossRate, *duplicateRate)

	payload := make([]byte, *payloadSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	written := 0

	received := make([]byte, 0, *payloadSize)
	readBuf := make([]byte, 4096)

	for tick := 0; tick < *maxTicks; tick++ {
		if written < len(payload) {
			n, werr := client.Write(payload[written:])
			if werr == nil {
				written += n
			}
			if written == len(payload) {
				client.CloseWrite()
				log.Infow("client finished writing", "bytes", written)
			}
		}

		client.Poll(*tickMs, link.sendToServer)
		server.Poll(*tickMs, link.sendToClient)

		for _, raw := range link.deliverToServer() {
			server.HandleWire(raw)
		}
		for _, raw := range link.deliverToClient() {
			client.HandleWire(raw)
		}

		for {
			n, rerr := server.Read(readBuf)
			if n > 0 {
				received = append(received, readBuf[:n]...)
			}
			if rerr != nil {
				break
			}
		}

		if server.Finished() && len(received) == len(payload) {
			log.Infow("transfer complete", "ticks", tick, "bytes", len(received))
			os.Exit(0)
		}
	}

	log.Errorw("transfer did not complete within max-ticks", "received", len(received), "want", len(payload))
	os.Exit(1)
}
