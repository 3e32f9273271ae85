package tcp

// retransmissionTimer tracks the sender's single RTO-driven timer. It knows
// nothing about segments; tick callers decide what "expired" means
type retransmissionTimer struct {
	initialRTOMs uint64
	currentRTOMs uint64

	running      bool
	elapsedMs    uint64
	consecutiveRetransmissions uint64
}

func newRetransmissionTimer(initialRTOMs uint64) *retransmissionTimer {
	return &retransmissionTimer{
		initialRTOMs: initialRTOMs,
		currentRTOMs: initialRTOMs,
	}
}

func (t *retransmissionTimer) start() {
	t.running = true
	t.elapsedMs = 0
}

func (t *retransmissionTimer) stop() {
	t.running = false
}

func (t *retransmissionTimer) isRunning() bool {
	return t.running
}

// restart restarts the timer at the current RTO, with a fresh accumulator
func (t *retransmissionTimer) restart() {
	t.elapsedMs = 0
	t.running = true
}

func (t *retransmissionTimer) tick(msElapsed uint64) {
	t.elapsedMs += msElapsed
}

func (t *retransmissionTimer) expired() bool {
	return t.elapsedMs >= t.currentRTOMs
}

// backoff doubles the RTO and bumps the retransmission count, the penalty
// paid when the peer's advertised window was non-zero at the last ack
func (t *retransmissionTimer) backoff() {
	t.currentRTOMs *= 2
	t.consecutiveRetransmissions++
}

// resetToInitial restores the RTO and retransmission count, called once a
// new ack makes progress
func (t *retransmissionTimer) resetToInitial() {
	t.currentRTOMs = t.initialRTOMs
	t.consecutiveRetransmissions = 0
}
