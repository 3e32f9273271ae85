// Package seqnum implements the 32-bit wire sequence number arithmetic used
// by transport/tcp: wrapping an absolute 64-bit stream index down onto the
// wire, and unwrapping a wire value back to the absolute index closest to a
// supplied checkpoint
package seqnum

const wrapSize = uint64(1) << 32
const halfWrap = uint64(1) << 31

// Wrap32 is a 32-bit sequence number as it appears on the wire, relative to
// some per-connection zero point (the ISN). Arithmetic on Wrap32 wraps
// modulo 2^32, exactly as the wire field does
type Wrap32 uint32

// Value constructs a Wrap32 from a raw 32-bit wire value
func Value(raw uint32) Wrap32 {
	return Wrap32(raw)
}

// Raw returns the underlying 32-bit value
func (w Wrap32) Raw() uint32 {
	return uint32(w)
}

// Wrap returns the Wrap32 corresponding to absolute index n, relative to
// zeroPoint. It is zeroPoint + (n mod 2^32), with the addition itself
// wrapping modulo 2^32
func Wrap(n uint64, zeroPoint Wrap32) Wrap32 {
	return zeroPoint.Add(uint32(n % wrapSize))
}

// Add returns w advanced by delta, wrapping modulo 2^32
func (w Wrap32) Add(delta uint32) Wrap32 {
	return Wrap32(uint32(w) + delta)
}

// Sub returns the modular difference w - o, as an unsigned 32-bit offset
func (w Wrap32) Sub(o Wrap32) uint32 {
	return uint32(w) - uint32(o)
}

// Equal reports whether w and o are the same wire value
func (w Wrap32) Equal(o Wrap32) bool {
	return w == o
}

// Unwrap returns the unique absolute 64-bit index v such that
// Wrap(v, zeroPoint) == w and |v - checkpoint| is minimized, breaking an
// exact 2^31 tie toward the smaller v
func (w Wrap32) Unwrap(zeroPoint Wrap32, checkpoint uint64) uint64 {
	offset := uint64(w.Sub(zeroPoint))

	base := checkpoint &^ (wrapSize - 1)
	candidate := base + offset

	switch {
	case candidate+halfWrap < checkpoint:
		candidate += wrapSize
	case candidate >= checkpoint+halfWrap && candidate >= wrapSize:
		candidate -= wrapSize
	}

	return candidate
}

// InRange reports whether n lies in the half-open range [lo, hi) of
// absolute stream indices. It is a small readability helper for window
// checks; transport/tcp does not call it and compares the bounds directly
func InRange(n, lo, hi uint64) bool {
	return n >= lo && n < hi
}
