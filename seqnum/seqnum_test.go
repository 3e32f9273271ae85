package seqnum

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapBasic(t *testing.T) {
	for _, test := range []struct {
		name string
		n    uint64
		zero Wrap32
		want Wrap32
	}{
		{"zero-at-zero", 0, Value(0), Value(0)},
		{"three-wraps-around", 3 * (uint64(1) << 32), Value(0), Value(0)},
		{"offset-past-wrap", 3*(uint64(1)<<32) + 17, Value(15), Value(32)},
		{"offset-before-wrap", 7*(uint64(1)<<32) - 2, Value(15), Value(13)},
	} {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.want, Wrap(test.n, test.zero))
		})
	}
}

// TestUnwrapInverse checks the property from spec §8: for any n, zero and
// checkpoint with |n - checkpoint| < 2^31, wrapping n and then unwrapping it
// about the same checkpoint must return n exactly
func TestUnwrapInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 10000; i++ {
		zero := Value(rng.Uint32())

		// Keep checkpoint comfortably away from the uint64 edges so the
		// checkpoint +/- 2^31 arithmetic below can't itself overflow
		checkpoint := uint64(1)<<33 + rng.Uint64()%(uint64(1)<<40)

		delta := int64(rng.Int31()) - int64(rng.Int31()) // comfortably inside (-2^31, 2^31)
		n := uint64(int64(checkpoint) + delta)

		wrapped := Wrap(n, zero)
		got := wrapped.Unwrap(zero, checkpoint)
		require.Equalf(t, n, got, "zero=%v checkpoint=%d n=%d wrapped=%v", zero, checkpoint, n, wrapped)
	}
}

func TestUnwrapPicksClosestCandidate(t *testing.T) {
	// checkpoint sits just past a 2^32 boundary; the candidate shortly
	// before the boundary (distance 7) is closer than the one a further
	// 2^32 beyond it, so it must win even though naive base-rounding
	// would first land on the latter
	zero := Value(0)
	checkpoint := uint64(1)<<32 + 5
	wrapped := Value(4294967294) // 2^32 - 2, i.e. -2 mod 2^32

	got := wrapped.Unwrap(zero, checkpoint)
	require.Equal(t, uint64(4294967294), got)
}

func TestUnwrapTieBreaksTowardSmallerValue(t *testing.T) {
	// checkpoint exactly 2^31 away from two congruent candidates must
	// resolve to the smaller one
	zero := Value(0)
	checkpoint := uint64(1) << 31
	wrapped := Value(0)

	got := wrapped.Unwrap(zero, checkpoint)
	require.Equal(t, uint64(0), got)
}

func TestAddSubRoundTrip(t *testing.T) {
	w := Value(4294967290)
	advanced := w.Add(10)
	require.Equal(t, uint32(4), advanced.Raw())
	require.Equal(t, uint32(10), advanced.Sub(w))
}
