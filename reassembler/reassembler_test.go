package reassembler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadoxx152/minnow/bytestream"
)

func newReassembler(capacity int) (*Reassembler, *bytestream.ByteStream) {
	bs := bytestream.New(capacity)
	return New(bs), bs
}

func readAll(bs *bytestream.ByteStream) string {
	var out []byte
	for {
		v := bs.Peek()
		if len(v) == 0 {
			break
		}
		out = append(out, v...)
		bs.Pop(len(v))
	}
	return string(out)
}

func TestInOrderDelivery(t *testing.T) {
	r, bs := newReassembler(16)
	r.Insert(0, []byte("abc"), false)
	r.Insert(3, []byte("def"), false)
	r.Insert(6, []byte("ghi"), true)

	require.Equal(t, "abcdefghi", readAll(bs))
	require.True(t, bs.IsFinished())
}

func TestOutOfOrderWithOverlap(t *testing.T) {
	r, bs := newReassembler(10)
	r.Insert(3, []byte("defg"), false)
	r.Insert(0, []byte("abcd"), false)
	r.Insert(6, []byte("ghij"), true)

	require.Equal(t, "abcdefghij", readAll(bs))
	require.True(t, bs.IsFinished())
}

func TestBeyondCapacityTruncatesAndSuppressesIsLast(t *testing.T) {
	r, bs := newReassembler(4)
	r.Insert(0, []byte("abcdefgh"), true)

	require.Equal(t, "abcd", readAll(bs))
	require.False(t, bs.IsFinished())
}

func TestDuplicateOverlappingInsertsAreIdempotent(t *testing.T) {
	r, bs := newReassembler(10)
	r.Insert(0, []byte("ab"), false)
	r.Insert(0, []byte("ab"), false) // exact duplicate of already-pushed data
	r.Insert(1, []byte("b"), false)  // overlaps already-pushed data only

	require.Equal(t, "ab", readAll(bs))
	require.Equal(t, 0, r.CountBytesPending())
}

func TestPendingFragmentsCoalesceAcrossMultipleNeighbors(t *testing.T) {
	r, bs := newReassembler(20)
	r.Insert(10, []byte("k"), false)
	r.Insert(15, []byte("p"), false)
	r.Insert(5, []byte("fghijklmnopqrst"), true) // spans and swallows both pending fragments
	require.Equal(t, 15, r.CountBytesPending())  // still waiting on bytes [0,5)

	r.Insert(0, []byte("abcde"), false)
	require.Equal(t, "abcdefghijklmnopqrst", readAll(bs))
	require.True(t, bs.IsFinished())
}

func TestEmptyFinalFragmentAtOrBeforeNextIndexCloses(t *testing.T) {
	r, bs := newReassembler(10)
	r.Insert(0, []byte("ab"), false)
	r.Insert(0, []byte(""), true) // zero-length, first_index < next_index
	require.Equal(t, "ab", readAll(bs))
	require.True(t, bs.IsFinished())
}

func TestPendingZeroLengthFinalMarkerClosesOnceReached(t *testing.T) {
	r, bs := newReassembler(10)
	r.Insert(3, nil, true) // stream ends at offset 3, but nothing there yet
	require.False(t, bs.IsFinished())
	r.Insert(0, []byte("abc"), false)
	require.Equal(t, "abc", readAll(bs))
	require.True(t, bs.IsFinished())
}

func TestClosedStreamDropsFurtherInserts(t *testing.T) {
	r, bs := newReassembler(10)
	r.Insert(0, []byte("ab"), true)
	require.True(t, bs.IsClosed())
	r.Insert(2, []byte("cd"), false)
	require.Equal(t, "ab", readAll(bs))
}

func TestErroredStreamDropsFurtherInserts(t *testing.T) {
	r, bs := newReassembler(10)
	r.SetError()
	r.Insert(0, []byte("ab"), false)
	require.Equal(t, 0, bs.BytesBuffered())
	require.True(t, bs.HasError())
}

// TestBoundednessProperty checks spec §8: count_bytes_pending +
// bytes_buffered never exceeds capacity
func TestBoundednessProperty(t *testing.T) {
	const capacity = 12
	rng := rand.New(rand.NewSource(7))
	r, bs := newReassembler(capacity)

	for i := 0; i < 500; i++ {
		first := uint64(rng.Intn(30))
		n := rng.Intn(6)
		data := make([]byte, n)
		for j := range data {
			data[j] = byte('a' + (int(first)+j)%26)
		}
		r.Insert(first, data, false)

		require.LessOrEqual(t, r.CountBytesPending()+bs.BytesBuffered(), capacity)
		bs.Pop(rng.Intn(3))
	}
}

// TestReconstructionProperty checks spec §8: any partition of a string
// delivered in any order and with capacity >= len(S) reconstructs exactly
func TestReconstructionProperty(t *testing.T) {
	const s = "the quick brown fox jumps over the lazy dog"
	rng := rand.New(rand.NewSource(99))

	for trial := 0; trial < 50; trial++ {
		// Partition s into fragments at random cut points
		var cuts []int
		for i := 1; i < len(s); i++ {
			if rng.Intn(3) == 0 {
				cuts = append(cuts, i)
			}
		}
		cuts = append(cuts, len(s))

		type piece struct {
			first int
			data  string
		}
		var pieces []piece
		prev := 0
		for _, c := range cuts {
			pieces = append(pieces, piece{prev, s[prev:c]})
			prev = c
		}

		rng.Shuffle(len(pieces), func(i, j int) { pieces[i], pieces[j] = pieces[j], pieces[i] })

		r, bs := newReassembler(len(s))
		for i, p := range pieces {
			isLast := p.first+len(p.data) == len(s)
			r.Insert(uint64(p.first), []byte(p.data), isLast)
			_ = i
		}

		require.Equal(t, s, readAll(bs))
		require.True(t, bs.IsFinished())
	}
}
