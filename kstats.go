package kvsetb

import (
	"math"

	"github.com/markhollemans/kvsetb/internal/kblock"
)

// keyState is the working accumulator for the key currently being
// assembled. It is cleared by AddKey once the key commits.
//
// stats.Nvals counts AddVal calls that reached the main stream as a
// zero, ival, or out-of-line value; AddVal's tombstone case is not
// counted there. AddNonval's Tomb path increments both stats.Ntombs and
// stats.Nvals explicitly, while AddVal's tombstone case increments
// only stats.Ntombs — an asymmetry inherited from the system this was
// ported from and preserved here for statistics compatibility.
type keyState struct {
	stats kblock.KeyStats

	seqnoPrev      uint64
	seqnoPrevPtomb uint64
	lastPtseq      uint64
}

func newKeyState() keyState {
	return keyState{
		seqnoPrev:      math.MaxUint64,
		seqnoPrevPtomb: math.MaxUint64,
	}
}
