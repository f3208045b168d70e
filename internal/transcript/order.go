package transcript

import (
	"cmp"
	"math"
	"strings"
)

// Compare orders messages for output:
//  1. both resolved: earlier instant first
//  2. only one resolved: the resolved one first
//  3. lower observation sequence first, unassigned last
//  4. display timestamp, lexically
//
// It is a strict weak ordering and returns -1, 0 or 1.
func Compare(a, b NormalizedMessage) int {
	aHas, bHas := a.HasTimestamp(), b.HasTimestamp()
	switch {
	case aHas && bHas:
		if c := a.ISOTimestamp.Compare(b.ISOTimestamp); c != 0 {
			return c
		}
	case aHas:
		return -1
	case bHas:
		return 1
	}
	if c := compareSeq(a, b); c != 0 {
		return c
	}
	return strings.Compare(a.DisplayTimestamp, b.DisplayTimestamp)
}

func compareSeq(a, b NormalizedMessage) int {
	return cmp.Compare(seqRank(a.seq), seqRank(b.seq))
}

// seqRank maps unassigned sequence numbers to +infinity.
func seqRank(seq int64) int64 {
	if seq <= 0 {
		return math.MaxInt64
	}
	return seq
}
