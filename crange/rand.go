package crange

// Level generation, adapted from the teacher's lib/list/x_skip_list_rand.go
// randomLevelV3: crypto-seeded, geometric via leading-zero count against a
// maxLevel-sized mask, then damped so a small collection doesn't grow
// levels far ahead of what log(currentElements) would justify. p = 1/2,
// per spec's standard-distribution note, falls out of the leading-zero
// count directly rather than needing a separate probability constant.

import (
	saferand "crypto/rand"
	"encoding/binary"
	"math"
	"math/bits"
)

const defaultMaxLevel = 32

// LevelGenerator picks nlevel for a newly constructed node, given the
// collection's configured maxLevel and its current element count.
type LevelGenerator func(maxLevel int, currentLen int64) int

// randomLevel is the default LevelGenerator.
func randomLevel(maxLevel int, currentLen int64) int {
	if maxLevel <= 1 {
		return 1
	}
	var total uint64
	if maxLevel >= 64 {
		total = math.MaxUint64
	} else {
		total = uint64(1)<<uint(maxLevel) - 1
	}

	rest := cryptoRandUint64() & total
	tmp := bits.Len64(rest)
	level := maxLevel - tmp + 1

	if currentLen < 0 {
		currentLen = 0
	}
	for level > 1 && uint64(1)<<uint(level-1) > uint64(currentLen) {
		level--
	}
	if level < 1 {
		level = 1
	}
	if level > maxLevel {
		level = maxLevel
	}
	return level
}

func cryptoRandUint64() uint64 {
	var buf [8]byte
	if _, err := saferand.Read(buf[:]); err != nil {
		panic(err)
	}
	if buf[7]&0x8 == 0x0 {
		return binary.LittleEndian.Uint64(buf[:])
	}
	return binary.BigEndian.Uint64(buf[:])
}
