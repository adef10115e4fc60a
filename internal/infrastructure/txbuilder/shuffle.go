package txbuilder

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
)

// shuffleSeed derives a deterministic-but-unpredictable RNG seed from the
// round id, per spec.md §4.3 step 4: inputs and outputs get permuted the
// same way every time the builder runs for a given round (idempotent
// rebuilds), but an observer cannot predict the permutation without
// knowing round_id. No pack library implements a seeded Fisher-Yates
// permutation for this purpose (confirmed across all six example repos),
// so this is the one intentionally stdlib-only piece of the builder; see
// DESIGN.md.
func shuffleSeed(roundId string) int64 {
	digest := sha256.Sum256([]byte("vortexd-shuffle:" + roundId))
	return int64(binary.BigEndian.Uint64(digest[:8]))
}

// shufflePermutation permutes indices [0, n) with a round-scoped RNG:
// element i of the result is the original index placed at position i.
func shufflePermutation(n int, roundId string) []int {
	rng := rand.New(rand.NewSource(shuffleSeed(roundId)))
	perm := rng.Perm(n)
	return perm
}
