package txbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShufflePermutationDeterministicPerRound(t *testing.T) {
	a := shufflePermutation(8, "round-a")
	b := shufflePermutation(8, "round-a")
	require.Equal(t, a, b)
}

func TestShufflePermutationDiffersAcrossRounds(t *testing.T) {
	a := shufflePermutation(8, "round-a")
	b := shufflePermutation(8, "round-b")
	require.NotEqual(t, a, b)
}

func TestShufflePermutationIsAPermutation(t *testing.T) {
	perm := shufflePermutation(10, "round-c")
	seen := make(map[int]bool, len(perm))
	for _, p := range perm {
		require.False(t, seen[p], "duplicate index in permutation")
		require.GreaterOrEqual(t, p, 0)
		require.Less(t, p, 10)
		seen[p] = true
	}
	require.Len(t, seen, 10)
}
