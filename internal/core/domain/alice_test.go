package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vortexlabs/vortexd/internal/core/domain"
)

func TestAliceIsRegistered(t *testing.T) {
	path := domain.HDPath{Purpose: 84, Coin: 0, Account: 0, Chain: 0, NonceIndex: 1}
	alice := domain.NewAlice("peer-1", "round-1", path, []byte("nonce"))
	require.False(t, alice.IsRegistered())

	alice.BlindSig = []byte("sig")
	require.True(t, alice.IsRegistered())
}
