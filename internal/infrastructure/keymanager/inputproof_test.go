package keymanager

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/stretchr/testify/require"
)

func TestVerifyInputProof(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	nonce := []byte("a nonce issued by get_nonce")
	digest := sha256.Sum256(inputProofMessage(nonce))

	sig, err := schnorr.Sign(priv, digest[:])
	require.NoError(t, err)

	ok, err := verifyInputProof(priv.PubKey().SerializeCompressed(), nonce, sig.Serialize())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyInputProofRejectsWrongNonce(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	digest := sha256.Sum256(inputProofMessage([]byte("nonce-a")))
	sig, err := schnorr.Sign(priv, digest[:])
	require.NoError(t, err)

	ok, err := verifyInputProof(priv.PubKey().SerializeCompressed(), []byte("nonce-b"), sig.Serialize())
	require.NoError(t, err)
	require.False(t, ok)
}
