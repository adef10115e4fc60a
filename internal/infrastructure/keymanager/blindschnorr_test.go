package keymanager

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

// blindRequest replicates the requester side of the protocol described in
// blindschnorr.go's package comment: given the signer's nonce point R and
// round public key P, pick random blinding scalars and produce the
// blinded challenge e to send to the signer.
func blindRequest(t *testing.T, r, p *btcec.PublicKey, message []byte) (blindedChallenge []byte, alpha, beta btcec.ModNScalar, rPrime *btcec.PublicKey) {
	t.Helper()

	alphaKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	betaKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	alpha = alphaKey.Key
	beta = betaKey.Key

	var rJac, pJac, alphaG, betaP, sum1, sum2 btcec.JacobianPoint
	r.AsJacobian(&rJac)
	p.AsJacobian(&pJac)
	btcec.ScalarBaseMultNonConst(&alpha, &alphaG)
	btcec.ScalarMultNonConst(&beta, &pJac, &betaP)
	btcec.AddNonConst(&rJac, &alphaG, &sum1)
	btcec.AddNonConst(&sum1, &betaP, &sum2)
	sum2.ToAffine()
	rPrime = btcec.NewPublicKey(&sum2.X, &sum2.Y)

	ePrime := hashToScalar(serializePoint(rPrime), serializePoint(p), message)
	var e btcec.ModNScalar
	e.Set(&ePrime).Add(&beta)
	eBytes := e.Bytes()
	return eBytes[:], alpha, beta, rPrime
}

func unblind(t *testing.T, s []byte, alpha btcec.ModNScalar) []byte {
	t.Helper()
	sScalar, err := scalarFromBytes(s)
	require.NoError(t, err)
	var sPrime btcec.ModNScalar
	sPrime.Set(&sScalar).Add(&alpha)
	out := sPrime.Bytes()
	return out[:]
}

func TestBlindSignatureRoundTrip(t *testing.T) {
	signerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	nonceKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	message := sha256.Sum256([]byte("mixed output descriptor"))

	blindedChallenge, alpha, _, rPrime := blindRequest(t, nonceKey.PubKey(), signerKey.PubKey(), message[:])

	s, err := issueBlindSignature(&nonceKey.Key, &signerKey.Key, blindedChallenge)
	require.NoError(t, err)

	sPrime := unblind(t, s, alpha)

	sig := append(rPrime.SerializeCompressed(), sPrime...)
	ok, err := verifyBlindSignature(signerKey.PubKey(), message[:], sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBlindSignatureRejectsWrongMessage(t *testing.T) {
	signerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	nonceKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	message := sha256.Sum256([]byte("message a"))
	otherMessage := sha256.Sum256([]byte("message b"))

	blindedChallenge, alpha, _, rPrime := blindRequest(t, nonceKey.PubKey(), signerKey.PubKey(), message[:])
	s, err := issueBlindSignature(&nonceKey.Key, &signerKey.Key, blindedChallenge)
	require.NoError(t, err)
	sPrime := unblind(t, s, alpha)

	sig := append(rPrime.SerializeCompressed(), sPrime...)
	ok, err := verifyBlindSignature(signerKey.PubKey(), otherMessage[:], sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyBlindSignatureRejectsMalformedLength(t *testing.T) {
	signerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	_, err = verifyBlindSignature(signerKey.PubKey(), []byte("message"), []byte("too short"))
	require.Error(t, err)
}
