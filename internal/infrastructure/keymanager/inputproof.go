package keymanager

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// Input proofs are ordinary BIP340 Schnorr proofs-of-possession, not
// blind signatures, so unlike the round's own key they reuse the real
// btcsuite/btcd/btcec/v2/schnorr package the teacher already depends on
// for every taproot key operation in internal/infrastructure/tx-builder.
func inputProofMessage(nonce []byte) []byte {
	prefix := []byte("LnVortex input proof")
	buf := make([]byte, 0, len(prefix)+len(nonce))
	buf = append(buf, prefix...)
	buf = append(buf, nonce...)
	return buf
}

func verifyInputProof(pubKey, nonce, proof []byte) (bool, error) {
	xOnly := pubKey
	if len(xOnly) == 33 {
		xOnly = xOnly[1:]
	}
	key, err := schnorr.ParsePubKey(xOnly)
	if err != nil {
		return false, err
	}
	sig, err := schnorr.ParseSignature(proof)
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256(inputProofMessage(nonce))
	return sig.Verify(digest[:], key), nil
}
