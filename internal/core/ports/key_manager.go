package ports

import "github.com/vortexlabs/vortexd/internal/core/domain"

// KeyManager derives the per-round signing key, issues fresh nonces off a
// monotonic HD sequence, issues Chaumian blind Schnorr signatures, and
// verifies unblinded output signatures and input proofs. Unblinding
// happens client-side.
//
// Nonces are drawn from a deterministic HD-derived sequence indexed by a
// process-local monotonic counter; each nonce is used exactly once across
// the coordinator's lifetime (spec.md §4.2).
type KeyManager interface {
	// NewRoundKey derives a fresh per-round signing keypair and returns
	// the round's public key, used both to answer AskMixDetails and to
	// verify unblinded Bob signatures.
	NewRoundKey(roundId string) (pubKey []byte, err error)

	// NextNonce returns the next unused nonce and its HD path, advancing
	// the monotonic counter exactly once per call.
	NextNonce(roundId string) (nonce []byte, path domain.HDPath, err error)

	// IssueBlindSignature signs a blinded message (the Alice's blinded
	// output token) using the round key and the nonce at path, without
	// learning the unblinded output.
	IssueBlindSignature(roundId string, path domain.HDPath, blindedMessage []byte) (blindSig []byte, err error)

	// VerifyOutputSignature verifies a Bob submission's unblinded
	// signature against the round's public key.
	VerifyOutputSignature(roundId string, output domain.Output, sig []byte) (bool, error)

	// VerifyInputProof verifies a Schnorr signature by pubKey over the
	// Alice's nonce, proving possession of the key that controls spk
	// (the caller is responsible for checking pubKey actually hashes to
	// spk; the application layer does so with a hash160 comparison in
	// isPubKeyForSpk).
	VerifyInputProof(pubKey []byte, nonce []byte, proof []byte) (bool, error)
}
