package ports

import "github.com/vortexlabs/vortexd/internal/core/domain"

// TxBuilder assembles the round's unsigned PSBT and, at the end of the
// round, combines and finalizes the peers' signed PSBTs, mirroring the
// teacher's ports.TxBuilder shape narrowed to this spec's steps
// (spec.md §4.3).
type TxBuilder interface {
	// BuildUnsignedTx assembles mixed outputs, one change output per
	// Alice that registered one, and the coordinator fee output, then
	// filters dust and shuffles deterministically on roundId. It
	// returns the unsigned PSBT plus each registered input's
	// post-shuffle index, to be persisted via
	// RegisteredInputRepository.SetIndexInFinalTx.
	BuildUnsignedTx(
		roundId string,
		inputs []domain.RegisteredInput,
		outputs []domain.RegisteredOutput,
		alices []domain.Alice,
		coordinatorAddress string,
		mixFee uint64,
	) (unsignedPsbt string, unsignedTxid string, indexByOutpoint map[domain.Outpoint]int, err error)

	// VerifyFinalizedInput checks that a signed PSBT's input at index is
	// fully and validly finalized.
	VerifyFinalizedInput(psbt string, index int) (bool, error)

	// SameUnsignedTx reports whether a peer-submitted PSBT carries the
	// same unsigned transaction as the round's.
	SameUnsignedTx(psbt string, unsignedPsbt string) (bool, error)

	// Combine merges the peers' partially-signed PSBTs for the same
	// unsigned transaction into one, in any order, with identical results
	// (spec.md §8 round-trip property).
	Combine(psbts []string) (combined string, err error)

	// FinalizeAndExtract finalizes every input of a fully-signed PSBT
	// and extracts the raw transaction hex plus its txid.
	FinalizeAndExtract(psbt string) (txHex string, txid string, err error)
}
