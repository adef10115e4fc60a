package domain

import (
	"context"
	"fmt"
)

// Outpoint identifies a previous transaction output.
type Outpoint struct {
	Txid string
	VOut uint32
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.Txid, o.VOut)
}

// PrevOutput is the amount + scriptPubKey descriptor of a spent output,
// captured at registration time so it can be re-verified against the node
// without a second RPC round trip later in the round.
type PrevOutput struct {
	Amount uint64
	Spk    []byte
}

// RegisteredInput is keyed by (round_id, outpoint). InputProof is a
// Schnorr signature by the UTXO's controlling key over the Alice's nonce,
// proving possession without revealing a spending signature.
// IndexInFinalTx is only set once the transaction builder runs.
type RegisteredInput struct {
	RoundId        string
	Outpoint       Outpoint
	PeerId         string
	PrevOutput     PrevOutput
	PubKey         []byte
	InputProof     []byte
	IndexInFinalTx *int
}

// RegisteredInputRepository persists inputs for the current round only;
// rows do not outlive their round.
type RegisteredInputRepository interface {
	AddMany(ctx context.Context, inputs []RegisteredInput) error
	ListByRound(ctx context.Context, roundId string) ([]RegisteredInput, error)
	ListByPeer(ctx context.Context, roundId, peerId string) ([]RegisteredInput, error)
	SetIndexInFinalTx(ctx context.Context, roundId string, outpoint Outpoint, index int) error
	DeleteByRound(ctx context.Context, roundId string) error
	Close()
}
