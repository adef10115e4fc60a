package ports

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChainClient is the narrow Bitcoin node RPC surface this coordinator
// consumes -- getrawtransaction, sendrawtransaction, and fee estimation --
// per spec.md §1's explicit scoping of the node RPC out-of-scope boundary.
type ChainClient interface {
	// GetRawTransactionOutput fetches vout[outpoint.vout] of a confirmed
	// or mempool transaction, used to re-verify a registered input's
	// claimed amount and scriptPubKey against the chain.
	GetRawTransactionOutput(ctx context.Context, txid chainhash.Hash, vout uint32) (amount uint64, spk []byte, err error)

	// SendRawTransaction broadcasts the final combined transaction.
	SendRawTransaction(ctx context.Context, txHex string) (txid string, err error)

	// EstimateSmartFee is the node-side fee rate source the fee oracle
	// falls back to when its Esplora provider fails.
	EstimateSmartFee(ctx context.Context, confTarget int32) (satPerVByte int64, err error)
}
