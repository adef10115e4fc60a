// Package nodewallet implements ports.ChainClient against a Bitcoin Core
// node, via github.com/btcsuite/btcd/rpcclient -- the direct Bitcoin
// analogue of the github.com/decred/dcrd/rpcclient/v8 usage pattern seen
// in the retrieval pack's vctt94-pongbisonrelay chain watcher
// (chainwatcher/chainwatcher.go, server/watcher.go), which calls
// GetRawTransactionVerbose on the same kind of polling client. The
// teacher's own wallet abstraction (internal/infrastructure/wallet)
// wraps a remote gRPC signer rather than a node RPC client, so this is a
// new dependency rather than an adapted teacher file.
package nodewallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/vortexlabs/vortexd/internal/core/ports"
)

type rpcChainClient struct {
	client *rpcclient.Client
}

// Config mirrors the teacher's config pattern of plain string/bool
// fields for an external service rather than a half-parsed URL.
type Config struct {
	Host         string
	User         string
	Pass         string
	DisableTLS   bool
	HTTPPostMode bool
}

func New(cfg Config) (ports.ChainClient, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		DisableTLS:   cfg.DisableTLS,
		HTTPPostMode: cfg.HTTPPostMode,
	}
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to bitcoin node: %w", err)
	}
	return &rpcChainClient{client: client}, nil
}

func (c *rpcChainClient) GetRawTransactionOutput(
	ctx context.Context, txid chainhash.Hash, vout uint32,
) (uint64, []byte, error) {
	tx, err := c.client.GetRawTransaction(&txid)
	if err != nil {
		return 0, nil, fmt.Errorf("getrawtransaction %s: %w", txid, err)
	}
	msgTx := tx.MsgTx()
	if int(vout) >= len(msgTx.TxOut) {
		return 0, nil, fmt.Errorf("getrawtransaction %s: vout %d out of range", txid, vout)
	}
	out := msgTx.TxOut[vout]
	return uint64(out.Value), out.PkScript, nil
}

func (c *rpcChainClient) SendRawTransaction(ctx context.Context, txHex string) (string, error) {
	tx, err := decodeTxHex(txHex)
	if err != nil {
		return "", fmt.Errorf("decode transaction: %w", err)
	}
	hash, err := c.client.SendRawTransaction(tx.MsgTx(), false)
	if err != nil {
		return "", fmt.Errorf("sendrawtransaction: %w", err)
	}
	return hash.String(), nil
}

func (c *rpcChainClient) EstimateSmartFee(ctx context.Context, confTarget int32) (int64, error) {
	result, err := c.client.EstimateSmartFee(int64(confTarget), nil)
	if err != nil {
		return 0, fmt.Errorf("estimatesmartfee: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("estimatesmartfee: %v", result.Errors)
	}
	if result.FeeRate == nil {
		return 0, fmt.Errorf("estimatesmartfee: no fee rate returned")
	}
	// FeeRate is BTC/kvB; convert to sat/vB.
	satPerKvB := *result.FeeRate * 1e8
	return int64(satPerKvB / 1000), nil
}

func (c *rpcChainClient) Close() {
	c.client.Shutdown()
}
