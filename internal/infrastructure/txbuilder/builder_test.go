package txbuilder

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/vortexlabs/vortexd/internal/core/domain"
)

type testKey struct {
	priv *btcec.PrivateKey
	spk  []byte
}

func newTestKey(t *testing.T, params *chaincfg.Params) testKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pkHash := btcutil.Hash160(priv.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pkHash, params)
	require.NoError(t, err)
	spk, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)
	return testKey{priv: priv, spk: spk}
}

func fakeTxid(t *testing.T, seed byte) string {
	t.Helper()
	var h chainhash.Hash
	for i := range h {
		h[i] = seed
	}
	return h.String()
}

func TestBuildUnsignedTxCombineAndFinalize(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	b := NewBuilder(params)

	aliceKey := newTestKey(t, params)
	coordKey := newTestKey(t, params)
	bobKey := newTestKey(t, params)

	coordAddr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(coordKey.priv.PubKey().SerializeCompressed()), params)
	require.NoError(t, err)

	roundId := "test-round"
	inputAmount := uint64(200_000)
	mixFee := uint64(500)

	input := domain.RegisteredInput{
		RoundId: roundId,
		Outpoint: domain.Outpoint{
			Txid: fakeTxid(t, 0xAB),
			VOut: 0,
		},
		PeerId: "peer-1",
		PrevOutput: domain.PrevOutput{
			Amount: inputAmount,
			Spk:    aliceKey.spk,
		},
		PubKey: aliceKey.priv.PubKey().SerializeCompressed(),
	}

	output := domain.RegisteredOutput{
		RoundId: roundId,
		Output: domain.Output{
			Amount: 150_000,
			Spk:    bobKey.spk,
		},
	}

	unsignedPsbtHex, unsignedTxid, indexByOutpoint, err := b.BuildUnsignedTx(
		roundId,
		[]domain.RegisteredInput{input},
		[]domain.RegisteredOutput{output},
		nil,
		coordAddr.EncodeAddress(),
		mixFee,
	)
	require.NoError(t, err)
	require.NotEmpty(t, unsignedPsbtHex)
	require.NotEmpty(t, unsignedTxid)
	require.Len(t, indexByOutpoint, 1)

	idx, ok := indexByOutpoint[input.Outpoint]
	require.True(t, ok)
	require.Equal(t, 0, idx)

	raw, err := hex.DecodeString(unsignedPsbtHex)
	require.NoError(t, err)
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	require.NoError(t, err)
	require.Len(t, packet.UnsignedTx.TxOut, 2, "bob output + coordinator fee output, no alice change")

	prevFetcher := txscript.NewCannedPrevOutputFetcher(aliceKey.spk, int64(inputAmount))
	sigHashes := txscript.NewTxSigHashes(packet.UnsignedTx, prevFetcher)
	witness, err := txscript.WitnessSignature(
		packet.UnsignedTx, sigHashes, 0, int64(inputAmount), aliceKey.spk,
		txscript.SigHashAll, aliceKey.priv, true,
	)
	require.NoError(t, err)

	packet.Inputs[0].FinalScriptWitness, err = serializeWitness(witness)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, packet.Serialize(&buf))
	signedPsbtHex := hex.EncodeToString(buf.Bytes())

	same, err := b.SameUnsignedTx(signedPsbtHex, unsignedPsbtHex)
	require.NoError(t, err)
	require.True(t, same)

	ok, err = b.VerifyFinalizedInput(signedPsbtHex, 0)
	require.NoError(t, err)
	require.True(t, ok)

	combined, err := b.Combine([]string{signedPsbtHex})
	require.NoError(t, err)
	require.NotEmpty(t, combined)

	finalTxHex, finalTxid, err := b.FinalizeAndExtract(combined)
	require.NoError(t, err)
	require.NotEmpty(t, finalTxHex)
	require.NotEmpty(t, finalTxid)
}

func TestVerifyFinalizedInputRejectsForgedWitness(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	b := NewBuilder(params)

	aliceKey := newTestKey(t, params)
	coordKey := newTestKey(t, params)
	bobKey := newTestKey(t, params)

	coordAddr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(coordKey.priv.PubKey().SerializeCompressed()), params)
	require.NoError(t, err)

	roundId := "test-round-forged"
	inputAmount := uint64(200_000)
	mixFee := uint64(500)

	input := domain.RegisteredInput{
		RoundId: roundId,
		Outpoint: domain.Outpoint{
			Txid: fakeTxid(t, 0xCD),
			VOut: 0,
		},
		PeerId: "peer-1",
		PrevOutput: domain.PrevOutput{
			Amount: inputAmount,
			Spk:    aliceKey.spk,
		},
		PubKey: aliceKey.priv.PubKey().SerializeCompressed(),
	}

	output := domain.RegisteredOutput{
		RoundId: roundId,
		Output: domain.Output{
			Amount: 150_000,
			Spk:    bobKey.spk,
		},
	}

	unsignedPsbtHex, _, _, err := b.BuildUnsignedTx(
		roundId,
		[]domain.RegisteredInput{input},
		[]domain.RegisteredOutput{output},
		nil,
		coordAddr.EncodeAddress(),
		mixFee,
	)
	require.NoError(t, err)

	raw, err := hex.DecodeString(unsignedPsbtHex)
	require.NoError(t, err)
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	require.NoError(t, err)

	// A garbage witness stack, not a signature over this transaction at all.
	garbage := wire.TxWitness{[]byte("not a real signature"), aliceKey.priv.PubKey().SerializeCompressed()}
	packet.Inputs[0].FinalScriptWitness, err = serializeWitness(garbage)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, packet.Serialize(&buf))
	forgedPsbtHex := hex.EncodeToString(buf.Bytes())

	ok, err := b.VerifyFinalizedInput(forgedPsbtHex, 0)
	require.NoError(t, err)
	require.False(t, ok, "a non-empty but invalid witness must not pass as finalized")
}

// serializeWitness encodes a witness stack the way PSBT's
// PSBT_IN_FINAL_SCRIPTWITNESS field expects: a compact-size item count
// followed by each item as a compact-size-prefixed byte string.
func serializeWitness(witness wire.TxWitness) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, 0, uint64(len(witness))); err != nil {
		return nil, err
	}
	for _, item := range witness {
		if err := wire.WriteVarBytes(&buf, 0, item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
