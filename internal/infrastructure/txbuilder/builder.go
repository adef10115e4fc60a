// Package txbuilder assembles the round's unsigned PSBT and combines the
// peers' signed PSBTs at the end of the round, grounded on the teacher's
// internal/infrastructure/tx-builder/covenantless/builder.go shape (a
// struct closing over chain params, PSBT assembly via
// github.com/btcsuite/btcd/btcutil/psbt, dust checks before finalizing
// outputs) narrowed to this spec's single flat transaction instead of a
// vtxo tree.
package txbuilder

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/vortexlabs/vortexd/internal/core/domain"
	"github.com/vortexlabs/vortexd/internal/core/ports"
)

type builder struct {
	params *chaincfg.Params
}

func NewBuilder(params *chaincfg.Params) ports.TxBuilder {
	return &builder{params: params}
}

type plannedOutput struct {
	amount int64
	spk    []byte
}

func (b *builder) BuildUnsignedTx(
	roundId string,
	inputs []domain.RegisteredInput,
	outputs []domain.RegisteredOutput,
	alices []domain.Alice,
	coordinatorAddress string,
	mixFee uint64,
) (string, string, map[domain.Outpoint]int, error) {
	if len(inputs) == 0 {
		return "", "", nil, fmt.Errorf("no registered inputs")
	}

	coordinatorSpk, err := addressToSpk(coordinatorAddress, b.params)
	if err != nil {
		return "", "", nil, fmt.Errorf("coordinator address: %w", err)
	}

	plannedOutputs := make([]plannedOutput, 0, len(outputs)+len(alices)+1)
	for _, out := range outputs {
		plannedOutputs = append(plannedOutputs, plannedOutput{
			amount: int64(out.Output.Amount),
			spk:    out.Output.Spk,
		})
	}
	for _, alice := range alices {
		if alice.ChangeAmount > 0 && len(alice.ChangeSpk) > 0 {
			plannedOutputs = append(plannedOutputs, plannedOutput{
				amount: int64(alice.ChangeAmount),
				spk:    alice.ChangeSpk,
			})
		}
	}
	plannedOutputs = append(plannedOutputs, plannedOutput{
		amount: int64(mixFee) * int64(len(inputs)),
		spk:    coordinatorSpk,
	})

	filtered := make([]plannedOutput, 0, len(plannedOutputs))
	for _, out := range plannedOutputs {
		if !isDust(out.amount, out.spk) {
			filtered = append(filtered, out)
		}
	}

	outPerm := shufflePermutation(len(filtered), roundId+":outputs")
	shuffledOutputs := make([]plannedOutput, len(filtered))
	for i, p := range outPerm {
		shuffledOutputs[i] = filtered[p]
	}

	inPerm := shufflePermutation(len(inputs), roundId+":inputs")
	shuffledInputs := make([]domain.RegisteredInput, len(inputs))
	for i, p := range inPerm {
		shuffledInputs[i] = inputs[p]
	}

	msgTx := wire.NewMsgTx(2)
	indexByOutpoint := make(map[domain.Outpoint]int, len(shuffledInputs))
	prevOutFetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range shuffledInputs {
		hash, err := chainhash.NewHashFromStr(in.Outpoint.Txid)
		if err != nil {
			return "", "", nil, fmt.Errorf("parse txid %s: %w", in.Outpoint.Txid, err)
		}
		outPoint := wire.NewOutPoint(hash, in.Outpoint.VOut)
		msgTx.AddTxIn(wire.NewTxIn(outPoint, nil, nil))
		indexByOutpoint[in.Outpoint] = i
		prevOutFetcher.AddPrevOut(*outPoint, &wire.TxOut{
			Value:    int64(in.PrevOutput.Amount),
			PkScript: in.PrevOutput.Spk,
		})
	}
	for _, out := range shuffledOutputs {
		msgTx.AddTxOut(wire.NewTxOut(out.amount, out.spk))
	}

	packet, err := psbt.NewFromUnsignedTx(msgTx)
	if err != nil {
		return "", "", nil, fmt.Errorf("build psbt: %w", err)
	}
	for i, in := range shuffledInputs {
		packet.Inputs[i].WitnessUtxo = &wire.TxOut{
			Value:    int64(in.PrevOutput.Amount),
			PkScript: in.PrevOutput.Spk,
		}
	}

	var buf bytes.Buffer
	if err := packet.Serialize(&buf); err != nil {
		return "", "", nil, fmt.Errorf("serialize psbt: %w", err)
	}

	return hex.EncodeToString(buf.Bytes()), msgTx.TxHash().String(), indexByOutpoint, nil
}

// VerifyFinalizedInput runs the finalized witness/scriptSig at index through
// the real script engine against its WitnessUtxo, the same check a full node
// performs before accepting the input into a block. A presence check alone
// would let a peer submit any non-empty garbage blob and only have the
// forgery surface later at FinalizeAndExtract, failing the whole round
// instead of banning the culprit. Grounded on the teacher's
// verifyTapscriptPartialSigs (tx-builder/covenantless/builder.go), adapted
// from its manual Taproot sighash+schnorr verification to txscript.NewEngine
// since vortexd only accepts P2WPKH inputs.
func (b *builder) VerifyFinalizedInput(psbtHex string, index int) (bool, error) {
	packet, err := decodePsbt(psbtHex)
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(packet.Inputs) {
		return false, fmt.Errorf("input index %d out of range", index)
	}
	input := packet.Inputs[index]
	if len(input.FinalScriptWitness) == 0 && len(input.FinalScriptSig) == 0 {
		return false, nil
	}
	if input.WitnessUtxo == nil {
		return false, fmt.Errorf("missing prevout for input %d", index)
	}

	prevOutFetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range packet.Inputs {
		if in.WitnessUtxo == nil {
			continue
		}
		prevOutFetcher.AddPrevOut(packet.UnsignedTx.TxIn[i].PreviousOutPoint, in.WitnessUtxo)
	}

	tx := packet.UnsignedTx.Copy()
	tx.TxIn[index].SignatureScript = input.FinalScriptSig
	witness, err := deserializeWitness(input.FinalScriptWitness)
	if err != nil {
		return false, nil
	}
	tx.TxIn[index].Witness = witness

	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)
	engine, err := txscript.NewEngine(
		input.WitnessUtxo.PkScript,
		tx,
		index,
		txscript.StandardVerifyFlags,
		nil,
		sigHashes,
		input.WitnessUtxo.Value,
		prevOutFetcher,
	)
	if err != nil {
		return false, fmt.Errorf("build script engine for input %d: %w", index, err)
	}
	if err := engine.Execute(); err != nil {
		return false, nil
	}
	return true, nil
}

// deserializeWitness decodes a PSBT_IN_FINAL_SCRIPTWITNESS field back into a
// witness stack: a compact-size item count followed by compact-size-prefixed
// items, the inverse of the wire encoding psbt.Finalize produces.
func deserializeWitness(raw []byte) (wire.TxWitness, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	r := bytes.NewReader(raw)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	witness := make(wire.TxWitness, count)
	for i := range witness {
		item, err := wire.ReadVarBytes(r, 0, txscript.MaxScriptSize, "witness item")
		if err != nil {
			return nil, err
		}
		witness[i] = item
	}
	return witness, nil
}

func (b *builder) SameUnsignedTx(psbtHex string, unsignedPsbtHex string) (bool, error) {
	a, err := decodePsbt(psbtHex)
	if err != nil {
		return false, err
	}
	c, err := decodePsbt(unsignedPsbtHex)
	if err != nil {
		return false, err
	}
	var bufA, bufC bytes.Buffer
	if err := a.UnsignedTx.Serialize(&bufA); err != nil {
		return false, err
	}
	if err := c.UnsignedTx.Serialize(&bufC); err != nil {
		return false, err
	}
	return bytes.Equal(bufA.Bytes(), bufC.Bytes()), nil
}

func (b *builder) Combine(psbts []string) (string, error) {
	if len(psbts) == 0 {
		return "", fmt.Errorf("no psbts to combine")
	}
	base, err := decodePsbt(psbts[0])
	if err != nil {
		return "", err
	}
	for _, raw := range psbts[1:] {
		next, err := decodePsbt(raw)
		if err != nil {
			return "", err
		}
		for i := range base.Inputs {
			if i >= len(next.Inputs) {
				continue
			}
			if len(base.Inputs[i].FinalScriptWitness) == 0 && len(next.Inputs[i].FinalScriptWitness) > 0 {
				base.Inputs[i].FinalScriptWitness = next.Inputs[i].FinalScriptWitness
			}
			if len(base.Inputs[i].FinalScriptSig) == 0 && len(next.Inputs[i].FinalScriptSig) > 0 {
				base.Inputs[i].FinalScriptSig = next.Inputs[i].FinalScriptSig
			}
			if len(base.Inputs[i].PartialSigs) == 0 && len(next.Inputs[i].PartialSigs) > 0 {
				base.Inputs[i].PartialSigs = next.Inputs[i].PartialSigs
			}
		}
	}

	var buf bytes.Buffer
	if err := base.Serialize(&buf); err != nil {
		return "", fmt.Errorf("serialize combined psbt: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

func (b *builder) FinalizeAndExtract(psbtHex string) (string, string, error) {
	packet, err := decodePsbt(psbtHex)
	if err != nil {
		return "", "", err
	}
	for i := range packet.Inputs {
		if _, err := psbt.MaybeFinalize(packet, i); err != nil {
			return "", "", fmt.Errorf("finalize input %d: %w", i, err)
		}
	}
	finalTx, err := psbt.Extract(packet)
	if err != nil {
		return "", "", fmt.Errorf("extract transaction: %w", err)
	}

	var buf bytes.Buffer
	if err := finalTx.Serialize(&buf); err != nil {
		return "", "", fmt.Errorf("serialize transaction: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), finalTx.TxHash().String(), nil
}

func decodePsbt(psbtHex string) (*psbt.Packet, error) {
	raw, err := hex.DecodeString(psbtHex)
	if err != nil {
		return nil, fmt.Errorf("invalid psbt hex: %w", err)
	}
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	if err != nil {
		return nil, fmt.Errorf("parse psbt: %w", err)
	}
	return packet, nil
}

func addressToSpk(address string, params *chaincfg.Params) ([]byte, error) {
	addr, err := btcutilDecodeAddress(address, params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}
