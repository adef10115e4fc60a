package txbuilder

import "github.com/btcsuite/btcd/txscript"

// dustThreshold mirrors the standard relay-policy dust limits bitcoind
// applies per scriptPubKey class; WITNESS_V0_KEYHASH is the only class
// this coordinator's policy allows (spec.md §6 inputScriptType/
// changeScriptType/outputScriptType), so it is the only entry consulted
// on the hot path, with P2PKH/P2SH kept for completeness since the
// coordinator fee address is operator-configured and need not be segwit.
var dustThreshold = map[txscript.ScriptClass]int64{
	txscript.WitnessV0PubKeyHashTy: 294,
	txscript.WitnessV0ScriptHashTy: 330,
	txscript.PubKeyHashTy:          546,
	txscript.ScriptHashTy:          540,
}

const defaultDustThreshold = 546

// isDust reports whether value is below the dust threshold for spk's
// script class, per spec.md §4.3 step 4: tiny change outputs produced by
// rounding are dropped into the mining fee rather than kept as an output.
func isDust(value int64, spk []byte) bool {
	class := txscript.GetScriptClass(spk)
	threshold, ok := dustThreshold[class]
	if !ok {
		threshold = defaultDustThreshold
	}
	return value < threshold
}
