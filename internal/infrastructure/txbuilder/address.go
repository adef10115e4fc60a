package txbuilder

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

func btcutilDecodeAddress(address string, params *chaincfg.Params) (btcutil.Address, error) {
	return btcutil.DecodeAddress(address, params)
}
