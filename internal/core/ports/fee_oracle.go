package ports

import "context"

// FeeOracle supplies a fee rate in sat/vB, with a fallback provider and a
// regtest mode that returns a fixed low rate without any network call.
type FeeOracle interface {
	FeeRate(ctx context.Context) (satPerVByte int64, err error)
}
