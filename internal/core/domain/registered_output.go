package domain

import "context"

// Output is an amount + scriptPubKey pair, the mixed output every Bob
// submission carries.
type Output struct {
	Amount uint64
	Spk    []byte
}

// RegisteredOutput deliberately carries no peer linkage: that is the
// point of the blind-signature protocol. Sig is the coordinator's
// unblinded Schnorr signature over Output, verifiable against the
// round's public key by anyone, including the coordinator itself, without
// revealing which Alice produced it.
type RegisteredOutput struct {
	RoundId string
	Output  Output
	Sig     []byte
}

// RegisteredOutputRepository enforces idempotent Bob submission via
// uniqueness on (round_id, output) -- see spec open question on replay.
type RegisteredOutputRepository interface {
	Add(ctx context.Context, output RegisteredOutput) error
	ListByRound(ctx context.Context, roundId string) ([]RegisteredOutput, error)
	CountByRound(ctx context.Context, roundId string) (int, error)
	DeleteByRound(ctx context.Context, roundId string) error
	Close()
}
