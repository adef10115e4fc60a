package domain

import "context"

// RoundRepository persists the Round aggregate. Exactly one round is
// "current" at any moment (spec invariant); GetCurrentRound is the
// read path the coordinator consults on every public operation.
type RoundRepository interface {
	AddOrUpdateRound(ctx context.Context, round Round) error
	GetRoundWithId(ctx context.Context, id string) (*Round, error)
	GetCurrentRound(ctx context.Context) (*Round, error)
	SetCurrentRound(ctx context.Context, id string) error
	GetRoundIds(ctx context.Context, startedAfter, startedBefore int64) ([]string, error)
	Close()
}
