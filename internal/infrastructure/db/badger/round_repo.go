package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vortexlabs/vortexd/internal/core/domain"
)

const currentRoundKey = "current"

type roundRepository struct {
	store *badgerhold.Store
}

func newRoundRepository(store *badgerhold.Store) domain.RoundRepository {
	return &roundRepository{store}
}

// currentRoundPointer is a single-row marker badgerhold.Store holds
// separately from the round rows themselves, keeping "which round is
// current" a distinct fact from "what does the round contain" -- the
// coordinator swaps the pointer exactly once per round transition.
type currentRoundPointer struct {
	Key     string
	RoundId string
}

func (r *roundRepository) AddOrUpdateRound(ctx context.Context, round domain.Round) error {
	upsertFn := func() error {
		return r.store.Upsert(round.Id, round)
	}
	return retryOnConflict(upsertFn)
}

func (r *roundRepository) GetRoundWithId(ctx context.Context, id string) (*domain.Round, error) {
	var round domain.Round
	if err := r.store.Get(id, &round); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("round %s: %w", id, domain.ErrUnknownRound)
		}
		return nil, err
	}
	return &round, nil
}

func (r *roundRepository) SetCurrentRound(ctx context.Context, id string) error {
	upsertFn := func() error {
		return r.store.Upsert(currentRoundKey, currentRoundPointer{Key: currentRoundKey, RoundId: id})
	}
	return retryOnConflict(upsertFn)
}

func (r *roundRepository) GetCurrentRound(ctx context.Context) (*domain.Round, error) {
	var ptr currentRoundPointer
	if err := r.store.Get(currentRoundKey, &ptr); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("no current round: %w", domain.ErrUnknownRound)
		}
		return nil, err
	}
	return r.GetRoundWithId(ctx, ptr.RoundId)
}

func (r *roundRepository) GetRoundIds(ctx context.Context, startedAfter, startedBefore int64) ([]string, error) {
	query := badgerhold.Where("Status").Ge(domain.RoundStatusSigned)
	if startedAfter > 0 {
		query = query.And("StartedAt").Gt(startedAfter)
	}
	if startedBefore > 0 {
		query = query.And("StartedAt").Lt(startedBefore)
	}

	var rounds []domain.Round
	if err := r.store.Find(&rounds, query); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rounds))
	for _, round := range rounds {
		ids = append(ids, round.Id)
	}
	return ids, nil
}

func (r *roundRepository) Close() {
	// nolint
	r.store.Close()
}

func retryOnConflict(fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	attempts := 1
	for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
		time.Sleep(100 * time.Millisecond)
		err = fn()
		attempts++
	}
	return err
}
