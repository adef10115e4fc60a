package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"
	"github.com/vortexlabs/vortexd/internal/core/domain"
)

type aliceRepository struct {
	store *badgerhold.Store
}

func newAliceRepository(store *badgerhold.Store) domain.AliceRepository {
	return &aliceRepository{store}
}

func aliceKey(roundId, peerId string) string {
	return roundId + ":" + peerId
}

func (a *aliceRepository) Upsert(ctx context.Context, alice domain.Alice) error {
	return retryOnConflict(func() error {
		return a.store.Upsert(aliceKey(alice.RoundId, alice.PeerId), alice)
	})
}

func (a *aliceRepository) GetByPeerId(ctx context.Context, roundId, peerId string) (*domain.Alice, error) {
	var alice domain.Alice
	if err := a.store.Get(aliceKey(roundId, peerId), &alice); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("alice %s: %w", peerId, domain.ErrUnknownAlice)
		}
		return nil, err
	}
	return &alice, nil
}

func (a *aliceRepository) ListByRound(ctx context.Context, roundId string) ([]domain.Alice, error) {
	var alices []domain.Alice
	if err := a.store.Find(&alices, badgerhold.Where("RoundId").Eq(roundId)); err != nil {
		return nil, err
	}
	return alices, nil
}

func (a *aliceRepository) CountRegistered(ctx context.Context, roundId string) (int, error) {
	alices, err := a.ListByRound(ctx, roundId)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, alice := range alices {
		if alice.IsRegistered() {
			count++
		}
	}
	return count, nil
}

func (a *aliceRepository) DeleteByRound(ctx context.Context, roundId string) error {
	return a.store.DeleteMatching(&domain.Alice{}, badgerhold.Where("RoundId").Eq(roundId))
}

func (a *aliceRepository) Close() {
	// nolint
	a.store.Close()
}
