package badgerdb

import (
	"context"

	"github.com/timshannon/badgerhold/v4"
	"github.com/vortexlabs/vortexd/internal/core/domain"
)

type inputRepository struct {
	store *badgerhold.Store
}

func newInputRepository(store *badgerhold.Store) domain.RegisteredInputRepository {
	return &inputRepository{store}
}

func inputKey(roundId string, outpoint domain.Outpoint) string {
	return roundId + ":" + outpoint.String()
}

func (i *inputRepository) AddMany(ctx context.Context, inputs []domain.RegisteredInput) error {
	for _, input := range inputs {
		if err := retryOnConflict(func() error {
			return i.store.Upsert(inputKey(input.RoundId, input.Outpoint), input)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (i *inputRepository) ListByRound(ctx context.Context, roundId string) ([]domain.RegisteredInput, error) {
	var inputs []domain.RegisteredInput
	if err := i.store.Find(&inputs, badgerhold.Where("RoundId").Eq(roundId)); err != nil {
		return nil, err
	}
	return inputs, nil
}

func (i *inputRepository) ListByPeer(ctx context.Context, roundId, peerId string) ([]domain.RegisteredInput, error) {
	var inputs []domain.RegisteredInput
	query := badgerhold.Where("RoundId").Eq(roundId).And("PeerId").Eq(peerId)
	if err := i.store.Find(&inputs, query); err != nil {
		return nil, err
	}
	return inputs, nil
}

func (i *inputRepository) SetIndexInFinalTx(ctx context.Context, roundId string, outpoint domain.Outpoint, index int) error {
	return retryOnConflict(func() error {
		var input domain.RegisteredInput
		key := inputKey(roundId, outpoint)
		if err := i.store.Get(key, &input); err != nil {
			return err
		}
		input.IndexInFinalTx = &index
		return i.store.Update(key, input)
	})
}

func (i *inputRepository) DeleteByRound(ctx context.Context, roundId string) error {
	return i.store.DeleteMatching(&domain.RegisteredInput{}, badgerhold.Where("RoundId").Eq(roundId))
}

func (i *inputRepository) Close() {
	// nolint
	i.store.Close()
}
