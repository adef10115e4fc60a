package badgerdb

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"
	"github.com/vortexlabs/vortexd/internal/core/domain"
)

type outputRepository struct {
	store *badgerhold.Store
}

func newOutputRepository(store *badgerhold.Store) domain.RegisteredOutputRepository {
	return &outputRepository{store}
}

// outputKey enforces uniqueness on (round_id, output), making Bob
// resubmission of the same output idempotent per spec.md §9 open question.
func outputKey(roundId string, output domain.Output) string {
	return fmt.Sprintf("%s:%d:%s", roundId, output.Amount, hex.EncodeToString(output.Spk))
}

func (o *outputRepository) Add(ctx context.Context, output domain.RegisteredOutput) error {
	err := retryOnConflict(func() error {
		return o.store.Insert(outputKey(output.RoundId, output.Output), output)
	})
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return domain.ErrDuplicateOutput
	}
	return err
}

func (o *outputRepository) ListByRound(ctx context.Context, roundId string) ([]domain.RegisteredOutput, error) {
	var outputs []domain.RegisteredOutput
	if err := o.store.Find(&outputs, badgerhold.Where("RoundId").Eq(roundId)); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (o *outputRepository) CountByRound(ctx context.Context, roundId string) (int, error) {
	outputs, err := o.ListByRound(ctx, roundId)
	if err != nil {
		return 0, err
	}
	return len(outputs), nil
}

func (o *outputRepository) DeleteByRound(ctx context.Context, roundId string) error {
	return o.store.DeleteMatching(&domain.RegisteredOutput{}, badgerhold.Where("RoundId").Eq(roundId))
}

func (o *outputRepository) Close() {
	// nolint
	o.store.Close()
}
