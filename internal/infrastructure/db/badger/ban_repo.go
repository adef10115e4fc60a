package badgerdb

import (
	"context"
	"errors"

	"github.com/timshannon/badgerhold/v4"
	"github.com/vortexlabs/vortexd/internal/core/domain"
)

type banRepository struct {
	store *badgerhold.Store
}

func newBanRepository(store *badgerhold.Store) domain.BannedUtxoRepository {
	return &banRepository{store}
}

// BanMany inserts every outpoint in bans in one badger transaction, so a
// multi-input ban either all lands or none does (spec.md §4.2's "atomically
// insert all submitted outpoints"). Mirrors the teacher's
// arkRepository.addCheckpointTxs single-*badger.Txn idiom.
func (b *banRepository) BanMany(ctx context.Context, bans []domain.BannedUtxo) error {
	if len(bans) == 0 {
		return nil
	}
	return retryOnConflict(func() error {
		txn := b.store.Badger().NewTransaction(true)
		defer txn.Discard()
		for _, ban := range bans {
			if err := b.store.TxUpsert(txn, ban.Outpoint.String(), ban); err != nil {
				return err
			}
		}
		return txn.Commit()
	})
}

func (b *banRepository) Unban(ctx context.Context, outpoint domain.Outpoint) error {
	err := b.store.Delete(outpoint.String(), &domain.BannedUtxo{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil
	}
	return err
}

func (b *banRepository) IsBanned(ctx context.Context, outpoint domain.Outpoint, now int64) (bool, error) {
	var ban domain.BannedUtxo
	if err := b.store.Get(outpoint.String(), &ban); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return ban.BannedUntil > now, nil
}

func (b *banRepository) List(ctx context.Context) ([]domain.BannedUtxo, error) {
	var bans []domain.BannedUtxo
	if err := b.store.Find(&bans, badgerhold.Where("BannedUntil").Ge(int64(0))); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return bans, nil
}

func (b *banRepository) Close() {
	// nolint
	b.store.Close()
}
