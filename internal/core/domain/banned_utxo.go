package domain

import "context"

// BannedUtxo outlives rounds. It is consulted on every input admission
// and written atomically whenever a registration or signing validation
// fails.
type BannedUtxo struct {
	Outpoint    Outpoint
	BannedUntil int64
	Reason      string
}

type BannedUtxoRepository interface {
	BanMany(ctx context.Context, bans []BannedUtxo) error
	Unban(ctx context.Context, outpoint Outpoint) error
	IsBanned(ctx context.Context, outpoint Outpoint, now int64) (bool, error)
	List(ctx context.Context) ([]BannedUtxo, error)
	Close()
}
