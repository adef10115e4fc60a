package ports

import (
	"context"

	"github.com/vortexlabs/vortexd/internal/core/domain"
)

// RepoManager composes the persisted-entity repositories behind a single
// handle, the same composition-root shape as the teacher's
// ports.RepoManager.
type RepoManager interface {
	Rounds() domain.RoundRepository
	Alices() domain.AliceRepository
	Inputs() domain.RegisteredInputRepository
	Outputs() domain.RegisteredOutputRepository
	Bans() domain.BannedUtxoRepository
	Events() domain.EventRepository
	Close()
}

// RepoManagerService extends RepoManager with an Open step for running
// schema migrations at startup. The badger RepoManager returned by
// NewRepoManager does not implement it: its stores are opened by the
// constructor and no migration step runs.
type RepoManagerService interface {
	RepoManager
	Open(ctx context.Context) error
}
