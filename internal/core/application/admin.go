package application

import (
	"context"
	"fmt"

	"github.com/vortexlabs/vortexd/internal/core/domain"
	"github.com/vortexlabs/vortexd/internal/core/ports"
)

// AdminService is the supplemented admin surface (SPEC_FULL.md §7): it
// exposes read access to round history and ban-list management, mirroring
// the teacher's AdminService shape narrowed to this coordinator's data
// model.
type AdminService interface {
	GetRoundInfo(ctx context.Context, roundId string) (RoundInfo, error)
	GetRoundIds(ctx context.Context, startedAfter, startedBefore int64) ([]string, error)
	ListBannedUtxos(ctx context.Context) ([]domain.BannedUtxo, error)
	UnbanUtxo(ctx context.Context, outpoint domain.Outpoint) error
}

type adminService struct {
	repoManager ports.RepoManager
}

func NewAdminService(repoManager ports.RepoManager) AdminService {
	return &adminService{repoManager: repoManager}
}

func (a *adminService) GetRoundInfo(ctx context.Context, roundId string) (RoundInfo, error) {
	round, err := a.repoManager.Rounds().GetRoundWithId(ctx, roundId)
	if err != nil {
		return RoundInfo{}, fmt.Errorf("get round %s: %w", roundId, err)
	}
	return newRoundInfo(round), nil
}

func (a *adminService) GetRoundIds(ctx context.Context, startedAfter, startedBefore int64) ([]string, error) {
	return a.repoManager.Rounds().GetRoundIds(ctx, startedAfter, startedBefore)
}

func (a *adminService) ListBannedUtxos(ctx context.Context) ([]domain.BannedUtxo, error) {
	return a.repoManager.Bans().List(ctx)
}

func (a *adminService) UnbanUtxo(ctx context.Context, outpoint domain.Outpoint) error {
	return a.repoManager.Bans().Unban(ctx, outpoint)
}
