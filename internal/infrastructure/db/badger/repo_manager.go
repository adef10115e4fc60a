package badgerdb

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/vortexlabs/vortexd/internal/core/domain"
	"github.com/vortexlabs/vortexd/internal/core/ports"
)

type repoManager struct {
	rounds  domain.RoundRepository
	alices  domain.AliceRepository
	inputs  domain.RegisteredInputRepository
	outputs domain.RegisteredOutputRepository
	bans    domain.BannedUtxoRepository
	events  domain.EventRepository
}

// NewRepoManager opens one badger store per entity under baseDir,
// following the teacher's NewArkRepository(config ...interface{}) shape
// narrowed to this spec's five tables plus a sixth store for the round
// event log. inMemory switches every store to badger's in-memory mode;
// the daemon's config opens them on disk.
func NewRepoManager(baseDir string, inMemory bool, logger badger.Logger) (ports.RepoManager, error) {
	roundStore, err := createStore(subDir(baseDir, "rounds"), inMemory, logger)
	if err != nil {
		return nil, fmt.Errorf("rounds store: %w", err)
	}
	aliceStore, err := createStore(subDir(baseDir, "alices"), inMemory, logger)
	if err != nil {
		return nil, fmt.Errorf("alices store: %w", err)
	}
	inputStore, err := createStore(subDir(baseDir, "inputs"), inMemory, logger)
	if err != nil {
		return nil, fmt.Errorf("inputs store: %w", err)
	}
	outputStore, err := createStore(subDir(baseDir, "outputs"), inMemory, logger)
	if err != nil {
		return nil, fmt.Errorf("outputs store: %w", err)
	}
	banStore, err := createStore(subDir(baseDir, "bans"), inMemory, logger)
	if err != nil {
		return nil, fmt.Errorf("bans store: %w", err)
	}
	eventStore, err := createStore(subDir(baseDir, "events"), inMemory, logger)
	if err != nil {
		return nil, fmt.Errorf("events store: %w", err)
	}

	return &repoManager{
		rounds:  newRoundRepository(roundStore),
		alices:  newAliceRepository(aliceStore),
		inputs:  newInputRepository(inputStore),
		outputs: newOutputRepository(outputStore),
		bans:    newBanRepository(banStore),
		events:  newEventRepository(eventStore),
	}, nil
}

func (r *repoManager) Rounds() domain.RoundRepository              { return r.rounds }
func (r *repoManager) Alices() domain.AliceRepository               { return r.alices }
func (r *repoManager) Inputs() domain.RegisteredInputRepository     { return r.inputs }
func (r *repoManager) Outputs() domain.RegisteredOutputRepository   { return r.outputs }
func (r *repoManager) Bans() domain.BannedUtxoRepository            { return r.bans }
func (r *repoManager) Events() domain.EventRepository               { return r.events }

func (r *repoManager) Close() {
	r.rounds.Close()
	r.alices.Close()
	r.inputs.Close()
	r.outputs.Close()
	r.bans.Close()
	r.events.Close()
}
