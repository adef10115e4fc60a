// Package inmemorylivestore is the coordinator's in-process working-state
// cache, the same sync.RWMutex-guarded-map pattern as the teacher's
// internal/infrastructure/live-store/inmemory package, narrowed to this
// spec's current-round cache and per-peer signing slots.
package inmemorylivestore

import "github.com/vortexlabs/vortexd/internal/core/ports"

type liveStore struct {
	currentRound    ports.CurrentRoundStore
	signingSessions ports.SigningSessionStore
}

func NewLiveStore() ports.LiveStore {
	return &liveStore{
		currentRound:    newCurrentRoundStore(),
		signingSessions: newSigningSessionStore(),
	}
}

func (l *liveStore) CurrentRound() ports.CurrentRoundStore       { return l.currentRound }
func (l *liveStore) SigningSessions() ports.SigningSessionStore { return l.signingSessions }
