package inmemorylivestore

import (
	"sync"

	"github.com/vortexlabs/vortexd/internal/core/domain"
)

type currentRoundStore struct {
	lock  sync.RWMutex
	round *domain.Round
}

func newCurrentRoundStore() *currentRoundStore {
	return &currentRoundStore{}
}

// Get returns a snapshot of the current round, safe to read across
// suspension points (RPC calls, DB writes): it is cloned under the read
// lock, so it can never be observed mid-mutation by the phase-transition
// goroutine, which only ever mutates the live round inside Upsert.
func (c *currentRoundStore) Get() *domain.Round {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.round.Clone()
}

func (c *currentRoundStore) Upsert(fn func(round *domain.Round) *domain.Round) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.round = fn(c.round)
}

func (c *currentRoundStore) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.round = nil
}
