package ports

import (
	"github.com/vortexlabs/vortexd/internal/core/domain"
)

// LiveStore is the coordinator's in-process working state: the cached
// current round plus the deferred per-peer signing slots the signature
// aggregator awaits. It mirrors the teacher's ports.LiveStore composition
// of narrower per-concern stores.
type LiveStore interface {
	CurrentRound() CurrentRoundStore
	SigningSessions() SigningSessionStore
}

// CurrentRoundStore caches the single round the coordinator currently
// mutates, so read-only queries (phase and status reads) don't need to
// go through the single-writer's channel. Get returns an independent
// snapshot safe to hold across suspension points; Upsert's fn runs under
// the store's write lock, so any domain.Round mutation must happen inside
// it, not before the call.
type CurrentRoundStore interface {
	Get() *domain.Round
	Upsert(fn func(round *domain.Round) *domain.Round)
	Reset()
}

// SigningSessionStore holds the one-shot per-peer result channels the
// aggregator waits on during the Signing phase, per spec.md §9 "Deferred
// per-peer results" design note.
type SigningSessionStore interface {
	Open(roundId string, peerIds []string)
	Fulfill(roundId, peerId string, signedPsbt string) error
	Fail(roundId, peerId string, err error)
	AllFulfilled(roundId string) <-chan struct{}
	Results(roundId string) (map[string]string, bool)
	Close(roundId string)
}
