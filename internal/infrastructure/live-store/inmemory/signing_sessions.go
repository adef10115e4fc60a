package inmemorylivestore

import (
	"sync"

	"github.com/vortexlabs/vortexd/internal/core/ports"
)

// signingSession is one round's set of deferred per-peer signed-PSBT
// slots: the re-architected form of the source's peer_id -> one-shot
// future map (spec.md §9 "Deferred per-peer results").
type signingSession struct {
	lock      sync.Mutex
	results   map[string]string
	failed    map[string]error
	pending   int
	completed chan struct{}
	closed    bool
}

type signingSessionStore struct {
	lock     sync.Mutex
	sessions map[string]*signingSession
}

func newSigningSessionStore() *signingSessionStore {
	return &signingSessionStore{sessions: make(map[string]*signingSession)}
}

func (s *signingSessionStore) Open(roundId string, peerIds []string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.sessions[roundId] = &signingSession{
		results:   make(map[string]string, len(peerIds)),
		failed:    make(map[string]error),
		pending:   len(peerIds),
		completed: make(chan struct{}),
	}
}

func (s *signingSessionStore) session(roundId string) *signingSession {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.sessions[roundId]
}

func (s *signingSessionStore) Fulfill(roundId, peerId string, signedPsbt string) error {
	sess := s.session(roundId)
	if sess == nil {
		return nil
	}
	sess.lock.Lock()
	defer sess.lock.Unlock()
	if sess.closed {
		return nil
	}
	if _, already := sess.results[peerId]; !already {
		sess.results[peerId] = signedPsbt
		sess.pending--
	}
	if sess.pending <= 0 && len(sess.failed) == 0 {
		close(sess.completed)
		sess.closed = true
	}
	return nil
}

func (s *signingSessionStore) Fail(roundId, peerId string, err error) {
	sess := s.session(roundId)
	if sess == nil {
		return
	}
	sess.lock.Lock()
	defer sess.lock.Unlock()
	if sess.closed {
		return
	}
	sess.failed[peerId] = err
	close(sess.completed)
	sess.closed = true
}

func (s *signingSessionStore) AllFulfilled(roundId string) <-chan struct{} {
	sess := s.session(roundId)
	if sess == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return sess.completed
}

func (s *signingSessionStore) Results(roundId string) (map[string]string, bool) {
	sess := s.session(roundId)
	if sess == nil {
		return nil, false
	}
	sess.lock.Lock()
	defer sess.lock.Unlock()
	if len(sess.failed) > 0 {
		return nil, false
	}
	out := make(map[string]string, len(sess.results))
	for k, v := range sess.results {
		out[k] = v
	}
	return out, true
}

func (s *signingSessionStore) Close(roundId string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if sess, ok := s.sessions[roundId]; ok {
		sess.lock.Lock()
		if !sess.closed {
			close(sess.completed)
			sess.closed = true
		}
		sess.lock.Unlock()
	}
	delete(s.sessions, roundId)
}

var _ ports.SigningSessionStore = (*signingSessionStore)(nil)
