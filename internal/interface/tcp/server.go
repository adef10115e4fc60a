// Package tcp implements the connection manager (spec.md §4.5): a raw
// TCP listener, one read/write goroutine pair per peer connection, and a
// peer registry the coordinator's round-event stream pushes unsolicited
// messages through (UnsignedPsbtMessage on Signing entry,
// RoundFailedMessage on failure). Framing is this module's own wire
// codec (internal/infrastructure/wire); the accept-loop shape follows
// the corpus's plain net.Listen/Accept pattern, generalized with a
// per-peer outbound channel instead of a direct blocking write, so a
// slow peer cannot stall the coordinator's single-writer event loop
// (spec.md §9 "actor/message-driven architecture" design note).
package tcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vortexlabs/vortexd/internal/core/application"
	"github.com/vortexlabs/vortexd/internal/core/domain"
	"github.com/vortexlabs/vortexd/internal/core/ports"
	"github.com/vortexlabs/vortexd/internal/infrastructure/wire"
)

// Server is the coordinator's TCP front-end.
type Server struct {
	addr        string
	svc         application.Service
	repoManager ports.RepoManager

	listener net.Listener

	peersLock sync.Mutex
	peers     map[string]*peerConn

	stop context.CancelFunc
	ctx  context.Context
	wg   sync.WaitGroup
}

type peerConn struct {
	peerId string
	conn   net.Conn
	outCh  chan wire.Message
}

func NewServer(addr string, svc application.Service, repoManager ports.RepoManager) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:        addr,
		svc:         svc,
		repoManager: repoManager,
		peers:       make(map[string]*peerConn),
		stop:        cancel,
		ctx:         ctx,
	}
}

// Start opens the listen socket and begins accepting connections and
// propagating round events to connected peers.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = l

	log.Infof("vortexd listening on %s", s.addr)

	s.wg.Add(1)
	go s.acceptLoop()

	s.wg.Add(1)
	go s.propagateRoundEvents()

	return nil
}

func (s *Server) Stop() {
	s.stop()
	if s.listener != nil {
		s.listener.Close()
	}
	s.peersLock.Lock()
	for _, p := range s.peers {
		p.conn.Close()
	}
	s.peersLock.Unlock()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				log.WithError(err).Warn("accept failed")
				continue
			}
		}
		peerId, err := randomPeerId()
		if err != nil {
			log.WithError(err).Error("failed to assign peer id")
			conn.Close()
			continue
		}

		peer := &peerConn{peerId: peerId, conn: conn, outCh: make(chan wire.Message, 4)}
		s.registerPeer(peer)

		s.wg.Add(2)
		go s.readLoop(peer)
		go s.writeLoop(peer)
	}
}

func randomPeerId() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *Server) registerPeer(p *peerConn) {
	s.peersLock.Lock()
	defer s.peersLock.Unlock()
	s.peers[p.peerId] = p
}

func (s *Server) unregisterPeer(peerId string) {
	s.peersLock.Lock()
	defer s.peersLock.Unlock()
	delete(s.peers, peerId)
}

func (s *Server) writeLoop(p *peerConn) {
	defer s.wg.Done()
	for {
		select {
		case msg, ok := <-p.outCh:
			if !ok {
				return
			}
			if err := wire.WriteMessage(p.conn, msg); err != nil {
				log.WithError(err).Debugf("peer %s: write failed", p.peerId)
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) readLoop(p *peerConn) {
	defer s.wg.Done()
	defer func() {
		s.unregisterPeer(p.peerId)
		close(p.outCh)
		p.conn.Close()
	}()

	for {
		msg, err := wire.ReadMessage(p.conn)
		if err != nil {
			return
		}
		reply, err := s.dispatch(p.peerId, msg)
		if err != nil {
			log.WithError(err).Debugf("peer %s: %T failed", p.peerId, msg)
			reply = &wire.RoundFailedMessage{Reason: err.Error()}
		}
		if reply == nil {
			continue
		}
		select {
		case p.outCh <- reply:
		case <-s.ctx.Done():
			return
		}
	}
}

// propagateRoundEvents watches the coordinator's event stream and pushes
// the round's unsigned PSBT to every peer that registered an input, once
// Signing begins, and a failure notice to every connected peer on Failed.
func (s *Server) propagateRoundEvents() {
	defer s.wg.Done()
	ch := s.svc.GetEventsChannel(s.ctx)
	for {
		select {
		case events, ok := <-ch:
			if !ok {
				return
			}
			for _, event := range events {
				s.handleRoundEvent(event)
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) handleRoundEvent(event domain.Event) {
	ctx := context.Background()
	switch e := event.(type) {
	case domain.SigningStarted:
		inputs, err := s.repoManager.Inputs().ListByRound(ctx, e.Id)
		if err != nil {
			log.WithError(err).Warn("failed to list inputs for signing push")
			return
		}
		peerIds := make(map[string]struct{})
		for _, in := range inputs {
			peerIds[in.PeerId] = struct{}{}
		}
		for peerId := range peerIds {
			s.sendToPeer(peerId, &wire.UnsignedPsbtMessage{Psbt: e.UnsignedPsbt})
		}
	case domain.RoundFailed:
		s.peersLock.Lock()
		ids := make([]string, 0, len(s.peers))
		for id := range s.peers {
			ids = append(ids, id)
		}
		s.peersLock.Unlock()
		for _, peerId := range ids {
			s.sendToPeer(peerId, &wire.RoundFailedMessage{Reason: e.Reason})
		}
	}
}

func (s *Server) sendToPeer(peerId string, msg wire.Message) {
	s.peersLock.Lock()
	p, ok := s.peers[peerId]
	s.peersLock.Unlock()
	if !ok {
		return
	}
	select {
	case p.outCh <- msg:
	case <-s.ctx.Done():
	}
}
