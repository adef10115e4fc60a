package tcp

import (
	"context"
	"encoding/hex"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vortexlabs/vortexd/internal/core/application"
	"github.com/vortexlabs/vortexd/internal/core/domain"
	"github.com/vortexlabs/vortexd/internal/infrastructure/wire"
)

// dispatch routes one decoded wire message to the matching coordinator
// operation and returns the reply frame to write back on the same
// connection (spec.md §4.4's request/reply pairing).
func (s *Server) dispatch(peerId string, msg wire.Message) (wire.Message, error) {
	ctx := context.Background()

	switch m := msg.(type) {
	case *wire.AskNonce:
		resp, err := s.svc.GetNonce(ctx, peerId, hex.EncodeToString(m.RoundId[:]))
		if err != nil {
			return nil, err
		}
		return &wire.NonceMessage{Nonce: resp.Nonce}, nil

	case *wire.AskMixDetails:
		info, err := s.svc.MixDetails()
		if err != nil {
			return nil, err
		}
		var roundId [32]byte
		copy(roundId[:], decodeRoundId(info.RoundId))
		return &wire.MixDetails{
			Version:   1,
			RoundId:   roundId,
			Amount:    info.Amount,
			MixFee:    info.MixFee,
			InputFee:  info.InputFee,
			OutputFee: info.OutputFee,
			PublicKey: info.PublicKey,
			Time:      info.Time,
		}, nil

	case *wire.RegisterInputs:
		req := application.InputRegistrationRequest{
			PeerId:        peerId,
			BlindedOutput: m.BlindedOutput,
			ChangeSpk:     m.ChangeOutput.Spk,
			ChangeAmount:  m.ChangeOutput.Amount,
		}
		for _, in := range m.Inputs {
			req.Inputs = append(req.Inputs, application.InputClaim{
				Outpoint: domain.Outpoint{
					Txid: hex.EncodeToString(in.Outpoint.Txid[:]),
					VOut: in.Outpoint.Vout,
				},
				Amount:     in.Output.Amount,
				Spk:        in.Output.Spk,
				PubKey:     in.PubKey,
				InputProof: in.InputProof,
			})
		}
		sig, err := s.svc.RegisterInputs(ctx, req)
		if err != nil {
			return nil, err
		}
		return &wire.BlindedSig{Sig: sig}, nil

	case *wire.BobMessage:
		sub := application.OutputSubmission{
			Amount: m.Output.Amount,
			Spk:    m.Output.Spk,
			Sig:    m.Sig,
		}
		if err := s.svc.RegisterOutput(ctx, sub); err != nil {
			return nil, err
		}
		return &wire.Ack{Ok: true}, nil

	case *wire.SignedPsbtMessage:
		sub := application.PsbtSubmission{PeerId: peerId, Psbt: m.Psbt}
		if err := s.svc.RegisterPsbtSignature(ctx, sub); err != nil {
			return nil, err
		}
		s.awaitAndPushFinalTransaction(peerId)
		return &wire.Ack{Ok: true, Message: "signature accepted"}, nil

	default:
		return nil, fmt.Errorf("unexpected message type %T", msg)
	}
}

// awaitAndPushFinalTransaction implements the "deferred per-peer result"
// design (spec.md §9): the SignedPsbtMessage reply only acknowledges
// receipt, the broadcast transaction (or failure notice) is pushed
// asynchronously once the round's signing session resolves.
func (s *Server) awaitAndPushFinalTransaction(peerId string) {
	info, err := s.svc.CurrentRoundInfo()
	if err != nil {
		return
	}
	roundId := info.Id

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		txHex, txid, err := s.svc.AwaitFinalTransaction(s.ctx, roundId, peerId)
		if err != nil {
			log.WithError(err).Debugf("peer %s: round %s did not complete", peerId, roundId)
			s.sendToPeer(peerId, &wire.RoundFailedMessage{Reason: err.Error()})
			return
		}
		s.sendToPeer(peerId, &wire.Ack{Ok: true, Message: txid + ":" + txHex})
	}()
}

func decodeRoundId(roundId string) []byte {
	b, err := hex.DecodeString(roundId)
	if err != nil {
		return nil
	}
	return b
}
