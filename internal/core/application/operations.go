package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"

	"github.com/vortexlabs/vortexd/internal/core/domain"
)

// GetNonce answers AskNonce. It is idempotent: repeat calls from the same
// peer_id return the same nonce (spec.md §8).
func (s *service) GetNonce(ctx context.Context, peerId, roundId string) (NonceResponse, error) {
	round := s.cache.CurrentRound().Get()
	if round == nil || round.Id != roundId {
		return NonceResponse{}, domain.ErrUnknownRound
	}
	if round.Status != domain.RoundStatusPending && round.Status != domain.RoundStatusRegisterAlices {
		return NonceResponse{}, domain.ErrWrongPhase
	}

	existing, err := s.repoManager.Alices().GetByPeerId(ctx, roundId, peerId)
	if err == nil && existing != nil {
		return NonceResponse{Nonce: existing.Nonce}, nil
	}
	if err != nil && !errors.Is(err, domain.ErrUnknownAlice) {
		return NonceResponse{}, err
	}

	nonce, path, err := s.keyManager.NextNonce(roundId)
	if err != nil {
		return NonceResponse{}, fmt.Errorf("derive nonce: %w", err)
	}
	alice := domain.NewAlice(peerId, roundId, path, nonce)
	if err := s.repoManager.Alices().Upsert(ctx, *alice); err != nil {
		return NonceResponse{}, fmt.Errorf("persist alice: %w", err)
	}
	return NonceResponse{Nonce: nonce}, nil
}

// RegisterInputs validates a peer's claimed inputs and change output, then
// issues a blind Schnorr signature over the peer's blinded output token
// (spec.md §4.2).
func (s *service) RegisterInputs(ctx context.Context, req InputRegistrationRequest) ([]byte, error) {
	round := s.cache.CurrentRound().Get()
	if round == nil {
		return nil, domain.ErrUnknownRound
	}
	if round.Status != domain.RoundStatusRegisterAlices {
		return nil, domain.ErrWrongPhase
	}

	alice, err := s.repoManager.Alices().GetByPeerId(ctx, round.Id, req.PeerId)
	if err != nil {
		return nil, err
	}

	for _, in := range req.Inputs {
		if !isWitnessV0PubKeyHash(in.Spk) {
			return nil, domain.ErrScriptTypeMismatch
		}
	}
	if !isWitnessV0PubKeyHash(req.ChangeSpk) {
		return nil, domain.ErrScriptTypeMismatch
	}

	if err := s.verifyInputsConcurrently(ctx, round.Id, alice.Nonce, req.Inputs); err != nil {
		s.banInputs(ctx, req.Inputs, s.badInputsBanDuration, err)
		return nil, err
	}

	sumInputs := uint64(0)
	for _, in := range req.Inputs {
		sumInputs += in.Amount
	}
	requiredMin := round.MixAmount + round.MixFee + round.InputFee*uint64(len(req.Inputs)) + round.OutputFee*2
	if sumInputs < requiredMin || req.ChangeAmount > sumInputs-requiredMin {
		s.banInputs(ctx, req.Inputs, s.badInputsBanDuration, domain.ErrAmountUnderflow)
		return nil, domain.ErrAmountUnderflow
	}

	blindSig, err := s.keyManager.IssueBlindSignature(round.Id, alice.Path, req.BlindedOutput)
	if err != nil {
		return nil, fmt.Errorf("issue blind signature: %w", err)
	}

	registered := make([]domain.RegisteredInput, 0, len(req.Inputs))
	for _, in := range req.Inputs {
		registered = append(registered, domain.RegisteredInput{
			RoundId: round.Id,
			Outpoint: in.Outpoint,
			PeerId:  req.PeerId,
			PrevOutput: domain.PrevOutput{
				Amount: in.Amount,
				Spk:    in.Spk,
			},
			PubKey:     in.PubKey,
			InputProof: in.InputProof,
		})
	}
	if err := s.repoManager.Inputs().AddMany(ctx, registered); err != nil {
		return nil, fmt.Errorf("persist inputs: %w", err)
	}

	alice.BlindedOutput = req.BlindedOutput
	alice.ChangeSpk = req.ChangeSpk
	alice.ChangeAmount = req.ChangeAmount
	alice.BlindSig = blindSig
	alice.CreatedAt = time.Now().Unix()
	if err := s.repoManager.Alices().Upsert(ctx, *alice); err != nil {
		return nil, fmt.Errorf("persist alice registration: %w", err)
	}

	count, err := s.repoManager.Alices().CountRegistered(ctx, round.Id)
	if err != nil {
		log.WithError(err).Warn("failed to count registered alices after registration")
	} else if count >= s.maxPeers {
		s.getSignals().signalAlices()
	}

	return blindSig, nil
}

// verifyInputsConcurrently checks every input in parallel, each against
// the ban list, its pubkey/scriptPubKey match, the chain's copy of the
// output and its input proof; all must pass (spec.md §4.2).
func (s *service) verifyInputsConcurrently(ctx context.Context, roundId string, nonce []byte, inputs []InputClaim) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs submitted")
	}

	var wg sync.WaitGroup
	errs := make([]error, len(inputs))
	for i, in := range inputs {
		wg.Add(1)
		go func(i int, in InputClaim) {
			defer wg.Done()
			errs[i] = s.verifyOneInput(ctx, nonce, in)
		}(i, in)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *service) verifyOneInput(ctx context.Context, nonce []byte, in InputClaim) error {
	banned, err := s.repoManager.Bans().IsBanned(ctx, in.Outpoint, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("check ban list: %w", err)
	}
	if banned {
		return domain.ErrBannedInput
	}

	if !isPubKeyForSpk(in.PubKey, in.Spk) {
		return domain.ErrScriptTypeMismatch
	}

	txid, err := chainhash.NewHashFromStr(in.Outpoint.Txid)
	if err != nil {
		return fmt.Errorf("parse outpoint txid: %w", err)
	}
	amount, spk, err := s.chain.GetRawTransactionOutput(ctx, *txid, in.Outpoint.VOut)
	if err != nil {
		return domain.ErrMissingChainTx
	}
	if amount != in.Amount || !bytes.Equal(spk, in.Spk) {
		return domain.ErrOutputMismatch
	}

	ok, err := s.keyManager.VerifyInputProof(in.PubKey, nonce, in.InputProof)
	if err != nil || !ok {
		return domain.ErrInvalidInputProof
	}
	return nil
}

func (s *service) banInputs(ctx context.Context, inputs []InputClaim, duration time.Duration, reason error) {
	if len(inputs) == 0 {
		return
	}
	bans := make([]domain.BannedUtxo, 0, len(inputs))
	for _, in := range inputs {
		bans = append(bans, domain.BannedUtxo{
			Outpoint:    in.Outpoint,
			BannedUntil: time.Now().Add(duration).Unix(),
			Reason:      reason.Error(),
		})
	}
	if err := s.repoManager.Bans().BanMany(ctx, bans); err != nil {
		log.WithError(err).Error("failed to persist bans")
	}
}

// RegisterOutput validates a Bob submission's unblinded signature and
// persists it with no peer linkage (spec.md §4.2 unlinkability invariant).
func (s *service) RegisterOutput(ctx context.Context, sub OutputSubmission) error {
	round := s.cache.CurrentRound().Get()
	if round == nil {
		return domain.ErrUnknownRound
	}
	if round.Status != domain.RoundStatusRegisterOutputs {
		return domain.ErrWrongPhase
	}

	output := domain.Output{Amount: sub.Amount, Spk: sub.Spk}
	ok, err := s.keyManager.VerifyOutputSignature(round.Id, output, sub.Sig)
	if err != nil || !ok {
		return domain.ErrInvalidOutputSig
	}

	registered := domain.RegisteredOutput{RoundId: round.Id, Output: output, Sig: sub.Sig}
	if err := s.repoManager.Outputs().Add(ctx, registered); err != nil {
		if errors.Is(err, domain.ErrDuplicateOutput) {
			return nil
		}
		return fmt.Errorf("persist output: %w", err)
	}

	count, err := s.repoManager.Outputs().CountByRound(ctx, round.Id)
	if err != nil {
		log.WithError(err).Warn("failed to count registered outputs")
	} else if count >= round.AliceCount {
		s.getSignals().signalOutputs()
	}
	return nil
}

// RegisterPsbtSignature validates a peer's signed PSBT and delivers it to
// the round's signing session; the combined transaction is produced by
// runSigning once every peer's slot is filled.
func (s *service) RegisterPsbtSignature(ctx context.Context, sub PsbtSubmission) error {
	round := s.cache.CurrentRound().Get()
	if round == nil {
		return domain.ErrUnknownRound
	}
	if round.Status != domain.RoundStatusSigning || round.UnsignedPsbt == "" {
		return domain.ErrWrongPhase
	}

	same, err := s.builder.SameUnsignedTx(sub.Psbt, round.UnsignedPsbt)
	if err != nil || !same {
		s.failPeerSigning(ctx, round.Id, sub.PeerId, domain.ErrInvalidPsbtSignature)
		return domain.ErrInvalidPsbtSignature
	}

	owned, err := s.repoManager.Inputs().ListByPeer(ctx, round.Id, sub.PeerId)
	if err != nil {
		return fmt.Errorf("list owned inputs: %w", err)
	}
	for _, in := range owned {
		if in.IndexInFinalTx == nil {
			continue
		}
		ok, err := s.builder.VerifyFinalizedInput(sub.Psbt, *in.IndexInFinalTx)
		if err != nil || !ok {
			s.failPeerSigning(ctx, round.Id, sub.PeerId, domain.ErrInvalidPsbtSignature)
			return domain.ErrInvalidPsbtSignature
		}
	}

	if err := s.cache.SigningSessions().Fulfill(round.Id, sub.PeerId, sub.Psbt); err != nil {
		return fmt.Errorf("fulfill signing session: %w", err)
	}

	alice, err := s.repoManager.Alices().GetByPeerId(ctx, round.Id, sub.PeerId)
	if err != nil {
		log.WithError(err).Warn("failed to reload alice after fulfilling signing session")
		return nil
	}
	alice.Signed = true
	if err := s.repoManager.Alices().Upsert(ctx, *alice); err != nil {
		log.WithError(err).Warn("failed to persist alice signed flag")
	}
	return nil
}

func (s *service) failPeerSigning(ctx context.Context, roundId, peerId string, reason error) {
	inputs, err := s.repoManager.Inputs().ListByPeer(ctx, roundId, peerId)
	if err != nil {
		log.WithError(err).Warn("failed to list peer inputs to ban")
	} else {
		claims := make([]InputClaim, 0, len(inputs))
		for _, in := range inputs {
			claims = append(claims, InputClaim{Outpoint: in.Outpoint})
		}
		s.banInputs(ctx, claims, s.invalidSignatureBanDuration, reason)
	}
	s.cache.SigningSessions().Fail(roundId, peerId, reason)
}

// AwaitFinalTransaction blocks until the round's signing session resolves
// (all peers signed, or any peer failed / the phase timed out), then
// waits for the round to end and returns the broadcast transaction, or an
// error if the round failed.
func (s *service) AwaitFinalTransaction(ctx context.Context, roundId, peerId string) (string, string, error) {
	select {
	case <-s.cache.SigningSessions().AllFulfilled(roundId):
	case <-ctx.Done():
		return "", "", ctx.Err()
	}

	for {
		round, err := s.repoManager.Rounds().GetRoundWithId(ctx, roundId)
		if err != nil {
			return "", "", err
		}
		if round.Status == domain.RoundStatusSigned {
			return round.FinalTx, round.FinalTxid, nil
		}
		if round.IsEnded() {
			return "", "", fmt.Errorf("round %s did not complete: %s", roundId, round.FailReason)
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
}

func isWitnessV0PubKeyHash(spk []byte) bool {
	return txscript.GetScriptClass(spk) == txscript.WitnessV0PubKeyHashTy
}

func isPubKeyForSpk(pubKey, spk []byte) bool {
	if len(spk) != 22 || spk[0] != 0x00 || spk[1] != 0x14 {
		return false
	}
	return bytes.Equal(spk[2:], btcutil.Hash160(pubKey))
}
