// Package application hosts the round coordinator: the phase state
// machine, the four public operations peers drive over the wire codec,
// and the admin surface. It follows the teacher's
// internal/core/application/service.go shape -- a single-writer service
// struct owning a context/cancel pair and a sync.WaitGroup, with the
// round lifecycle driven by a chain of goroutines handing off to each
// other via `go s.next(...)`, timers raced against early-advance signals
// with a `select`.
package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vortexlabs/vortexd/internal/core/domain"
	"github.com/vortexlabs/vortexd/internal/core/ports"
)

// Service is the coordinator's public contract, invoked by the
// connection manager on behalf of connected peers (spec.md §4.2).
type Service interface {
	Start() error
	Stop()

	GetNonce(ctx context.Context, peerId, roundId string) (NonceResponse, error)
	RegisterInputs(ctx context.Context, req InputRegistrationRequest) (blindSig []byte, err error)
	RegisterOutput(ctx context.Context, sub OutputSubmission) error
	RegisterPsbtSignature(ctx context.Context, sub PsbtSubmission) error
	AwaitFinalTransaction(ctx context.Context, roundId, peerId string) (txHex, txid string, err error)

	CurrentRoundInfo() (RoundInfo, error)
	MixDetails() (MixDetailsInfo, error)
	GetEventsChannel(ctx context.Context) <-chan []domain.Event
}

// MixDetailsInfo answers a peer's AskMixDetails.
type MixDetailsInfo struct {
	RoundId   string
	Amount    uint64
	MixFee    uint64
	InputFee  uint64
	OutputFee uint64
	PublicKey []byte
	Time      int64
}

type service struct {
	keyManager  ports.KeyManager
	repoManager ports.RepoManager
	builder     ports.TxBuilder
	chain       ports.ChainClient
	feeOracle   ports.FeeOracle
	cache       ports.LiveStore

	coordinatorAddress string

	roundInterval          time.Duration
	inputRegistrationTime  time.Duration
	outputRegistrationTime time.Duration
	signingTime            time.Duration

	minRemixPeers int
	minNewPeers   int
	maxPeers      int

	roundAmount    uint64
	coordinatorFee uint64

	badInputsBanDuration        time.Duration
	invalidSignatureBanDuration time.Duration

	eventsCh chan []domain.Event

	signalsLock sync.Mutex
	signals     *roundSignals

	roundPubKeyLock sync.Mutex
	roundPubKey     []byte

	stop func()
	ctx  context.Context
	wg   *sync.WaitGroup
}

// Config groups the coordinator's tunables, mirroring spec.md §6's
// configuration-options list.
type Config struct {
	CoordinatorAddress string

	RoundInterval          time.Duration
	InputRegistrationTime  time.Duration
	OutputRegistrationTime time.Duration
	SigningTime            time.Duration

	MinRemixPeers int
	MinNewPeers   int
	MaxPeers      int

	RoundAmount    uint64
	CoordinatorFee uint64

	BadInputsBanDuration        time.Duration
	InvalidSignatureBanDuration time.Duration
}

func NewService(
	keyManager ports.KeyManager,
	repoManager ports.RepoManager,
	builder ports.TxBuilder,
	chain ports.ChainClient,
	feeOracle ports.FeeOracle,
	cache ports.LiveStore,
	cfg Config,
) (Service, error) {
	if cfg.MaxPeers <= 0 {
		return nil, fmt.Errorf("maxPeers must be positive")
	}
	if cfg.MinRemixPeers+cfg.MinNewPeers <= 0 {
		return nil, fmt.Errorf("minPeers must be positive")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &service{
		keyManager:                  keyManager,
		repoManager:                 repoManager,
		builder:                     builder,
		chain:                       chain,
		feeOracle:                   feeOracle,
		cache:                       cache,
		coordinatorAddress:          cfg.CoordinatorAddress,
		roundInterval:               cfg.RoundInterval,
		inputRegistrationTime:       cfg.InputRegistrationTime,
		outputRegistrationTime:      cfg.OutputRegistrationTime,
		signingTime:                 cfg.SigningTime,
		minRemixPeers:               cfg.MinRemixPeers,
		minNewPeers:                 cfg.MinNewPeers,
		maxPeers:                    cfg.MaxPeers,
		roundAmount:                 cfg.RoundAmount,
		coordinatorFee:              cfg.CoordinatorFee,
		badInputsBanDuration:        cfg.BadInputsBanDuration,
		invalidSignatureBanDuration: cfg.InvalidSignatureBanDuration,
		eventsCh:                    make(chan []domain.Event),
		signals:                     newRoundSignals(),
		stop:                        cancel,
		ctx:                         ctx,
		wg:                          &sync.WaitGroup{},
	}, nil
}

func (s *service) minPeers() int {
	return s.minRemixPeers + s.minNewPeers
}

func (s *service) Start() error {
	log.Debug("starting vortexd coordinator")
	s.wg.Add(1)
	go s.startRound()
	return nil
}

func (s *service) Stop() {
	s.stop()
	s.wg.Wait()
	s.repoManager.Close()
	close(s.eventsCh)
	log.Debug("vortexd coordinator stopped")
}

func (s *service) GetEventsChannel(ctx context.Context) <-chan []domain.Event {
	return s.eventsCh
}

func (s *service) CurrentRoundInfo() (RoundInfo, error) {
	round := s.cache.CurrentRound().Get()
	if round == nil {
		return RoundInfo{}, domain.ErrUnknownRound
	}
	return newRoundInfo(round), nil
}

func (s *service) MixDetails() (MixDetailsInfo, error) {
	round := s.cache.CurrentRound().Get()
	if round == nil {
		return MixDetailsInfo{}, domain.ErrUnknownRound
	}
	s.roundPubKeyLock.Lock()
	pubKey := s.roundPubKey
	s.roundPubKeyLock.Unlock()
	return MixDetailsInfo{
		RoundId:   round.Id,
		Amount:    round.MixAmount,
		MixFee:    round.MixFee,
		InputFee:  round.InputFee,
		OutputFee: round.OutputFee,
		PublicKey: pubKey,
		Time:      round.RoundTime,
	}, nil
}

// roundSignals lets request handlers wake the phase-timer select early
// (max_peers cutoff, all outputs collected) without touching round state
// themselves -- only the single-writer phase goroutine mutates the round.
type roundSignals struct {
	aliceOnce  sync.Once
	aliceCh    chan struct{}
	outputOnce sync.Once
	outputCh   chan struct{}
}

func newRoundSignals() *roundSignals {
	return &roundSignals{
		aliceCh:  make(chan struct{}),
		outputCh: make(chan struct{}),
	}
}

func (r *roundSignals) signalAlices() {
	r.aliceOnce.Do(func() { close(r.aliceCh) })
}

func (r *roundSignals) signalOutputs() {
	r.outputOnce.Do(func() { close(r.outputCh) })
}

func (s *service) getSignals() *roundSignals {
	s.signalsLock.Lock()
	defer s.signalsLock.Unlock()
	return s.signals
}

func (s *service) resetSignals() *roundSignals {
	s.signalsLock.Lock()
	defer s.signalsLock.Unlock()
	s.signals = newRoundSignals()
	return s.signals
}

// newRoundId generates round_id as the double-SHA256 of a fresh 32-byte
// secret (spec.md §3).
func newRoundId() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate round secret: %w", err)
	}
	first := sha256.Sum256(secret)
	second := sha256.Sum256(first[:])
	return fmt.Sprintf("%x", second), nil
}

func (s *service) startRound() {
	defer s.wg.Done()

	select {
	case <-s.ctx.Done():
		return
	default:
	}

	ctx := context.Background()

	roundId, err := newRoundId()
	if err != nil {
		log.WithError(err).Error("failed to generate round id")
		s.scheduleNextRound()
		return
	}

	pubKey, err := s.keyManager.NewRoundKey(roundId)
	if err != nil {
		log.WithError(err).Error("failed to derive round key")
		s.scheduleNextRound()
		return
	}
	s.roundPubKeyLock.Lock()
	s.roundPubKey = pubKey
	s.roundPubKeyLock.Unlock()

	feeRate, err := s.feeOracle.FeeRate(ctx)
	if err != nil {
		log.WithError(err).Error("failed to fetch fee rate")
		s.scheduleNextRound()
		return
	}

	inputFee := uint64(feeRate) * 149
	outputFee := uint64(feeRate) * 43

	round := domain.NewRound(roundId)
	var events []domain.Event
	var startErr error
	s.cache.CurrentRound().Upsert(func(_ *domain.Round) *domain.Round {
		events, startErr = round.Start(time.Now().Unix(), feeRate, s.roundAmount, s.coordinatorFee, inputFee, outputFee)
		return round
	})
	if startErr != nil {
		log.WithError(startErr).Error("failed to start round")
		s.scheduleNextRound()
		return
	}

	if err := s.persist(ctx, round, events); err != nil {
		log.WithError(err).Error("failed to persist new round")
		s.scheduleNextRound()
		return
	}
	if err := s.repoManager.Rounds().SetCurrentRound(ctx, round.Id); err != nil {
		log.WithError(err).Error("failed to set current round")
	}

	s.resetSignals()

	log.Debugf("round %s: entered RegisterAlices", round.Id)

	s.wg.Add(1)
	go s.runAliceRegistration(round)
}

func (s *service) runAliceRegistration(round *domain.Round) {
	defer s.wg.Done()

	signals := s.getSignals()
	select {
	case <-s.ctx.Done():
		return
	case <-time.After(s.inputRegistrationTime):
	case <-signals.aliceCh:
	}

	ctx := context.Background()
	aliceCount, err := s.repoManager.Alices().CountRegistered(ctx, round.Id)
	if err != nil {
		log.WithError(err).Error("failed to count registered alices")
		aliceCount = 0
	}

	if aliceCount < s.minPeers() {
		s.failRound(round.Id, fmt.Sprintf("not enough alices registered: %d/%d", aliceCount, s.minPeers()))
		return
	}

	var events []domain.Event
	var advanceErr error
	s.cache.CurrentRound().Upsert(func(_ *domain.Round) *domain.Round {
		events, advanceErr = round.AdvanceToRegisterOutputs(aliceCount)
		return round
	})
	if advanceErr != nil {
		s.failRound(round.Id, advanceErr.Error())
		return
	}
	if err := s.persist(ctx, round, events); err != nil {
		log.WithError(err).Error("failed to persist phase transition")
	}
	s.resetSignals()

	log.Debugf("round %s: entered RegisterOutputs with %d alices", round.Id, aliceCount)

	s.wg.Add(1)
	go s.runOutputRegistration(round)
}

func (s *service) runOutputRegistration(round *domain.Round) {
	defer s.wg.Done()

	signals := s.getSignals()
	select {
	case <-s.ctx.Done():
		return
	case <-time.After(s.outputRegistrationTime):
	case <-signals.outputCh:
	}

	ctx := context.Background()
	outputCount, err := s.repoManager.Outputs().CountByRound(ctx, round.Id)
	if err != nil {
		log.WithError(err).Error("failed to count registered outputs")
	}
	if outputCount < round.AliceCount {
		s.failRound(round.Id, fmt.Sprintf("not enough outputs registered: %d/%d", outputCount, round.AliceCount))
		return
	}

	inputs, err := s.repoManager.Inputs().ListByRound(ctx, round.Id)
	if err != nil {
		s.failRound(round.Id, fmt.Sprintf("failed to list inputs: %s", err))
		return
	}
	outputs, err := s.repoManager.Outputs().ListByRound(ctx, round.Id)
	if err != nil {
		s.failRound(round.Id, fmt.Sprintf("failed to list outputs: %s", err))
		return
	}
	alices, err := s.repoManager.Alices().ListByRound(ctx, round.Id)
	if err != nil {
		s.failRound(round.Id, fmt.Sprintf("failed to list alices: %s", err))
		return
	}

	unsignedPsbt, unsignedTxid, indexByOutpoint, err := s.builder.BuildUnsignedTx(
		round.Id, inputs, outputs, alices, s.coordinatorAddress, round.MixFee,
	)
	if err != nil {
		s.failRound(round.Id, fmt.Sprintf("failed to build unsigned tx: %s", err))
		return
	}

	for outpoint, index := range indexByOutpoint {
		if err := s.repoManager.Inputs().SetIndexInFinalTx(ctx, round.Id, outpoint, index); err != nil {
			log.WithError(err).Warnf("failed to record index_in_final_tx for %s", outpoint)
		}
	}

	var events []domain.Event
	var advanceErr error
	s.cache.CurrentRound().Upsert(func(_ *domain.Round) *domain.Round {
		events, advanceErr = round.AdvanceToSigning(unsignedPsbt, unsignedTxid, outputCount)
		return round
	})
	if advanceErr != nil {
		s.failRound(round.Id, advanceErr.Error())
		return
	}
	if err := s.persist(ctx, round, events); err != nil {
		log.WithError(err).Error("failed to persist phase transition")
	}

	log.Debugf("round %s: entered Signing with %d outputs", round.Id, outputCount)

	s.wg.Add(1)
	go s.runSigning(round)
}

func (s *service) runSigning(round *domain.Round) {
	defer s.wg.Done()

	ctx := context.Background()
	inputs, err := s.repoManager.Inputs().ListByRound(ctx, round.Id)
	if err != nil {
		s.failRound(round.Id, fmt.Sprintf("failed to list inputs: %s", err))
		return
	}

	peerSet := make(map[string]struct{})
	for _, in := range inputs {
		peerSet[in.PeerId] = struct{}{}
	}
	peerIds := make([]string, 0, len(peerSet))
	for peerId := range peerSet {
		peerIds = append(peerIds, peerId)
	}

	sessions := s.cache.SigningSessions()
	sessions.Open(round.Id, peerIds)

	select {
	case <-s.ctx.Done():
		sessions.Close(round.Id)
		return
	case <-time.After(s.signingTime):
	case <-sessions.AllFulfilled(round.Id):
	}

	results, ok := sessions.Results(round.Id)
	if !ok || len(results) < len(peerIds) {
		sessions.Close(round.Id)
		s.failRound(round.Id, fmt.Sprintf("signing phase incomplete: %d/%d peers", len(results), len(peerIds)))
		return
	}

	psbts := make([]string, 0, len(results))
	for _, psbt := range results {
		psbts = append(psbts, psbt)
	}

	combined, err := s.builder.Combine(psbts)
	if err != nil {
		sessions.Close(round.Id)
		s.failRound(round.Id, fmt.Sprintf("failed to combine signed psbts: %s", err))
		return
	}
	txHex, txid, err := s.builder.FinalizeAndExtract(combined)
	if err != nil {
		sessions.Close(round.Id)
		s.failRound(round.Id, fmt.Sprintf("failed to finalize transaction: %s", err))
		return
	}
	if _, err := s.chain.SendRawTransaction(ctx, txHex); err != nil {
		sessions.Close(round.Id)
		s.failRound(round.Id, fmt.Sprintf("broadcast failed: %s", err))
		return
	}

	profit := round.MixFee * uint64(len(inputs))
	var events []domain.Event
	var signErr error
	s.cache.CurrentRound().Upsert(func(_ *domain.Round) *domain.Round {
		events, signErr = round.Sign(txHex, txid, profit)
		return round
	})
	if signErr != nil {
		sessions.Close(round.Id)
		s.failRound(round.Id, signErr.Error())
		return
	}
	if err := s.persist(ctx, round, events); err != nil {
		log.WithError(err).Error("failed to persist signed round")
	}
	sessions.Close(round.Id)

	log.Infof("round %s: signed and broadcast, txid %s", round.Id, txid)

	s.scheduleNextRound()
}

func (s *service) failRound(roundId, reason string) {
	ctx := context.Background()
	round, err := s.repoManager.Rounds().GetRoundWithId(ctx, roundId)
	if err != nil {
		log.WithError(err).Errorf("round %s: failed to reload round to fail it", roundId)
		s.scheduleNextRound()
		return
	}
	var events []domain.Event
	var failErr error
	s.cache.CurrentRound().Upsert(func(_ *domain.Round) *domain.Round {
		events, failErr = round.Fail(reason)
		return round
	})
	if failErr != nil {
		log.WithError(failErr).Errorf("round %s: already terminal, cannot fail", roundId)
	} else if err := s.persist(ctx, round, events); err != nil {
		log.WithError(err).Error("failed to persist failed round")
	}
	log.Warnf("round %s: failed: %s", roundId, reason)

	s.scheduleNextRound()
}

func (s *service) scheduleNextRound() {
	select {
	case <-s.ctx.Done():
		return
	default:
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.roundInterval):
		}
		s.wg.Add(1)
		go s.startRound()
	}()
}

func (s *service) persist(ctx context.Context, round *domain.Round, events []domain.Event) error {
	if err := s.repoManager.Rounds().AddOrUpdateRound(ctx, *round); err != nil {
		return fmt.Errorf("persist round: %w", err)
	}
	if err := s.repoManager.Events().Save(ctx, domain.RoundTopic, round.Id, events); err != nil {
		return fmt.Errorf("persist round events: %w", err)
	}
	go func() {
		select {
		case s.eventsCh <- events:
		case <-s.ctx.Done():
		}
	}()
	return nil
}
