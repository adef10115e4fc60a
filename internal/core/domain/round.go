package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoundStatus enumerates the phases of a CoinJoin round, in transition
// order. Failed is the only terminal non-Signed status and is reachable
// from every non-terminal status.
type RoundStatus int

const (
	RoundStatusPending RoundStatus = iota
	RoundStatusRegisterAlices
	RoundStatusRegisterOutputs
	RoundStatusSigning
	RoundStatusSigned
	RoundStatusFailed
)

func (s RoundStatus) String() string {
	switch s {
	case RoundStatusPending:
		return "PENDING"
	case RoundStatusRegisterAlices:
		return "REGISTER_ALICES"
	case RoundStatusRegisterOutputs:
		return "REGISTER_OUTPUTS"
	case RoundStatusSigning:
		return "SIGNING"
	case RoundStatusSigned:
		return "SIGNED"
	case RoundStatusFailed:
		return "FAILED"
	default:
		return "UNDEFINED"
	}
}

// Round is the aggregate root for one CoinJoin execution. It is
// event-sourced: every field mutation is the replay of a raised Event, the
// same shape as the teacher's domain.Round/on/raise pattern.
type Round struct {
	Id            string
	Status        RoundStatus
	RoundTime     int64
	FeeRate       int64
	MixAmount     uint64
	MixFee        uint64
	InputFee      uint64
	OutputFee     uint64
	UnsignedPsbt  string
	UnsignedTxid  string
	FinalTx       string
	FinalTxid     string
	Profit        uint64
	FailReason    string
	StartedAt     int64
	EndedAt       int64
	AliceCount    int
	OutputCount   int
	Changes       []Event
}

// NewRound seeds a fresh round in Pending status, identified by roundId
// (the double-SHA256 of a fresh secret, produced by the application
// service's newRoundId at round-creation time) or a random id if none is supplied. Call Start to
// move it into RegisterAlices once round_time arrives.
func NewRound(roundId string) *Round {
	if roundId == "" {
		roundId = uuid.New().String()
	}
	return &Round{
		Id:      roundId,
		Changes: make([]Event, 0),
	}
}

func NewRoundFromEvents(events []Event) *Round {
	r := &Round{}
	for _, event := range events {
		r.on(event, true)
	}
	r.Changes = append([]Event{}, events...)
	return r
}

func (r *Round) Events() []Event {
	return r.Changes
}

func (r *Round) IsEnded() bool {
	return r.Status == RoundStatusSigned || r.Status == RoundStatusFailed
}

func (r *Round) IsFailed() bool {
	return r.Status == RoundStatusFailed
}

// Clone returns an independent copy, safe for a caller to read across
// suspension points without racing the single-writer goroutine chain that
// continues to mutate the original in place.
func (r *Round) Clone() *Round {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Changes = append([]Event(nil), r.Changes...)
	return &clone
}

// Start moves Pending -> RegisterAlices, fired by the round-interval
// scheduler at round_time.
func (r *Round) Start(roundTime int64, feeRate int64, mixAmount, mixFee, inputFee, outputFee uint64) ([]Event, error) {
	if r.Status != RoundStatusPending {
		return nil, fmt.Errorf("round %s: not pending, cannot start alice registration", r.Id)
	}
	event := RoundStarted{
		RoundEvent: RoundEvent{Id: r.Id, Type: EventTypeRoundStarted},
		RoundTime:  roundTime,
		FeeRate:    feeRate,
		MixAmount:  mixAmount,
		MixFee:     mixFee,
		InputFee:   inputFee,
		OutputFee:  outputFee,
		Timestamp:  time.Now().Unix(),
	}
	r.raise(event)
	return []Event{event}, nil
}

// AdvanceToRegisterOutputs moves RegisterAlices -> RegisterOutputs, fired
// either by max_peers cutoff or by the input-registration timer when
// min_peers is satisfied.
func (r *Round) AdvanceToRegisterOutputs(aliceCount int) ([]Event, error) {
	if r.Status != RoundStatusRegisterAlices {
		return nil, fmt.Errorf("round %s: not registering alices", r.Id)
	}
	event := OutputsRegistrationStarted{
		RoundEvent: RoundEvent{Id: r.Id, Type: EventTypeOutputsRegistrationStarted},
		AliceCount: aliceCount,
		Timestamp:  time.Now().Unix(),
	}
	r.raise(event)
	return []Event{event}, nil
}

// AdvanceToSigning moves RegisterOutputs -> Signing once the unsigned PSBT
// has been assembled by the transaction builder.
func (r *Round) AdvanceToSigning(unsignedPsbt, unsignedTxid string, outputCount int) ([]Event, error) {
	if r.Status != RoundStatusRegisterOutputs {
		return nil, fmt.Errorf("round %s: not registering outputs", r.Id)
	}
	event := SigningStarted{
		RoundEvent:   RoundEvent{Id: r.Id, Type: EventTypeSigningStarted},
		UnsignedPsbt: unsignedPsbt,
		UnsignedTxid: unsignedTxid,
		OutputCount:  outputCount,
		Timestamp:    time.Now().Unix(),
	}
	r.raise(event)
	return []Event{event}, nil
}

// Sign moves Signing -> Signed once every peer's signed PSBT has been
// combined, extracted, validated and broadcast.
func (r *Round) Sign(finalTx, finalTxid string, profit uint64) ([]Event, error) {
	if r.Status != RoundStatusSigning {
		return nil, fmt.Errorf("round %s: not signing", r.Id)
	}
	event := RoundSigned{
		RoundEvent: RoundEvent{Id: r.Id, Type: EventTypeRoundSigned},
		FinalTx:    finalTx,
		FinalTxid:  finalTxid,
		Profit:     profit,
		Timestamp:  time.Now().Unix(),
	}
	r.raise(event)
	return []Event{event}, nil
}

// Fail moves any non-terminal status to Failed. A new round is always
// scheduled by the application layer after this transition.
func (r *Round) Fail(reason string) ([]Event, error) {
	if r.IsEnded() {
		return nil, fmt.Errorf("round %s: already ended, cannot fail", r.Id)
	}
	event := RoundFailed{
		RoundEvent: RoundEvent{Id: r.Id, Type: EventTypeRoundFailed},
		Reason:     reason,
		Timestamp:  time.Now().Unix(),
	}
	r.raise(event)
	return []Event{event}, nil
}

func (r *Round) raise(event Event) {
	if r.Changes == nil {
		r.Changes = make([]Event, 0)
	}
	r.Changes = append(r.Changes, event)
	r.on(event, false)
}

func (r *Round) on(event Event, replayed bool) {
	switch e := event.(type) {
	case RoundStarted:
		r.Status = RoundStatusRegisterAlices
		r.RoundTime = e.RoundTime
		r.FeeRate = e.FeeRate
		r.MixAmount = e.MixAmount
		r.MixFee = e.MixFee
		r.InputFee = e.InputFee
		r.OutputFee = e.OutputFee
		r.StartedAt = e.Timestamp
	case OutputsRegistrationStarted:
		r.Status = RoundStatusRegisterOutputs
		r.AliceCount = e.AliceCount
	case SigningStarted:
		r.Status = RoundStatusSigning
		r.UnsignedPsbt = e.UnsignedPsbt
		r.UnsignedTxid = e.UnsignedTxid
		r.OutputCount = e.OutputCount
	case RoundSigned:
		r.Status = RoundStatusSigned
		r.FinalTx = e.FinalTx
		r.FinalTxid = e.FinalTxid
		r.Profit = e.Profit
		r.EndedAt = e.Timestamp
	case RoundFailed:
		r.Status = RoundStatusFailed
		r.FailReason = e.Reason
		r.EndedAt = e.Timestamp
	}
	_ = replayed
}
