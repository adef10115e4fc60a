package application

import "github.com/vortexlabs/vortexd/internal/core/domain"

// RoundInfo is the read-only projection of a round returned to admin
// callers and used by the connection manager to look up the current
// round id; peers' mix details come from MixDetailsInfo instead.
type RoundInfo struct {
	Id           string
	Status       string
	RoundTime    int64
	FeeRate      int64
	MixAmount    uint64
	MixFee       uint64
	InputFee     uint64
	OutputFee    uint64
	AliceCount   int
	OutputCount  int
	UnsignedTxid string
	FinalTxid    string
	FailReason   string
}

func newRoundInfo(round *domain.Round) RoundInfo {
	return RoundInfo{
		Id:           round.Id,
		Status:       round.Status.String(),
		RoundTime:    round.RoundTime,
		FeeRate:      round.FeeRate,
		MixAmount:    round.MixAmount,
		MixFee:       round.MixFee,
		InputFee:     round.InputFee,
		OutputFee:    round.OutputFee,
		AliceCount:   round.AliceCount,
		OutputCount:  round.OutputCount,
		UnsignedTxid: round.UnsignedTxid,
		FinalTxid:    round.FinalTxid,
		FailReason:   round.FailReason,
	}
}

// NonceResponse answers a peer's AskNonce.
type NonceResponse struct {
	Nonce []byte
}

// InputRegistrationRequest is the decoded form of a peer's RegisterInputs
// wire message, keyed to the connection-assigned peer_id.
type InputRegistrationRequest struct {
	PeerId        string
	Inputs        []InputClaim
	BlindedOutput []byte
	ChangeSpk     []byte
	ChangeAmount  uint64
}

// InputClaim is one outpoint a peer claims to control, proven via a
// Schnorr signature over its Alice nonce.
type InputClaim struct {
	Outpoint   domain.Outpoint
	Amount     uint64
	Spk        []byte
	PubKey     []byte
	InputProof []byte
}

// OutputSubmission is the decoded form of a Bob's unblinded output + sig.
type OutputSubmission struct {
	Amount uint64
	Spk    []byte
	Sig    []byte
}

// PsbtSubmission is a peer's signed PSBT for the round's unsigned tx.
type PsbtSubmission struct {
	PeerId string
	Psbt   string
}
