package domain

const RoundTopic = "round"

type RoundEvent struct {
	Id   string
	Type EventType
}

func (r RoundEvent) GetTopic() string   { return RoundTopic }
func (r RoundEvent) GetType() EventType { return r.Type }

type RoundStarted struct {
	RoundEvent
	RoundTime int64
	FeeRate   int64
	MixAmount uint64
	MixFee    uint64
	InputFee  uint64
	OutputFee uint64
	Timestamp int64
}

type OutputsRegistrationStarted struct {
	RoundEvent
	AliceCount int
	Timestamp  int64
}

type SigningStarted struct {
	RoundEvent
	UnsignedPsbt string
	UnsignedTxid string
	OutputCount  int
	Timestamp    int64
}

type RoundSigned struct {
	RoundEvent
	FinalTx   string
	FinalTxid string
	Profit    uint64
	Timestamp int64
}

type RoundFailed struct {
	RoundEvent
	Reason    string
	Timestamp int64
}
