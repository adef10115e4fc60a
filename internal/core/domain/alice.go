package domain

import "context"

// HDPath is the per-Alice nonce derivation coordinate, following the
// key manager's purpose/coin/account/chain/index scheme.
type HDPath struct {
	Purpose    uint32
	Coin       uint32
	Account    uint32
	Chain      uint32
	NonceIndex uint32
}

// Alice is a peer's registration within one round. It is created on the
// peer's first AskNonce and mutated by RegisterInputs; "registered" means
// BlindSig is set. Nothing on this row may ever be joined with a
// RegisteredOutput row -- that linkage is exactly what blind signatures
// are specified to prevent.
type Alice struct {
	PeerId        string
	RoundId       string
	Path          HDPath
	Nonce         []byte
	BlindedOutput []byte
	ChangeSpk     []byte
	ChangeAmount  uint64
	BlindSig      []byte
	Signed        bool
	CreatedAt     int64
}

func NewAlice(peerId, roundId string, path HDPath, nonce []byte) *Alice {
	return &Alice{
		PeerId:  peerId,
		RoundId: roundId,
		Path:    path,
		Nonce:   nonce,
	}
}

func (a *Alice) IsRegistered() bool {
	return len(a.BlindSig) > 0
}

// AliceRepository persists Alices for the current round. Nonce uniqueness
// and monotonic nonce_index are enforced by the key manager, not here --
// this store only needs peer_id lookups.
type AliceRepository interface {
	Upsert(ctx context.Context, alice Alice) error
	GetByPeerId(ctx context.Context, roundId, peerId string) (*Alice, error)
	ListByRound(ctx context.Context, roundId string) ([]Alice, error)
	CountRegistered(ctx context.Context, roundId string) (int, error)
	DeleteByRound(ctx context.Context, roundId string) error
	Close()
}
