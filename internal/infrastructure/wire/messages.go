package wire

import "io"

// OutpointRef is the wire form of domain.Outpoint.
type OutpointRef struct {
	Txid [32]byte
	Vout uint32
}

func (o *OutpointRef) encode(w io.Writer) error {
	if _, err := w.Write(o.Txid[:]); err != nil {
		return err
	}
	return writeUint32(w, o.Vout)
}

func (o *OutpointRef) decode(r io.Reader) error {
	if _, err := io.ReadFull(r, o.Txid[:]); err != nil {
		return err
	}
	vout, err := readUint32(r)
	if err != nil {
		return err
	}
	o.Vout = vout
	return nil
}

// OutputRef is the wire form of domain.Output.
type OutputRef struct {
	Amount uint64
	Spk    []byte
}

func (o *OutputRef) encode(w io.Writer) error {
	if err := writeUint64(w, o.Amount); err != nil {
		return err
	}
	return writeVarBytes(w, o.Spk)
}

func (o *OutputRef) decode(r io.Reader) error {
	amount, err := readUint64(r)
	if err != nil {
		return err
	}
	spk, err := readVarBytes(r, "spk")
	if err != nil {
		return err
	}
	o.Amount = amount
	o.Spk = spk
	return nil
}

// InputReference carries the proof of possession for one spent outpoint.
type InputReference struct {
	Outpoint   OutpointRef
	Output     OutputRef
	PubKey     []byte
	InputProof []byte
}

func (i *InputReference) encode(w io.Writer) error {
	if err := i.Outpoint.encode(w); err != nil {
		return err
	}
	if err := i.Output.encode(w); err != nil {
		return err
	}
	if err := writeVarBytes(w, i.PubKey); err != nil {
		return err
	}
	return writeVarBytes(w, i.InputProof)
}

func (i *InputReference) decode(r io.Reader) error {
	if err := i.Outpoint.decode(r); err != nil {
		return err
	}
	if err := i.Output.decode(r); err != nil {
		return err
	}
	pubKey, err := readVarBytes(r, "pubkey")
	if err != nil {
		return err
	}
	proof, err := readVarBytes(r, "input_proof")
	if err != nil {
		return err
	}
	i.PubKey = pubKey
	i.InputProof = proof
	return nil
}

// AskNonce { round_id } -> NonceMessage { nonce }

type AskNonce struct {
	RoundId [32]byte
}

func (m *AskNonce) Type() MessageType { return MessageTypeAskNonce }

func (m *AskNonce) BtcEncode(w io.Writer, pver uint32) error {
	_, err := w.Write(m.RoundId[:])
	return err
}

func (m *AskNonce) BtcDecode(r io.Reader, pver uint32) error {
	_, err := io.ReadFull(r, m.RoundId[:])
	return err
}

type NonceMessage struct {
	Nonce []byte
}

func (m *NonceMessage) Type() MessageType { return MessageTypeNonceMessage }

func (m *NonceMessage) BtcEncode(w io.Writer, pver uint32) error {
	return writeVarBytes(w, m.Nonce)
}

func (m *NonceMessage) BtcDecode(r io.Reader, pver uint32) error {
	nonce, err := readVarBytes(r, "nonce")
	if err != nil {
		return err
	}
	m.Nonce = nonce
	return nil
}

// AskMixDetails { network } -> MixDetails { ... }

type AskMixDetails struct {
	Network string
}

func (m *AskMixDetails) Type() MessageType { return MessageTypeAskMixDetails }

func (m *AskMixDetails) BtcEncode(w io.Writer, pver uint32) error {
	return writeVarString(w, m.Network)
}

func (m *AskMixDetails) BtcDecode(r io.Reader, pver uint32) error {
	network, err := readVarString(r)
	if err != nil {
		return err
	}
	m.Network = network
	return nil
}

type MixDetails struct {
	Version   uint32
	RoundId   [32]byte
	Amount    uint64
	MixFee    uint64
	InputFee  uint64
	OutputFee uint64
	PublicKey []byte
	Time      int64
}

func (m *MixDetails) Type() MessageType { return MessageTypeMixDetails }

func (m *MixDetails) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeUint32(w, m.Version); err != nil {
		return err
	}
	if _, err := w.Write(m.RoundId[:]); err != nil {
		return err
	}
	if err := writeUint64(w, m.Amount); err != nil {
		return err
	}
	if err := writeUint64(w, m.MixFee); err != nil {
		return err
	}
	if err := writeUint64(w, m.InputFee); err != nil {
		return err
	}
	if err := writeUint64(w, m.OutputFee); err != nil {
		return err
	}
	if err := writeVarBytes(w, m.PublicKey); err != nil {
		return err
	}
	return writeInt64(w, m.Time)
}

func (m *MixDetails) BtcDecode(r io.Reader, pver uint32) error {
	var err error
	if m.Version, err = readUint32(r); err != nil {
		return err
	}
	if _, err = io.ReadFull(r, m.RoundId[:]); err != nil {
		return err
	}
	if m.Amount, err = readUint64(r); err != nil {
		return err
	}
	if m.MixFee, err = readUint64(r); err != nil {
		return err
	}
	if m.InputFee, err = readUint64(r); err != nil {
		return err
	}
	if m.OutputFee, err = readUint64(r); err != nil {
		return err
	}
	if m.PublicKey, err = readVarBytes(r, "public_key"); err != nil {
		return err
	}
	if m.Time, err = readInt64(r); err != nil {
		return err
	}
	return nil
}

// RegisterInputs { inputs, blinded_output, change_output } -> BlindedSig { sig }

type RegisterInputs struct {
	Inputs        []InputReference
	BlindedOutput []byte
	ChangeOutput  OutputRef
}

func (m *RegisterInputs) Type() MessageType { return MessageTypeRegisterInputs }

func (m *RegisterInputs) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeUint32(w, uint32(len(m.Inputs))); err != nil {
		return err
	}
	for i := range m.Inputs {
		if err := m.Inputs[i].encode(w); err != nil {
			return err
		}
	}
	if err := writeVarBytes(w, m.BlindedOutput); err != nil {
		return err
	}
	return m.ChangeOutput.encode(w)
}

func (m *RegisterInputs) BtcDecode(r io.Reader, pver uint32) error {
	count, err := readUint32(r)
	if err != nil {
		return err
	}
	inputs := make([]InputReference, count)
	for i := range inputs {
		if err := inputs[i].decode(r); err != nil {
			return err
		}
	}
	blindedOutput, err := readVarBytes(r, "blinded_output")
	if err != nil {
		return err
	}
	var changeOutput OutputRef
	if err := changeOutput.decode(r); err != nil {
		return err
	}
	m.Inputs = inputs
	m.BlindedOutput = blindedOutput
	m.ChangeOutput = changeOutput
	return nil
}

type BlindedSig struct {
	Sig []byte
}

func (m *BlindedSig) Type() MessageType { return MessageTypeBlindedSig }

func (m *BlindedSig) BtcEncode(w io.Writer, pver uint32) error {
	return writeVarBytes(w, m.Sig)
}

func (m *BlindedSig) BtcDecode(r io.Reader, pver uint32) error {
	sig, err := readVarBytes(r, "sig")
	if err != nil {
		return err
	}
	m.Sig = sig
	return nil
}

// BobMessage { output, sig } -> Ack

type BobMessage struct {
	Output OutputRef
	Sig    []byte
}

func (m *BobMessage) Type() MessageType { return MessageTypeBobMessage }

func (m *BobMessage) BtcEncode(w io.Writer, pver uint32) error {
	if err := m.Output.encode(w); err != nil {
		return err
	}
	return writeVarBytes(w, m.Sig)
}

func (m *BobMessage) BtcDecode(r io.Reader, pver uint32) error {
	if err := m.Output.decode(r); err != nil {
		return err
	}
	sig, err := readVarBytes(r, "sig")
	if err != nil {
		return err
	}
	m.Sig = sig
	return nil
}

type Ack struct {
	Ok      bool
	Message string
}

func (m *Ack) Type() MessageType { return MessageTypeAck }

func (m *Ack) BtcEncode(w io.Writer, pver uint32) error {
	var b [1]byte
	if m.Ok {
		b[0] = 1
	}
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	return writeVarString(w, m.Message)
}

func (m *Ack) BtcDecode(r io.Reader, pver uint32) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	message, err := readVarString(r)
	if err != nil {
		return err
	}
	m.Ok = b[0] == 1
	m.Message = message
	return nil
}

// UnsignedPsbtMessage (coordinator -> peer) -> SignedPsbtMessage (peer -> coordinator)

type UnsignedPsbtMessage struct {
	Psbt string
}

func (m *UnsignedPsbtMessage) Type() MessageType { return MessageTypeUnsignedPsbtMessage }

func (m *UnsignedPsbtMessage) BtcEncode(w io.Writer, pver uint32) error {
	return writeVarString(w, m.Psbt)
}

func (m *UnsignedPsbtMessage) BtcDecode(r io.Reader, pver uint32) error {
	psbt, err := readVarString(r)
	if err != nil {
		return err
	}
	m.Psbt = psbt
	return nil
}

type SignedPsbtMessage struct {
	Psbt string
}

func (m *SignedPsbtMessage) Type() MessageType { return MessageTypeSignedPsbtMessage }

func (m *SignedPsbtMessage) BtcEncode(w io.Writer, pver uint32) error {
	return writeVarString(w, m.Psbt)
}

func (m *SignedPsbtMessage) BtcDecode(r io.Reader, pver uint32) error {
	psbt, err := readVarString(r)
	if err != nil {
		return err
	}
	m.Psbt = psbt
	return nil
}

// RestartRoundMessage / RoundFailedMessage (coordinator -> peer) on phase failure

type RestartRoundMessage struct{}

func (m *RestartRoundMessage) Type() MessageType { return MessageTypeRestartRoundMessage }

func (m *RestartRoundMessage) BtcEncode(w io.Writer, pver uint32) error { return nil }

func (m *RestartRoundMessage) BtcDecode(r io.Reader, pver uint32) error { return nil }

type RoundFailedMessage struct {
	Reason string
}

func (m *RoundFailedMessage) Type() MessageType { return MessageTypeRoundFailedMessage }

func (m *RoundFailedMessage) BtcEncode(w io.Writer, pver uint32) error {
	return writeVarString(w, m.Reason)
}

func (m *RoundFailedMessage) BtcDecode(r io.Reader, pver uint32) error {
	reason, err := readVarString(r)
	if err != nil {
		return err
	}
	m.Reason = reason
	return nil
}
