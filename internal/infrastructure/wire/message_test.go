package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, msg))
	decoded, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.Equal(t, msg.Type(), decoded.Type())
	return decoded
}

func TestRoundTripAllMessageTypes(t *testing.T) {
	var roundId [32]byte
	copy(roundId[:], bytes.Repeat([]byte{0xAA}, 32))
	var txid [32]byte
	copy(txid[:], bytes.Repeat([]byte{0xBB}, 32))

	cases := []Message{
		&AskNonce{RoundId: roundId},
		&NonceMessage{Nonce: []byte{1, 2, 3, 4}},
		&AskMixDetails{Network: "regtest"},
		&MixDetails{
			Version:   1,
			RoundId:   roundId,
			Amount:    100000,
			MixFee:    500,
			InputFee:  1490,
			OutputFee: 430,
			PublicKey: []byte{0x02, 1, 2, 3},
			Time:      1234567890,
		},
		&RegisterInputs{
			Inputs: []InputReference{
				{
					Outpoint:   OutpointRef{Txid: txid, Vout: 1},
					Output:     OutputRef{Amount: 200000, Spk: []byte{0x00, 0x14, 1, 2}},
					PubKey:     []byte{0x02, 9, 9, 9},
					InputProof: []byte{0xde, 0xad, 0xbe, 0xef},
				},
			},
			BlindedOutput: []byte{0xca, 0xfe},
			ChangeOutput:  OutputRef{Amount: 50000, Spk: []byte{0x00, 0x14, 4, 5}},
		},
		&BlindedSig{Sig: bytes.Repeat([]byte{0x07}, 32)},
		&BobMessage{
			Output: OutputRef{Amount: 150000, Spk: []byte{0x00, 0x14, 6, 7}},
			Sig:    bytes.Repeat([]byte{0x09}, 65),
		},
		&Ack{Ok: true, Message: "signature accepted"},
		&UnsignedPsbtMessage{Psbt: "cHNidP8BAA=="},
		&SignedPsbtMessage{Psbt: "cHNidP8BAQ=="},
		&RestartRoundMessage{},
		&RoundFailedMessage{Reason: "not enough alices registered"},
	}

	for _, original := range cases {
		decoded := roundTrip(t, original)
		require.Equal(t, original, decoded)
	}
}

func TestWriteMessageRejectsOversizedPayload(t *testing.T) {
	msg := &UnsignedPsbtMessage{Psbt: string(bytes.Repeat([]byte{'a'}, 70_000))}
	var buf bytes.Buffer
	err := WriteMessage(&buf, msg)
	require.Error(t, err, "a body over the 16-bit length prefix's 65535-byte ceiling must be rejected, not truncated")
	require.Zero(t, buf.Len(), "nothing should be written to the wire once encoding fails")
}

func TestReadMessageRejectsUnknownType(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, &Ack{Ok: true}))
	raw := buf.Bytes()
	raw[2] = 0xff
	raw[3] = 0xff

	_, err := ReadMessage(bytes.NewReader(raw))
	require.Error(t, err)
}
