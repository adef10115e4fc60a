// Package wire implements the coordinator's wire codec: a 16-bit
// big-endian length prefix, a 16-bit message-type tag, then a
// type-specific body (spec.md §4.4). Field (de)serialization follows the
// teacher's github.com/btcsuite/btcd/wire idiom -- each message type
// implements BtcEncode/BtcDecode against an io.Writer/io.Reader using
// wire's own ReadVarBytes/WriteVarBytes/ReadVarString helpers, the same
// convention wire.MsgTx itself uses -- even though the outer framing is
// this spec's own (the source's actor/gRPC transport does not fit the
// raw-socket requirement, per spec.md §9 design notes).
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	btcwire "github.com/btcsuite/btcd/wire"
)

// MessageType tags the body that follows the length prefix.
type MessageType uint16

const (
	MessageTypeAskNonce MessageType = iota + 1
	MessageTypeNonceMessage
	MessageTypeAskMixDetails
	MessageTypeMixDetails
	MessageTypeRegisterInputs
	MessageTypeBlindedSig
	MessageTypeBobMessage
	MessageTypeAck
	MessageTypeUnsignedPsbtMessage
	MessageTypeSignedPsbtMessage
	MessageTypeRestartRoundMessage
	MessageTypeRoundFailedMessage
)

const protocolVersion uint32 = 1

// maxMessagePayload bounds a single frame's body. The length prefix written
// in WriteMessage is a 16-bit field (spec.md §4.4), so 0xFFFF is not a
// policy choice but the actual ceiling the wire format can address -- a
// larger body would silently truncate under the uint16 cast and desync the
// connection instead of erroring.
const maxMessagePayload = 0xFFFF

// Message is implemented by every app-level wire message. It deliberately
// mirrors btcd's wire.Message shape (BtcEncode/BtcDecode over an
// io.Writer/io.Reader) without the command-string+checksum framing wire
// itself uses, since that framing is replaced by the fixed type tag.
type Message interface {
	Type() MessageType
	BtcEncode(w io.Writer, pver uint32) error
	BtcDecode(r io.Reader, pver uint32) error
}

// WriteMessage frames and writes msg: 2-byte length, 2-byte type, body.
func WriteMessage(w io.Writer, msg Message) error {
	var body []byte
	{
		buf := new(bytes.Buffer)
		if err := msg.BtcEncode(buf, protocolVersion); err != nil {
			return fmt.Errorf("encode %T: %w", msg, err)
		}
		body = buf.Bytes()
	}
	if len(body) > maxMessagePayload {
		return fmt.Errorf("encode %T: payload too large (%d bytes)", msg, len(body))
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], uint16(len(body)))
	binary.BigEndian.PutUint16(header[2:4], uint16(msg.Type()))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadMessage reads one framed message and decodes it into the concrete
// type registered for its tag.
func ReadMessage(r io.Reader) (Message, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(header[0:2])
	msgType := MessageType(binary.BigEndian.Uint16(header[2:4]))

	if int(length) > maxMessagePayload {
		return nil, fmt.Errorf("frame too large: %d bytes", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}

	msg, err := newMessage(msgType)
	if err != nil {
		return nil, err
	}
	if err := msg.BtcDecode(bytes.NewReader(body), protocolVersion); err != nil {
		return nil, fmt.Errorf("decode %T: %w", msg, err)
	}
	return msg, nil
}

func newMessage(t MessageType) (Message, error) {
	switch t {
	case MessageTypeAskNonce:
		return &AskNonce{}, nil
	case MessageTypeNonceMessage:
		return &NonceMessage{}, nil
	case MessageTypeAskMixDetails:
		return &AskMixDetails{}, nil
	case MessageTypeMixDetails:
		return &MixDetails{}, nil
	case MessageTypeRegisterInputs:
		return &RegisterInputs{}, nil
	case MessageTypeBlindedSig:
		return &BlindedSig{}, nil
	case MessageTypeBobMessage:
		return &BobMessage{}, nil
	case MessageTypeAck:
		return &Ack{}, nil
	case MessageTypeUnsignedPsbtMessage:
		return &UnsignedPsbtMessage{}, nil
	case MessageTypeSignedPsbtMessage:
		return &SignedPsbtMessage{}, nil
	case MessageTypeRestartRoundMessage:
		return &RestartRoundMessage{}, nil
	case MessageTypeRoundFailedMessage:
		return &RoundFailedMessage{}, nil
	default:
		return nil, fmt.Errorf("unknown message type %d", t)
	}
}

func writeVarBytes(w io.Writer, b []byte) error {
	return btcwire.WriteVarBytes(w, protocolVersion, b)
}

func readVarBytes(r io.Reader, fieldName string) ([]byte, error) {
	return btcwire.ReadVarBytes(r, protocolVersion, maxMessagePayload, fieldName)
}

func writeVarString(w io.Writer, s string) error {
	return btcwire.WriteVarString(w, protocolVersion, s)
}

func readVarString(r io.Reader) (string, error) {
	return btcwire.ReadVarString(r, protocolVersion)
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func writeInt64(w io.Writer, v int64) error {
	return writeUint64(w, uint64(v))
}

func readInt64(r io.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}
