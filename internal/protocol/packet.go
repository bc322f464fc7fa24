// Package protocol implements the wire format of the reliable UDP file
// transfer: a fixed 20-byte header in network byte order followed by a
// variable-length payload, and the pipe-delimited handshake metadata carried
// inside a HANDSHAKE packet's payload.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sentora-labs/rudp/internal/crc32"
)

// Type tags a Packet's role in the protocol.
type Type uint8

const (
	Handshake Type = iota
	HandshakeAck
	Data
	Ack
	Fin
	FinAck
	Error
)

func (t Type) String() string {
	switch t {
	case Handshake:
		return "HANDSHAKE"
	case HandshakeAck:
		return "HANDSHAKE_ACK"
	case Data:
		return "DATA"
	case Ack:
		return "ACK"
	case Fin:
		return "FIN"
	case FinAck:
		return "FIN_ACK"
	case Error:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

const (
	magic0 = 'R'
	magic1 = 'U'
	version = 1

	// HeaderSize is the fixed length, in bytes, of every packet's header.
	HeaderSize = 20
)

// Decode errors. Decode never panics; a malformed buffer always yields one
// of these instead.
var (
	ErrShort          = errors.New("protocol: buffer shorter than header")
	ErrBadMagic       = errors.New("protocol: bad magic or version")
	ErrLengthMismatch = errors.New("protocol: declared payload length exceeds buffer")
)

// Packet is one protocol message: header fields plus an owned payload copy.
type Packet struct {
	Type     Type
	Seq      uint32
	Total    uint32
	Window   uint16
	Checksum uint32
	Payload  []byte
}

// Encode serializes p into a freshly allocated buffer. For DATA packets
// whose Checksum is zero, Encode computes CRC-32 of the payload and uses
// that instead — callers normally leave Checksum unset and let Encode fill
// it in; callers who need to send a deliberately corrupt checksum (tests)
// should set Checksum to a non-zero value before calling Encode.
func (p Packet) Encode() []byte {
	checksum := p.Checksum
	if p.Type == Data && checksum == 0 {
		checksum = crc32.Checksum(p.Payload)
	}

	buf := make([]byte, HeaderSize+len(p.Payload))
	buf[0] = magic0
	buf[1] = magic1
	buf[2] = version
	buf[3] = byte(p.Type)
	binary.BigEndian.PutUint32(buf[4:8], p.Seq)
	binary.BigEndian.PutUint32(buf[8:12], p.Total)
	binary.BigEndian.PutUint16(buf[12:14], uint16(len(p.Payload)))
	binary.BigEndian.PutUint16(buf[14:16], p.Window)
	binary.BigEndian.PutUint32(buf[16:20], checksum)
	copy(buf[HeaderSize:], p.Payload)
	return buf
}

// Decode parses buf into a Packet. The payload is copied so the caller may
// reuse or discard buf immediately after Decode returns. Decode does not
// verify the checksum; that is a policy decision left to the receiver.
func Decode(buf []byte) (Packet, error) {
	if len(buf) < HeaderSize {
		return Packet{}, ErrShort
	}
	if buf[0] != magic0 || buf[1] != magic1 || buf[2] != version {
		return Packet{}, ErrBadMagic
	}

	payloadLen := int(binary.BigEndian.Uint16(buf[12:14]))
	if HeaderSize+payloadLen > len(buf) {
		return Packet{}, ErrLengthMismatch
	}

	p := Packet{
		Type:     Type(buf[3]),
		Seq:      binary.BigEndian.Uint32(buf[4:8]),
		Total:    binary.BigEndian.Uint32(buf[8:12]),
		Window:   binary.BigEndian.Uint16(buf[14:16]),
		Checksum: binary.BigEndian.Uint32(buf[16:20]),
	}
	if payloadLen > 0 {
		p.Payload = make([]byte, payloadLen)
		copy(p.Payload, buf[HeaderSize:HeaderSize+payloadLen])
	}
	return p, nil
}
