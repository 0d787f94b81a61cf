// Package ledserial implements the wire protocol between the host and the
// microcontroller that drives the LED matrix.
//
// Every packet is framed as a one-byte type, a type-specific payload and a
// little-endian CRC-32 (IEEE) of the type and payload. The host sends
// IncomingPackets; the controller answers each one with an AckPacket or an
// ErrorPacket and may send LogPackets at any time.
//
// The package only depends on the standard library so that it also builds
// with TinyGo.
package ledserial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Endianness defines the endianness of the protocol.
var Endianness = binary.LittleEndian

// MaxMessageLength is the longest message an outgoing packet can carry.
const MaxMessageLength = 1<<16 - 1

// ErrChecksum is returned when a packet fails its checksum.
var ErrChecksum = errors.New("packet checksum mismatch")

// IncomingPacketType is the type of a packet sent by the host.
type IncomingPacketType uint8

const (
	TypeInitializePacket IncomingPacketType = iota
	TypeClearPacket
	TypeSetPacket
)

func (t IncomingPacketType) String() string {
	switch t {
	case TypeInitializePacket:
		return "initialize"
	case TypeClearPacket:
		return "clear"
	case TypeSetPacket:
		return "set"
	default:
		return fmt.Sprintf("IncomingPacketType(%d)", t)
	}
}

// IncomingPacket is a packet sent from the host to the controller.
type IncomingPacket interface {
	Type() IncomingPacketType
}

// InitializePacket tells the controller how many LEDs the strip has. It
// must be sent before any SetPacket.
type InitializePacket struct {
	NumLEDs uint16
}

// ClearPacket turns every LED off.
type ClearPacket struct{}

// SetPacket carries a full frame as RGB triplets in wiring order.
type SetPacket struct {
	Pix []uint8
}

func (p InitializePacket) Type() IncomingPacketType { return TypeInitializePacket }
func (p ClearPacket) Type() IncomingPacketType      { return TypeClearPacket }
func (p SetPacket) Type() IncomingPacketType        { return TypeSetPacket }

// OutgoingPacketType is the type of a packet sent by the controller.
type OutgoingPacketType uint8

const (
	TypeAckPacket OutgoingPacketType = iota
	TypeErrorPacket
	TypePanicPacket
	TypeLogPacket
)

func (t OutgoingPacketType) String() string {
	switch t {
	case TypeAckPacket:
		return "ack"
	case TypeErrorPacket:
		return "error"
	case TypePanicPacket:
		return "panic"
	case TypeLogPacket:
		return "log"
	default:
		return fmt.Sprintf("OutgoingPacketType(%d)", t)
	}
}

// OutgoingPacket is a packet sent from the controller to the host.
type OutgoingPacket interface {
	Type() OutgoingPacketType
}

// AckPacket acknowledges that an incoming packet was applied.
type AckPacket struct {
	IncomingPacketType IncomingPacketType
}

// ErrorPacket reports that the last incoming packet could not be applied.
type ErrorPacket struct {
	Message string
}

// PanicPacket reports that the controller cannot recover.
type PanicPacket struct {
	Message string
}

// LogPacket carries a diagnostic message.
type LogPacket struct {
	Message string
}

func (p AckPacket) Type() OutgoingPacketType   { return TypeAckPacket }
func (p ErrorPacket) Type() OutgoingPacketType { return TypeErrorPacket }
func (p PanicPacket) Type() OutgoingPacketType { return TypePanicPacket }
func (p LogPacket) Type() OutgoingPacketType   { return TypeLogPacket }

// ReadContext is the state the reader needs to size variable payloads.
type ReadContext struct {
	// NumLEDs is the strip length announced by the last InitializePacket.
	NumLEDs uint16
	// LEDBuffer, if large enough, is reused for SetPacket pixels.
	LEDBuffer []byte
}

func (c ReadContext) pixels() []byte {
	n := 3 * int(c.NumLEDs)
	if cap(c.LEDBuffer) >= n {
		return c.LEDBuffer[:n]
	}
	return make([]byte, n)
}

// WriteIncomingPacket writes p to w as a single frame.
func WriteIncomingPacket(w io.Writer, p IncomingPacket) error {
	var payload []byte
	switch p := p.(type) {
	case InitializePacket:
		payload = Endianness.AppendUint16(nil, p.NumLEDs)
	case ClearPacket:
	case SetPacket:
		payload = p.Pix
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}
	return writeFrame(w, byte(p.Type()), payload)
}

// ReadIncomingPacket reads one frame from r.
func ReadIncomingPacket(r io.Reader, ctx ReadContext) (IncomingPacket, error) {
	f := newFrameReader(r)

	ptype, err := f.readByte()
	if err != nil {
		return nil, fmt.Errorf("failed to read incoming packet type: %w", err)
	}

	var packet IncomingPacket
	switch t := IncomingPacketType(ptype); t {
	case TypeInitializePacket:
		n, err := f.readUint16()
		if err != nil {
			return nil, fmt.Errorf("failed to read number of LEDs: %w", err)
		}
		packet = InitializePacket{NumLEDs: n}

	case TypeClearPacket:
		packet = ClearPacket{}

	case TypeSetPacket:
		if ctx.NumLEDs == 0 {
			return nil, errors.New("set packet received before initialize")
		}
		pix := ctx.pixels()
		if err := f.read(pix); err != nil {
			return nil, fmt.Errorf("failed to read pixel data: %w", err)
		}
		packet = SetPacket{Pix: pix}

	default:
		return nil, fmt.Errorf("unknown packet type: %s", t)
	}

	if err := f.verify(); err != nil {
		return nil, err
	}
	return packet, nil
}

// WriteOutgoingPacket writes p to w as a single frame.
func WriteOutgoingPacket(w io.Writer, p OutgoingPacket) error {
	var payload []byte
	switch p := p.(type) {
	case AckPacket:
		payload = []byte{byte(p.IncomingPacketType)}
	case ErrorPacket:
		payload = appendMessage(nil, p.Message)
	case PanicPacket:
		payload = appendMessage(nil, p.Message)
	case LogPacket:
		payload = appendMessage(nil, p.Message)
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}
	return writeFrame(w, byte(p.Type()), payload)
}

// ReadOutgoingPacket reads one frame from r.
func ReadOutgoingPacket(r io.Reader) (OutgoingPacket, error) {
	f := newFrameReader(r)

	ptype, err := f.readByte()
	if err != nil {
		return nil, fmt.Errorf("failed to read outgoing packet type: %w", err)
	}

	var packet OutgoingPacket
	switch t := OutgoingPacketType(ptype); t {
	case TypeAckPacket:
		acked, err := f.readByte()
		if err != nil {
			return nil, fmt.Errorf("failed to read acked packet type: %w", err)
		}
		packet = AckPacket{IncomingPacketType: IncomingPacketType(acked)}

	case TypeErrorPacket, TypePanicPacket, TypeLogPacket:
		msg, err := f.readMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s message: %w", t, err)
		}
		switch t {
		case TypeErrorPacket:
			packet = ErrorPacket{Message: msg}
		case TypePanicPacket:
			packet = PanicPacket{Message: msg}
		default:
			packet = LogPacket{Message: msg}
		}

	default:
		return nil, fmt.Errorf("unknown packet type: %s", t)
	}

	if err := f.verify(); err != nil {
		return nil, err
	}
	return packet, nil
}

func appendMessage(b []byte, msg string) []byte {
	if len(msg) > MaxMessageLength {
		msg = msg[:MaxMessageLength]
	}
	b = Endianness.AppendUint16(b, uint16(len(msg)))
	return append(b, msg...)
}

func writeFrame(w io.Writer, ptype byte, payload []byte) error {
	frame := make([]byte, 0, 1+len(payload)+4)
	frame = append(frame, ptype)
	frame = append(frame, payload...)
	frame = Endianness.AppendUint32(frame, crc32.ChecksumIEEE(frame))

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	return nil
}

// frameReader reads a frame while hashing everything before the checksum.
type frameReader struct {
	r    io.Reader
	hash uint32
	buf  [4]byte
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: r}
}

func (f *frameReader) read(b []byte) error {
	if _, err := io.ReadFull(f.r, b); err != nil {
		return err
	}
	f.hash = crc32.Update(f.hash, crc32.IEEETable, b)
	return nil
}

func (f *frameReader) readByte() (byte, error) {
	if err := f.read(f.buf[:1]); err != nil {
		return 0, err
	}
	return f.buf[0], nil
}

func (f *frameReader) readUint16() (uint16, error) {
	if err := f.read(f.buf[:2]); err != nil {
		return 0, err
	}
	return Endianness.Uint16(f.buf[:2]), nil
}

func (f *frameReader) readMessage() (string, error) {
	n, err := f.readUint16()
	if err != nil {
		return "", err
	}
	msg := make([]byte, n)
	if err := f.read(msg); err != nil {
		return "", err
	}
	return string(msg), nil
}

func (f *frameReader) verify() error {
	if _, err := io.ReadFull(f.r, f.buf[:4]); err != nil {
		return fmt.Errorf("failed to read packet checksum: %w", err)
	}
	if Endianness.Uint32(f.buf[:4]) != f.hash {
		return ErrChecksum
	}
	return nil
}
