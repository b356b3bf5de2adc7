package wire

import (
	"encoding/binary"
	"fmt"
)

const (
	HeaderLen      = 8
	MaxMessageSize = 0xFFFF
	MaxBodySize    = MaxMessageSize - HeaderLen
)

// ObjectID names a protocol object in the namespace shared with the compositor.
type ObjectID uint32

const (
	NullObject ObjectID = 0
	DisplayID  ObjectID = 1
)

// Header is the fixed 8-byte message header. The second wire word packs the
// opcode into its low 16 bits and the total message size into its high 16 bits.
type Header struct {
	Sender   ObjectID
	Opcode   uint16
	BodySize uint16
}

// Size returns the total encoded length of the message, header included.
func (h Header) Size() int {
	return HeaderLen + int(h.BodySize)
}

// Frame is one complete message: header plus exactly BodySize body bytes.
type Frame struct {
	Header Header
	Body   []byte
}

func AppendHeader(dst []byte, h Header) ([]byte, error) {
	if int(h.BodySize) > MaxBodySize {
		return dst, fmt.Errorf("%w: body=%d", ErrMessageTooLarge, h.BodySize)
	}
	packed := uint32(h.Size())<<16 | uint32(h.Opcode)
	dst = binary.NativeEndian.AppendUint32(dst, uint32(h.Sender))
	dst = binary.NativeEndian.AppendUint32(dst, packed)
	return dst, nil
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	sender := binary.NativeEndian.Uint32(b[0:4])
	packed := binary.NativeEndian.Uint32(b[4:8])
	size := packed >> 16
	if size < HeaderLen {
		return Header{}, fmt.Errorf("%w: sender=%d size=%d", ErrFrameSizeInvalid, sender, size)
	}
	return Header{
		Sender:   ObjectID(sender),
		Opcode:   uint16(packed & 0xFFFF),
		BodySize: uint16(size - HeaderLen),
	}, nil
}

// SplitFrames demultiplexes back-to-back frames from buf. It returns every
// complete frame in wire order and the number of bytes they consumed; the
// remainder buf[consumed:] is a partial frame the caller may complete with
// more data. Bodies are copied, so buf may be reused afterwards.
func SplitFrames(buf []byte) ([]Frame, int, error) {
	frames := make([]Frame, 0)
	off := 0
	for len(buf)-off >= HeaderLen {
		h, err := DecodeHeader(buf[off:])
		if err != nil {
			return frames, off, err
		}
		end := off + h.Size()
		if end > len(buf) {
			break
		}
		body := make([]byte, h.BodySize)
		copy(body, buf[off+HeaderLen:end])
		frames = append(frames, Frame{Header: h, Body: body})
		off = end
	}
	return frames, off, nil
}

// Message is one outgoing request: a target object, an opcode, an encoded
// body and the descriptors that travel with it as ancillary data.
type Message struct {
	Sender ObjectID
	Opcode uint16
	Body   []byte
	FDs    []int
}

func (m Message) Marshal() ([]byte, error) {
	if len(m.Body) > MaxBodySize {
		return nil, fmt.Errorf("%w: body=%d", ErrMessageTooLarge, len(m.Body))
	}
	out := make([]byte, 0, HeaderLen+len(m.Body))
	out, err := AppendHeader(out, Header{Sender: m.Sender, Opcode: m.Opcode, BodySize: uint16(len(m.Body))})
	if err != nil {
		return nil, err
	}
	return append(out, m.Body...), nil
}
