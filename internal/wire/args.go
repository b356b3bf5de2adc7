package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

// ArgType identifies one argument kind from the protocol schema.
type ArgType uint8

const (
	ArgInt ArgType = iota + 1
	ArgUint
	ArgFixed
	ArgString
	ArgObject
	ArgNewID
	ArgArray
	ArgFD
)

func (t ArgType) String() string {
	switch t {
	case ArgInt:
		return "int"
	case ArgUint:
		return "uint"
	case ArgFixed:
		return "fixed"
	case ArgString:
		return "string"
	case ArgObject:
		return "object"
	case ArgNewID:
		return "new_id"
	case ArgArray:
		return "array"
	case ArgFD:
		return "fd"
	default:
		return fmt.Sprintf("argtype(%d)", uint8(t))
	}
}

// Fixed is a signed 24.8 fixed-point number.
type Fixed int32

func FixedFromFloat(v float64) Fixed {
	return Fixed(math.Round(v * 256))
}

func FixedFromInt(v int) Fixed {
	return Fixed(v * 256)
}

func (f Fixed) Float() float64 {
	return float64(f) / 256
}

func (f Fixed) Int() int {
	return int(f / 256)
}

func padded(n int) int {
	return (n + 3) &^ 3
}

// Encoder appends arguments to a request body. Descriptors are collected
// separately since they travel out of band.
type Encoder struct {
	buf []byte
	fds []int
}

func (e *Encoder) PutInt(v int32) {
	e.buf = binary.NativeEndian.AppendUint32(e.buf, uint32(v))
}

func (e *Encoder) PutUint(v uint32) {
	e.buf = binary.NativeEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) PutFixed(v Fixed) {
	e.PutInt(int32(v))
}

func (e *Encoder) PutObject(id ObjectID) {
	e.PutUint(uint32(id))
}

func (e *Encoder) PutNewID(id ObjectID) {
	e.PutUint(uint32(id))
}

// PutString writes the length (including the nul terminator), the bytes, the
// terminator and padding to a 4-byte boundary.
func (e *Encoder) PutString(s string) {
	e.PutUint(uint32(len(s) + 1))
	start := len(e.buf)
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
	e.pad(start)
}

func (e *Encoder) PutArray(b []byte) {
	e.PutUint(uint32(len(b)))
	start := len(e.buf)
	e.buf = append(e.buf, b...)
	e.pad(start)
}

func (e *Encoder) PutFD(fd int) {
	e.fds = append(e.fds, fd)
}

func (e *Encoder) pad(start int) {
	for (len(e.buf)-start)%4 != 0 {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) FDs() []int {
	return e.fds
}

// FDSource hands out descriptors received alongside the message stream, in
// arrival order.
type FDSource interface {
	NextFD() (int, error)
}

// Decoder reads arguments from one event body.
type Decoder struct {
	buf     []byte
	off     int
	fds     FDSource
	claimed []int
}

func NewDecoder(body []byte, fds FDSource) *Decoder {
	return &Decoder{buf: body, fds: fds}
}

func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, fmt.Errorf("%w: need=%d have=%d", ErrShortArgument, n, d.Remaining())
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *Decoder) Uint() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint32(b), nil
}

func (d *Decoder) Int() (int32, error) {
	v, err := d.Uint()
	return int32(v), err
}

func (d *Decoder) Fixed() (Fixed, error) {
	v, err := d.Uint()
	return Fixed(int32(v)), err
}

func (d *Decoder) Object() (ObjectID, error) {
	v, err := d.Uint()
	return ObjectID(v), err
}

func (d *Decoder) NewID() (ObjectID, error) {
	return d.Object()
}

// Str returns "" for a null string (length 0).
func (d *Decoder) Str() (string, error) {
	n, err := d.Uint()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if uint64(n) > uint64(d.Remaining()) {
		return "", fmt.Errorf("%w: string length=%d have=%d", ErrShortArgument, n, d.Remaining())
	}
	b, err := d.take(padded(int(n)))
	if err != nil {
		return "", err
	}
	if b[n-1] != 0 {
		return "", ErrInvalidString
	}
	return string(b[:n-1]), nil
}

func (d *Decoder) Array() ([]byte, error) {
	n, err := d.Uint()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(d.Remaining()) {
		return nil, fmt.Errorf("%w: array length=%d have=%d", ErrShortArgument, n, d.Remaining())
	}
	b, err := d.take(padded(int(n)))
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b[:n])
	return out, nil
}

func (d *Decoder) FD() (int, error) {
	if d.fds == nil {
		return -1, ErrMissingFD
	}
	fd, err := d.fds.NextFD()
	if err != nil {
		return -1, err
	}
	d.claimed = append(d.claimed, fd)
	return fd, nil
}

// Abort closes every descriptor claimed by this decoder. Call it when the
// decoded value is discarded.
func (d *Decoder) Abort() {
	for _, fd := range d.claimed {
		_ = unix.Close(fd)
	}
	d.claimed = nil
}

// Finish reports an error when body bytes are left unread.
func (d *Decoder) Finish() error {
	if d.Remaining() != 0 {
		return fmt.Errorf("%w: %d bytes", ErrTrailingBytes, d.Remaining())
	}
	return nil
}
