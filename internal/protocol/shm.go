package protocol

import (
	"fmt"

	"github.com/danmuck/waylink/internal/wire"
)

// ShmFormat is a wl_shm pixel format code.
type ShmFormat uint32

const (
	ShmFormatARGB8888 ShmFormat = 0
	ShmFormatXRGB8888 ShmFormat = 1
)

func (f ShmFormat) String() string {
	switch f {
	case ShmFormatARGB8888:
		return "argb8888"
	case ShmFormatXRGB8888:
		return "xrgb8888"
	default:
		return fmt.Sprintf("fourcc(%#08x)", uint32(f))
	}
}

var ShmInterface = &Interface{
	Name:    "wl_shm",
	Version: 1,
	Requests: []MessageSpec{
		{Name: "create_pool", Since: 1, Args: []wire.ArgType{wire.ArgNewID, wire.ArgFD, wire.ArgInt}},
	},
	Events: []MessageSpec{
		{Name: "format", Since: 1, Args: []wire.ArgType{wire.ArgUint}, newEvent: func() Event { return &ShmFormatEvent{} }},
	},
}

type Shm struct{ object }

func NewShm(id wire.ObjectID, conn Conn) *Shm {
	return &Shm{newObject(ShmInterface, id, conn)}
}

// CreatePool shares the memory behind fd with the compositor. The caller keeps
// ownership of fd and the mapping; only the descriptor crosses the socket.
func (s *Shm) CreatePool(pool wire.ObjectID, fd int, size int32) error {
	return s.issue("create_pool", pool, fd, size)
}

type ShmFormatEvent struct {
	EventHeader
	Format ShmFormat
}

func (*ShmFormatEvent) Name() string { return "wl_shm.format" }

func (e *ShmFormatEvent) decode(d *wire.Decoder) error {
	v, err := d.Uint()
	e.Format = ShmFormat(v)
	return err
}

var ShmPoolInterface = &Interface{
	Name:    "wl_shm_pool",
	Version: 1,
	Requests: []MessageSpec{
		{Name: "create_buffer", Since: 1, Args: []wire.ArgType{wire.ArgNewID, wire.ArgInt, wire.ArgInt, wire.ArgInt, wire.ArgInt, wire.ArgUint}},
		{Name: "destroy", Since: 1},
		{Name: "resize", Since: 1, Args: []wire.ArgType{wire.ArgInt}},
	},
}

type ShmPool struct{ object }

func NewShmPool(id wire.ObjectID, conn Conn) *ShmPool {
	return &ShmPool{newObject(ShmPoolInterface, id, conn)}
}

func (p *ShmPool) CreateBuffer(buffer wire.ObjectID, offset, width, height, stride int32, format ShmFormat) error {
	return p.issue("create_buffer", buffer, offset, width, height, stride, format)
}

func (p *ShmPool) Destroy() error {
	return p.issue("destroy")
}

func (p *ShmPool) Resize(size int32) error {
	return p.issue("resize", size)
}

var BufferInterface = &Interface{
	Name:    "wl_buffer",
	Version: 1,
	Requests: []MessageSpec{
		{Name: "destroy", Since: 1},
	},
	Events: []MessageSpec{
		{Name: "release", Since: 1, newEvent: func() Event { return &BufferRelease{} }},
	},
}

type Buffer struct{ object }

func NewBuffer(id wire.ObjectID, conn Conn) *Buffer {
	return &Buffer{newObject(BufferInterface, id, conn)}
}

func (b *Buffer) Destroy() error {
	return b.issue("destroy")
}

// BufferRelease tells the client the compositor no longer reads the buffer.
type BufferRelease struct {
	EventHeader
}

func (*BufferRelease) Name() string { return "wl_buffer.release" }

func (*BufferRelease) decode(*wire.Decoder) error { return nil }
