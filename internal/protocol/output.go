package protocol

import "github.com/danmuck/waylink/internal/wire"

var OutputInterface = &Interface{
	Name:    "wl_output",
	Version: 3,
	Requests: []MessageSpec{
		{Name: "release", Since: 3},
	},
	Events: []MessageSpec{
		{Name: "geometry", Since: 1, Args: []wire.ArgType{wire.ArgInt, wire.ArgInt, wire.ArgInt, wire.ArgInt, wire.ArgInt, wire.ArgString, wire.ArgString, wire.ArgInt}, newEvent: func() Event { return &OutputGeometry{} }},
		{Name: "mode", Since: 1, Args: []wire.ArgType{wire.ArgUint, wire.ArgInt, wire.ArgInt, wire.ArgInt}, newEvent: func() Event { return &OutputMode{} }},
		{Name: "done", Since: 2, newEvent: func() Event { return &OutputDone{} }},
		{Name: "scale", Since: 2, Args: []wire.ArgType{wire.ArgInt}, newEvent: func() Event { return &OutputScale{} }},
	},
}

type Output struct{ object }

func NewOutput(id wire.ObjectID, conn Conn) *Output {
	return &Output{newObject(OutputInterface, id, conn)}
}

func (o *Output) Release() error {
	return o.issue("release")
}

type OutputGeometry struct {
	EventHeader
	X              int32
	Y              int32
	PhysicalWidth  int32
	PhysicalHeight int32
	Subpixel       int32
	Make           string
	Model          string
	Transform      int32
}

func (*OutputGeometry) Name() string { return "wl_output.geometry" }

func (e *OutputGeometry) decode(d *wire.Decoder) (err error) {
	for _, dst := range []*int32{&e.X, &e.Y, &e.PhysicalWidth, &e.PhysicalHeight, &e.Subpixel} {
		if *dst, err = d.Int(); err != nil {
			return err
		}
	}
	if e.Make, err = d.Str(); err != nil {
		return err
	}
	if e.Model, err = d.Str(); err != nil {
		return err
	}
	e.Transform, err = d.Int()
	return err
}

// Output mode flags.
const (
	OutputModeCurrent   uint32 = 0x1
	OutputModePreferred uint32 = 0x2
)

type OutputMode struct {
	EventHeader
	Flags   uint32
	Width   int32
	Height  int32
	Refresh int32
}

func (*OutputMode) Name() string { return "wl_output.mode" }

func (e *OutputMode) decode(d *wire.Decoder) (err error) {
	if e.Flags, err = d.Uint(); err != nil {
		return err
	}
	for _, dst := range []*int32{&e.Width, &e.Height, &e.Refresh} {
		if *dst, err = d.Int(); err != nil {
			return err
		}
	}
	return nil
}

type OutputDone struct {
	EventHeader
}

func (*OutputDone) Name() string { return "wl_output.done" }

func (*OutputDone) decode(*wire.Decoder) error { return nil }

type OutputScale struct {
	EventHeader
	Factor int32
}

func (*OutputScale) Name() string { return "wl_output.scale" }

func (e *OutputScale) decode(d *wire.Decoder) (err error) {
	e.Factor, err = d.Int()
	return err
}
