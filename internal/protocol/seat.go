package protocol

import "github.com/danmuck/waylink/internal/wire"

// Seat capability bits.
const (
	SeatCapabilityPointer  uint32 = 1
	SeatCapabilityKeyboard uint32 = 2
	SeatCapabilityTouch    uint32 = 4
)

var SeatInterface = &Interface{
	Name:    "wl_seat",
	Version: 5,
	Requests: []MessageSpec{
		{Name: "get_pointer", Since: 1, Args: []wire.ArgType{wire.ArgNewID}},
		{Name: "get_keyboard", Since: 1, Args: []wire.ArgType{wire.ArgNewID}},
		{Name: "get_touch", Since: 1, Args: []wire.ArgType{wire.ArgNewID}},
		{Name: "release", Since: 5},
	},
	Events: []MessageSpec{
		{Name: "capabilities", Since: 1, Args: []wire.ArgType{wire.ArgUint}, newEvent: func() Event { return &SeatCapabilities{} }},
		{Name: "name", Since: 2, Args: []wire.ArgType{wire.ArgString}, newEvent: func() Event { return &SeatName{} }},
	},
}

type Seat struct{ object }

func NewSeat(id wire.ObjectID, conn Conn) *Seat {
	return &Seat{newObject(SeatInterface, id, conn)}
}

func (s *Seat) GetKeyboard(keyboard wire.ObjectID) error {
	return s.issue("get_keyboard", keyboard)
}

func (s *Seat) Release() error {
	return s.issue("release")
}

type SeatCapabilities struct {
	EventHeader
	Capabilities uint32
}

func (*SeatCapabilities) Name() string { return "wl_seat.capabilities" }

func (e *SeatCapabilities) decode(d *wire.Decoder) (err error) {
	e.Capabilities, err = d.Uint()
	return err
}

type SeatName struct {
	EventHeader
	SeatName string
}

func (*SeatName) Name() string { return "wl_seat.name" }

func (e *SeatName) decode(d *wire.Decoder) (err error) {
	e.SeatName, err = d.Str()
	return err
}

var KeyboardInterface = &Interface{
	Name:    "wl_keyboard",
	Version: 5,
	Requests: []MessageSpec{
		{Name: "release", Since: 3},
	},
	Events: []MessageSpec{
		{Name: "keymap", Since: 1, Args: []wire.ArgType{wire.ArgUint, wire.ArgFD, wire.ArgUint}, newEvent: func() Event { return &KeyboardKeymap{} }},
		{Name: "enter", Since: 1, Args: []wire.ArgType{wire.ArgUint, wire.ArgObject, wire.ArgArray}, newEvent: func() Event { return &KeyboardEnter{} }},
		{Name: "leave", Since: 1, Args: []wire.ArgType{wire.ArgUint, wire.ArgObject}, newEvent: func() Event { return &KeyboardLeave{} }},
		{Name: "key", Since: 1, Args: []wire.ArgType{wire.ArgUint, wire.ArgUint, wire.ArgUint, wire.ArgUint}, newEvent: func() Event { return &KeyboardKey{} }},
		{Name: "modifiers", Since: 1, Args: []wire.ArgType{wire.ArgUint, wire.ArgUint, wire.ArgUint, wire.ArgUint, wire.ArgUint}, newEvent: func() Event { return &KeyboardModifiers{} }},
		{Name: "repeat_info", Since: 4, Args: []wire.ArgType{wire.ArgInt, wire.ArgInt}, newEvent: func() Event { return &KeyboardRepeatInfo{} }},
	},
}

type Keyboard struct{ object }

func NewKeyboard(id wire.ObjectID, conn Conn) *Keyboard {
	return &Keyboard{newObject(KeyboardInterface, id, conn)}
}

func (k *Keyboard) Release() error {
	return k.issue("release")
}

// KeyboardKeymap hands over the keymap file. The receiver owns FD and must close it.
type KeyboardKeymap struct {
	EventHeader
	Format uint32
	FD     int
	Size   uint32
}

func (*KeyboardKeymap) Name() string { return "wl_keyboard.keymap" }

func (e *KeyboardKeymap) decode(d *wire.Decoder) (err error) {
	if e.Format, err = d.Uint(); err != nil {
		return err
	}
	if e.FD, err = d.FD(); err != nil {
		return err
	}
	e.Size, err = d.Uint()
	return err
}

type KeyboardEnter struct {
	EventHeader
	Serial  uint32
	Surface wire.ObjectID
	Keys    []byte
}

func (*KeyboardEnter) Name() string { return "wl_keyboard.enter" }

func (e *KeyboardEnter) decode(d *wire.Decoder) (err error) {
	if e.Serial, err = d.Uint(); err != nil {
		return err
	}
	if e.Surface, err = d.Object(); err != nil {
		return err
	}
	e.Keys, err = d.Array()
	return err
}

type KeyboardLeave struct {
	EventHeader
	Serial  uint32
	Surface wire.ObjectID
}

func (*KeyboardLeave) Name() string { return "wl_keyboard.leave" }

func (e *KeyboardLeave) decode(d *wire.Decoder) (err error) {
	if e.Serial, err = d.Uint(); err != nil {
		return err
	}
	e.Surface, err = d.Object()
	return err
}

type KeyboardKey struct {
	EventHeader
	Serial uint32
	Time   uint32
	Key    uint32
	State  uint32
}

func (*KeyboardKey) Name() string { return "wl_keyboard.key" }

func (e *KeyboardKey) decode(d *wire.Decoder) (err error) {
	for _, dst := range []*uint32{&e.Serial, &e.Time, &e.Key, &e.State} {
		if *dst, err = d.Uint(); err != nil {
			return err
		}
	}
	return nil
}

type KeyboardModifiers struct {
	EventHeader
	Serial    uint32
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

func (*KeyboardModifiers) Name() string { return "wl_keyboard.modifiers" }

func (e *KeyboardModifiers) decode(d *wire.Decoder) (err error) {
	for _, dst := range []*uint32{&e.Serial, &e.Depressed, &e.Latched, &e.Locked, &e.Group} {
		if *dst, err = d.Uint(); err != nil {
			return err
		}
	}
	return nil
}

type KeyboardRepeatInfo struct {
	EventHeader
	Rate  int32
	Delay int32
}

func (*KeyboardRepeatInfo) Name() string { return "wl_keyboard.repeat_info" }

func (e *KeyboardRepeatInfo) decode(d *wire.Decoder) (err error) {
	if e.Rate, err = d.Int(); err != nil {
		return err
	}
	e.Delay, err = d.Int()
	return err
}
