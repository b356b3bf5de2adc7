package protocol

import "github.com/danmuck/waylink/internal/wire"

var DisplayInterface = &Interface{
	Name:    "wl_display",
	Version: 1,
	Requests: []MessageSpec{
		{Name: "sync", Since: 1, Args: []wire.ArgType{wire.ArgNewID}},
		{Name: "get_registry", Since: 1, Args: []wire.ArgType{wire.ArgNewID}},
	},
	Events: []MessageSpec{
		{Name: "error", Since: 1, Args: []wire.ArgType{wire.ArgObject, wire.ArgUint, wire.ArgString}, newEvent: func() Event { return &DisplayError{} }},
		{Name: "delete_id", Since: 1, Args: []wire.ArgType{wire.ArgUint}, newEvent: func() Event { return &DisplayDeleteID{} }},
	},
}

// Global wl_display error codes.
const (
	DisplayErrorInvalidObject  uint32 = 0
	DisplayErrorInvalidMethod  uint32 = 1
	DisplayErrorNoMemory       uint32 = 2
	DisplayErrorImplementation uint32 = 3
)

// Display is the root object, always bound at id 1.
type Display struct{ object }

func NewDisplay(id wire.ObjectID, conn Conn) *Display {
	return &Display{newObject(DisplayInterface, id, conn)}
}

// Sync asks the compositor to emit done on callback once every earlier
// request has been processed.
func (d *Display) Sync(callback wire.ObjectID) error {
	return d.issue("sync", callback)
}

func (d *Display) GetRegistry(registry wire.ObjectID) error {
	return d.issue("get_registry", registry)
}

// DisplayError is a fatal protocol error raised by the compositor.
type DisplayError struct {
	EventHeader
	ObjectID wire.ObjectID
	Code     uint32
	Message  string
}

func (*DisplayError) Name() string { return "wl_display.error" }

func (e *DisplayError) decode(d *wire.Decoder) (err error) {
	if e.ObjectID, err = d.Object(); err != nil {
		return err
	}
	if e.Code, err = d.Uint(); err != nil {
		return err
	}
	e.Message, err = d.Str()
	return err
}

// DisplayDeleteID acknowledges that the compositor released an object id.
type DisplayDeleteID struct {
	EventHeader
	ID uint32
}

func (*DisplayDeleteID) Name() string { return "wl_display.delete_id" }

func (e *DisplayDeleteID) decode(d *wire.Decoder) (err error) {
	e.ID, err = d.Uint()
	return err
}

var RegistryInterface = &Interface{
	Name:    "wl_registry",
	Version: 1,
	Requests: []MessageSpec{
		// bind carries an untyped new_id: interface name, version, then id.
		{Name: "bind", Since: 1, Args: []wire.ArgType{wire.ArgUint, wire.ArgString, wire.ArgUint, wire.ArgNewID}},
	},
	Events: []MessageSpec{
		{Name: "global", Since: 1, Args: []wire.ArgType{wire.ArgUint, wire.ArgString, wire.ArgUint}, newEvent: func() Event { return &RegistryGlobal{} }},
		{Name: "global_remove", Since: 1, Args: []wire.ArgType{wire.ArgUint}, newEvent: func() Event { return &RegistryGlobalRemove{} }},
	},
}

type Registry struct{ object }

func NewRegistry(id wire.ObjectID, conn Conn) *Registry {
	return &Registry{newObject(RegistryInterface, id, conn)}
}

func (r *Registry) Bind(name uint32, iface string, version uint32, id wire.ObjectID) error {
	return r.issue("bind", name, iface, version, id)
}

// RegistryGlobal announces a global object the client may bind.
type RegistryGlobal struct {
	EventHeader
	GlobalName uint32
	Interface  string
	Version    uint32
}

func (*RegistryGlobal) Name() string { return "wl_registry.global" }

func (e *RegistryGlobal) decode(d *wire.Decoder) (err error) {
	if e.GlobalName, err = d.Uint(); err != nil {
		return err
	}
	if e.Interface, err = d.Str(); err != nil {
		return err
	}
	e.Version, err = d.Uint()
	return err
}

type RegistryGlobalRemove struct {
	EventHeader
	GlobalName uint32
}

func (*RegistryGlobalRemove) Name() string { return "wl_registry.global_remove" }

func (e *RegistryGlobalRemove) decode(d *wire.Decoder) (err error) {
	e.GlobalName, err = d.Uint()
	return err
}

var CallbackInterface = &Interface{
	Name:    "wl_callback",
	Version: 1,
	Events: []MessageSpec{
		{Name: "done", Since: 1, Args: []wire.ArgType{wire.ArgUint}, newEvent: func() Event { return &CallbackDone{} }},
	},
}

type Callback struct{ object }

func NewCallback(id wire.ObjectID, conn Conn) *Callback {
	return &Callback{newObject(CallbackInterface, id, conn)}
}

type CallbackDone struct {
	EventHeader
	Data uint32
}

func (*CallbackDone) Name() string { return "wl_callback.done" }

func (e *CallbackDone) decode(d *wire.Decoder) (err error) {
	e.Data, err = d.Uint()
	return err
}
