package protocol

import "github.com/danmuck/waylink/internal/wire"

var ShellInterface = &Interface{
	Name:    "wl_shell",
	Version: 1,
	Requests: []MessageSpec{
		{Name: "get_shell_surface", Since: 1, Args: []wire.ArgType{wire.ArgNewID, wire.ArgObject}},
	},
}

type Shell struct{ object }

func NewShell(id wire.ObjectID, conn Conn) *Shell {
	return &Shell{newObject(ShellInterface, id, conn)}
}

func (s *Shell) GetShellSurface(shellSurface, surface wire.ObjectID) error {
	return s.issue("get_shell_surface", shellSurface, surface)
}

var ShellSurfaceInterface = &Interface{
	Name:    "wl_shell_surface",
	Version: 1,
	Requests: []MessageSpec{
		{Name: "pong", Since: 1, Args: []wire.ArgType{wire.ArgUint}},
		{Name: "move", Since: 1, Args: []wire.ArgType{wire.ArgObject, wire.ArgUint}},
		{Name: "resize", Since: 1, Args: []wire.ArgType{wire.ArgObject, wire.ArgUint, wire.ArgUint}},
		{Name: "set_toplevel", Since: 1},
		{Name: "set_transient", Since: 1, Args: []wire.ArgType{wire.ArgObject, wire.ArgInt, wire.ArgInt, wire.ArgUint}},
		{Name: "set_fullscreen", Since: 1, Args: []wire.ArgType{wire.ArgUint, wire.ArgUint, wire.ArgObject}},
		{Name: "set_popup", Since: 1, Args: []wire.ArgType{wire.ArgObject, wire.ArgUint, wire.ArgObject, wire.ArgInt, wire.ArgInt, wire.ArgUint}},
		{Name: "set_maximized", Since: 1, Args: []wire.ArgType{wire.ArgObject}},
		{Name: "set_title", Since: 1, Args: []wire.ArgType{wire.ArgString}},
		{Name: "set_class", Since: 1, Args: []wire.ArgType{wire.ArgString}},
	},
	Events: []MessageSpec{
		{Name: "ping", Since: 1, Args: []wire.ArgType{wire.ArgUint}, newEvent: func() Event { return &ShellSurfacePing{} }},
		{Name: "configure", Since: 1, Args: []wire.ArgType{wire.ArgUint, wire.ArgInt, wire.ArgInt}, newEvent: func() Event { return &ShellSurfaceConfigure{} }},
		{Name: "popup_done", Since: 1, newEvent: func() Event { return &ShellSurfacePopupDone{} }},
	},
}

type ShellSurface struct{ object }

func NewShellSurface(id wire.ObjectID, conn Conn) *ShellSurface {
	return &ShellSurface{newObject(ShellSurfaceInterface, id, conn)}
}

// Pong answers a ping; compositors treat unanswered pings as a hung client.
func (s *ShellSurface) Pong(serial uint32) error {
	return s.issue("pong", serial)
}

func (s *ShellSurface) Move(seat wire.ObjectID, serial uint32) error {
	return s.issue("move", seat, serial)
}

func (s *ShellSurface) Resize(seat wire.ObjectID, serial, edges uint32) error {
	return s.issue("resize", seat, serial, edges)
}

func (s *ShellSurface) SetToplevel() error {
	return s.issue("set_toplevel")
}

func (s *ShellSurface) SetTransient(parent wire.ObjectID, x, y int32, flags uint32) error {
	return s.issue("set_transient", parent, x, y, flags)
}

func (s *ShellSurface) SetFullscreen(method, framerate uint32, output wire.ObjectID) error {
	return s.issue("set_fullscreen", method, framerate, output)
}

func (s *ShellSurface) SetPopup(seat wire.ObjectID, serial uint32, parent wire.ObjectID, x, y int32, flags uint32) error {
	return s.issue("set_popup", seat, serial, parent, x, y, flags)
}

func (s *ShellSurface) SetMaximized(output wire.ObjectID) error {
	return s.issue("set_maximized", output)
}

func (s *ShellSurface) SetTitle(title string) error {
	return s.issue("set_title", title)
}

func (s *ShellSurface) SetClass(class string) error {
	return s.issue("set_class", class)
}

type ShellSurfacePing struct {
	EventHeader
	Serial uint32
}

func (*ShellSurfacePing) Name() string { return "wl_shell_surface.ping" }

func (e *ShellSurfacePing) decode(d *wire.Decoder) (err error) {
	e.Serial, err = d.Uint()
	return err
}

type ShellSurfaceConfigure struct {
	EventHeader
	Edges  uint32
	Width  int32
	Height int32
}

func (*ShellSurfaceConfigure) Name() string { return "wl_shell_surface.configure" }

func (e *ShellSurfaceConfigure) decode(d *wire.Decoder) (err error) {
	if e.Edges, err = d.Uint(); err != nil {
		return err
	}
	if e.Width, err = d.Int(); err != nil {
		return err
	}
	e.Height, err = d.Int()
	return err
}

type ShellSurfacePopupDone struct {
	EventHeader
}

func (*ShellSurfacePopupDone) Name() string { return "wl_shell_surface.popup_done" }

func (*ShellSurfacePopupDone) decode(*wire.Decoder) error { return nil }
