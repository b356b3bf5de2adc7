package protocol

import "github.com/danmuck/waylink/internal/wire"

var CompositorInterface = &Interface{
	Name:    "wl_compositor",
	Version: 4,
	Requests: []MessageSpec{
		{Name: "create_surface", Since: 1, Args: []wire.ArgType{wire.ArgNewID}},
		{Name: "create_region", Since: 1, Args: []wire.ArgType{wire.ArgNewID}},
	},
}

type Compositor struct{ object }

func NewCompositor(id wire.ObjectID, conn Conn) *Compositor {
	return &Compositor{newObject(CompositorInterface, id, conn)}
}

func (c *Compositor) CreateSurface(surface wire.ObjectID) error {
	return c.issue("create_surface", surface)
}

func (c *Compositor) CreateRegion(region wire.ObjectID) error {
	return c.issue("create_region", region)
}

var SurfaceInterface = &Interface{
	Name:    "wl_surface",
	Version: 4,
	Requests: []MessageSpec{
		{Name: "destroy", Since: 1},
		{Name: "attach", Since: 1, Args: []wire.ArgType{wire.ArgObject, wire.ArgInt, wire.ArgInt}},
		{Name: "damage", Since: 1, Args: []wire.ArgType{wire.ArgInt, wire.ArgInt, wire.ArgInt, wire.ArgInt}},
		{Name: "frame", Since: 1, Args: []wire.ArgType{wire.ArgNewID}},
		{Name: "set_opaque_region", Since: 1, Args: []wire.ArgType{wire.ArgObject}},
		{Name: "set_input_region", Since: 1, Args: []wire.ArgType{wire.ArgObject}},
		{Name: "commit", Since: 1},
		{Name: "set_buffer_transform", Since: 2, Args: []wire.ArgType{wire.ArgInt}},
		{Name: "set_buffer_scale", Since: 3, Args: []wire.ArgType{wire.ArgInt}},
		{Name: "damage_buffer", Since: 4, Args: []wire.ArgType{wire.ArgInt, wire.ArgInt, wire.ArgInt, wire.ArgInt}},
	},
	Events: []MessageSpec{
		{Name: "enter", Since: 1, Args: []wire.ArgType{wire.ArgObject}, newEvent: func() Event { return &SurfaceEnter{} }},
		{Name: "leave", Since: 1, Args: []wire.ArgType{wire.ArgObject}, newEvent: func() Event { return &SurfaceLeave{} }},
	},
}

type Surface struct{ object }

func NewSurface(id wire.ObjectID, conn Conn) *Surface {
	return &Surface{newObject(SurfaceInterface, id, conn)}
}

func (s *Surface) Destroy() error {
	return s.issue("destroy")
}

// Attach sets buffer as the pending content. A null buffer unmaps the surface.
func (s *Surface) Attach(buffer wire.ObjectID, x, y int32) error {
	return s.issue("attach", buffer, x, y)
}

func (s *Surface) Damage(x, y, width, height int32) error {
	return s.issue("damage", x, y, width, height)
}

// Frame requests a wl_callback done event when it is a good time to draw.
func (s *Surface) Frame(callback wire.ObjectID) error {
	return s.issue("frame", callback)
}

func (s *Surface) SetOpaqueRegion(region wire.ObjectID) error {
	return s.issue("set_opaque_region", region)
}

func (s *Surface) SetInputRegion(region wire.ObjectID) error {
	return s.issue("set_input_region", region)
}

func (s *Surface) Commit() error {
	return s.issue("commit")
}

func (s *Surface) SetBufferTransform(transform int32) error {
	return s.issue("set_buffer_transform", transform)
}

func (s *Surface) SetBufferScale(scale int32) error {
	return s.issue("set_buffer_scale", scale)
}

func (s *Surface) DamageBuffer(x, y, width, height int32) error {
	return s.issue("damage_buffer", x, y, width, height)
}

type SurfaceEnter struct {
	EventHeader
	Output wire.ObjectID
}

func (*SurfaceEnter) Name() string { return "wl_surface.enter" }

func (e *SurfaceEnter) decode(d *wire.Decoder) (err error) {
	e.Output, err = d.Object()
	return err
}

type SurfaceLeave struct {
	EventHeader
	Output wire.ObjectID
}

func (*SurfaceLeave) Name() string { return "wl_surface.leave" }

func (e *SurfaceLeave) decode(d *wire.Decoder) (err error) {
	e.Output, err = d.Object()
	return err
}

var RegionInterface = &Interface{
	Name:    "wl_region",
	Version: 1,
	Requests: []MessageSpec{
		{Name: "destroy", Since: 1},
		{Name: "add", Since: 1, Args: []wire.ArgType{wire.ArgInt, wire.ArgInt, wire.ArgInt, wire.ArgInt}},
		{Name: "subtract", Since: 1, Args: []wire.ArgType{wire.ArgInt, wire.ArgInt, wire.ArgInt, wire.ArgInt}},
	},
}

type Region struct{ object }

func NewRegion(id wire.ObjectID, conn Conn) *Region {
	return &Region{newObject(RegionInterface, id, conn)}
}

func (r *Region) Destroy() error {
	return r.issue("destroy")
}

func (r *Region) Add(x, y, width, height int32) error {
	return r.issue("add", x, y, width, height)
}

func (r *Region) Subtract(x, y, width, height int32) error {
	return r.issue("subtract", x, y, width, height)
}
