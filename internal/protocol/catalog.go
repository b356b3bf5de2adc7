package protocol

import (
	"fmt"
	"sort"

	"github.com/danmuck/waylink/internal/wire"
)

// MessageSpec describes one request or event. Its opcode is its index in the
// owning table.
type MessageSpec struct {
	Name  string
	Since uint32
	Args  []wire.ArgType

	newEvent func() Event
}

// Interface is a named, versioned capability set.
type Interface struct {
	Name     string
	Version  uint32
	Requests []MessageSpec
	Events   []MessageSpec
}

func (i *Interface) Request(name string) (uint16, MessageSpec, bool) {
	for op, spec := range i.Requests {
		if spec.Name == name {
			return uint16(op), spec, true
		}
	}
	return 0, MessageSpec{}, false
}

func (i *Interface) Event(opcode uint16) (MessageSpec, bool) {
	if int(opcode) >= len(i.Events) {
		return MessageSpec{}, false
	}
	return i.Events[opcode], true
}

// RequestName returns "interface.request" for logging and metrics.
func (i *Interface) RequestName(opcode uint16) string {
	if int(opcode) >= len(i.Requests) {
		return fmt.Sprintf("%s.#%d", i.Name, opcode)
	}
	return i.Name + "." + i.Requests[opcode].Name
}

type constructor func(id wire.ObjectID, conn Conn) Object

var catalog = map[string]struct {
	iface *Interface
	ctor  constructor
}{
	DisplayInterface.Name:      {DisplayInterface, func(id wire.ObjectID, c Conn) Object { return NewDisplay(id, c) }},
	RegistryInterface.Name:     {RegistryInterface, func(id wire.ObjectID, c Conn) Object { return NewRegistry(id, c) }},
	CallbackInterface.Name:     {CallbackInterface, func(id wire.ObjectID, c Conn) Object { return NewCallback(id, c) }},
	CompositorInterface.Name:   {CompositorInterface, func(id wire.ObjectID, c Conn) Object { return NewCompositor(id, c) }},
	SurfaceInterface.Name:      {SurfaceInterface, func(id wire.ObjectID, c Conn) Object { return NewSurface(id, c) }},
	RegionInterface.Name:       {RegionInterface, func(id wire.ObjectID, c Conn) Object { return NewRegion(id, c) }},
	ShmInterface.Name:          {ShmInterface, func(id wire.ObjectID, c Conn) Object { return NewShm(id, c) }},
	ShmPoolInterface.Name:      {ShmPoolInterface, func(id wire.ObjectID, c Conn) Object { return NewShmPool(id, c) }},
	BufferInterface.Name:       {BufferInterface, func(id wire.ObjectID, c Conn) Object { return NewBuffer(id, c) }},
	ShellInterface.Name:        {ShellInterface, func(id wire.ObjectID, c Conn) Object { return NewShell(id, c) }},
	ShellSurfaceInterface.Name: {ShellSurfaceInterface, func(id wire.ObjectID, c Conn) Object { return NewShellSurface(id, c) }},
	OutputInterface.Name:       {OutputInterface, func(id wire.ObjectID, c Conn) Object { return NewOutput(id, c) }},
	SeatInterface.Name:         {SeatInterface, func(id wire.ObjectID, c Conn) Object { return NewSeat(id, c) }},
	KeyboardInterface.Name:     {KeyboardInterface, func(id wire.ObjectID, c Conn) Object { return NewKeyboard(id, c) }},
}

// Lookup returns the catalog entry for an interface name.
func Lookup(name string) (*Interface, bool) {
	entry, ok := catalog[name]
	return entry.iface, ok
}

// Interfaces lists the catalog ordered by name.
func Interfaces() []*Interface {
	out := make([]*Interface, 0, len(catalog))
	for _, entry := range catalog {
		out = append(out, entry.iface)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// New constructs the object variant for an interface name.
func New(name string, id wire.ObjectID, conn Conn) (Object, error) {
	entry, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown interface %q", ErrInvalidOperation, name)
	}
	return entry.ctor(id, conn), nil
}

// As narrows obj to a concrete variant. A mismatch is an error, never a zero value.
func As[T Object](obj Object) (T, error) {
	var zero T
	if obj == nil {
		return zero, fmt.Errorf("%w: nil object", ErrInvalidOperation)
	}
	out, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%w: object %d is %s, not %T", ErrInvalidOperation, obj.ID(), obj.Interface().Name, zero)
	}
	return out, nil
}
