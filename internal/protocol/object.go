package protocol

import (
	"fmt"

	"github.com/danmuck/waylink/internal/wire"
)

// Conn carries encoded requests to the compositor.
type Conn interface {
	SendRequest(msg wire.Message) error
}

// Object is the closed set of protocol object variants. Only types in this
// package implement it.
type Object interface {
	ID() wire.ObjectID
	Interface() *Interface
	Version() uint32
	EncodeRequest(name string, args ...any) (wire.Message, error)
	DecodeEvent(opcode uint16, body []byte, fds wire.FDSource) (Event, error)

	setVersion(v uint32)
}

type object struct {
	id      wire.ObjectID
	iface   *Interface
	version uint32
	conn    Conn
}

func newObject(iface *Interface, id wire.ObjectID, conn Conn) object {
	return object{id: id, iface: iface, version: iface.Version, conn: conn}
}

func (o *object) ID() wire.ObjectID     { return o.id }
func (o *object) Interface() *Interface { return o.iface }
func (o *object) Version() uint32       { return o.version }

func (o *object) setVersion(v uint32) {
	if v == 0 || v > o.iface.Version {
		v = o.iface.Version
	}
	o.version = v
}

// WithVersion pins obj to the version it was bound at. Versions above the
// catalog's are clamped.
func WithVersion[T Object](obj T, v uint32) T {
	obj.setVersion(v)
	return obj
}

func (o *object) String() string {
	return fmt.Sprintf("%s@%d", o.iface.Name, o.id)
}

// EncodeRequest serializes one request by name against the interface table.
func (o *object) EncodeRequest(name string, args ...any) (wire.Message, error) {
	op, spec, ok := o.iface.Request(name)
	if !ok {
		return wire.Message{}, fmt.Errorf("%w: %s has no request %q", ErrInvalidOperation, o.iface.Name, name)
	}
	if spec.Since > o.version {
		return wire.Message{}, fmt.Errorf("%w: %s.%s needs version %d, bound at %d", ErrInvalidOperation, o.iface.Name, name, spec.Since, o.version)
	}
	if len(args) != len(spec.Args) {
		return wire.Message{}, fmt.Errorf("%w: %s.%s takes %d args, got %d", ErrInvalidArgument, o.iface.Name, name, len(spec.Args), len(args))
	}
	var e wire.Encoder
	for i, t := range spec.Args {
		if err := putArg(&e, t, args[i]); err != nil {
			return wire.Message{}, fmt.Errorf("%w: %s.%s arg %d: %v", ErrInvalidArgument, o.iface.Name, name, i, err)
		}
	}
	return wire.Message{Sender: o.id, Opcode: op, Body: e.Bytes(), FDs: e.FDs()}, nil
}

func (o *object) issue(name string, args ...any) error {
	msg, err := o.EncodeRequest(name, args...)
	if err != nil {
		return err
	}
	if o.conn == nil {
		return fmt.Errorf("%w: %s has no connection", ErrInvalidOperation, o)
	}
	return o.conn.SendRequest(msg)
}

// DecodeEvent decodes one event body addressed to this object.
func (o *object) DecodeEvent(opcode uint16, body []byte, fds wire.FDSource) (Event, error) {
	spec, ok := o.iface.Event(opcode)
	if !ok || spec.newEvent == nil {
		return nil, fmt.Errorf("%w: %s has no event opcode %d", ErrInvalidOpcode, o.iface.Name, opcode)
	}
	ev := spec.newEvent()
	d := wire.NewDecoder(body, fds)
	err := ev.decode(d)
	if err == nil {
		err = d.Finish()
	}
	if err != nil {
		// The event is discarded, so nothing else will own its descriptors.
		d.Abort()
		return nil, fmt.Errorf("%w: %s.%s: %w", ErrInvalidArgument, o.iface.Name, spec.Name, err)
	}
	h := ev.header()
	h.Object = o.id
	h.Op = opcode
	return ev, nil
}

func putArg(e *wire.Encoder, t wire.ArgType, v any) error {
	switch t {
	case wire.ArgInt:
		switch x := v.(type) {
		case int32:
			e.PutInt(x)
		case int:
			e.PutInt(int32(x))
		default:
			return typeMismatch(t, v)
		}
	case wire.ArgUint:
		switch x := v.(type) {
		case uint32:
			e.PutUint(x)
		case ShmFormat:
			e.PutUint(uint32(x))
		default:
			return typeMismatch(t, v)
		}
	case wire.ArgFixed:
		x, ok := v.(wire.Fixed)
		if !ok {
			return typeMismatch(t, v)
		}
		e.PutFixed(x)
	case wire.ArgString:
		x, ok := v.(string)
		if !ok {
			return typeMismatch(t, v)
		}
		e.PutString(x)
	case wire.ArgObject, wire.ArgNewID:
		id, err := objectArg(v)
		if err != nil {
			return err
		}
		if t == wire.ArgNewID && id == wire.NullObject {
			return fmt.Errorf("new_id must not be null")
		}
		e.PutUint(uint32(id))
	case wire.ArgArray:
		x, ok := v.([]byte)
		if !ok {
			return typeMismatch(t, v)
		}
		e.PutArray(x)
	case wire.ArgFD:
		x, ok := v.(int)
		if !ok || x < 0 {
			return typeMismatch(t, v)
		}
		e.PutFD(x)
	default:
		return fmt.Errorf("unknown arg type %v", t)
	}
	return nil
}

func objectArg(v any) (wire.ObjectID, error) {
	switch x := v.(type) {
	case wire.ObjectID:
		return x, nil
	case nil:
		return wire.NullObject, nil
	case Object:
		return x.ID(), nil
	default:
		return 0, typeMismatch(wire.ArgObject, v)
	}
}

func typeMismatch(t wire.ArgType, v any) error {
	return fmt.Errorf("want %s, got %T", t, v)
}
