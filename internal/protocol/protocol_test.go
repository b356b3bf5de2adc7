package protocol

import (
	"errors"
	"testing"

	"github.com/danmuck/waylink/internal/testutil/testlog"
	"github.com/danmuck/waylink/internal/testutil/wltest"
	"github.com/danmuck/waylink/internal/wire"
)

type captureConn struct {
	sent []wire.Message
}

func (c *captureConn) SendRequest(msg wire.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

type fdQueue []int

func (q *fdQueue) NextFD() (int, error) {
	if len(*q) == 0 {
		return -1, wire.ErrMissingFD
	}
	fd := (*q)[0]
	*q = (*q)[1:]
	return fd, nil
}

func TestDecodeEventUnknownOpcode(t *testing.T) {
	testlog.Start(t)
	cb := NewCallback(5, nil)
	_, err := cb.DecodeEvent(1, nil, nil)
	if !errors.Is(err, ErrInvalidOpcode) {
		t.Fatalf("expected ErrInvalidOpcode, got %v", err)
	}
	compositor := NewCompositor(6, nil)
	if _, err := compositor.DecodeEvent(0, nil, nil); !errors.Is(err, ErrInvalidOpcode) {
		t.Fatalf("event-less interface: expected ErrInvalidOpcode, got %v", err)
	}
}

func TestDecodeEventReturnsTaggedEvent(t *testing.T) {
	testlog.Start(t)
	var e wire.Encoder
	e.PutUint(12)
	e.PutString("wl_compositor")
	e.PutUint(4)

	reg := NewRegistry(2, nil)
	ev, err := reg.DecodeEvent(0, e.Bytes(), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	global, ok := ev.(*RegistryGlobal)
	if !ok {
		t.Fatalf("unexpected event type %T", ev)
	}
	if global.Sender() != 2 || global.Opcode() != 0 || global.Name() != "wl_registry.global" {
		t.Fatalf("unexpected header: sender=%d opcode=%d name=%s", global.Sender(), global.Opcode(), global.Name())
	}
	if global.GlobalName != 12 || global.Interface != "wl_compositor" || global.Version != 4 {
		t.Fatalf("unexpected global: %+v", global)
	}
}

func TestDecodeEventRejectsTrailingBytes(t *testing.T) {
	testlog.Start(t)
	var e wire.Encoder
	e.PutUint(1)
	e.PutUint(2)
	_, err := NewCallback(3, nil).DecodeEvent(0, e.Bytes(), nil)
	if !errors.Is(err, ErrInvalidArgument) || !errors.Is(err, wire.ErrTrailingBytes) {
		t.Fatalf("expected trailing bytes error, got %v", err)
	}
}

// encodeLayout produces a body matching args with placeholder values.
func encodeLayout(args []wire.ArgType) []byte {
	var e wire.Encoder
	for _, t := range args {
		switch t {
		case wire.ArgString:
			e.PutString("x")
		case wire.ArgArray:
			e.PutArray([]byte{1, 2, 3})
		case wire.ArgFD:
		default:
			e.PutUint(1)
		}
	}
	return e.Bytes()
}

func TestEveryCatalogEventDecodesItsLayout(t *testing.T) {
	testlog.Start(t)
	for _, iface := range Interfaces() {
		obj, err := New(iface.Name, 10, nil)
		if err != nil {
			t.Fatalf("new %s: %v", iface.Name, err)
		}
		if obj.Interface() != iface {
			t.Fatalf("%s: constructor built %s", iface.Name, obj.Interface().Name)
		}
		for op, spec := range iface.Events {
			fds := fdQueue{42}
			ev, err := obj.DecodeEvent(uint16(op), encodeLayout(spec.Args), &fds)
			if err != nil {
				t.Fatalf("%s.%s: %v", iface.Name, spec.Name, err)
			}
			if want := iface.Name + "." + spec.Name; ev.Name() != want {
				t.Fatalf("event name got=%s want=%s", ev.Name(), want)
			}
			if ev.Sender() != 10 || ev.Opcode() != uint16(op) {
				t.Fatalf("%s: header got sender=%d opcode=%d", ev.Name(), ev.Sender(), ev.Opcode())
			}
		}
	}
}

func TestKeyboardKeymapTakesDescriptor(t *testing.T) {
	testlog.Start(t)
	var e wire.Encoder
	e.PutUint(1)
	e.PutUint(4096)
	fds := fdQueue{9, 11}
	ev, err := NewKeyboard(8, nil).DecodeEvent(0, e.Bytes(), &fds)
	if err != nil {
		t.Fatalf("decode keymap: %v", err)
	}
	km := ev.(*KeyboardKeymap)
	if km.FD != 9 || km.Size != 4096 || len(fds) != 1 {
		t.Fatalf("unexpected keymap: %+v remaining=%v", km, fds)
	}
	if _, err := NewKeyboard(8, nil).DecodeEvent(0, e.Bytes(), nil); !errors.Is(err, wire.ErrMissingFD) {
		t.Fatalf("expected ErrMissingFD, got %v", err)
	}
}

func TestTruncatedKeymapClosesClaimedDescriptor(t *testing.T) {
	testlog.Start(t)
	pass, keep := wltest.Passable(t)
	var e wire.Encoder
	e.PutUint(1)
	// The size argument after the descriptor is missing.
	fds := fdQueue{pass}
	_, err := NewKeyboard(8, nil).DecodeEvent(0, e.Bytes(), &fds)
	if !errors.Is(err, ErrInvalidArgument) || !errors.Is(err, wire.ErrShortArgument) {
		t.Fatalf("expected short argument error, got %v", err)
	}
	if len(fds) != 0 {
		t.Fatalf("descriptor was not claimed: %v", fds)
	}
	if !wltest.PeerClosed(keep) {
		t.Fatalf("claimed descriptor leaked after failed decode")
	}
}

func TestEncodeRequestValidation(t *testing.T) {
	testlog.Start(t)
	surface := NewSurface(4, nil)
	cases := []struct {
		name string
		req  string
		args []any
		want error
	}{
		{"unknown request", "explode", nil, ErrInvalidOperation},
		{"arity", "attach", []any{wire.ObjectID(5)}, ErrInvalidArgument},
		{"type", "attach", []any{wire.ObjectID(5), "x", int32(0)}, ErrInvalidArgument},
		{"null new_id", "frame", []any{wire.NullObject}, ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := surface.EncodeRequest(tc.req, tc.args...); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEncodeRequestVersionGate(t *testing.T) {
	testlog.Start(t)
	surface := WithVersion(NewSurface(4, nil), 3)
	if surface.Version() != 3 {
		t.Fatalf("version got=%d", surface.Version())
	}
	if _, err := surface.EncodeRequest("damage_buffer", int32(0), int32(0), int32(1), int32(1)); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected version gate, got %v", err)
	}
	if _, err := surface.EncodeRequest("set_buffer_scale", int32(2)); err != nil {
		t.Fatalf("set_buffer_scale: %v", err)
	}
	if got := WithVersion(NewSurface(4, nil), 99).Version(); got != SurfaceInterface.Version {
		t.Fatalf("clamp got=%d", got)
	}
}

func TestTypedRequestsReachConn(t *testing.T) {
	testlog.Start(t)
	conn := &captureConn{}
	display := NewDisplay(wire.DisplayID, conn)
	if err := display.Sync(3); err != nil {
		t.Fatalf("sync: %v", err)
	}
	registry := NewRegistry(2, conn)
	if err := registry.Bind(7, "wl_shm", 1, 4); err != nil {
		t.Fatalf("bind: %v", err)
	}
	shm := NewShm(4, conn)
	if err := shm.CreatePool(5, 33, 4096); err != nil {
		t.Fatalf("create_pool: %v", err)
	}

	if len(conn.sent) != 3 {
		t.Fatalf("sent got=%d", len(conn.sent))
	}
	if m := conn.sent[0]; m.Sender != 1 || m.Opcode != 0 || len(m.Body) != 4 {
		t.Fatalf("sync message: %+v", m)
	}
	// name + ("wl_shm\0" padded to 8, plus length) + version + id
	if m := conn.sent[1]; m.Sender != 2 || m.Opcode != 0 || len(m.Body) != 4+4+8+4+4 {
		t.Fatalf("bind message: %+v", m)
	}
	d := wire.NewDecoder(conn.sent[1].Body, nil)
	name, _ := d.Uint()
	iface, _ := d.Str()
	version, _ := d.Uint()
	id, _ := d.NewID()
	if name != 7 || iface != "wl_shm" || version != 1 || id != 4 {
		t.Fatalf("bind args: %d %q %d %d", name, iface, version, id)
	}
	if m := conn.sent[2]; len(m.FDs) != 1 || m.FDs[0] != 33 || len(m.Body) != 8 {
		t.Fatalf("create_pool message: %+v", m)
	}
}

func TestRequestWithoutConnFails(t *testing.T) {
	testlog.Start(t)
	if err := NewSurface(4, nil).Commit(); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestAsAndNew(t *testing.T) {
	testlog.Start(t)
	obj, err := New("wl_surface", 9, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := As[*Surface](obj); err != nil {
		t.Fatalf("as surface: %v", err)
	}
	if _, err := As[*Buffer](obj); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	if _, err := As[*Surface](nil); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("nil: expected ErrInvalidOperation, got %v", err)
	}
	if _, err := New("xdg_wm_base", 9, nil); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("unknown interface: expected ErrInvalidOperation, got %v", err)
	}
	if iface, ok := Lookup("wl_callback"); !ok || iface != CallbackInterface {
		t.Fatalf("lookup wl_callback failed")
	}
}
