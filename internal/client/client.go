package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/waylink/internal/eventbus"
	"github.com/danmuck/waylink/internal/objects"
	"github.com/danmuck/waylink/internal/observability"
	"github.com/danmuck/waylink/internal/protocol"
	"github.com/danmuck/waylink/internal/transport"
	"github.com/danmuck/waylink/internal/wire"
	"github.com/rs/zerolog/log"
)

// Transport is the socket the client drives. *transport.Transport satisfies it.
type Transport interface {
	Send(msg []byte, fds []int) error
	ReceiveBatch(ctx context.Context) (transport.Batch, error)
	Close() error
}

type Config struct {
	// SyncTimeout bounds Sync when the caller's context has no deadline.
	SyncTimeout time.Duration
	Transport   transport.Config
}

func DefaultConfig() Config {
	return Config{
		SyncTimeout: 5 * time.Second,
		Transport:   transport.DefaultConfig(),
	}
}

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAwaitingSync
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAwaitingSync:
		return "awaiting_sync"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Global is one entry advertised through wl_registry.global.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

type Client struct {
	cfg     Config
	t       Transport
	objects *objects.Registry
	bus     *eventbus.Bus
	barrier *barrier
	display *protocol.Display
	fds     fdQueue

	// retired holds objects deleted locally whose delete_id has not arrived
	// yet. Events still addressed to them are decoded only to consume their
	// descriptors.
	retiredMu sync.Mutex
	retired   map[wire.ObjectID]protocol.Object

	sendMu sync.Mutex
	state  atomic.Int32

	running  atomic.Bool
	termOnce sync.Once
	done     chan struct{}
	errMu    sync.Mutex
	err      error
}

func newClient(cfg Config) *Client {
	if cfg.SyncTimeout < 0 {
		cfg.SyncTimeout = 0
	}
	c := &Client{
		cfg:     cfg,
		objects: objects.NewRegistry(),
		bus:     eventbus.New(),
		barrier: newBarrier(),
		retired: make(map[wire.ObjectID]protocol.Object),
		done:    make(chan struct{}),
	}
	c.state.Store(int32(StateDisconnected))
	return c
}

// New wraps an established transport. The display is bound at id 1 and the
// built-in handlers are subscribed ahead of any caller listener.
func New(t Transport, cfg Config) *Client {
	c := newClient(cfg)
	c.attach(t)
	return c
}

// Dial resolves the compositor endpoint from cfg.Transport and connects.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	c := newClient(cfg)
	c.state.Store(int32(StateConnecting))
	t, err := transport.Dial(ctx, cfg.Transport)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return nil, err
	}
	c.attach(t)
	return c, nil
}

func (c *Client) attach(t Transport) {
	c.t = t
	c.display = protocol.NewDisplay(wire.DisplayID, c)
	if err := c.objects.Bind(c.display); err != nil {
		// The registry is fresh, so id 1 is always free.
		panic(err)
	}
	c.bus.Subscribe(c.barrier)
	c.bus.Subscribe(eventbus.HandlerFunc(c.handleDeleteID))
	c.state.Store(int32(StateConnected))
	log.Debug().Msg("client.New connected")
}

func (c *Client) handleDeleteID(ev protocol.Event) {
	del, ok := ev.(*protocol.DisplayDeleteID)
	if !ok {
		return
	}
	id := wire.ObjectID(del.ID)
	removed := c.objects.Remove(id)
	c.retiredMu.Lock()
	_, wasRetired := c.retired[id]
	delete(c.retired, id)
	c.retiredMu.Unlock()
	if !removed && !wasRetired {
		log.Debug().Uint32("id", del.ID).Msg("client.handleDeleteID id not live")
	}
}

func (c *Client) retiredObject(id wire.ObjectID) (protocol.Object, bool) {
	c.retiredMu.Lock()
	defer c.retiredMu.Unlock()
	obj, ok := c.retired[id]
	return obj, ok
}

// SendRequest writes one encoded request. Sends are serialized so frames and
// their descriptors never interleave.
func (c *Client) SendRequest(msg wire.Message) error {
	if c.terminated() {
		return c.Err()
	}
	b, err := msg.Marshal()
	if err != nil {
		return err
	}
	c.sendMu.Lock()
	err = c.t.Send(b, msg.FDs)
	c.sendMu.Unlock()
	if err != nil {
		if errors.Is(err, transport.ErrDisconnected) {
			c.terminate(err)
			return c.Err()
		}
		return err
	}

	iface, name := "unknown", "unknown"
	if obj, lerr := c.objects.Lookup(msg.Sender); lerr == nil {
		iface = obj.Interface().Name
		name = obj.Interface().RequestName(msg.Opcode)
	}
	observability.RecordMessage(observability.DirectionOut, iface, name)
	log.Trace().Uint32("sender", uint32(msg.Sender)).Str("request", iface+"."+name).Int("fds", len(msg.FDs)).Msg("client.SendRequest")
	return nil
}

// Create allocates the next id and registers the object ctor builds for it.
func Create[T protocol.Object](c *Client, ctor func(id wire.ObjectID, conn protocol.Conn) T) (T, error) {
	obj, err := c.objects.Create(func(id wire.ObjectID) protocol.Object {
		return ctor(id, c)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return protocol.As[T](obj)
}

// CreateObject is Create for an interface chosen at runtime.
func (c *Client) CreateObject(iface string) (protocol.Object, error) {
	if _, ok := protocol.Lookup(iface); !ok {
		return nil, fmt.Errorf("%w: unknown interface %q", protocol.ErrInvalidOperation, iface)
	}
	return c.objects.Create(func(id wire.ObjectID) protocol.Object {
		obj, _ := protocol.New(iface, id, c)
		return obj
	})
}

// Bind registers an object at an id the protocol dictates.
func (c *Client) Bind(id wire.ObjectID, iface string) (protocol.Object, error) {
	obj, err := protocol.New(iface, id, c)
	if err != nil {
		return nil, err
	}
	if err := c.objects.Bind(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// BindGlobal creates an object for g and sends wl_registry.bind for it. The
// bound version is the lowest of version, the advertised version and the
// catalog version.
func BindGlobal[T protocol.Object](c *Client, reg *protocol.Registry, g Global, ctor func(id wire.ObjectID, conn protocol.Conn) T, version uint32) (T, error) {
	var zero T
	obj, err := Create(c, ctor)
	if err != nil {
		return zero, err
	}
	if obj.Interface().Name != g.Interface {
		c.objects.Remove(obj.ID())
		return zero, fmt.Errorf("%w: global %d is %s, not %s", protocol.ErrInvalidArgument, g.Name, g.Interface, obj.Interface().Name)
	}
	if version == 0 || version > g.Version {
		version = g.Version
	}
	obj = protocol.WithVersion(obj, version)
	if err := reg.Bind(g.Name, g.Interface, obj.Version(), obj.ID()); err != nil {
		c.objects.Remove(obj.ID())
		return zero, err
	}
	return obj, nil
}

func (c *Client) Lookup(id wire.ObjectID) (protocol.Object, error) {
	return c.objects.Lookup(id)
}

// Delete forgets id locally. It reports false when id was not live. Until the
// compositor confirms with delete_id, events it still sends to id are dropped
// and any descriptors they carry are closed.
func (c *Client) Delete(id wire.ObjectID) bool {
	obj, ok := c.objects.Retire(id)
	if !ok {
		return false
	}
	c.retiredMu.Lock()
	c.retired[id] = obj
	c.retiredMu.Unlock()
	return true
}

func (c *Client) Display() *protocol.Display {
	return c.display
}

// AddEventListener subscribes h to every dispatched event.
func (c *Client) AddEventListener(h eventbus.Handler) eventbus.Subscription {
	return c.bus.Subscribe(h)
}

func (c *Client) RemoveEventListener(sub eventbus.Subscription) bool {
	return c.bus.Unsubscribe(sub)
}

// Sync issues wl_display.sync and blocks until its callback fires, ctx ends,
// or the connection terminates. It returns the callback's event data.
func (c *Client) Sync(ctx context.Context) (uint32, error) {
	if c.terminated() {
		return 0, c.Err()
	}
	if _, ok := ctx.Deadline(); !ok && c.cfg.SyncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.SyncTimeout)
		defer cancel()
	}
	cb, err := Create(c, protocol.NewCallback)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	w, err := c.barrier.arm(cb.ID(), start)
	if err != nil {
		c.objects.Remove(cb.ID())
		return 0, err
	}
	if err := c.display.Sync(cb.ID()); err != nil {
		c.barrier.cancel(cb.ID())
		c.objects.Remove(cb.ID())
		return 0, err
	}

	select {
	case <-w.done:
	case <-ctx.Done():
		if c.barrier.cancel(cb.ID()) {
			observability.RecordSync(observability.SyncTimeout, time.Since(start))
			log.Warn().Uint32("callback", uint32(cb.ID())).Dur("elapsed", time.Since(start)).Msg("client.Sync timed out")
			return 0, fmt.Errorf("%w: callback %d: %w", ErrTimeout, cb.ID(), ctx.Err())
		}
		<-w.done
	}
	if w.err != nil {
		observability.RecordSync(observability.SyncDisconnected, time.Since(start))
		return 0, w.err
	}
	observability.RecordSync(observability.SyncOK, time.Since(start))
	return w.data, nil
}

// PendingSyncs lists round trips still waiting for their callback.
func (c *Client) PendingSyncs() []PendingSync {
	return c.barrier.List()
}

// Globals binds a fresh wl_registry and round-trips once so every global the
// compositor advertises has arrived. The registry stays live for BindGlobal.
func (c *Client) Globals(ctx context.Context) (*protocol.Registry, []Global, error) {
	reg, err := Create(c, protocol.NewRegistry)
	if err != nil {
		return nil, nil, err
	}
	var (
		mu      sync.Mutex
		globals = make(map[uint32]Global)
	)
	sub := c.bus.Subscribe(eventbus.HandlerFunc(func(ev protocol.Event) {
		if ev.Sender() != reg.ID() {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch e := ev.(type) {
		case *protocol.RegistryGlobal:
			globals[e.GlobalName] = Global{Name: e.GlobalName, Interface: e.Interface, Version: e.Version}
		case *protocol.RegistryGlobalRemove:
			delete(globals, e.GlobalName)
		}
	}))
	defer c.bus.Unsubscribe(sub)

	if err := c.display.GetRegistry(reg.ID()); err != nil {
		return nil, nil, err
	}
	if _, err := c.Sync(ctx); err != nil {
		return nil, nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]Global, 0, len(globals))
	for _, g := range globals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return reg, out, nil
}

func (c *Client) State() State {
	s := State(c.state.Load())
	if s == StateConnected && c.barrier.Len() > 0 {
		return StateAwaitingSync
	}
	return s
}

// Objects reports the number of live objects, the display included.
func (c *Client) Objects() int {
	return c.objects.Len()
}
