// Package eventbus delivers decoded events to registered handlers in
// registration order.
package eventbus

import (
	"fmt"
	"sync"

	"github.com/danmuck/waylink/internal/observability"
	"github.com/danmuck/waylink/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Handler receives every event published on the bus.
type Handler interface {
	HandleEvent(ev protocol.Event)
}

type HandlerFunc func(ev protocol.Event)

func (f HandlerFunc) HandleEvent(ev protocol.Event) { f(ev) }

// DisconnectHandler is implemented by handlers that want to know when the
// connection terminates.
type DisconnectHandler interface {
	HandleDisconnect(err error)
}

// Subscription identifies one registered handler.
type Subscription uint64

type entry struct {
	sub     Subscription
	handler Handler
}

type Bus struct {
	mu       sync.RWMutex
	handlers []entry
	next     Subscription
}

func New() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.handlers = append(b.handlers, entry{sub: b.next, handler: h})
	return b.next
}

// Unsubscribe removes a handler. It reports false for unknown handles.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.handlers {
		if e.sub == sub {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *Bus) snapshot() []entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]entry, len(b.handlers))
	copy(out, b.handlers)
	return out
}

// Publish delivers ev synchronously to every handler. Delivery works on a
// snapshot, so a handler may subscribe or unsubscribe from inside its callback.
// A panicking handler is logged and skipped; the rest still receive ev.
func (b *Bus) Publish(ev protocol.Event) {
	for _, e := range b.snapshot() {
		b.deliver(e, ev)
	}
}

func (b *Bus) deliver(e entry, ev protocol.Event) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecordHandlerPanic()
			log.Error().
				Uint64("subscription", uint64(e.sub)).
				Str("event", ev.Name()).
				Str("panic", fmt.Sprint(r)).
				Msg("eventbus.Publish handler panicked")
		}
	}()
	e.handler.HandleEvent(ev)
}

// NotifyDisconnect tells every DisconnectHandler that the connection ended.
func (b *Bus) NotifyDisconnect(err error) {
	for _, e := range b.snapshot() {
		dh, ok := e.handler.(DisconnectHandler)
		if !ok {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					observability.RecordHandlerPanic()
					log.Error().Str("panic", fmt.Sprint(r)).Msg("eventbus.NotifyDisconnect handler panicked")
				}
			}()
			dh.HandleDisconnect(err)
		}()
	}
}
