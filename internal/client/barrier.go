package client

import (
	"sort"
	"sync"
	"time"

	"github.com/danmuck/waylink/internal/protocol"
	"github.com/danmuck/waylink/internal/wire"
)

// PendingSync describes one round trip still waiting for its callback.
type PendingSync struct {
	Callback wire.ObjectID
	IssuedAt time.Time
}

type waiter struct {
	PendingSync
	done chan struct{}
	data uint32
	err  error
}

// barrier keys outstanding syncs by callback id so concurrent round trips
// resolve independently of each other.
type barrier struct {
	mu     sync.Mutex
	items  map[wire.ObjectID]*waiter
	closed error
}

func newBarrier() *barrier {
	return &barrier{items: make(map[wire.ObjectID]*waiter)}
}

// arm registers a waiter before the sync request is sent, so an early done
// event can never be missed.
func (b *barrier) arm(cb wire.ObjectID, at time.Time) (*waiter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed != nil {
		return nil, b.closed
	}
	w := &waiter{PendingSync: PendingSync{Callback: cb, IssuedAt: at}, done: make(chan struct{})}
	b.items[cb] = w
	return w, nil
}

// cancel drops a waiter. It reports false when the waiter already resolved.
func (b *barrier) cancel(cb wire.ObjectID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.items[cb]; !ok {
		return false
	}
	delete(b.items, cb)
	return true
}

func (b *barrier) HandleEvent(ev protocol.Event) {
	done, ok := ev.(*protocol.CallbackDone)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.items[done.Sender()]
	if !ok {
		return
	}
	delete(b.items, done.Sender())
	w.data = done.Data
	close(w.done)
}

// HandleDisconnect releases every waiter with err and refuses new ones.
func (b *barrier) HandleDisconnect(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = err
	for id, w := range b.items {
		w.err = err
		close(w.done)
		delete(b.items, id)
	}
}

func (b *barrier) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *barrier) List() []PendingSync {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PendingSync, 0, len(b.items))
	for _, w := range b.items {
		out = append(out, w.PendingSync)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Callback < out[j].Callback
	})
	return out
}
