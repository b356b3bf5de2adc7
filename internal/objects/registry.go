// Package objects holds the client's view of the shared object-id namespace.
package objects

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/waylink/internal/protocol"
	"github.com/danmuck/waylink/internal/wire"
)

var (
	ErrUnknownObject = errors.New("objects: unknown object")
	ErrIDInUse       = errors.New("objects: id already live")
	ErrInvalidID     = errors.New("objects: invalid id")
	ErrNilObject     = errors.New("objects: nil object")
	ErrIDMismatch    = errors.New("objects: object id does not match slot")
)

// Registry maps live ids to protocol objects. One mutex covers both the map
// and the allocation watermark, so allocate/bind/create never race each other.
// Ids are never reused: the watermark only moves up.
type Registry struct {
	mu        sync.Mutex
	items     map[wire.ObjectID]protocol.Object
	watermark wire.ObjectID
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[wire.ObjectID]protocol.Object)}
}

// Allocate reserves the next id without inserting an object.
func (r *Registry) Allocate() wire.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocateLocked()
}

func (r *Registry) allocateLocked() wire.ObjectID {
	r.watermark++
	return r.watermark
}

// Bind inserts obj at the id it already carries, as dictated by the protocol.
func (r *Registry) Bind(obj protocol.Object) error {
	if obj == nil {
		return ErrNilObject
	}
	id := obj.ID()
	if id == wire.NullObject {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; ok {
		return fmt.Errorf("%w: %d", ErrIDInUse, id)
	}
	r.items[id] = obj
	if id > r.watermark {
		r.watermark = id
	}
	return nil
}

// Create allocates a fresh id and inserts the object ctor builds for it,
// under one lock acquisition.
func (r *Registry) Create(ctor func(id wire.ObjectID) protocol.Object) (protocol.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.allocateLocked()
	obj := ctor(id)
	if obj == nil {
		return nil, ErrNilObject
	}
	if obj.ID() != id {
		return nil, fmt.Errorf("%w: slot=%d object=%d", ErrIDMismatch, id, obj.ID())
	}
	r.items[id] = obj
	return obj, nil
}

func (r *Registry) Lookup(id wire.ObjectID) (protocol.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownObject, id)
	}
	return obj, nil
}

// Remove deletes the mapping. Removing an absent id is a no-op: destruction
// races between client and compositor are expected.
func (r *Registry) Remove(id wire.ObjectID) bool {
	_, ok := r.Retire(id)
	return ok
}

// Retire is Remove that hands back the object that held the slot.
func (r *Registry) Retire(id wire.ObjectID) (protocol.Object, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.items[id]
	if !ok {
		return nil, false
	}
	delete(r.items, id)
	return obj, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *Registry) Watermark() wire.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watermark
}

// Snapshot lists live objects ordered by id.
func (r *Registry) Snapshot() []protocol.Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Object, 0, len(r.items))
	for _, obj := range r.items {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}
