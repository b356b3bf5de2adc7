package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/waylink/internal/observability"
	"github.com/danmuck/waylink/internal/protocol"
	"github.com/danmuck/waylink/internal/wire"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Run is the dispatch loop. It reads batches until the connection terminates
// and returns the terminal error, which always wraps ErrDisconnected.
// Cancelling ctx terminates the client.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	for {
		if c.terminated() {
			return c.Err()
		}
		batch, err := c.t.ReceiveBatch(ctx)
		if err != nil {
			c.terminate(err)
			return c.Err()
		}
		c.fds.push(batch.FDs)
		if c.terminated() {
			// Close raced the read and already drained the queue.
			c.fds.drain()
			return c.Err()
		}
		for _, f := range batch.Frames {
			if err := c.dispatch(f); err != nil {
				c.terminate(err)
				return c.Err()
			}
		}
	}
}

// Start runs the dispatch loop on its own goroutine.
func (c *Client) Start(ctx context.Context) {
	go func() {
		if err := c.Run(ctx); err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, ErrRunning) {
			log.Warn().Err(err).Msg("client.Start dispatch loop ended")
		}
	}()
}

func (c *Client) dispatch(f wire.Frame) error {
	obj, err := c.objects.Lookup(f.Header.Sender)
	if err != nil {
		if retired, ok := c.retiredObject(f.Header.Sender); ok {
			c.discard(retired, f)
			return nil
		}
		observability.RecordDroppedEvent(observability.DropUnknownObject)
		log.Warn().
			Uint32("sender", uint32(f.Header.Sender)).
			Uint16("opcode", f.Header.Opcode).
			Msg("client.dispatch event for unknown object dropped")
		return nil
	}
	ev, err := obj.DecodeEvent(f.Header.Opcode, f.Body, &c.fds)
	if err != nil {
		return err
	}
	observability.RecordMessage(observability.DirectionIn, obj.Interface().Name, ev.Name())
	log.Trace().Uint32("sender", uint32(f.Header.Sender)).Str("event", ev.Name()).Msg("client.dispatch")
	c.bus.Publish(ev)

	if de, ok := ev.(*protocol.DisplayError); ok {
		return c.displayError(de)
	}
	return nil
}

// discard decodes an event addressed to a locally deleted object so that the
// descriptors it carries leave the queue, then closes them.
func (c *Client) discard(obj protocol.Object, f wire.Frame) {
	observability.RecordDroppedEvent(observability.DropDeletedObject)
	claims := &claimTracker{src: &c.fds}
	if _, err := obj.DecodeEvent(f.Header.Opcode, f.Body, claims); err != nil {
		// A failed decode closes what it claimed.
		log.Warn().
			Err(err).
			Uint32("sender", uint32(f.Header.Sender)).
			Uint16("opcode", f.Header.Opcode).
			Msg("client.dispatch undecodable event for deleted object dropped")
		return
	}
	for _, fd := range claims.fds {
		_ = unix.Close(fd)
	}
	log.Debug().
		Uint32("sender", uint32(f.Header.Sender)).
		Str("interface", obj.Interface().Name).
		Uint16("opcode", f.Header.Opcode).
		Int("closed_fds", len(claims.fds)).
		Msg("client.dispatch event for deleted object dropped")
}

func (c *Client) displayError(ev *protocol.DisplayError) *DisplayError {
	de := &DisplayError{ObjectID: ev.ObjectID, Code: ev.Code, Message: ev.Message}
	if obj, err := c.objects.Lookup(ev.ObjectID); err == nil {
		de.Interface = obj.Interface().Name
	}
	log.Error().
		Uint32("object", uint32(de.ObjectID)).
		Str("interface", de.Interface).
		Uint32("code", de.Code).
		Str("message", de.Message).
		Msg("client.dispatch display error")
	return de
}

// Close terminates the connection. Pending syncs fail with ErrDisconnected.
func (c *Client) Close() error {
	c.terminate(ErrClosed)
	return nil
}

// Done is closed once the client has terminated.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the terminal error, or nil while the connection is live.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) terminated() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) terminate(cause error) {
	c.termOnce.Do(func() {
		err := cause
		if !errors.Is(cause, ErrDisconnected) {
			err = fmt.Errorf("%w: %w", ErrDisconnected, cause)
		}
		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()

		if errors.Is(cause, ErrClosed) {
			c.state.Store(int32(StateClosed))
			log.Debug().Msg("client.Close")
		} else {
			c.state.Store(int32(StateDisconnected))
			log.Warn().Err(cause).Msg("client.terminate connection lost")
		}
		if c.t != nil {
			_ = c.t.Close()
		}
		c.fds.drain()
		c.bus.NotifyDisconnect(err)
		close(c.done)
	})
}

// fdQueue holds received descriptors until an fd argument claims them, in
// arrival order across batches.
type fdQueue struct {
	mu  sync.Mutex
	fds []int
}

func (q *fdQueue) push(fds []int) {
	if len(fds) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fds = append(q.fds, fds...)
}

func (q *fdQueue) NextFD() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.fds) == 0 {
		return -1, wire.ErrMissingFD
	}
	fd := q.fds[0]
	q.fds = q.fds[1:]
	return fd, nil
}

func (q *fdQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fds)
}

// claimTracker records the descriptors a decode takes from src.
type claimTracker struct {
	src wire.FDSource
	fds []int
}

func (t *claimTracker) NextFD() (int, error) {
	fd, err := t.src.NextFD()
	if err == nil {
		t.fds = append(t.fds, fd)
	}
	return fd, err
}

// drain closes descriptors nobody claimed.
func (q *fdQueue) drain() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, fd := range q.fds {
		_ = unix.Close(fd)
	}
	q.fds = nil
}
