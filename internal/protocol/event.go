package protocol

import "github.com/danmuck/waylink/internal/wire"

// Event is a decoded compositor notification. Concrete events are the typed
// structs in this package.
type Event interface {
	Sender() wire.ObjectID
	Opcode() uint16
	Name() string

	header() *EventHeader
	decode(d *wire.Decoder) error
}

// EventHeader carries the sender and opcode of a decoded event.
type EventHeader struct {
	Object wire.ObjectID
	Op     uint16
}

func (h EventHeader) Sender() wire.ObjectID { return h.Object }
func (h EventHeader) Opcode() uint16        { return h.Op }
func (h *EventHeader) header() *EventHeader { return h }
