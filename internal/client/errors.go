package client

import (
	"errors"
	"fmt"

	"github.com/danmuck/waylink/internal/wire"
)

var (
	ErrTimeout      = errors.New("client: sync timed out")
	ErrDisconnected = errors.New("client: disconnected")
	ErrClosed       = errors.New("client: closed")
	ErrRunning      = errors.New("client: dispatch loop already running")
)

// DisplayError is a fatal protocol error reported by the compositor through
// wl_display.error. It terminates the connection.
type DisplayError struct {
	ObjectID  wire.ObjectID
	Interface string
	Code      uint32
	Message   string
}

func (e *DisplayError) Error() string {
	iface := e.Interface
	if iface == "" {
		iface = "unknown"
	}
	return fmt.Sprintf("client: display error on %s@%d code=%d: %s", iface, e.ObjectID, e.Code, e.Message)
}
