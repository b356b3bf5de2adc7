package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/waylink/internal/testutil/testlog"
	"github.com/danmuck/waylink/internal/testutil/wltest"
	"github.com/danmuck/waylink/internal/wire"
	"golang.org/x/sys/unix"
)

func newPair(t *testing.T, cfg Config) (*Transport, *wltest.Host) {
	t.Helper()
	clientConn, hostConn := wltest.SocketPair(t)
	tr := FromConn(clientConn, cfg)
	t.Cleanup(func() { _ = tr.Close() })
	return tr, wltest.NewHost(t, hostConn)
}

func deleteID(t *testing.T, id uint32) []byte {
	return wltest.Frame(t, wire.DisplayID, 1, func(e *wire.Encoder) { e.PutUint(id) })
}

func receive(t *testing.T, tr *Transport) Batch {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b, err := tr.ReceiveBatch(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	return b
}

func TestReceiveBatchSmallReadHasNoTruncation(t *testing.T) {
	testlog.Start(t)
	tr, host := newPair(t, Config{ReadBufferSize: 1024})
	host.Write(deleteID(t, 5), deleteID(t, 6))

	b := receive(t, tr)
	if b.Bytes != 24 || b.Truncated {
		t.Fatalf("bytes=%d truncated=%v", b.Bytes, b.Truncated)
	}
	if len(b.Frames) != 2 {
		t.Fatalf("frames got=%d want=2", len(b.Frames))
	}
	for i, f := range b.Frames {
		if f.Header.Sender != wire.DisplayID || f.Header.Opcode != 1 || len(f.Body) != 4 {
			t.Fatalf("frame %d: %+v", i, f.Header)
		}
	}
}

func TestReceiveBatchFullBufferRaisesTruncation(t *testing.T) {
	testlog.Start(t)
	tr, host := newPair(t, Config{ReadBufferSize: 1024})
	filler := wltest.Frame(t, 3, 0, func(e *wire.Encoder) {
		e.PutArray(make([]byte, 1024-24-wire.HeaderLen-4))
	})
	host.Write(deleteID(t, 5), deleteID(t, 6), filler)

	b := receive(t, tr)
	if b.Bytes != 1024 || !b.Truncated {
		t.Fatalf("bytes=%d truncated=%v", b.Bytes, b.Truncated)
	}
	if len(b.Frames) != 3 {
		t.Fatalf("frames got=%d want=3", len(b.Frames))
	}
}

func TestReceiveBatchNFramesInWireOrder(t *testing.T) {
	testlog.Start(t)
	tr, host := newPair(t, Config{})
	var chunks [][]byte
	for i := uint32(0); i < 20; i++ {
		chunks = append(chunks, deleteID(t, 100+i))
	}
	host.Write(chunks...)

	b := receive(t, tr)
	if len(b.Frames) != 20 {
		t.Fatalf("frames got=%d want=20", len(b.Frames))
	}
	for i, f := range b.Frames {
		d := wire.NewDecoder(f.Body, nil)
		id, _ := d.Uint()
		if id != 100+uint32(i) || int(f.Header.BodySize) != len(f.Body) {
			t.Fatalf("frame %d out of order: id=%d", i, id)
		}
	}
}

func TestReceiveBatchCarriesPartialFrame(t *testing.T) {
	testlog.Start(t)
	tr, host := newPair(t, Config{})
	first := deleteID(t, 7)
	second := deleteID(t, 8)
	host.Write(first, second[:5])

	b := receive(t, tr)
	if len(b.Frames) != 1 {
		t.Fatalf("first batch frames got=%d want=1", len(b.Frames))
	}
	host.Write(second[5:])
	b = receive(t, tr)
	if len(b.Frames) != 1 {
		t.Fatalf("second batch frames got=%d want=1", len(b.Frames))
	}
	id, _ := wire.NewDecoder(b.Frames[0].Body, nil).Uint()
	if id != 8 {
		t.Fatalf("carried frame id got=%d", id)
	}
}

func TestReceiveBatchOversizedFrameIsFraming(t *testing.T) {
	testlog.Start(t)
	tr, host := newPair(t, Config{ReadBufferSize: 64})
	huge := wltest.Frame(t, 3, 0, func(e *wire.Encoder) { e.PutArray(make([]byte, 200)) })
	host.Write(huge[:32])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := tr.ReceiveBatch(ctx)
	if !errors.Is(err, wire.ErrFraming) || !errors.Is(err, wire.ErrFrameTooLarge) {
		t.Fatalf("expected framing error, got %v", err)
	}
	if err := tr.Send(deleteID(t, 1), nil); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected after framing loss, got %v", err)
	}
}

func TestReceiveBatchUndersizedHeaderIsFraming(t *testing.T) {
	testlog.Start(t)
	tr, host := newPair(t, Config{})
	bad := deleteID(t, 1)
	// Declared size 4 is smaller than the header itself.
	var e wire.Encoder
	e.PutUint(4<<16 | 1)
	copy(bad[4:8], e.Bytes())
	host.Write(bad)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := tr.ReceiveBatch(ctx); !errors.Is(err, wire.ErrFrameSizeInvalid) {
		t.Fatalf("expected ErrFrameSizeInvalid, got %v", err)
	}
}

func TestReceiveBatchCapturesDescriptors(t *testing.T) {
	testlog.Start(t)
	tr, host := newPair(t, Config{})
	r1, _ := wltest.Pipe(t)
	r2, _ := wltest.Pipe(t)
	keymap := wltest.Frame(t, 9, 0, func(e *wire.Encoder) { e.PutUint(1); e.PutUint(64) })
	host.WriteWithFDs([]int{r1, r2}, keymap)

	b := receive(t, tr)
	if len(b.FDs) != 2 {
		t.Fatalf("fds got=%d want=2", len(b.FDs))
	}
	for _, fd := range b.FDs {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			t.Fatalf("received fd %d not valid: %v", fd, err)
		}
		_ = unix.Close(fd)
	}
}

func TestSendCarriesDescriptors(t *testing.T) {
	testlog.Start(t)
	tr, host := newPair(t, Config{})
	r, _ := wltest.Pipe(t)
	msg := wltest.Frame(t, 4, 0, func(e *wire.Encoder) { e.PutNewID(5); e.PutInt(4096) })
	if err := tr.Send(msg, []int{r}); err != nil {
		t.Fatalf("send: %v", err)
	}
	f, fds := host.ReadRequest()
	if f.Header.Sender != 4 || f.Header.BodySize != 8 {
		t.Fatalf("unexpected request header: %+v", f.Header)
	}
	if len(fds) != 1 {
		t.Fatalf("host fds got=%d want=1", len(fds))
	}
	_ = unix.Close(fds[0])
}

func TestReceiveBatchHonorsContext(t *testing.T) {
	testlog.Start(t)
	tr, host := newPair(t, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := tr.ReceiveBatch(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	// The transport stays usable after a cancelled read.
	host.Write(deleteID(t, 3))
	if b := receive(t, tr); len(b.Frames) != 1 {
		t.Fatalf("frames got=%d", len(b.Frames))
	}
}

func TestPeerCloseIsDisconnected(t *testing.T) {
	testlog.Start(t)
	tr, host := newPair(t, Config{})
	host.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := tr.ReceiveBatch(ctx); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	testlog.Start(t)
	tr, _ := newPair(t, Config{})
	if err := tr.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := tr.Send([]byte{1}, nil); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("send after close: %v", err)
	}
	if _, err := tr.ReceiveBatch(context.Background()); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("receive after close: %v", err)
	}
}

func TestDialConnectsToListeningSocket(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: dir + "/wayland-test", Net: "unix"})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	accepted := make(chan struct{})
	go func() {
		if c, err := ln.Accept(); err == nil {
			close(accepted)
			_ = c.Close()
		}
	}()

	tr, err := Dial(context.Background(), Config{Display: "wayland-test", RuntimeDir: dir})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()
	select {
	case <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatalf("listener never accepted")
	}
}

func TestDialFailureIsConnectionError(t *testing.T) {
	testlog.Start(t)
	cfg := Config{
		Display:         "missing-socket",
		RuntimeDir:      t.TempDir(),
		ConnectAttempts: 2,
		Backoff:         BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond},
	}
	if _, err := Dial(context.Background(), cfg); !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
}
