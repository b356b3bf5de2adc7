package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/waylink/internal/observability"
	"github.com/danmuck/waylink/internal/wire"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

var (
	ErrConnection   = errors.New("transport: connection failed")
	ErrIO           = errors.New("transport: i/o failure")
	ErrDisconnected = errors.New("transport: disconnected")
)

// Batch is the result of one socket read: every complete frame in wire order
// plus the descriptors that arrived with that read.
type Batch struct {
	Frames []wire.Frame
	FDs    []int
	// Truncated is set when the read filled the buffer; more data was
	// probably pending.
	Truncated bool
	Bytes     int
}

type Transport struct {
	conn   *net.UnixConn
	cfg    Config
	buf    []byte
	carry  int
	oob    []byte
	closed atomic.Bool
	once   sync.Once
}

// Dial resolves the endpoint and connects, retrying with backoff up to
// cfg.ConnectAttempts times.
func Dial(ctx context.Context, cfg Config) (*Transport, error) {
	cfg = cfg.WithDefaults()
	ep, err := ResolveEndpoint(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if ep.FD >= 0 {
		// The inherited descriptor is single-use.
		_ = os.Unsetenv(EnvWaylandSocket)
		return fromFD(ep.FD, cfg)
	}

	retry := newConnectRetry(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
	for {
		dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
		conn, err := dialer.DialContext(ctx, "unix", ep.Path)
		if err == nil {
			log.Debug().Str("endpoint", ep.String()).Int("attempt", retry.attempt()).Msg("transport.Dial connected")
			return FromConn(conn.(*net.UnixConn), cfg), nil
		}
		log.Warn().Str("endpoint", ep.String()).Int("attempt", retry.attempt()).Err(err).Msg("transport.Dial failed")
		if werr := retry.fail(ctx); werr != nil {
			if errors.Is(werr, errRetriesExhausted) {
				return nil, fmt.Errorf("%w: %s: %w", ErrConnection, ep, err)
			}
			return nil, fmt.Errorf("%w: %s: %w (last attempt: %v)", ErrConnection, ep, werr, err)
		}
	}
}

func fromFD(fd int, cfg Config) (*Transport, error) {
	unix.CloseOnExec(fd)
	f := os.NewFile(uintptr(fd), "wayland-socket")
	if f == nil {
		return nil, fmt.Errorf("%w: %w: %d", ErrConnection, ErrBadSocketFD, fd)
	}
	defer f.Close()
	conn, err := net.FileConn(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %w: fd %d is not a unix socket", ErrConnection, ErrBadSocketFD, fd)
	}
	return FromConn(uc, cfg), nil
}

// FromConn wraps an already connected socket.
func FromConn(conn *net.UnixConn, cfg Config) *Transport {
	cfg = cfg.WithDefaults()
	return &Transport{
		conn: conn,
		cfg:  cfg,
		buf:  make([]byte, cfg.ReadBufferSize),
		oob:  make([]byte, unix.CmsgSpace(cfg.MaxFDsPerRead*4)),
	}
}

// Send writes one framed message with fds attached as SCM_RIGHTS.
func (t *Transport) Send(msg []byte, fds []int) error {
	if t.closed.Load() {
		return ErrDisconnected
	}
	if t.cfg.WriteTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	n, _, err := t.conn.WriteMsgUnix(msg, oob, nil)
	if err != nil {
		return t.ioError("send", err)
	}
	// Descriptors rode with the first chunk; finish a short write plainly.
	for n < len(msg) {
		m, err := t.conn.Write(msg[n:])
		if err != nil {
			return t.ioError("send", err)
		}
		n += m
	}
	observability.RecordFDs(observability.DirectionOut, len(fds))
	return nil
}

// ReceiveBatch performs exactly one read and returns every complete frame in
// it. A trailing partial frame is kept and completed by the next read. A
// frame whose declared size can never fit the buffer is a framing error and
// closes the transport, since the stream has no resynchronization marker.
func (t *Transport) ReceiveBatch(ctx context.Context) (Batch, error) {
	if t.closed.Load() {
		return Batch{}, ErrDisconnected
	}
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	_ = t.conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	n, oobn, flags, _, err := t.conn.ReadMsgUnix(t.buf[t.carry:], t.oob)
	fds := parseRights(t.oob[:oobn])
	if flags&unix.MSG_CTRUNC != 0 {
		log.Warn().Int("max_fds", t.cfg.MaxFDsPerRead).Msg("transport.ReceiveBatch control data truncated, descriptors lost")
	}
	if err != nil {
		closeFDs(fds)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Batch{}, ctxErr
		}
		if errors.Is(err, io.EOF) {
			_ = t.Close()
			return Batch{}, ErrDisconnected
		}
		return Batch{}, t.ioError("receive", err)
	}
	if n == 0 && oobn == 0 {
		_ = t.Close()
		return Batch{}, ErrDisconnected
	}

	total := t.carry + n
	batch := Batch{FDs: fds, Bytes: n, Truncated: total == len(t.buf)}
	if batch.Truncated {
		observability.RecordReadTruncation()
		log.Warn().Int("bytes", total).Int("capacity", len(t.buf)).Msg("transport.ReceiveBatch read filled buffer, message may be cut")
	}
	observability.RecordFDs(observability.DirectionIn, len(fds))

	frames, consumed, err := wire.SplitFrames(t.buf[:total])
	if err == nil && total-consumed >= wire.HeaderLen {
		if h, herr := wire.DecodeHeader(t.buf[consumed:total]); herr == nil && h.Size() > len(t.buf) {
			err = fmt.Errorf("%w: size=%d capacity=%d", wire.ErrFrameTooLarge, h.Size(), len(t.buf))
		}
	}
	if err != nil {
		closeFDs(fds)
		log.Error().Err(err).Msg("transport.ReceiveBatch framing lost, disconnecting")
		_ = t.Close()
		return Batch{}, err
	}
	t.carry = copy(t.buf, t.buf[consumed:total])
	batch.Frames = frames
	return batch, nil
}

// Close releases the socket. It is idempotent.
func (t *Transport) Close() error {
	var err error
	t.once.Do(func() {
		t.closed.Store(true)
		err = t.conn.Close()
	})
	return err
}

func (t *Transport) ioError(op string, err error) error {
	if t.closed.Load() || errors.Is(err, net.ErrClosed) {
		return ErrDisconnected
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

func parseRights(oob []byte) []int {
	if len(oob) == 0 {
		return nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		log.Warn().Err(err).Msg("transport.parseRights malformed control data")
		return nil
	}
	var fds []int
	for i := range msgs {
		rights, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			continue
		}
		fds = append(fds, rights...)
	}
	return fds
}

func closeFDs(fds []int) {
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
}
