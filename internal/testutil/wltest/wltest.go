// Package wltest provides an in-process compositor stand-in over a socketpair.
package wltest

import (
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/danmuck/waylink/internal/wire"
	"golang.org/x/sys/unix"
)

// SocketPair returns two connected stream sockets: one for the client under
// test and one for the fake host.
func SocketPair(t testing.TB) (*net.UnixConn, *net.UnixConn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	client := fileConn(t, fds[0], "client")
	host := fileConn(t, fds[1], "host")
	t.Cleanup(func() {
		_ = client.Close()
		_ = host.Close()
	})
	return client, host
}

func fileConn(t testing.TB, fd int, name string) *net.UnixConn {
	t.Helper()
	f := os.NewFile(uintptr(fd), name)
	defer f.Close()
	c, err := net.FileConn(f)
	if err != nil {
		t.Fatalf("file conn %s: %v", name, err)
	}
	return c.(*net.UnixConn)
}

// Frame encodes one message addressed from sender.
func Frame(t testing.TB, sender wire.ObjectID, opcode uint16, build func(e *wire.Encoder)) []byte {
	t.Helper()
	var e wire.Encoder
	if build != nil {
		build(&e)
	}
	b, err := wire.Message{Sender: sender, Opcode: opcode, Body: e.Bytes()}.Marshal()
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return b
}

// Host is the compositor side of a socketpair.
type Host struct {
	t    testing.TB
	conn *net.UnixConn
}

func NewHost(t testing.TB, conn *net.UnixConn) *Host {
	return &Host{t: t, conn: conn}
}

// Write sends chunks concatenated in a single write.
func (h *Host) Write(chunks ...[]byte) {
	h.t.Helper()
	h.WriteWithFDs(nil, chunks...)
}

func (h *Host) WriteWithFDs(fds []int, chunks ...[]byte) {
	h.t.Helper()
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	if _, _, err := h.conn.WriteMsgUnix(out, oob, nil); err != nil {
		h.t.Fatalf("host write: %v", err)
	}
}

// ReadRequest reads one request written by the client, with any descriptors
// that arrived alongside its header.
func (h *Host) ReadRequest() (wire.Frame, []int) {
	h.t.Helper()
	_ = h.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer h.conn.SetReadDeadline(time.Time{})

	head := make([]byte, wire.HeaderLen)
	oob := make([]byte, unix.CmsgSpace(4*4))
	n, oobn, _, _, err := h.conn.ReadMsgUnix(head, oob)
	if err != nil {
		h.t.Fatalf("host read header: %v", err)
	}
	if n < wire.HeaderLen {
		if _, err := io.ReadFull(h.conn, head[n:]); err != nil {
			h.t.Fatalf("host read header tail: %v", err)
		}
	}
	var fds []int
	if oobn > 0 {
		msgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			h.t.Fatalf("host parse control: %v", err)
		}
		for i := range msgs {
			rights, err := unix.ParseUnixRights(&msgs[i])
			if err == nil {
				fds = append(fds, rights...)
			}
		}
	}
	hdr, err := wire.DecodeHeader(head)
	if err != nil {
		h.t.Fatalf("host decode header: %v", err)
	}
	body := make([]byte, hdr.BodySize)
	if _, err := io.ReadFull(h.conn, body); err != nil {
		h.t.Fatalf("host read body: %v", err)
	}
	return wire.Frame{Header: hdr, Body: body}, fds
}

func (h *Host) Close() {
	_ = h.conn.Close()
}

// Pipe returns a pipe whose read end can be passed as a descriptor.
func Pipe(t testing.TB) (r, w int) {
	t.Helper()
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
	})
	return p[0], p[1]
}

// Passable returns a connected socket pair. pass is meant to be handed off as
// a descriptor and is owned by the caller; keep stays in the test and is
// closed on cleanup. PeerClosed(keep) reports whether every copy of pass has
// been closed.
func Passable(t testing.TB) (pass, keep int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	t.Cleanup(func() { _ = unix.Close(fds[1]) })
	return fds[0], fds[1]
}

// PeerClosed reports whether the other end of keep has no open copies left.
func PeerClosed(keep int) bool {
	_, err := unix.SendmsgN(keep, []byte{0}, nil, nil, unix.MSG_NOSIGNAL|unix.MSG_DONTWAIT)
	return errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET)
}

// Inode identifies the open file behind fd.
func Inode(t testing.TB, fd int) uint64 {
	t.Helper()
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		t.Fatalf("fstat %d: %v", fd, err)
	}
	return uint64(st.Ino)
}
