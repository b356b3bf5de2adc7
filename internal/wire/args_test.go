package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/waylink/internal/testutil/testlog"
	"golang.org/x/sys/unix"
)

type fdList []int

func (l *fdList) NextFD() (int, error) {
	if len(*l) == 0 {
		return -1, ErrMissingFD
	}
	fd := (*l)[0]
	*l = (*l)[1:]
	return fd, nil
}

func TestEncoderDecoderArguments(t *testing.T) {
	testlog.Start(t)
	var e Encoder
	e.PutInt(-5)
	e.PutUint(42)
	e.PutFixed(FixedFromFloat(1.5))
	e.PutString("wl_compositor")
	e.PutObject(9)
	e.PutArray([]byte{1, 2, 3, 4, 5})
	e.PutFD(17)

	if len(e.Bytes())%4 != 0 {
		t.Fatalf("body not 4-byte aligned: %d", len(e.Bytes()))
	}
	if fds := e.FDs(); len(fds) != 1 || fds[0] != 17 {
		t.Fatalf("fds got=%v", fds)
	}

	src := fdList(e.FDs())
	d := NewDecoder(e.Bytes(), &src)
	if v, err := d.Int(); err != nil || v != -5 {
		t.Fatalf("int got=%d err=%v", v, err)
	}
	if v, err := d.Uint(); err != nil || v != 42 {
		t.Fatalf("uint got=%d err=%v", v, err)
	}
	if v, err := d.Fixed(); err != nil || v.Float() != 1.5 {
		t.Fatalf("fixed got=%v err=%v", v.Float(), err)
	}
	if v, err := d.Str(); err != nil || v != "wl_compositor" {
		t.Fatalf("string got=%q err=%v", v, err)
	}
	if v, err := d.Object(); err != nil || v != 9 {
		t.Fatalf("object got=%d err=%v", v, err)
	}
	if v, err := d.Array(); err != nil || !bytes.Equal(v, []byte{1, 2, 3, 4, 5}) {
		t.Fatalf("array got=%v err=%v", v, err)
	}
	if v, err := d.FD(); err != nil || v != 17 {
		t.Fatalf("fd got=%d err=%v", v, err)
	}
	if err := d.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
}

func TestStringPaddingLayout(t *testing.T) {
	testlog.Start(t)
	var e Encoder
	e.PutString("abc")
	// length word + "abc\0" exactly fills one word.
	if got := e.Bytes(); len(got) != 8 {
		t.Fatalf("len got=%d want=8", len(got))
	}
	var e2 Encoder
	e2.PutString("abcd")
	if got := e2.Bytes(); len(got) != 12 {
		t.Fatalf("len got=%d want=12", len(got))
	}
}

func TestDecoderRejectsMalformedArguments(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		run  func(d *Decoder) error
		body []byte
		want error
	}{
		{
			name: "short uint",
			body: []byte{1, 2},
			run:  func(d *Decoder) error { _, err := d.Uint(); return err },
			want: ErrShortArgument,
		},
		{
			name: "string longer than body",
			body: func() []byte { var e Encoder; e.PutUint(64); return e.Bytes() }(),
			run:  func(d *Decoder) error { _, err := d.Str(); return err },
			want: ErrShortArgument,
		},
		{
			name: "string missing nul",
			body: func() []byte { var e Encoder; e.PutUint(4); return append(e.Bytes(), 'a', 'b', 'c', 'd') }(),
			run:  func(d *Decoder) error { _, err := d.Str(); return err },
			want: ErrInvalidString,
		},
		{
			name: "fd without source",
			body: nil,
			run:  func(d *Decoder) error { _, err := d.FD(); return err },
			want: ErrMissingFD,
		},
		{
			name: "trailing bytes",
			body: []byte{0, 0, 0, 0},
			run:  func(d *Decoder) error { return d.Finish() },
			want: ErrTrailingBytes,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run(NewDecoder(tc.body, nil))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNullStringDecodesEmpty(t *testing.T) {
	testlog.Start(t)
	var e Encoder
	e.PutUint(0)
	d := NewDecoder(e.Bytes(), nil)
	if v, err := d.Str(); err != nil || v != "" {
		t.Fatalf("got=%q err=%v", v, err)
	}
}

func TestFixedConversions(t *testing.T) {
	testlog.Start(t)
	if got := FixedFromInt(3); got.Int() != 3 || got != 768 {
		t.Fatalf("fixed from int got=%d", got)
	}
	if got := FixedFromFloat(-0.25); got != -64 {
		t.Fatalf("fixed from float got=%d", got)
	}
}

func TestDecoderAbortClosesClaimedDescriptors(t *testing.T) {
	testlog.Start(t)
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(pair[1])

	var e Encoder
	e.PutUint(1)
	src := fdList{pair[0]}
	d := NewDecoder(e.Bytes(), &src)
	if _, err := d.Uint(); err != nil {
		t.Fatalf("uint: %v", err)
	}
	fd, err := d.FD()
	if err != nil || fd != pair[0] {
		t.Fatalf("fd got=%d err=%v", fd, err)
	}
	if got := d.claimed; len(got) != 1 || got[0] != pair[0] {
		t.Fatalf("claimed got=%v", got)
	}
	if _, err := d.Uint(); !errors.Is(err, ErrShortArgument) {
		t.Fatalf("expected ErrShortArgument, got %v", err)
	}

	d.Abort()
	if len(d.claimed) != 0 {
		t.Fatalf("abort left claimed fds")
	}
	_, err = unix.SendmsgN(pair[1], []byte{1}, nil, nil, unix.MSG_NOSIGNAL|unix.MSG_DONTWAIT)
	if !errors.Is(err, unix.EPIPE) && !errors.Is(err, unix.ECONNRESET) {
		t.Fatalf("claimed descriptor still open: send err=%v", err)
	}
}
