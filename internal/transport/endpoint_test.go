package transport

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/waylink/internal/testutil/testlog"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestResolveEndpoint(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		cfg  Config
		env  map[string]string
		want Endpoint
		err  error
	}{
		{
			name: "default display under runtime dir",
			env:  map[string]string{EnvRuntimeDir: "/run/user/1000"},
			want: Endpoint{Path: "/run/user/1000/wayland-0", FD: -1},
		},
		{
			name: "env display",
			env:  map[string]string{EnvRuntimeDir: "/run/user/1000", EnvWaylandDisplay: "wayland-1"},
			want: Endpoint{Path: "/run/user/1000/wayland-1", FD: -1},
		},
		{
			name: "absolute display ignores runtime dir",
			env:  map[string]string{EnvWaylandDisplay: "/tmp/compositor.sock"},
			want: Endpoint{Path: "/tmp/compositor.sock", FD: -1},
		},
		{
			name: "config overrides env",
			cfg:  Config{Display: "nested", RuntimeDir: "/tmp/rt"},
			env:  map[string]string{EnvRuntimeDir: "/run/user/1000", EnvWaylandDisplay: "wayland-1", EnvWaylandSocket: "7"},
			want: Endpoint{Path: "/tmp/rt/nested", FD: -1},
		},
		{
			name: "inherited socket",
			env:  map[string]string{EnvWaylandSocket: "7", EnvWaylandDisplay: "wayland-1"},
			want: Endpoint{FD: 7},
		},
		{
			name: "bad inherited socket",
			env:  map[string]string{EnvWaylandSocket: "seven"},
			err:  ErrBadSocketFD,
		},
		{
			name: "runtime dir missing",
			env:  map[string]string{},
			err:  ErrRuntimeDirUnset,
		},
		{
			name: "path too long",
			cfg:  Config{Display: "/" + strings.Repeat("x", 200)},
			err:  ErrSocketPathLong,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveEndpoint(tc.cfg, envMap(tc.env))
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got=%+v want=%+v", got, tc.want)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	testlog.Start(t)
	cfg := Config{ReadBufferSize: 4}.WithDefaults()
	if cfg.ReadBufferSize != DefaultReadBufferSize || cfg.MaxFDsPerRead != DefaultMaxFDsPerRead || cfg.ConnectAttempts != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg := (Config{ReadBufferSize: 1024}).WithDefaults(); cfg.ReadBufferSize != 1024 {
		t.Fatalf("explicit buffer size lost: %d", cfg.ReadBufferSize)
	}
}
