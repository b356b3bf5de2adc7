package transport

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	EnvWaylandSocket  = "WAYLAND_SOCKET"
	EnvWaylandDisplay = "WAYLAND_DISPLAY"
	EnvRuntimeDir     = "XDG_RUNTIME_DIR"

	DefaultDisplay = "wayland-0"

	// sun_path capacity on Linux, terminator included.
	maxSocketPath = 108
)

var (
	ErrRuntimeDirUnset = errors.New("transport: XDG_RUNTIME_DIR not set")
	ErrSocketPathLong  = errors.New("transport: socket path too long")
	ErrBadSocketFD     = errors.New("transport: invalid WAYLAND_SOCKET")
)

// Endpoint is either a filesystem socket path or an inherited, already
// connected descriptor (FD >= 0).
type Endpoint struct {
	Path string
	FD   int
}

func (e Endpoint) String() string {
	if e.FD >= 0 {
		return "fd:" + strconv.Itoa(e.FD)
	}
	return e.Path
}

// ResolveEndpoint applies config first and the process environment second.
func ResolveEndpoint(cfg Config) (Endpoint, error) {
	return resolveEndpoint(cfg, os.Getenv)
}

func resolveEndpoint(cfg Config, getenv func(string) string) (Endpoint, error) {
	name := strings.TrimSpace(cfg.Display)
	if name == "" {
		if raw := strings.TrimSpace(getenv(EnvWaylandSocket)); raw != "" {
			fd, err := strconv.Atoi(raw)
			if err != nil || fd < 0 {
				return Endpoint{}, fmt.Errorf("%w: %q", ErrBadSocketFD, raw)
			}
			return Endpoint{FD: fd}, nil
		}
		name = strings.TrimSpace(getenv(EnvWaylandDisplay))
	}
	if name == "" {
		name = DefaultDisplay
	}

	path := name
	if !filepath.IsAbs(name) {
		dir := strings.TrimSpace(cfg.RuntimeDir)
		if dir == "" {
			dir = strings.TrimSpace(getenv(EnvRuntimeDir))
		}
		if dir == "" {
			return Endpoint{}, ErrRuntimeDirUnset
		}
		path = filepath.Join(dir, name)
	}
	if len(path) >= maxSocketPath {
		return Endpoint{}, fmt.Errorf("%w: %d bytes", ErrSocketPathLong, len(path))
	}
	return Endpoint{Path: path, FD: -1}, nil
}
