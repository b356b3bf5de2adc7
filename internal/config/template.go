package config

import (
	"fmt"
	"os"
)

// Template is a commented starter file covering every key Load accepts.
const Template = `# Socket name under runtime_dir, or an absolute path.
# Empty falls back to WAYLAND_SOCKET, then WAYLAND_DISPLAY, then wayland-0.
display = ""
runtime_dir = ""

read_buffer_size = 4096
max_fds_per_read = 28

connect_timeout = "5s"
connect_attempts = 1
backoff_initial = "250ms"
backoff_max = "5s"

sync_timeout = "5s"

# trace, debug, info, warn, error, off
log_level = "info"
`

// WriteTemplate writes Template to path. An existing file is kept unless
// overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o600)
}
