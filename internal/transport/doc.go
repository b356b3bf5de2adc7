// Package transport owns the Unix-domain socket to the compositor.
//
// Ownership boundary:
// - endpoint resolution (WAYLAND_SOCKET, WAYLAND_DISPLAY, XDG_RUNTIME_DIR)
// - connect with retry/backoff
// - framed sends with SCM_RIGHTS descriptors
// - one-read batches demultiplexed into frames
//
// A Transport is not safe for concurrent Send calls; callers serialize sends.
// ReceiveBatch is meant for a single dispatch goroutine.
package transport
