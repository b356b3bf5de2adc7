// Package client ties the transport, object registry and event bus into a
// connection to a compositor. One goroutine runs the dispatch loop; any number
// of goroutines may issue requests and round-trip with Sync.
package client
