// Package wire owns the Wayland wire contract and parsing primitives.
//
// Ownership boundary:
// - 8-byte message header (sender id, packed opcode/size)
// - frame demultiplexing of one socket read
// - argument encoding/decoding (int, uint, fixed, string, object, new_id, array, fd)
//
// All integers use host byte order. No in-memory layout is assumed to match the
// wire layout; every field is read through bounds-checked slices.
package wire
