// Package protocol owns the interface catalog and the per-interface object types.
//
// Ownership boundary:
// - fixed request/event tables (name, since-version, argument layout; opcode = index)
// - request encoding against those tables
// - event decoding into typed events
// - the closed set of object variants (one Go type per interface)
//
// The tables are schema-derived data; nothing here parses protocol XML.
package protocol
