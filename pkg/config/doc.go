// Package config implements the configuration cache and hardware
// synchronization engine for remote instruments.
//
// An Engine maintains named snapshots of an instrument's settings as
// path stores (pkg/tree). The authoritative mirror is "live"; "init"
// holds the first value ever observed for each parameter; "default"
// lazily loads reference values from a per-instrument defaults file.
// SetParam and GetParam decide whether a parameter access must touch
// hardware or can be served from cache, and keep the snapshots
// consistent either way.
//
// Engines are synchronous and single-actor: every cache miss performs
// a blocking round trip through the transport session before
// returning, and the session is exclusively owned by one engine (or
// one bank of engines). Concurrent external mutation of the physical
// instrument is only mitigated by forced re-reads, never detected.
package config
