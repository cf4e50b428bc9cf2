// Package persistence stores instrument profiles on disk.
//
// A profile remembers how to reach and talk to one physical instrument:
// its identity, transport address, protocol format flags and the
// location of its generated defaults file. Profiles survive restarts so
// a shell session can reconnect to a known instrument without
// re-discovering or re-generating anything. The defaults file itself is
// a path store JSON document owned by the config package; this package
// only tracks where it lives.
package persistence
