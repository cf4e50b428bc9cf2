// Package log provides transcript logging of instrument I/O.
//
// Every interaction with a transport session (opens, closes, writes,
// queries and their replies) can be captured as an Event and handed to
// a Logger. Events are encoded as CBOR with integer keys, giving a
// compact append-only transcript file that can be replayed or filtered
// later with Reader.
//
// Logging is strictly passive: a Logger must never disrupt the
// operation that produced the event.
package log
