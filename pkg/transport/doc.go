// Package transport provides textual command transports for laboratory
// instruments.
//
// The Session interface is the write/query primitive the configuration
// engine builds on: fire-and-forget command writes and blocking query
// round trips over a line-oriented text protocol. Two implementations
// are provided: TCPSession for raw-socket (SCPI-raw / LXI) instruments
// and PrologixSession for GPIB instruments behind a Prologix Ethernet
// bridge.
//
// Server is the host side of the same protocol, used to expose a
// simulated instrument for development and testing.
package transport
