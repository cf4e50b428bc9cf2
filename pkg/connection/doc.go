// Package connection provides reconnection helpers for instrument
// transport sessions: exponential backoff with jitter and a Redialer
// that retries Session.Open until it succeeds or the context ends.
package connection
