package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/scpi-protocol/scpi-go/pkg/transport"
)

// Redialer retries opening a transport session with exponential backoff.
// Instruments routinely drop LAN connections on front-panel operations
// or power cycles; Redialer brings the session back without hammering
// the instrument.
type Redialer struct {
	session transport.Session
	backoff *Backoff

	// MaxAttempts limits retry attempts (0 = unlimited).
	MaxAttempts int
}

// NewRedialer creates a redialer for the given session with default backoff.
func NewRedialer(session transport.Session) *Redialer {
	return &Redialer{
		session: session,
		backoff: NewBackoff(),
	}
}

// NewRedialerWithConfig creates a redialer with custom backoff settings.
func NewRedialerWithConfig(session transport.Session, cfg BackoffConfig) *Redialer {
	return &Redialer{
		session: session,
		backoff: NewBackoffWithConfig(cfg),
	}
}

// Dial opens the session, retrying with backoff on failure.
// It returns the first success, the last error once MaxAttempts is
// exhausted, or ctx.Err() when the context ends first.
func (r *Redialer) Dial(ctx context.Context) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if r.MaxAttempts > 0 && attempt >= r.MaxAttempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, lastErr)
		}

		if lastErr = r.session.Open(); lastErr == nil {
			r.backoff.Reset()
			return nil
		}

		delay := r.backoff.Next()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Attempts returns the number of backoff attempts since the last success.
func (r *Redialer) Attempts() int {
	return r.backoff.Attempts()
}
