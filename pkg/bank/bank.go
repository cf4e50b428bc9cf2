// Package bank multiplexes one shared transport session across the
// channels of a multi-module instrument chassis.
//
// A Bank declares the chassis capacity and the channel-select command.
// Use picks the active channels and returns a Group of per-channel
// configuration engines, each behind a session wrapper that issues the
// channel-select write immediately before every command. All channel
// traffic is strictly sequential: the channels share one physical
// session, and a select command must not be separated from the command
// it scopes.
package bank

import (
	"errors"
	"fmt"
	"time"

	"github.com/scpi-protocol/scpi-go/pkg/config"
	"github.com/scpi-protocol/scpi-go/pkg/transport"
)

// DefaultSelectFormat is the channel-select command format used when
// the bank is constructed with an empty one.
const DefaultSelectFormat = "CH %d"

// Bank errors.
var (
	// ErrChannelRange is returned when a requested channel does not fit
	// the bank's declared capacity.
	ErrChannelRange = errors.New("channel out of range")

	// ErrChannelCount is returned when an array operation receives the
	// wrong number of values for the active channels.
	ErrChannelCount = errors.New("wrong number of channel values")
)

// Bank is a multi-channel instrument chassis behind a single shared
// transport session.
type Bank struct {
	session      transport.Session
	capacity     int
	selectFormat string
	opts         config.Options
}

// New creates a bank over the shared session. capacity is the number
// of channels the chassis exposes; selectFormat renders the
// channel-select command (fmt verb for the channel number), defaulting
// to DefaultSelectFormat. opts configures every per-channel engine.
func New(session transport.Session, capacity int, selectFormat string, opts config.Options) *Bank {
	if selectFormat == "" {
		selectFormat = DefaultSelectFormat
	}
	return &Bank{
		session:      session,
		capacity:     capacity,
		selectFormat: selectFormat,
		opts:         opts,
	}
}

// Capacity returns the declared channel count of the chassis.
func (b *Bank) Capacity() int {
	return b.capacity
}

// Session returns the shared underlying session.
func (b *Bank) Session() transport.Session {
	return b.session
}

// Use activates the given channels and returns their group. Channel
// order is preserved for array operations. Requesting a channel
// outside [0, capacity) fails with ErrChannelRange.
func (b *Bank) Use(channels ...int) (*Group, error) {
	g := &Group{
		channels: append([]int(nil), channels...),
		engines:  make(map[int]*config.Engine, len(channels)),
	}
	for _, ch := range channels {
		if ch < 0 || ch >= b.capacity {
			return nil, fmt.Errorf("%w: %d with capacity %d", ErrChannelRange, ch, b.capacity)
		}
		if _, dup := g.engines[ch]; dup {
			return nil, fmt.Errorf("%w: %d requested twice", ErrChannelRange, ch)
		}
		ch := ch
		opts := b.opts
		opts.Channel = &ch
		g.engines[ch] = config.New(&chanSession{
			inner:     b.session,
			selectCmd: fmt.Sprintf(b.selectFormat, ch),
			channel:   ch,
		}, opts)
	}
	return g, nil
}

// chanSession scopes a shared session to one channel by writing the
// channel-select command immediately before every command it carries.
type chanSession struct {
	inner     transport.Session
	selectCmd string
	channel   int
}

func (c *chanSession) Open() error  { return c.inner.Open() }
func (c *chanSession) Close() error { return c.inner.Close() }

func (c *chanSession) Write(command string) error {
	if err := c.inner.Write(c.selectCmd); err != nil {
		return fmt.Errorf("selecting channel %d: %w", c.channel, err)
	}
	return c.inner.Write(command)
}

func (c *chanSession) Query(command string) (string, error) {
	if err := c.inner.Write(c.selectCmd); err != nil {
		return "", fmt.Errorf("selecting channel %d: %w", c.channel, err)
	}
	return c.inner.Query(command)
}

func (c *chanSession) QueryWithTimeout(command string, timeout time.Duration) (string, error) {
	if err := c.inner.Write(c.selectCmd); err != nil {
		return "", fmt.Errorf("selecting channel %d: %w", c.channel, err)
	}
	return c.inner.QueryWithTimeout(command, timeout)
}

func (c *chanSession) Timeout() time.Duration     { return c.inner.Timeout() }
func (c *chanSession) SetTimeout(d time.Duration) { c.inner.SetTimeout(d) }

func (c *chanSession) Addr() string {
	return fmt.Sprintf("%s/ch%d", c.inner.Addr(), c.channel)
}

// Compile-time interface satisfaction check.
var _ transport.Session = (*chanSession)(nil)
