package bank

import (
	"fmt"

	"github.com/scpi-protocol/scpi-go/pkg/config"
	"github.com/scpi-protocol/scpi-go/pkg/tree"
)

// Group is a set of active channels on one bank, each with its own
// configuration engine. Array operations follow the channel order
// given to Bank.Use.
type Group struct {
	channels []int
	engines  map[int]*config.Engine
}

// Channels returns the active channels in declaration order.
func (g *Group) Channels() []int {
	return append([]int(nil), g.channels...)
}

// Engine returns the sub-engine for one channel.
func (g *Group) Engine(channel int) (*config.Engine, error) {
	e, ok := g.engines[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %d not in group", ErrChannelRange, channel)
	}
	return e, nil
}

// GetArray reads one parameter across all channels, returning one
// value per channel in declaration order. Channels are read strictly
// in sequence; each read goes through that channel's cache.
func (g *Group) GetArray(path string, force bool) ([]tree.Value, error) {
	values := make([]tree.Value, 0, len(g.channels))
	for _, ch := range g.channels {
		v, err := g.engines[ch].GetParam(path, force)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// SetArray writes one parameter across all channels, one value per
// channel in declaration order. It fails with ErrChannelCount on a
// length mismatch, and returns whether any channel reached hardware:
// each channel's own change detection decides independently, so
// channels already holding their value stay untouched.
func (g *Group) SetArray(path string, values []any, force bool) (bool, error) {
	if len(values) != len(g.channels) {
		return false, fmt.Errorf("%w: %d values for %d channels", ErrChannelCount, len(values), len(g.channels))
	}
	wroteAny := false
	for i, ch := range g.channels {
		wrote, err := g.engines[ch].SetParam(path, values[i], force)
		if err != nil {
			return wroteAny, fmt.Errorf("channel %d: %w", ch, err)
		}
		wroteAny = wroteAny || wrote
	}
	return wroteAny, nil
}

// GetDict reads one parameter across all channels, keyed by channel.
func (g *Group) GetDict(path string, force bool) (map[int]tree.Value, error) {
	values, err := g.GetArray(path, force)
	if err != nil {
		return nil, err
	}
	dict := make(map[int]tree.Value, len(values))
	for i, ch := range g.channels {
		dict[ch] = values[i]
	}
	return dict, nil
}

// SetDict writes one parameter on the given channels only. The current
// array is read, the requested entries are patched in, and the result
// goes through SetArray: channels absent from values keep their
// current value and never see a hardware write. A key outside the
// group fails with ErrChannelRange.
func (g *Group) SetDict(path string, values map[int]any, force bool) (bool, error) {
	for ch := range values {
		if _, ok := g.engines[ch]; !ok {
			return false, fmt.Errorf("%w: %d not in group", ErrChannelRange, ch)
		}
	}

	current, err := g.GetArray(path, force)
	if err != nil {
		return false, err
	}
	patched := make([]any, len(current))
	for i, ch := range g.channels {
		if v, ok := values[ch]; ok {
			patched[i] = v
		} else {
			patched[i] = current[i]
		}
	}
	return g.SetArray(path, patched, force)
}
