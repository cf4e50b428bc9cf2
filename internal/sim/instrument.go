// Package sim implements a simulated SCPI instrument.
//
// The instrument keeps its settings in a path store and answers the
// protocol subset the configuration engine speaks: HEADER/VERBOSE mode
// commands, parameter sets, parameter queries with optional header
// echo, the bulk settings dump and identification. It implements the
// transport server handler, so it can sit behind a real TCP listener
// (cmd/scpi-sim) or be driven directly in tests.
package sim

import (
	"fmt"
	"strings"
	"sync"

	"github.com/scpi-protocol/scpi-go/pkg/transport"
	"github.com/scpi-protocol/scpi-go/pkg/tree"
)

// Config describes the simulated instrument.
type Config struct {
	Manufacturer string
	Model        string
	Serial       string
	Firmware     string

	// Seed holds the power-on parameter values, path to value text.
	Seed map[string]string
}

// Instrument is a simulated instrument. Safe for concurrent
// connections; all state is behind one mutex, matching the serialized
// nature of a real instrument's command parser.
type Instrument struct {
	config Config

	mu       sync.Mutex
	store    *tree.Store
	headerOn bool
	verbose  bool
}

// New creates a simulated instrument in its power-on state: seed
// values applied, header echo on, verbose off.
func New(config Config) *Instrument {
	inst := &Instrument{config: config}
	inst.reset()
	return inst
}

// reset returns the instrument to its power-on state.
func (i *Instrument) reset() {
	i.store = tree.New()
	for path, value := range i.config.Seed {
		i.store.Set(path, tree.ParseValue(value))
	}
	i.headerOn = true
	i.verbose = false
}

// Handle processes one command line. Queries produce a reply; set and
// mode commands are silent. An unrecognized query produces no reply,
// which a client observes as a timeout, the same way real hardware
// ignores commands it does not understand.
func (i *Instrument) Handle(command string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	command = strings.TrimSpace(command)
	if command == "" {
		return "", false
	}

	if strings.HasSuffix(command, "?") {
		return i.handleQuery(strings.TrimSuffix(command, "?"))
	}

	header, value, hasValue := strings.Cut(command, " ")
	switch strings.Trim(header, tree.Separator) {
	case "*RST":
		i.reset()
		return "", false
	case "HEADER", "HEAD":
		i.headerOn = isOn(value)
		return "", false
	case "VERBOSE", "VERB":
		i.verbose = isOn(value)
		return "", false
	}

	if !hasValue {
		// A bare header with no argument is not a valid set.
		return "", false
	}

	i.store.Set(strings.Trim(header, tree.Separator), tree.ParseValue(value))
	return "", false
}

// handleQuery answers one query, header already stripped of "?".
func (i *Instrument) handleQuery(header string) (string, bool) {
	path := strings.Trim(header, tree.Separator)

	switch path {
	case "*IDN":
		return fmt.Sprintf("%s,%s,%s,%s",
			i.config.Manufacturer, i.config.Model, i.config.Serial, i.config.Firmware), true
	case "HEADER", "HEAD":
		return i.flagReply("HEADER", i.headerOn), true
	case "VERBOSE", "VERB":
		return i.flagReply("VERBOSE", i.verbose), true
	case "SET":
		return i.bulkDump(), true
	}

	v, err := i.store.Get(path)
	if err != nil {
		return "", false
	}
	if i.headerOn {
		return tree.Separator + path + " " + v.String(), true
	}
	return v.String(), true
}

// flagReply renders a mode flag query reply, honoring header echo.
func (i *Instrument) flagReply(name string, on bool) string {
	state := "0"
	if on {
		state = "1"
	}
	if i.headerOn {
		return tree.Separator + name + " " + state
	}
	return state
}

// bulkDump renders every setting as a semicolon-separated list of
// absolute header-value pairs. Headers are always included here,
// whatever the echo mode: the dump exists to be parsed back.
func (i *Instrument) bulkDump() string {
	pairs := i.store.Flatten("")
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, tree.Separator+p.Path+" "+p.Value.String())
	}
	return strings.Join(parts, ";")
}

// Compile-time interface satisfaction check.
var _ transport.Handler = (*Instrument)(nil)

// isOn interprets a mode command argument.
func isOn(value string) bool {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "ON", "1", "TRUE":
		return true
	default:
		return false
	}
}
