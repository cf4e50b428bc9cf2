package config

import (
	"github.com/scpi-protocol/scpi-go/pkg/log"
)

// DefaultAllSettingsQuery is the bulk query that returns every setting.
const DefaultAllSettingsQuery = "SET?"

// Options configures command formatting and engine behavior for one
// instrument. Start from DefaultOptions and adjust for the instrument's
// command grammar.
type Options struct {
	// HeaderEcho indicates query replies echo the command header
	// ("ACQUIRE:MODE SAMPLE" instead of bare "SAMPLE").
	HeaderEcho bool

	// Verbose asks the instrument for full-path headers during the
	// handshake (instruments that abbreviate headers otherwise).
	Verbose bool

	// PrecedingColon emits a leading separator before every command.
	PrecedingColon bool

	// InterveningSpace separates command and value with a space.
	InterveningSpace bool

	// InitCommands is the one-time handshake sent before the first
	// hardware access. When nil, a handshake is derived from
	// HeaderEcho and Verbose. Use an empty non-nil slice to disable
	// the handshake entirely.
	InitCommands []string

	// AllSettingsQuery is the bulk query returning every setting.
	// Defaults to DefaultAllSettingsQuery.
	AllSettingsQuery string

	// DefaultsFile is the path of this instrument's defaults file,
	// read lazily by the "default" snapshot and written by
	// GenerateDefaults.
	DefaultsFile string

	// Logger receives transcript events (nil disables logging).
	Logger log.Logger

	// Channel tags transcript events with a bank channel number.
	// Set by the multi-module bank; leave nil for standalone engines.
	Channel *int
}

// DefaultOptions returns options matching the common SCPI grammar:
// leading colon, space before the value, headers suppressed.
func DefaultOptions() Options {
	return Options{
		PrecedingColon:   true,
		InterveningSpace: true,
		AllSettingsQuery: DefaultAllSettingsQuery,
	}
}

// handshake returns the one-time initialization commands.
func (o Options) handshake() []string {
	if o.InitCommands != nil {
		return o.InitCommands
	}
	var cmds []string
	if o.Verbose {
		cmds = append(cmds, "VERBOSE ON")
	}
	if o.HeaderEcho {
		cmds = append(cmds, "HEADER ON")
	} else {
		cmds = append(cmds, "HEADER OFF")
	}
	return cmds
}
