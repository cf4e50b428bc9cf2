// Command scpi-shell is an interactive shell for remote instruments.
//
// It connects to one instrument over raw TCP (or through a Prologix
// GPIB bridge), wraps the connection in the caching configuration
// engine and exposes cached and forced parameter access, snapshot
// save/load, defaults generation and raw command passthrough. With
// -channels it drives a multi-channel chassis through per-channel
// sub-engines instead.
//
// Usage:
//
//	scpi-shell [flags]
//
// Flags:
//
//	-addr string          Instrument address host[:port] (default port 5025)
//	-gpib int             GPIB address behind a Prologix bridge (-1 = raw TCP)
//	-defaults string      Defaults file for this instrument type
//	-transcript string    Write a CBOR transcript of all traffic to this file
//	-profiles string      Profile directory (default "~/.scpi/profiles")
//	-header-echo          Instrument echoes headers in query replies
//	-verbose              Instrument requires VERBOSE ON for full headers
//	-channels string      Comma-separated channel list for a chassis
//	-capacity int         Channel capacity of the chassis (default 4)
//	-select string        Channel select command format (default "CH %d")
//	-record string        InfluxDB URL to record parameter updates to
//	-record-token string  InfluxDB API token
//	-record-org string    InfluxDB organization (default "lab")
//	-record-bucket string InfluxDB bucket (default "instruments")
//
// Examples:
//
//	# Talk to a scope over raw TCP
//	scpi-shell -addr 192.168.1.100
//
//	# GPIB instrument 5 behind a Prologix bridge, with transcript
//	scpi-shell -addr bridge.lab:1234 -gpib 5 -transcript run1.cborlog
//
//	# Four-channel current source, channels 0-3
//	scpi-shell -addr 10.0.0.7 -channels 0,1,2,3 -capacity 4
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/scpi-protocol/scpi-go/pkg/bank"
	"github.com/scpi-protocol/scpi-go/pkg/config"
	"github.com/scpi-protocol/scpi-go/pkg/connection"
	"github.com/scpi-protocol/scpi-go/pkg/discovery"
	"github.com/scpi-protocol/scpi-go/pkg/log"
	"github.com/scpi-protocol/scpi-go/pkg/persistence"
	"github.com/scpi-protocol/scpi-go/pkg/recorder"
	"github.com/scpi-protocol/scpi-go/pkg/transport"
)

func main() {
	addr := flag.String("addr", "", "instrument address host[:port]")
	gpib := flag.Int("gpib", -1, "GPIB address behind a Prologix bridge (-1 = raw TCP)")
	defaultsFile := flag.String("defaults", "", "defaults file for this instrument type")
	transcript := flag.String("transcript", "", "CBOR transcript file")
	profileDir := flag.String("profiles", defaultProfileDir(), "profile directory")
	headerEcho := flag.Bool("header-echo", false, "instrument echoes headers in query replies")
	verbose := flag.Bool("verbose", false, "instrument requires VERBOSE ON")
	channels := flag.String("channels", "", "comma-separated channel list for a chassis")
	capacity := flag.Int("capacity", 4, "channel capacity of the chassis")
	selectFormat := flag.String("select", bank.DefaultSelectFormat, "channel select command format")
	recordURL := flag.String("record", "", "InfluxDB URL to record parameter updates to")
	recordToken := flag.String("record-token", "", "InfluxDB API token")
	recordOrg := flag.String("record-org", "lab", "InfluxDB organization")
	recordBucket := flag.String("record-bucket", "instruments", "InfluxDB bucket")
	flag.Parse()

	if *addr == "" {
		fmt.Fprintln(os.Stderr, "scpi-shell: -addr is required (try -h)")
		os.Exit(2)
	}

	recordCfg := recorder.Config{
		URL:    *recordURL,
		Token:  *recordToken,
		Org:    *recordOrg,
		Bucket: *recordBucket,
	}

	if err := run(*addr, *gpib, *defaultsFile, *transcript, *profileDir,
		*headerEcho, *verbose, *channels, *capacity, *selectFormat, recordCfg); err != nil {
		fmt.Fprintf(os.Stderr, "scpi-shell: %v\n", err)
		os.Exit(1)
	}
}

func run(addr string, gpib int, defaultsFile, transcript, profileDir string,
	headerEcho, verbose bool, channels string, capacity int, selectFormat string,
	recordCfg recorder.Config) error {

	session, err := openSession(addr, gpib)
	if err != nil {
		return err
	}
	defer session.Close()

	logger, closeLogger, err := openLogger(transcript)
	if err != nil {
		return err
	}
	defer closeLogger()

	opts := config.DefaultOptions()
	opts.HeaderEcho = headerEcho
	opts.Verbose = verbose
	opts.DefaultsFile = defaultsFile
	opts.Logger = logger

	sh := &shell{
		session:  session,
		opts:     opts,
		profiles: persistence.NewProfileStore(profileDir),
	}

	if channels != "" {
		group, err := openGroup(session, channels, capacity, selectFormat, opts)
		if err != nil {
			return err
		}
		sh.group = group
	} else {
		sh.engine = config.New(session, opts)
	}

	if recordCfg.URL != "" {
		rec, err := openRecorder(recordCfg, addr, sh)
		if err != nil {
			return err
		}
		defer rec.Close()
	}

	sh.saveProfile(addr)

	return sh.run()
}

// openRecorder connects to InfluxDB and attaches the recorder to every
// engine the shell drives.
func openRecorder(cfg recorder.Config, addr string, sh *shell) (*recorder.Recorder, error) {
	if cfg.Instrument == "" {
		cfg.Instrument = addr
	}
	rec, err := recorder.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	rec.OnError(func(err error) {
		fmt.Fprintf(os.Stderr, "scpi-shell: recorder: %v\n", err)
	})

	if sh.engine != nil {
		sh.engine.AddObserver(rec)
	} else {
		for _, ch := range sh.group.Channels() {
			if e, err := sh.group.Engine(ch); err == nil {
				e.AddObserver(rec)
			}
		}
	}
	return rec, nil
}

// openSession dials the instrument, raw TCP or via a Prologix bridge.
func openSession(addr string, gpib int) (transport.Session, error) {
	if !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, transport.DefaultPort)
	}

	var session transport.Session
	if gpib >= 0 {
		ps, err := transport.NewPrologixSession(addr, gpib)
		if err != nil {
			return nil, fmt.Errorf("prologix %s: %w", addr, err)
		}
		session = ps
	} else {
		session = transport.NewTCPSession(addr)
	}

	// Instruments coming out of a power cycle take a while to accept
	// connections; retry with backoff instead of failing the first open.
	redialer := connection.NewRedialer(session)
	redialer.MaxAttempts = 5

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := redialer.Dial(ctx); err != nil {
		return nil, fmt.Errorf("opening %s: %w", addr, err)
	}
	return session, nil
}

// openLogger builds the transcript logger chain.
func openLogger(transcript string) (log.Logger, func(), error) {
	if transcript == "" {
		return log.NoopLogger{}, func() {}, nil
	}
	fl, err := log.NewFileLogger(transcript)
	if err != nil {
		return nil, nil, fmt.Errorf("opening transcript %s: %w", transcript, err)
	}
	return fl, func() { fl.Close() }, nil
}

// openGroup parses the channel list and builds the chassis group.
func openGroup(session transport.Session, channels string, capacity int,
	selectFormat string, opts config.Options) (*bank.Group, error) {

	var chans []int
	for _, part := range strings.Split(channels, ",") {
		ch, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("bad channel list %q: %w", channels, err)
		}
		chans = append(chans, ch)
	}
	return bank.New(session, capacity, selectFormat, opts).Use(chans...)
}

func defaultProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scpi/profiles"
	}
	return filepath.Join(home, ".scpi", "profiles")
}

// shell is the interactive command loop.
type shell struct {
	session  transport.Session
	opts     config.Options
	engine   *config.Engine
	group    *bank.Group
	profiles *persistence.ProfileStore
	rl       *readline.Instance
}

func (s *shell) run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "scpi> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	s.rl = rl
	defer rl.Close()

	s.printHelp()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(rl.Stdout(), "Exiting...")
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "get", "g":
			s.cmdGet(args, false)

		case "read", "r":
			s.cmdGet(args, true)

		case "set", "s":
			s.cmdSet(args)

		case "w":
			s.cmdRaw(args, false)

		case "q":
			s.cmdRaw(args, true)

		case "idn":
			s.cmdRaw([]string{"*IDN?"}, true)

		case "save":
			s.cmdSave(args)

		case "load":
			s.cmdLoad(args)

		case "defaults":
			s.cmdDefaults(args)

		case "aget":
			s.cmdArrayGet(args)

		case "aset":
			s.cmdArraySet(args)

		case "dset":
			s.cmdDictSet(args)

		case "discover":
			s.cmdDiscover(args)

		case "quit", "exit":
			fmt.Fprintln(rl.Stdout(), "Exiting...")
			return nil

		default:
			fmt.Fprintf(rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
SCPI Shell Commands:
  Parameters:
    get <path>            - Read a parameter (cached)
    read <path>           - Read a parameter (forced hardware query)
    set <path> <value>    - Write a parameter (skipped when unchanged)
    set! <path> <value>   - Not a command; use "set <path> <value> force"

  Raw protocol:
    w <command...>        - Send a raw command
    q <query...>          - Send a raw query and print the reply
    idn                   - Query *IDN?

  Configuration:
    save <name|file.json> [subgroup] - Save live state to snapshot or file
    load <name|file.json> [subgroup] - Load and push state to hardware
    defaults <file>                  - Generate the defaults file

  Chassis (with -channels):
    aget <path>                  - Read a parameter on every channel
    aset <path> <v1> <v2> ...    - Write one value per channel
    dset <path> <ch>=<v> ...     - Write only the named channels

  General:
    discover [seconds]    - Scan the network for instruments
    help                  - Show this help
    quit                  - Exit`)
}

// pick returns the engine commands act on: the single engine, or the
// sub-engine when the first argument names a channel in group mode.
func (s *shell) pick(args []string) (*config.Engine, []string, error) {
	if s.engine != nil {
		return s.engine, args, nil
	}
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("chassis mode: first argument must be a channel")
	}
	ch, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("chassis mode: %q is not a channel", args[0])
	}
	e, err := s.group.Engine(ch)
	if err != nil {
		return nil, nil, err
	}
	return e, args[1:], nil
}

func (s *shell) cmdGet(args []string, force bool) {
	e, args, err := s.pick(args)
	if err != nil {
		s.fail(err)
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "usage: get <path>")
		return
	}
	v, err := e.GetParam(args[0], force)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "%s = %s\n", args[0], v)
}

func (s *shell) cmdSet(args []string) {
	e, args, err := s.pick(args)
	if err != nil {
		s.fail(err)
		return
	}
	if len(args) < 2 {
		fmt.Fprintln(s.rl.Stdout(), "usage: set <path> <value> [force]")
		return
	}
	force := len(args) > 2 && args[2] == "force"
	wrote, err := e.SetParam(args[0], args[1], force)
	if err != nil {
		s.fail(err)
		return
	}
	if wrote {
		fmt.Fprintln(s.rl.Stdout(), "written")
	} else {
		fmt.Fprintln(s.rl.Stdout(), "unchanged (cached)")
	}
}

func (s *shell) cmdRaw(args []string, query bool) {
	if len(args) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "usage: w|q <command...>")
		return
	}
	command := strings.Join(args, " ")
	if query {
		reply, err := s.session.Query(command)
		if err != nil {
			s.fail(err)
			return
		}
		fmt.Fprintln(s.rl.Stdout(), reply)
		return
	}
	if err := s.session.Write(command); err != nil {
		s.fail(err)
	}
}

// target parses a save/load destination: a name ending in .json is a
// file, anything else a snapshot.
func target(arg string) config.Target {
	if strings.HasSuffix(arg, ".json") {
		return config.FileTarget(arg)
	}
	return config.SnapshotTarget(arg)
}

func (s *shell) cmdSave(args []string) {
	e, args, err := s.pick(args)
	if err != nil {
		s.fail(err)
		return
	}
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "usage: save <name|file.json> [subgroup]")
		return
	}
	subgroup := ""
	if len(args) > 1 {
		subgroup = args[1]
	}
	if err := e.SaveConfig(target(args[0]), subgroup, false); err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "saved to %s\n", args[0])
}

func (s *shell) cmdLoad(args []string) {
	e, args, err := s.pick(args)
	if err != nil {
		s.fail(err)
		return
	}
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "usage: load <name|file.json> [subgroup]")
		return
	}
	subgroup := ""
	if len(args) > 1 {
		subgroup = args[1]
	}
	if err := e.LoadConfig(target(args[0]), subgroup); err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "loaded %s\n", args[0])
}

func (s *shell) cmdDefaults(args []string) {
	e, args, err := s.pick(args)
	if err != nil {
		s.fail(err)
		return
	}
	file := s.opts.DefaultsFile
	if len(args) > 0 {
		file = args[0]
	}
	if file == "" {
		fmt.Fprintln(s.rl.Stdout(), "usage: defaults <file> (or start with -defaults)")
		return
	}
	if err := e.GenerateDefaults(file, false); err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "defaults written to %s\n", file)
}

func (s *shell) cmdArrayGet(args []string) {
	if s.group == nil {
		fmt.Fprintln(s.rl.Stdout(), "aget requires -channels")
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(s.rl.Stdout(), "usage: aget <path>")
		return
	}
	values, err := s.group.GetArray(args[0], false)
	if err != nil {
		s.fail(err)
		return
	}
	for i, ch := range s.group.Channels() {
		fmt.Fprintf(s.rl.Stdout(), "ch%d %s = %s\n", ch, args[0], values[i])
	}
}

func (s *shell) cmdArraySet(args []string) {
	if s.group == nil {
		fmt.Fprintln(s.rl.Stdout(), "aset requires -channels")
		return
	}
	if len(args) < 2 {
		fmt.Fprintln(s.rl.Stdout(), "usage: aset <path> <v1> <v2> ...")
		return
	}
	values := make([]any, 0, len(args)-1)
	for _, v := range args[1:] {
		values = append(values, v)
	}
	wrote, err := s.group.SetArray(args[0], values, false)
	if err != nil {
		s.fail(err)
		return
	}
	if wrote {
		fmt.Fprintln(s.rl.Stdout(), "written")
	} else {
		fmt.Fprintln(s.rl.Stdout(), "unchanged (cached)")
	}
}

func (s *shell) cmdDictSet(args []string) {
	if s.group == nil {
		fmt.Fprintln(s.rl.Stdout(), "dset requires -channels")
		return
	}
	if len(args) < 2 {
		fmt.Fprintln(s.rl.Stdout(), "usage: dset <path> <ch>=<value> ...")
		return
	}
	values := make(map[int]any, len(args)-1)
	for _, pair := range args[1:] {
		chStr, v, ok := strings.Cut(pair, "=")
		if !ok {
			fmt.Fprintf(s.rl.Stdout(), "bad assignment %q, want ch=value\n", pair)
			return
		}
		ch, err := strconv.Atoi(chStr)
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "bad channel %q\n", chStr)
			return
		}
		values[ch] = v
	}
	wrote, err := s.group.SetDict(args[0], values, false)
	if err != nil {
		s.fail(err)
		return
	}
	if wrote {
		fmt.Fprintln(s.rl.Stdout(), "written")
	} else {
		fmt.Fprintln(s.rl.Stdout(), "unchanged (cached)")
	}
}

func (s *shell) cmdDiscover(args []string) {
	seconds := 3
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			seconds = n
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(seconds)*time.Second)
	defer cancel()

	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	instruments, err := browser.FindAll(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	if len(instruments) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "no instruments found")
		return
	}
	for _, inst := range instruments {
		fmt.Fprintf(s.rl.Stdout(), "%-24s %s %s (%s) %v:%d\n",
			inst.InstanceName, inst.Manufacturer, inst.Model, inst.Serial,
			inst.Addresses, inst.Port)
	}
}

// saveProfile remembers this instrument for later sessions. Identity
// comes from *IDN?; instruments that don't answer it are not profiled.
func (s *shell) saveProfile(addr string) {
	reply, err := s.session.Query("*IDN?")
	if err != nil {
		return
	}
	parts := strings.Split(reply, ",")
	if len(parts) < 3 {
		return
	}
	_ = s.profiles.Save(&persistence.Profile{
		Manufacturer: strings.TrimSpace(parts[0]),
		Model:        strings.TrimSpace(parts[1]),
		Serial:       strings.TrimSpace(parts[2]),
		Address:      addr,
		DefaultsFile: s.opts.DefaultsFile,
		HeaderEcho:   s.opts.HeaderEcho,
		Verbose:      s.opts.Verbose,
	})
}

func (s *shell) fail(err error) {
	fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
}
