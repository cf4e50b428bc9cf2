package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scpi-protocol/scpi-go/pkg/log"
	"github.com/scpi-protocol/scpi-go/pkg/transport"
	"github.com/scpi-protocol/scpi-go/pkg/tree"
)

// Reserved snapshot names.
const (
	// SnapshotLive is the authoritative (best-effort) mirror of hardware.
	SnapshotLive = "live"

	// SnapshotInit holds the first value ever observed per parameter.
	SnapshotInit = "init"

	// SnapshotDefault holds reference values from the defaults file.
	SnapshotDefault = "default"
)

// Engine errors.
var (
	// ErrProtectedSnapshot is returned when saving over a historical or
	// reference snapshot.
	ErrProtectedSnapshot = errors.New("snapshot is write-protected")

	// ErrNoSnapshot is returned when loading from a snapshot name that
	// doesn't exist.
	ErrNoSnapshot = errors.New("snapshot does not exist")

	// ErrNoDefaultsFile is returned when the "default" snapshot is used
	// without a configured defaults file.
	ErrNoDefaultsFile = errors.New("no defaults file configured")
)

// Observer is notified after a parameter's live value changes through
// the engine (hardware-confirmed sets, reads and loads).
type Observer interface {
	ParamUpdated(path string, value tree.Value)
}

// Engine is the configuration cache and sync layer for one instrument
// (or one channel of a multi-module bank).
type Engine struct {
	session   transport.Session
	opts      Options
	logger    log.Logger
	sessionID string

	// stores maps snapshot name to its exclusively owned path store.
	stores map[string]*tree.Store

	// initialized guards the one-time hardware handshake.
	// Once set it is never cleared for the engine's lifetime.
	initialized bool

	observers []Observer
}

// New creates an engine on the given session. The session is not
// opened; callers control the session lifecycle.
func New(session transport.Session, opts Options) *Engine {
	if opts.AllSettingsQuery == "" {
		opts.AllSettingsQuery = DefaultAllSettingsQuery
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Engine{
		session:   session,
		opts:      opts,
		logger:    logger,
		sessionID: uuid.NewString(),
		stores: map[string]*tree.Store{
			SnapshotLive: tree.New(),
			SnapshotInit: tree.New(),
		},
	}
}

// AddObserver registers an observer for live-value updates.
func (e *Engine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Session returns the underlying transport session.
func (e *Engine) Session() transport.Session {
	return e.session
}

// Snapshot returns the named snapshot store, which remains owned by
// the engine. The "default" snapshot is loaded from the defaults file
// on first use.
func (e *Engine) Snapshot(name string) (*tree.Store, error) {
	if name == SnapshotDefault {
		return e.loadDefaults()
	}
	s, ok := e.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, name)
	}
	return s, nil
}

// SetParam writes a configuration parameter.
//
// The stringified value is compared against the cached live value:
// when identical and force is false, no hardware access happens and
// SetParam returns false. Otherwise exactly one hardware write is
// issued; on success the live snapshot is updated (and init, on the
// parameter's first appearance) and SetParam returns true. A transport
// failure propagates and leaves the cache unmodified.
func (e *Engine) SetParam(path string, value any, force bool) (bool, error) {
	v := toValue(value)
	path = strings.Trim(path, tree.Separator)

	if !force {
		if cur, err := e.stores[SnapshotLive].Get(path); err == nil && cur.Equal(v) {
			return false, nil
		}
	}

	if err := e.ensureInitialized(); err != nil {
		return false, err
	}
	if err := e.write(e.formatSet(path, v), path); err != nil {
		return false, err
	}

	e.record(path, v)
	return true, nil
}

// GetParam reads a configuration parameter.
//
// A cached live value is returned directly unless force is true or the
// parameter is unknown, in which case exactly one hardware query is
// issued, parsed (header echo stripped, numeric coercion applied) and
// cached before returning. A transport failure propagates and leaves
// the cache unmodified.
func (e *Engine) GetParam(path string, force bool) (tree.Value, error) {
	path = strings.Trim(path, tree.Separator)

	if !force {
		if v, err := e.stores[SnapshotLive].Get(path); err == nil {
			return v, nil
		}
	}

	if err := e.ensureInitialized(); err != nil {
		return tree.Value{}, err
	}
	raw, err := e.query(e.formatQuery(path), path)
	if err != nil {
		return tree.Value{}, err
	}

	v := e.parseReply(raw)
	e.record(path, v)
	return v, nil
}

// Temp sets a parameter for the duration of fn and restores the
// original value on every exit path, including a panic inside fn.
// A restore failure is never swallowed: it is joined with fn's error.
func (e *Engine) Temp(path string, value any, force bool, fn func() error) (err error) {
	orig, err := e.GetParam(path, force)
	if err != nil {
		return fmt.Errorf("reading original value of %s: %w", path, err)
	}
	if _, err := e.SetParam(path, value, force); err != nil {
		return fmt.Errorf("setting temporary value of %s: %w", path, err)
	}

	defer func() {
		if _, rerr := e.SetParam(path, orig, force); rerr != nil {
			err = errors.Join(err, fmt.Errorf("restoring %s: %w", path, rerr))
		}
	}()

	return fn()
}

// record updates live (and init, exactly once per parameter) and
// notifies observers. Called only after hardware confirmed the value.
func (e *Engine) record(path string, v tree.Value) {
	e.stores[SnapshotLive].Set(path, v)
	if init := e.stores[SnapshotInit]; !init.Has(path) {
		init.Set(path, v)
	}
	for _, o := range e.observers {
		o.ParamUpdated(path, v)
	}
}

// ensureInitialized runs the one-time handshake before the first
// hardware access. The NotInitialized to Initialized transition is
// never reversed, even when a handshake command fails.
func (e *Engine) ensureInitialized() error {
	if e.initialized {
		return nil
	}
	e.initialized = true
	for _, cmd := range e.opts.handshake() {
		if err := e.write(cmd, ""); err != nil {
			return fmt.Errorf("init handshake: %w", err)
		}
	}
	return nil
}

// formatSet renders a parameter write command.
func (e *Engine) formatSet(path string, v tree.Value) string {
	var sb strings.Builder
	if e.opts.PrecedingColon {
		sb.WriteString(tree.Separator)
	}
	sb.WriteString(path)
	if e.opts.InterveningSpace {
		sb.WriteString(" ")
	}
	sb.WriteString(v.String())
	return sb.String()
}

// formatQuery renders a parameter query command.
func (e *Engine) formatQuery(path string) string {
	if e.opts.PrecedingColon {
		return tree.Separator + path + "?"
	}
	return path + "?"
}

// parseReply turns raw query text into a typed value, stripping the
// header echo when the instrument emits one.
func (e *Engine) parseReply(raw string) tree.Value {
	text := strings.TrimSpace(raw)
	if e.opts.HeaderEcho {
		if _, value, ok := strings.Cut(text, " "); ok {
			text = value
		}
	}
	return tree.ParseValue(text)
}

// write sends one command and logs it.
func (e *Engine) write(command, path string) error {
	err := e.session.Write(command)
	if err != nil {
		e.logError(command, path, err)
		return err
	}
	e.logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  e.sessionID,
		Direction:  log.DirectionOut,
		Category:   log.CategoryWrite,
		RemoteAddr: e.session.Addr(),
		Command:    command,
		Path:       path,
		Channel:    e.opts.Channel,
	})
	return nil
}

// query sends one query and logs both directions.
func (e *Engine) query(command, path string) (string, error) {
	e.logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  e.sessionID,
		Direction:  log.DirectionOut,
		Category:   log.CategoryQuery,
		RemoteAddr: e.session.Addr(),
		Command:    command,
		Path:       path,
		Channel:    e.opts.Channel,
	})
	reply, err := e.session.Query(command)
	if err != nil {
		e.logError(command, path, err)
		return "", err
	}
	e.logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  e.sessionID,
		Direction:  log.DirectionIn,
		Category:   log.CategoryReply,
		RemoteAddr: e.session.Addr(),
		Command:    command,
		Response:   reply,
		Path:       path,
		Channel:    e.opts.Channel,
	})
	return reply, nil
}

func (e *Engine) logError(command, path string, err error) {
	e.logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  e.sessionID,
		Direction:  log.DirectionOut,
		Category:   log.CategoryError,
		RemoteAddr: e.session.Addr(),
		Command:    command,
		Path:       path,
		Channel:    e.opts.Channel,
		Error:      err.Error(),
	})
}

// toValue converts caller-supplied values to typed tree values.
func toValue(value any) tree.Value {
	switch t := value.(type) {
	case tree.Value:
		return t
	case string:
		return tree.ParseValue(t)
	case int:
		return tree.IntValue(int64(t))
	case int64:
		return tree.IntValue(t)
	case float64:
		return tree.ParseValue(fmt.Sprintf("%g", t))
	case bool:
		if t {
			return tree.IntValue(1)
		}
		return tree.IntValue(0)
	default:
		return tree.ParseValue(fmt.Sprint(value))
	}
}
