package config

import (
	"fmt"

	"github.com/scpi-protocol/scpi-go/pkg/tree"
)

// Target identifies a save destination or load source for engine
// configuration: one of the engine's named snapshots, a JSON file, or
// an externally owned store.
type Target struct {
	name  string
	file  string
	store *tree.Store
}

// SnapshotTarget addresses one of the engine's named snapshots.
// Saving creates the snapshot if needed; "default" and "init" are
// write-protected as save destinations.
func SnapshotTarget(name string) Target {
	return Target{name: name}
}

// FileTarget addresses a JSON configuration file.
func FileTarget(path string) Target {
	return Target{file: path}
}

// StoreTarget addresses a caller-owned store.
func StoreTarget(s *tree.Store) Target {
	return Target{store: s}
}

// String describes the target for error messages.
func (t Target) String() string {
	switch {
	case t.store != nil:
		return "store"
	case t.file != "":
		return t.file
	default:
		return "snapshot " + t.name
	}
}

// SaveConfig copies the subgroup of the live snapshot into dest.
//
// Snapshot destinations merge into the existing snapshot (or a fresh
// one when overwrite is true or the name is new). Mutating the
// historical and reference snapshots is an access violation:
// "default" and "init" fail with ErrProtectedSnapshot. File
// destinations follow tree.Save semantics (read-then-merge unless
// overwrite).
func (e *Engine) SaveConfig(dest Target, subgroup string, overwrite bool) error {
	live := e.stores[SnapshotLive]

	switch {
	case dest.store != nil:
		dest.store.Merge(live, subgroup)
		return nil

	case dest.file != "":
		return live.Save(dest.file, subgroup, overwrite)

	default:
		if dest.name == SnapshotDefault || dest.name == SnapshotInit {
			return fmt.Errorf("%w: %s", ErrProtectedSnapshot, dest.name)
		}
		snap, ok := e.stores[dest.name]
		if !ok || overwrite {
			snap = tree.New()
			e.stores[dest.name] = snap
		}
		snap.Merge(live, subgroup)
		return nil
	}
}

// LoadConfig restores the subgroup of src into the instrument.
//
// The caller is asserting a known-good state: every loaded leaf is
// pushed to hardware unconditionally (bypassing change detection) and
// written into both the live and init snapshots. A transport failure
// stops the push and propagates; leaves already pushed remain
// recorded.
func (e *Engine) LoadConfig(src Target, subgroup string) error {
	source, err := e.resolveSource(src)
	if err != nil {
		return err
	}

	pairs := source.Flatten(subgroup)
	if err := e.ensureInitialized(); err != nil {
		return err
	}

	live := e.stores[SnapshotLive]
	init := e.stores[SnapshotInit]
	for _, p := range pairs {
		if err := e.write(e.formatSet(p.Path, p.Value), p.Path); err != nil {
			return fmt.Errorf("loading %s from %s: %w", p.Path, src, err)
		}
		live.Set(p.Path, p.Value)
		init.Set(p.Path, p.Value)
		for _, o := range e.observers {
			o.ParamUpdated(p.Path, p.Value)
		}
	}
	return nil
}

// resolveSource resolves a load source to a readable store.
func (e *Engine) resolveSource(src Target) (*tree.Store, error) {
	switch {
	case src.store != nil:
		return src.store, nil
	case src.file != "":
		return tree.FromFile(src.file, "")
	default:
		return e.Snapshot(src.name)
	}
}
