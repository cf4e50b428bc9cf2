package config

import (
	"fmt"
	"os"

	"github.com/scpi-protocol/scpi-go/pkg/tree"
)

// loadDefaults loads the "default" snapshot from the defaults file on
// first use. Once loaded it is never reloaded or mutated.
func (e *Engine) loadDefaults() (*tree.Store, error) {
	if s, ok := e.stores[SnapshotDefault]; ok {
		return s, nil
	}
	if e.opts.DefaultsFile == "" {
		return nil, ErrNoDefaultsFile
	}
	s, err := tree.FromFile(e.opts.DefaultsFile, "")
	if err != nil {
		return nil, fmt.Errorf("loading defaults from %s: %w", e.opts.DefaultsFile, err)
	}
	e.stores[SnapshotDefault] = s
	return s, nil
}

// GenerateDefaults walks the instrument's entire reported configuration
// and writes it as the defaults file.
//
// The bulk all-settings reply alone cannot disambiguate parameters
// that hold both a value and sub-parameters, so every discovered leaf
// is re-queried individually. Parameters that fail the individual
// query are skipped: some settings are legitimately inapplicable in
// the instrument's current mode. An existing file is kept unless
// overwrite is true.
func (e *Engine) GenerateDefaults(file string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(file); err == nil {
			return nil
		}
	}

	if err := e.ensureInitialized(); err != nil {
		return err
	}
	bulk, err := e.query(e.opts.AllSettingsQuery, "")
	if err != nil {
		return fmt.Errorf("bulk settings query: %w", err)
	}

	discovered := tree.FromResponse(bulk)
	out := tree.New()
	for _, p := range discovered.Flatten("") {
		v, err := e.GetParam(p.Path, true)
		if err != nil {
			// Inapplicable in the current mode; not fatal.
			continue
		}
		out.Set(p.Path, v)
	}
	return out.Save(file, "", true)
}
