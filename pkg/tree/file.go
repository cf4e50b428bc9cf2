package tree

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// ToMap returns the store as nested maps mirroring the path
// segmentation. Nodes holding both a value and children place the value
// under the SiblingToken key.
func (s *Store) ToMap() map[string]any {
	m, _ := s.root.toAny().(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	return m
}

func (n *node) toAny() any {
	if len(n.children) == 0 {
		if n.value == nil {
			return nil
		}
		return n.value.native()
	}
	m := make(map[string]any, len(n.children)+1)
	if n.value != nil {
		m[SiblingToken] = n.value.native()
	}
	for name, child := range n.children {
		m[name] = child.toAny()
	}
	return m
}

// native returns the value as a plain Go scalar for JSON encoding.
func (v Value) native() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	default:
		return v.str
	}
}

// FromMap builds a store from nested maps, the inverse of ToMap.
func FromMap(m map[string]any) (*Store, error) {
	s := New()
	if err := mergeAny(s, "", m); err != nil {
		return nil, err
	}
	return s, nil
}

func mergeAny(s *Store, path string, val any) error {
	switch t := val.(type) {
	case map[string]any:
		// Sorted walk keeps insertion order stable across loads.
		names := make([]string, 0, len(t))
		for name := range t {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			childPath := name
			if name == SiblingToken {
				childPath = path
			} else if path != "" {
				childPath = path + Separator + name
			}
			if err := mergeAny(s, childPath, t[name]); err != nil {
				return err
			}
		}
		return nil
	case string:
		s.Set(path, StringValue(t))
		return nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < float64(math.MaxInt64) {
			s.Set(path, IntValue(int64(t)))
		} else {
			s.Set(path, FloatValue(t))
		}
		return nil
	case int:
		s.Set(path, IntValue(int64(t)))
		return nil
	case int64:
		s.Set(path, IntValue(t))
		return nil
	case bool:
		s.Set(path, IntValue(boolInt(t)))
		return nil
	default:
		return fmt.Errorf("unsupported value at %q: %T", path, val)
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Save serializes the subgroup of the store to a JSON file whose
// nesting mirrors the path segmentation. When overwrite is false and
// the file already exists, the existing content is loaded first and
// this store's subgroup is merged into it before writing.
func (s *Store) Save(file string, subgroup string, overwrite bool) error {
	target := New()
	if !overwrite {
		if existing, err := FromFile(file, ""); err == nil {
			target = existing
		} else if !os.IsNotExist(err) {
			return err
		}
	}
	target.Merge(s, subgroup)

	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(target.ToMap(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0644)
}

// FromFile loads a store from a JSON file, extracting only subgroup
// (the whole file when subgroup is empty).
func FromFile(file string, subgroup string) (*Store, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	full, err := FromMap(m)
	if err != nil {
		return nil, err
	}
	if subgroup == "" {
		return full, nil
	}
	s := New()
	s.Merge(full, subgroup)
	return s, nil
}
