package tree

import (
	"errors"
	"fmt"
	"strings"
)

// Separator delimits path segments.
const Separator = ":"

// SiblingToken is the reserved key that holds a node's own scalar value
// in map and file representations, where a node has both a value and
// children. It never appears in paths handled by Get/Set/Flatten.
const SiblingToken = "&"

// ErrNotFound is returned when a path has no value in the store.
var ErrNotFound = errors.New("path not found")

// Pair is one flattened (path, value) entry.
type Pair struct {
	Path  string
	Value Value
}

// node is a tree node: a scalar value, named children, or both.
// Child order records insertion order so walks are deterministic.
type node struct {
	value    *Value
	children map[string]*node
	order    []string
}

func (n *node) child(name string, create bool) *node {
	if n.children != nil {
		if c, ok := n.children[name]; ok {
			return c
		}
	}
	if !create {
		return nil
	}
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c := &node{}
	n.children[name] = c
	n.order = append(n.order, name)
	return c
}

func (n *node) clone() *node {
	c := &node{}
	if n.value != nil {
		v := *n.value
		c.value = &v
	}
	if n.children != nil {
		c.children = make(map[string]*node, len(n.children))
		c.order = append([]string(nil), n.order...)
		for name, child := range n.children {
			c.children[name] = child.clone()
		}
	}
	return c
}

// Store is a hierarchical store of instrument configuration parameters.
// It has no knowledge of hardware; it only holds paths and values.
type Store struct {
	root *node
}

// New creates an empty store.
func New() *Store {
	return &Store{root: &node{}}
}

// splitPath splits a path into its segments.
func splitPath(path string) []string {
	path = strings.Trim(path, Separator)
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// lookup walks to the node at path without creating anything.
func (s *Store) lookup(path string) *node {
	n := s.root
	for _, seg := range splitPath(path) {
		n = n.child(seg, false)
		if n == nil {
			return nil
		}
	}
	return n
}

// Get returns the value at path.
// It fails with ErrNotFound when the path has no value, including when
// the path addresses a subtree with no value of its own.
func (s *Store) Get(path string) (Value, error) {
	n := s.lookup(path)
	if n == nil || n.value == nil {
		return Value{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return *n.value, nil
}

// Has reports whether path holds a value.
func (s *Store) Has(path string) bool {
	n := s.lookup(path)
	return n != nil && n.value != nil
}

// HasGroup reports whether path addresses a node with children.
func (s *Store) HasGroup(path string) bool {
	n := s.lookup(path)
	return n != nil && len(n.children) > 0
}

// Set stores a value at path, creating intermediate nodes as needed.
// When path already addresses a subtree, the subtree is preserved and
// the scalar becomes the node's own value, so a directory and a direct
// value coexist at the same path.
func (s *Store) Set(path string, v Value) {
	n := s.root
	for _, seg := range splitPath(path) {
		n = n.child(seg, true)
	}
	n.value = &v
}

// SetList stores a sequence of pairs in order.
func (s *Store) SetList(pairs []Pair) {
	for _, p := range pairs {
		s.Set(p.Path, p.Value)
	}
}

// Flatten returns one pair per value-bearing node under subgroup
// (the whole store when subgroup is empty), depth first in insertion
// order. Emitted paths are full paths from the root.
func (s *Store) Flatten(subgroup string) []Pair {
	start := s.lookup(subgroup)
	if start == nil {
		return nil
	}
	prefix := strings.Trim(subgroup, Separator)
	var pairs []Pair
	flattenNode(start, prefix, &pairs)
	return pairs
}

func flattenNode(n *node, path string, pairs *[]Pair) {
	if n.value != nil && path != "" {
		*pairs = append(*pairs, Pair{Path: path, Value: *n.value})
	}
	for _, name := range n.order {
		childPath := name
		if path != "" {
			childPath = path + Separator + name
		}
		flattenNode(n.children[name], childPath, pairs)
	}
}

// Merge copies all value-bearing nodes under subgroup from src into s,
// applying the same collision rule as Set.
func (s *Store) Merge(src *Store, subgroup string) {
	for _, p := range src.Flatten(subgroup) {
		s.Set(p.Path, p.Value)
	}
}

// Copy returns a deep structural copy. Stores are never aliased between
// snapshots.
func (s *Store) Copy() *Store {
	return &Store{root: s.root.clone()}
}
