// Package tree implements the hierarchical path store used to mirror
// instrument configuration.
//
// Paths are colon-separated strings (e.g. "ACQUIRE:NUMAVG") addressing
// nodes in a tree. A node can carry a scalar value, child nodes, or both
// at once: instrument command grammars frequently have a parameter that
// is simultaneously a settable scalar and a namespace prefix for
// sub-parameters. Setting a scalar at a path that already has children
// preserves the children, and both facts round-trip through Flatten,
// Merge and the JSON file format (where the reserved "&" key holds the
// node's own value).
package tree
