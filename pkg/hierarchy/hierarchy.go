// Package hierarchy describes the scoring tree: which measurements feed which
// KPI, with what weight, and how every node combines its children.
//
// A Hierarchy is treated as immutable once validated. Nodes may be shared
// between parents (a DAG) but a node can never be its own descendant.
package hierarchy

import (
	"slices"
)

// StrategyID names the aggregation strategy assigned to a node.
type StrategyID string

// RawValue is the identity strategy; it is the only strategy valid on leaves.
const RawValue StrategyID = "raw_value"

const (
	// Version10 is the initial document schema.
	Version10 = "1.0"
	// Version11 adds node tags.
	Version11 = "1.1"

	// LatestVersion is used when writing new documents.
	LatestVersion = Version11
)

// supportedVersions must stay sorted.
var supportedVersions = []string{Version10, Version11}

// SupportedVersions returns the sorted list of accepted schema versions.
func SupportedVersions() []string {
	return slices.Clone(supportedVersions)
}

// IsSupportedVersion reports whether v is an accepted schema version.
func IsSupportedVersion(v string) bool {
	_, found := slices.BinarySearch(supportedVersions, v)
	return found
}

// Hierarchy is a versioned scoring tree.
type Hierarchy struct {
	Version string `json:"version" yaml:"version" validate:"required"`
	Root    *Node  `json:"root" yaml:"root" validate:"required"`
}

// Node is one KPI in the tree. A node without edges is a leaf and is fed by
// the measurement with the same Type.
type Node struct {
	Type       string      `json:"type" yaml:"type" validate:"required"`
	Strategy   StrategyID  `json:"strategy" yaml:"strategy" validate:"required"`
	Reason     string      `json:"reason,omitempty" yaml:"reason,omitempty"`
	Tags       []string    `json:"tags,omitempty" yaml:"tags,omitempty" validate:"dive,required"`
	Thresholds []Threshold `json:"thresholds,omitempty" yaml:"thresholds,omitempty" validate:"dive"`
	Edges      []Edge      `json:"edges,omitempty" yaml:"edges,omitempty" validate:"dive"`
}

// Edge connects a parent to a child node. Weight semantics are defined by the
// parent's strategy.
type Edge struct {
	Weight float64 `json:"weight" yaml:"weight" validate:"gte=0"`
	Node   *Node   `json:"node" yaml:"node" validate:"required"`
}

// Threshold is a labeled integer bound used by raw value transforms.
type Threshold struct {
	Label string `json:"label" yaml:"label" validate:"required"`
	Value int    `json:"value" yaml:"value"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Edges) == 0
}

// MaxThreshold returns the threshold with the largest value.
func (n *Node) MaxThreshold() (Threshold, bool) {
	if len(n.Thresholds) == 0 {
		return Threshold{}, false
	}
	m := n.Thresholds[0]
	for _, t := range n.Thresholds[1:] {
		if t.Value > m.Value {
			m = t
		}
	}
	return m, true
}

// Leaf creates a leaf node using the identity strategy.
func Leaf(typeID string, thresholds ...Threshold) *Node {
	return &Node{
		Type:       typeID,
		Strategy:   RawValue,
		Thresholds: thresholds,
	}
}

// Aggregate creates an internal node.
func Aggregate(typeID string, strategy StrategyID, edges ...Edge) *Node {
	return &Node{
		Type:     typeID,
		Strategy: strategy,
		Edges:    edges,
	}
}

// Weighted creates an edge to n.
func Weighted(weight float64, n *Node) Edge {
	return Edge{Weight: weight, Node: n}
}

// New creates a hierarchy of the latest version.
func New(root *Node) *Hierarchy {
	return &Hierarchy{Version: LatestVersion, Root: root}
}
