// Package result holds the immutable output of an evaluation: a tree that
// mirrors the hierarchy definition with an outcome on every node.
package result

import (
	"errors"
	"fmt"
	"os"

	"github.com/mchmarny/healthscore/pkg/doc"
	"github.com/mchmarny/healthscore/pkg/hierarchy"
)

// ErrInvalid is returned when a result document cannot be decoded.
var ErrInvalid = errors.New("invalid result")

// Hierarchy is the evaluated tree.
type Hierarchy struct {
	Version string `json:"version" yaml:"version"`
	Strict  bool   `json:"strict" yaml:"strict"`
	Root    *Node  `json:"root" yaml:"root"`
}

// Node mirrors one hierarchy.Node and carries its outcome.
type Node struct {
	Type       string                `json:"type" yaml:"type"`
	Strategy   hierarchy.StrategyID  `json:"strategy" yaml:"strategy"`
	ID         string                `json:"id" yaml:"id"`
	OriginID   string                `json:"origin_id,omitempty" yaml:"originId,omitempty"`
	Reason     string                `json:"reason,omitempty" yaml:"reason,omitempty"`
	Tags       []string              `json:"tags,omitempty" yaml:"tags,omitempty"`
	Thresholds []hierarchy.Threshold `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Outcome    Outcome               `json:"outcome" yaml:"outcome"`
	Edges      []Edge                `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// Edge links a result node to an evaluated child.
type Edge struct {
	Weight float64 `json:"weight" yaml:"weight"`
	Node   *Node   `json:"node" yaml:"node"`
}

// NodeError locates an error outcome in the tree.
type NodeError struct {
	Path    []string `json:"path" yaml:"path"`
	Message string   `json:"message" yaml:"message"`
}

// Score returns the root outcome.
func (h *Hierarchy) Score() Outcome {
	if h == nil || h.Root == nil {
		return Failure("empty result")
	}
	return h.Root.Outcome
}

// Walk visits every node in pre-order with the list of types leading to it.
func (h *Hierarchy) Walk(fn func(path []string, n *Node)) {
	if h == nil || h.Root == nil {
		return
	}
	walk(h.Root, nil, fn)
}

func walk(n *Node, parent []string, fn func(path []string, n *Node)) {
	path := append(append(make([]string, 0, len(parent)+1), parent...), n.Type)
	fn(path, n)
	for _, e := range n.Edges {
		walk(e.Node, path, fn)
	}
}

// Find returns all nodes of the given type.
func (h *Hierarchy) Find(typeID string) []*Node {
	list := make([]*Node, 0)
	h.Walk(func(_ []string, n *Node) {
		if n.Type == typeID {
			list = append(list, n)
		}
	})
	return list
}

// Errors returns every node whose outcome is an error, in pre-order.
func (h *Hierarchy) Errors() []NodeError {
	list := make([]NodeError, 0)
	h.Walk(func(path []string, n *Node) {
		if !n.Outcome.OK() {
			list = append(list, NodeError{Path: path, Message: n.Outcome.Err()})
		}
	})
	return list
}

// Shape returns the structural summary, comparable to hierarchy.Shape.
func (h *Hierarchy) Shape() hierarchy.Shape {
	var s hierarchy.Shape
	h.Walk(func(path []string, n *Node) {
		s.Nodes++
		s.Edges += len(n.Edges)
		if len(n.Edges) == 0 {
			s.Leaves++
		}
		if len(path) > s.Depth {
			s.Depth = len(path)
		}
	})
	return s
}

// Parse decodes a JSON or YAML result document.
func Parse(b []byte) (*Hierarchy, error) {
	var h Hierarchy
	if err := doc.Decode(b, &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if h.Root == nil {
		return nil, fmt.Errorf("%w: root node required", ErrInvalid)
	}
	return &h, nil
}

// Load reads and parses the result document at path.
func Load(path string) (*Hierarchy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result %s: %w", path, err)
	}
	return Parse(b)
}

// Marshal encodes the result in the given format.
func Marshal(h *Hierarchy, f doc.Format) ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil result", ErrInvalid)
	}
	return doc.Marshal(h, f)
}
