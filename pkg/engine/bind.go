package engine

import (
	"strings"

	"github.com/mchmarny/healthscore/pkg/hierarchy"
	"github.com/mchmarny/healthscore/pkg/measurement"
)

// Bound is the runtime pairing of a definition node with its measurement
// (leaves) or its bound children (internal nodes). A fresh bound tree is
// built for every evaluation and never shared.
type Bound struct {
	Def      *hierarchy.Node
	Raw      *measurement.Measurement
	Children []BoundEdge
}

// BoundEdge carries the edge weight alongside the bound child.
type BoundEdge struct {
	Weight float64
	Node   *Bound
}

// Bind pairs every node under root with the measurement set. Leaf types are
// matched after trimming surrounding whitespace, as measurement types are.
// Leaves without a matching measurement stay unbound; that is reported during
// evaluation. Shared definition subtrees are bound once per reference.
func Bind(root *hierarchy.Node, set *measurement.Set) *Bound {
	if root == nil {
		return nil
	}

	b := &Bound{Def: root}
	if root.IsLeaf() {
		if m, ok := set.Get(strings.TrimSpace(root.Type)); ok {
			b.Raw = m
		}
		return b
	}

	b.Children = make([]BoundEdge, len(root.Edges))
	for i, e := range root.Edges {
		b.Children[i] = BoundEdge{Weight: e.Weight, Node: Bind(e.Node, set)}
	}
	return b
}

// Unresolved returns the types of leaves that have no measurement.
func (b *Bound) Unresolved() []string {
	list := make([]string, 0)
	b.visit(func(n *Bound) {
		if n.Def.IsLeaf() && n.Raw == nil {
			list = append(list, n.Def.Type)
		}
	})
	return list
}

func (b *Bound) visit(fn func(n *Bound)) {
	if b == nil {
		return
	}
	fn(b)
	for _, c := range b.Children {
		c.Node.visit(fn)
	}
}
