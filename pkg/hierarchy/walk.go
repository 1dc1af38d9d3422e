package hierarchy

// Shape summarizes the structure of a tree. Shared subtrees are counted once
// per reference so two isomorphic trees always have the same shape.
type Shape struct {
	Nodes  int `json:"nodes" yaml:"nodes"`
	Edges  int `json:"edges" yaml:"edges"`
	Leaves int `json:"leaves" yaml:"leaves"`
	Depth  int `json:"depth" yaml:"depth"`
}

// Walk visits every node reachable from the root in pre-order. Returning
// false from fn skips the node's children. Walk must only be used on
// validated (acyclic) hierarchies.
func (h *Hierarchy) Walk(fn func(n *Node, depth int) bool) {
	if h == nil || h.Root == nil {
		return
	}
	walk(h.Root, 0, fn)
}

func walk(n *Node, depth int, fn func(n *Node, depth int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, e := range n.Edges {
		walk(e.Node, depth+1, fn)
	}
}

// Shape returns the structural summary of the hierarchy.
func (h *Hierarchy) Shape() Shape {
	var s Shape
	h.Walk(func(n *Node, depth int) bool {
		s.Nodes++
		s.Edges += len(n.Edges)
		if n.IsLeaf() {
			s.Leaves++
		}
		if depth+1 > s.Depth {
			s.Depth = depth + 1
		}
		return true
	})
	return s
}

// LeafTypes returns the distinct leaf types in first-seen order.
func (h *Hierarchy) LeafTypes() []string {
	seen := make(map[string]bool)
	list := make([]string, 0)
	h.Walk(func(n *Node, _ int) bool {
		if n.IsLeaf() && !seen[n.Type] {
			seen[n.Type] = true
			list = append(list, n.Type)
		}
		return true
	})
	return list
}

// Strategies returns the distinct strategies used in the tree.
func (h *Hierarchy) Strategies() []StrategyID {
	seen := make(map[StrategyID]bool)
	list := make([]StrategyID, 0)
	h.Walk(func(n *Node, _ int) bool {
		if !seen[n.Strategy] {
			seen[n.Strategy] = true
			list = append(list, n.Strategy)
		}
		return true
	})
	return list
}
