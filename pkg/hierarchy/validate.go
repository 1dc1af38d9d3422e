package hierarchy

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalid is returned for structurally malformed hierarchies.
	ErrInvalid = errors.New("invalid hierarchy")
	// ErrUnsupportedVersion is returned when the schema version is not in the allowlist.
	ErrUnsupportedVersion = errors.New("unsupported hierarchy version")
	// ErrCycle is returned when a node is its own descendant.
	ErrCycle = errors.New("hierarchy contains a cycle")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Validate checks that h is a well formed, acyclic, supported hierarchy.
func Validate(h *Hierarchy) error {
	if h == nil || h.Root == nil {
		return fmt.Errorf("%w: root node required", ErrInvalid)
	}

	if !IsSupportedVersion(h.Version) {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedVersion,
			h.Version, strings.Join(supportedVersions, ", "))
	}

	// cycles first, the struct validator recurses without a visited set
	if err := checkCycles(h.Root, make(map[*Node]bool), make(map[*Node]bool), nil); err != nil {
		return err
	}

	if err := validate.Struct(h); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}

	var err error
	h.Walk(func(n *Node, _ int) bool {
		if err != nil {
			return false
		}
		err = checkNode(h.Version, n)
		return err == nil
	})
	return err
}

func checkCycles(n *Node, onPath, done map[*Node]bool, path []string) error {
	path = append(path, n.Type)
	if onPath[n] {
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(path, " -> "))
	}
	if done[n] {
		return nil
	}

	onPath[n] = true
	for _, e := range n.Edges {
		if e.Node == nil {
			continue
		}
		if err := checkCycles(e.Node, onPath, done, path); err != nil {
			return err
		}
	}
	onPath[n] = false
	done[n] = true
	return nil
}

func checkNode(version string, n *Node) error {
	if strings.TrimSpace(n.Type) == "" {
		return fmt.Errorf("%w: node type must not be blank", ErrInvalid)
	}
	if n.IsLeaf() && n.Strategy != RawValue {
		return fmt.Errorf("%w: leaf %s must use strategy %s, got %s", ErrInvalid, n.Type, RawValue, n.Strategy)
	}
	if !n.IsLeaf() && n.Strategy == RawValue {
		return fmt.Errorf("%w: node %s has children and cannot use strategy %s", ErrInvalid, n.Type, RawValue)
	}
	for _, e := range n.Edges {
		if math.IsInf(e.Weight, 0) {
			return fmt.Errorf("%w: node %s has an infinite edge weight to %s", ErrInvalid, n.Type, e.Node.Type)
		}
	}
	if version == Version10 && len(n.Tags) > 0 {
		return fmt.Errorf("%w: node %s uses tags which require version %s", ErrInvalid, n.Type, Version11)
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Namespace(), e.Tag()))
	}
	return strings.Join(msgs, "; ")
}
