// Package engine binds measurements to a hierarchy definition and evaluates
// the tree bottom-up into a result hierarchy.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/mchmarny/healthscore/pkg/hierarchy"
	"github.com/mchmarny/healthscore/pkg/measurement"
	"github.com/mchmarny/healthscore/pkg/result"
	"github.com/mchmarny/healthscore/pkg/strategy"
	"github.com/mchmarny/healthscore/pkg/transform"
	"golang.org/x/sync/errgroup"
)

// Options control a single evaluation. The zero value evaluates leniently,
// sequentially, with the built-in strategies and transforms.
type Options struct {
	// Strict makes any failing child fail its parent.
	Strict bool
	// Parallel evaluates sibling subtrees concurrently.
	Parallel bool
	// Duplicates selects the measurement used when types repeat.
	Duplicates measurement.DuplicatePolicy
	// IDs generates ids for measurements without one and for internal nodes.
	IDs measurement.IDGenerator
	// Strategies defaults to strategy.NewRegistry().
	Strategies *strategy.Registry
	// Transforms defaults to transform.NewRegistry().
	Transforms *transform.Registry
}

func (o Options) withDefaults() Options {
	if o.Duplicates == "" {
		o.Duplicates = measurement.FirstWins
	}
	if o.IDs == nil {
		o.IDs = measurement.UUIDGenerator{}
	}
	if o.Strategies == nil {
		o.Strategies = strategy.NewRegistry()
	}
	if o.Transforms == nil {
		o.Transforms = transform.NewRegistry()
	}
	return o
}

type evaluator struct {
	strict     bool
	parallel   bool
	ids        measurement.IDGenerator
	strategies map[hierarchy.StrategyID]strategy.Strategy
	transforms *transform.Registry
}

// Evaluate scores h against the measurements. Configuration problems
// (invalid hierarchy, unknown strategy, duplicate measurements under the
// reject policy) abort before any node is evaluated. Everything else is
// reported as an error outcome on the affected node. The measurement list is
// not modified.
func Evaluate(ctx context.Context, h *hierarchy.Hierarchy, list []*measurement.Measurement, opts Options) (*result.Hierarchy, error) {
	start := time.Now()
	opts = opts.withDefaults()

	if err := hierarchy.Validate(h); err != nil {
		return nil, fmt.Errorf("validating hierarchy: %w", err)
	}

	strategies, err := opts.Strategies.ResolveAll(h)
	if err != nil {
		return nil, fmt.Errorf("resolving strategies: %w", err)
	}

	items := make([]*measurement.Measurement, 0, len(list))
	for _, m := range list {
		if m != nil {
			c := *m
			items = append(items, &c)
		}
	}
	if err := measurement.Normalize(items, opts.IDs); err != nil {
		return nil, fmt.Errorf("normalizing measurements: %w", err)
	}

	set, err := measurement.NewSet(items, opts.Duplicates)
	if err != nil {
		return nil, fmt.Errorf("indexing measurements: %w", err)
	}

	bound := Bind(h.Root, set)
	slog.Debug("hierarchy bound",
		"measurements", set.Len(),
		"duplicates", len(set.Duplicates()),
		"unresolved", len(bound.Unresolved()),
	)

	e := &evaluator{
		strict:     opts.Strict,
		parallel:   opts.Parallel,
		ids:        opts.IDs,
		strategies: strategies,
		transforms: opts.Transforms,
	}

	root, err := e.eval(ctx, bound)
	if err != nil {
		return nil, fmt.Errorf("evaluating hierarchy: %w", err)
	}

	res := &result.Hierarchy{
		Version: h.Version,
		Strict:  opts.Strict,
		Root:    root,
	}

	slog.Debug("hierarchy evaluated",
		"score", res.Score().String(),
		"errors", len(res.Errors()),
		"strict", opts.Strict,
		"duration", time.Since(start).String(),
	)

	return res, nil
}

// eval returns the finished result node for b after all of its children
// are finished. Only context cancellation produces an error.
func (e *evaluator) eval(ctx context.Context, b *Bound) (*result.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	children, err := e.evalChildren(ctx, b)
	if err != nil {
		return nil, err
	}

	n := &result.Node{
		Type:       b.Def.Type,
		Strategy:   b.Def.Strategy,
		Reason:     b.Def.Reason,
		Tags:       slices.Clone(b.Def.Tags),
		Thresholds: slices.Clone(b.Def.Thresholds),
		Outcome:    e.outcome(b, children),
	}

	if b.Raw != nil {
		n.ID = b.Raw.ID
		n.OriginID = b.Raw.OriginID
	} else {
		n.ID = e.ids.NewID()
	}

	if len(children) > 0 {
		n.Edges = make([]result.Edge, len(children))
		for i, c := range children {
			n.Edges[i] = result.Edge{Weight: b.Children[i].Weight, Node: c}
		}
	}

	return n, nil
}

func (e *evaluator) evalChildren(ctx context.Context, b *Bound) ([]*result.Node, error) {
	if len(b.Children) == 0 {
		return nil, nil
	}

	list := make([]*result.Node, len(b.Children))

	if !e.parallel || len(b.Children) == 1 {
		for i, c := range b.Children {
			n, err := e.eval(ctx, c.Node)
			if err != nil {
				return nil, err
			}
			list[i] = n
		}
		return list, nil
	}

	// each goroutine owns one slot; the parent reads them only after Wait
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range b.Children {
		g.Go(func() error {
			n, err := e.eval(gctx, c.Node)
			if err != nil {
				return err
			}
			list[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return list, nil
}

func (e *evaluator) outcome(b *Bound, children []*result.Node) result.Outcome {
	if b.Def.IsLeaf() {
		if t, ok := e.transforms.Lookup(strings.TrimSpace(b.Def.Type)); ok {
			o := t(b.Def, b.Raw)
			if isEmpty(o) {
				return result.Failure("%s: transform returned no outcome", b.Def.Type)
			}
			return o
		}
	}

	in := strategy.Input{
		Node:   b.Def,
		Raw:    b.Raw,
		Strict: e.strict,
	}
	if len(children) > 0 {
		in.Children = make([]strategy.Contribution, len(children))
		for i, c := range children {
			in.Children[i] = strategy.Contribution{
				Type:    c.Type,
				Weight:  b.Children[i].Weight,
				Outcome: c.Outcome,
			}
		}
	}

	o := e.strategies[b.Def.Strategy].Calculate(in)
	if isEmpty(o) {
		return result.Failure("%s: strategy %s returned no outcome", b.Def.Type, b.Def.Strategy)
	}
	return o
}

// isEmpty reports the zero Outcome, which carries neither a score nor a message.
func isEmpty(o result.Outcome) bool {
	return !o.OK() && o.Err() == ""
}
