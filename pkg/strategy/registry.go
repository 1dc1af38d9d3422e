package strategy

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mchmarny/healthscore/pkg/hierarchy"
)

// ErrUnknownStrategy is a configuration error: a hierarchy references a
// strategy that was never registered.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Registry resolves strategy identifiers. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	list map[hierarchy.StrategyID]Strategy
}

// NewRegistry returns a registry holding the built-in strategies.
func NewRegistry() *Registry {
	return &Registry{
		list: map[hierarchy.StrategyID]Strategy{
			RawValue:        Func(Identity),
			WeightedAverage: Func(WeightedAverageOf),
			WeightedSum:     Func(WeightedSumOf),
			Minimum:         Func(MinimumOf),
			Maximum:         Func(MaximumOf),
		},
	}
}

// Register adds a custom strategy. Built-ins and previously registered ids
// cannot be replaced.
func (r *Registry) Register(id hierarchy.StrategyID, s Strategy) error {
	if id == "" || s == nil {
		return errors.New("strategy id and implementation are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.list[id]; exists {
		return fmt.Errorf("strategy already registered: %s", id)
	}
	r.list[id] = s
	return nil
}

// Resolve returns the strategy registered under id.
func (r *Registry) Resolve(id hierarchy.StrategyID) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.list[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, id)
	}
	return s, nil
}

// ResolveAll resolves every strategy used by h, failing on the first unknown id.
func (r *Registry) ResolveAll(h *hierarchy.Hierarchy) (map[hierarchy.StrategyID]Strategy, error) {
	m := make(map[hierarchy.StrategyID]Strategy)
	for _, id := range h.Strategies() {
		s, err := r.Resolve(id)
		if err != nil {
			return nil, err
		}
		m[id] = s
	}
	return m, nil
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []hierarchy.StrategyID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]hierarchy.StrategyID, 0, len(r.list))
	for id := range r.list {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
