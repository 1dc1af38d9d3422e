// Package transform post-processes raw leaf values that need a nonlinear,
// domain specific mapping before they count as scores.
//
// Transforms are keyed by the leaf's semantic type and sit underneath
// strategy dispatch: a leaf with a registered transform is scored by the
// transform instead of the identity strategy.
package transform

import (
	"errors"
	"math"
	"slices"
	"sync"

	"github.com/mchmarny/healthscore/pkg/hierarchy"
	"github.com/mchmarny/healthscore/pkg/measurement"
	"github.com/mchmarny/healthscore/pkg/result"
)

const (
	// TechnicalLagType is the leaf type scored by TechnicalLag by default.
	TechnicalLagType = "technical_lag"
	// LibyearType is an alias commonly produced by dependency drift tools.
	LibyearType = "libyear"
)

// Transform scores a leaf from its raw measurement and definition.
type Transform func(n *hierarchy.Node, raw *measurement.Measurement) result.Outcome

// Registry maps leaf types to transforms. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	list map[string]Transform
}

// NewRegistry returns a registry with the technical lag transform bound to
// the default lag types.
func NewRegistry() *Registry {
	return &Registry{
		list: map[string]Transform{
			TechnicalLagType: TechnicalLag,
			LibyearType:      TechnicalLag,
		},
	}
}

// Register binds typeID to t, replacing any previous binding.
func (r *Registry) Register(typeID string, t Transform) error {
	if typeID == "" || t == nil {
		return errors.New("transform type and implementation are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list[typeID] = t
	return nil
}

// Lookup returns the transform for typeID, if any.
func (r *Registry) Lookup(typeID string) (Transform, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.list[typeID]
	return t, ok
}

// Types returns the bound types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]string, 0, len(r.list))
	for k := range r.list {
		list = append(list, k)
	}
	slices.Sort(list)
	return list
}

// TechnicalLag maps how far a dependency has drifted to a 0-100 score using
// the largest configured threshold t: 100 up to t, 0 beyond 2t, linear in
// between.
func TechnicalLag(n *hierarchy.Node, raw *measurement.Measurement) result.Outcome {
	if raw == nil {
		return result.Failure("missing value for %s", n.Type)
	}

	t, ok := n.MaxThreshold()
	if !ok {
		return result.Failure("no thresholds configured for %s", n.Type)
	}

	return LagScore(raw.Score, t.Value)
}

// LagScore is the technical lag curve for a single threshold.
func LagScore(lag, threshold int) result.Outcome {
	if lag < 0 {
		return result.Failure("invalid technical lag %d: must not be negative", lag)
	}
	if threshold <= 0 {
		// with t <= 0 the curve degenerates to a step at zero lag
		if lag == 0 {
			return result.Success(result.MaxScore)
		}
		return result.Success(result.MinScore)
	}

	switch {
	case lag <= threshold:
		return result.Success(result.MaxScore)
	case lag-threshold > threshold:
		return result.Success(result.MinScore)
	default:
		ratio := float64(lag-threshold) / float64(threshold)
		return result.Success(int(math.Round((1 - ratio) * 100)))
	}
}
