// Package strategy maps strategy identifiers to the algorithms that turn a
// node's children (or, for leaves, its measurement) into an outcome.
package strategy

import (
	"github.com/mchmarny/healthscore/pkg/hierarchy"
	"github.com/mchmarny/healthscore/pkg/measurement"
	"github.com/mchmarny/healthscore/pkg/result"
)

const (
	RawValue                             = hierarchy.RawValue
	WeightedAverage hierarchy.StrategyID = "weighted_average"
	WeightedSum     hierarchy.StrategyID = "weighted_sum"
	Minimum         hierarchy.StrategyID = "minimum"
	Maximum         hierarchy.StrategyID = "maximum"
)

// Contribution is one evaluated child as seen by its parent.
type Contribution struct {
	Type    string
	Weight  float64
	Outcome result.Outcome
}

// Input is everything a strategy may look at for a single node.
type Input struct {
	Node     *hierarchy.Node
	Raw      *measurement.Measurement
	Children []Contribution
	Strict   bool
}

// Strategy calculates the outcome of a node. Implementations must be total:
// every failure is reported as an error outcome, never a panic.
type Strategy interface {
	Calculate(in Input) result.Outcome
}

// Func adapts a function to the Strategy interface.
type Func func(in Input) result.Outcome

func (f Func) Calculate(in Input) result.Outcome {
	return f(in)
}

// Identity surfaces the measurement bound to a leaf.
func Identity(in Input) result.Outcome {
	if in.Raw == nil {
		return result.Failure("missing value for %s", in.Node.Type)
	}
	return result.Success(in.Raw.Score)
}
