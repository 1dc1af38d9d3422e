package strategy

import (
	"math"

	"github.com/mchmarny/healthscore/pkg/result"
)

type weighted struct {
	weight float64
	score  int
}

// live applies the strict/lenient contract shared by all aggregations and
// returns the children that take part in the calculation. A non-nil outcome
// means the aggregation cannot proceed.
func live(in Input) ([]weighted, *result.Outcome) {
	if len(in.Children) == 0 {
		o := result.Failure("%s: no children to aggregate", in.Node.Type)
		return nil, &o
	}

	list := make([]weighted, 0, len(in.Children))
	failed := 0
	for _, c := range in.Children {
		score, ok := c.Outcome.Score()
		if !ok {
			if in.Strict {
				o := result.Failure("%s (via %s)", c.Outcome.Err(), in.Node.Type)
				return nil, &o
			}
			failed++
			continue
		}
		if c.Weight > 0 {
			list = append(list, weighted{weight: c.Weight, score: score})
		}
	}

	if failed == len(in.Children) {
		o := result.Failure("%s: all %d children failed", in.Node.Type, failed)
		return nil, &o
	}

	if len(list) == 0 {
		o := result.Failure("%s: zero total weight", in.Node.Type)
		return nil, &o
	}

	return list, nil
}

func round(v float64) int {
	return result.Clamp(int(math.Round(v)))
}

// WeightedAverageOf is the weight normalized mean of the live children.
func WeightedAverageOf(in Input) result.Outcome {
	list, fail := live(in)
	if fail != nil {
		return *fail
	}
	var sum, total float64
	for _, w := range list {
		sum += w.weight * float64(w.score)
		total += w.weight
	}
	return result.Success(round(sum / total))
}

// WeightedSumOf adds weight*score of the live children without
// normalization; weights are absolute shares.
func WeightedSumOf(in Input) result.Outcome {
	list, fail := live(in)
	if fail != nil {
		return *fail
	}
	var sum float64
	for _, w := range list {
		sum += w.weight * float64(w.score)
	}
	return result.Success(round(sum))
}

// MinimumOf is the lowest score among live children with positive weight.
func MinimumOf(in Input) result.Outcome {
	list, fail := live(in)
	if fail != nil {
		return *fail
	}
	m := list[0].score
	for _, w := range list[1:] {
		m = min(m, w.score)
	}
	return result.Success(m)
}

// MaximumOf is the highest score among live children with positive weight.
func MaximumOf(in Input) result.Outcome {
	list, fail := live(in)
	if fail != nil {
		return *fail
	}
	m := list[0].score
	for _, w := range list[1:] {
		m = max(m, w.score)
	}
	return result.Success(m)
}
