package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mchmarny/healthscore/pkg/doc"
	"github.com/mchmarny/healthscore/pkg/hierarchy"
	"github.com/mchmarny/healthscore/pkg/measurement"
	"github.com/mchmarny/healthscore/pkg/result"
	"github.com/mchmarny/healthscore/pkg/strategy"
	"github.com/mchmarny/healthscore/pkg/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHierarchy() *hierarchy.Hierarchy {
	return hierarchy.New(hierarchy.Aggregate("project_health", strategy.WeightedAverage,
		hierarchy.Weighted(3, hierarchy.Aggregate("security", strategy.WeightedAverage,
			hierarchy.Weighted(1, hierarchy.Leaf("signed_commits")),
			hierarchy.Weighted(1, hierarchy.Leaf("secret_scan")),
		)),
		hierarchy.Weighted(1, hierarchy.Leaf(transform.TechnicalLagType,
			hierarchy.Threshold{Label: "days", Value: 10})),
	))
}

func testMeasurements() []*measurement.Measurement {
	return []*measurement.Measurement{
		{Type: "signed_commits", Score: 60, ID: "m-signed", OriginID: "https://github.com/o/r"},
		{Type: "secret_scan", Score: 100, ID: "m-secret"},
		{Type: transform.TechnicalLagType, Score: 15, ID: "m-lag"},
	}
}

func outcomeScore(t *testing.T, o result.Outcome) int {
	t.Helper()
	v, ok := o.Score()
	require.True(t, ok, "expected success, got %s", o)
	return v
}

func TestEvaluate(t *testing.T) {
	res, err := Evaluate(context.Background(), testHierarchy(), testMeasurements(), Options{
		IDs: &measurement.SequenceGenerator{Prefix: "n"},
	})
	require.NoError(t, err)

	// security = (60+100)/2 = 80, lag 15 over 10 = 50, root = (3*80+50)/4 = 72.5
	assert.Equal(t, 73, outcomeScore(t, res.Score()))
	assert.Equal(t, hierarchy.LatestVersion, res.Version)
	assert.False(t, res.Strict)

	sec := res.Find("security")
	require.Len(t, sec, 1)
	assert.Equal(t, 80, outcomeScore(t, sec[0].Outcome))

	lag := res.Find(transform.TechnicalLagType)
	require.Len(t, lag, 1)
	assert.Equal(t, 50, outcomeScore(t, lag[0].Outcome))
	assert.Equal(t, "m-lag", lag[0].ID)
	assert.Equal(t, []hierarchy.Threshold{{Label: "days", Value: 10}}, lag[0].Thresholds)

	signed := res.Find("signed_commits")[0]
	assert.Equal(t, "m-signed", signed.ID)
	assert.Equal(t, "https://github.com/o/r", signed.OriginID)

	assert.Equal(t, "n-1", sec[0].ID)
	assert.Equal(t, "n-2", res.Root.ID)
	assert.Empty(t, res.Errors())
}

func TestEvaluate_LeafIdentity(t *testing.T) {
	h := hierarchy.New(hierarchy.Leaf("X"))

	res, err := Evaluate(context.Background(), h, []*measurement.Measurement{{Type: "X", Score: 73}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 73, outcomeScore(t, res.Score()))

	res, err = Evaluate(context.Background(), h, nil, Options{})
	require.NoError(t, err)
	assert.False(t, res.Score().OK())
	assert.Equal(t, "missing value for X", res.Score().Err())
}

func TestEvaluate_StrictVsLenient(t *testing.T) {
	h := hierarchy.New(hierarchy.Aggregate("root", strategy.WeightedAverage,
		hierarchy.Weighted(1, hierarchy.Leaf("present")),
		hierarchy.Weighted(4, hierarchy.Leaf("absent")),
	))
	list := []*measurement.Measurement{{Type: "present", Score: 40}}

	res, err := Evaluate(context.Background(), h, list, Options{Strict: true})
	require.NoError(t, err)
	assert.True(t, res.Strict)
	assert.False(t, res.Score().OK())
	assert.Contains(t, res.Score().Err(), "missing value for absent")

	res, err = Evaluate(context.Background(), h, list, Options{})
	require.NoError(t, err)
	assert.Equal(t, 40, outcomeScore(t, res.Score()))
	require.Len(t, res.Errors(), 1)
	assert.Equal(t, []string{"root", "absent"}, res.Errors()[0].Path)

	res, err = Evaluate(context.Background(), h, nil, Options{})
	require.NoError(t, err)
	assert.False(t, res.Score().OK())
}

func TestEvaluate_ZeroTotalWeight(t *testing.T) {
	h := hierarchy.New(hierarchy.Aggregate("root", strategy.WeightedAverage,
		hierarchy.Weighted(0, hierarchy.Leaf("a")),
		hierarchy.Weighted(0, hierarchy.Leaf("b")),
	))
	list := []*measurement.Measurement{{Type: "a", Score: 10}, {Type: "b", Score: 20}}

	res, err := Evaluate(context.Background(), h, list, Options{})
	require.NoError(t, err)
	assert.False(t, res.Score().OK())
	assert.Contains(t, res.Score().Err(), "zero total weight")
}

func TestEvaluate_TransformErrorsStayLocal(t *testing.T) {
	h := testHierarchy()
	list := testMeasurements()
	list[2].Score = -1

	res, err := Evaluate(context.Background(), h, list, Options{})
	require.NoError(t, err)
	lag := res.Find(transform.TechnicalLagType)[0]
	assert.False(t, lag.Outcome.OK())
	assert.Contains(t, lag.Outcome.Err(), "negative")
	// lenient root uses security only
	assert.Equal(t, 80, outcomeScore(t, res.Score()))
}

func TestEvaluate_TransformWithoutThresholds(t *testing.T) {
	h := hierarchy.New(hierarchy.Leaf(transform.TechnicalLagType))
	res, err := Evaluate(context.Background(), h, []*measurement.Measurement{{Type: transform.TechnicalLagType, Score: 1}}, Options{})
	require.NoError(t, err)
	assert.Contains(t, res.Score().Err(), "no thresholds")
}

func TestEvaluate_CustomTransform(t *testing.T) {
	tr := transform.NewRegistry()
	require.NoError(t, tr.Register("open_vulnerabilities", func(n *hierarchy.Node, raw *measurement.Measurement) result.Outcome {
		if raw == nil {
			return result.Failure("missing value for %s", n.Type)
		}
		return result.Success(100 - raw.Score*10)
	}))

	h := hierarchy.New(hierarchy.Leaf("open_vulnerabilities"))
	res, err := Evaluate(context.Background(), h, []*measurement.Measurement{{Type: "open_vulnerabilities", Score: 3}}, Options{Transforms: tr})
	require.NoError(t, err)
	assert.Equal(t, 70, outcomeScore(t, res.Score()))
}

func TestEvaluate_EmptyOutcome(t *testing.T) {
	reg := strategy.NewRegistry()
	require.NoError(t, reg.Register("noop", strategy.Func(func(strategy.Input) result.Outcome {
		return result.Outcome{}
	})))

	tr := transform.NewRegistry()
	require.NoError(t, tr.Register("silent", func(*hierarchy.Node, *measurement.Measurement) result.Outcome {
		return result.Outcome{}
	}))

	h := hierarchy.New(hierarchy.Aggregate("root", "noop",
		hierarchy.Weighted(1, hierarchy.Leaf("silent")),
	))
	list := []*measurement.Measurement{{Type: "silent", Score: 5}}

	res, err := Evaluate(context.Background(), h, list, Options{Strategies: reg, Transforms: tr})
	require.NoError(t, err)
	assert.Equal(t, "root: strategy noop returned no outcome", res.Score().Err())
	assert.Equal(t, "silent: transform returned no outcome", res.Find("silent")[0].Outcome.Err())

	b, err := result.Marshal(res, doc.FormatJSON)
	require.NoError(t, err)
	back, err := result.Parse(b)
	require.NoError(t, err)
	assert.Equal(t, res.Score().Err(), back.Score().Err())
}

func TestEvaluate_ConfigErrors(t *testing.T) {
	h := testHierarchy()
	h.Root.Strategy = "geometric_mean"
	_, err := Evaluate(context.Background(), h, testMeasurements(), Options{})
	assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)

	_, err = Evaluate(context.Background(), &hierarchy.Hierarchy{Version: "0.0", Root: hierarchy.Leaf("x")}, nil, Options{})
	assert.ErrorIs(t, err, hierarchy.ErrUnsupportedVersion)

	_, err = Evaluate(context.Background(), nil, nil, Options{})
	assert.ErrorIs(t, err, hierarchy.ErrInvalid)

	dupes := append(testMeasurements(), &measurement.Measurement{Type: "secret_scan", Score: 1})
	_, err = Evaluate(context.Background(), testHierarchy(), dupes, Options{Duplicates: measurement.RejectDuplicates})
	assert.ErrorIs(t, err, measurement.ErrInvalid)
}

func TestEvaluate_DuplicatePolicy(t *testing.T) {
	h := hierarchy.New(hierarchy.Leaf("x"))
	list := []*measurement.Measurement{{Type: "x", Score: 10}, {Type: "x", Score: 90}}

	res, err := Evaluate(context.Background(), h, list, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, outcomeScore(t, res.Score()))

	res, err = Evaluate(context.Background(), h, list, Options{Duplicates: measurement.LastWins})
	require.NoError(t, err)
	assert.Equal(t, 90, outcomeScore(t, res.Score()))
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	list := []*measurement.Measurement{{Type: "signed_commits", Score: 50}}
	_, err := Evaluate(context.Background(), testHierarchy(), list, Options{})
	require.NoError(t, err)
	assert.Empty(t, list[0].ID)
}

func TestEvaluate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Evaluate(ctx, testHierarchy(), testMeasurements(), Options{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Evaluate(ctx, testHierarchy(), testMeasurements(), Options{Parallel: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluate_SharedSubtree(t *testing.T) {
	shared := hierarchy.Aggregate("shared", strategy.Minimum,
		hierarchy.Weighted(1, hierarchy.Leaf("a")),
		hierarchy.Weighted(1, hierarchy.Leaf("b")),
	)
	h := hierarchy.New(hierarchy.Aggregate("root", strategy.Maximum,
		hierarchy.Weighted(1, shared),
		hierarchy.Weighted(1, hierarchy.Aggregate("wrap", strategy.WeightedSum, hierarchy.Weighted(0.5, shared))),
	))
	list := []*measurement.Measurement{{Type: "a", Score: 80}, {Type: "b", Score: 60}}

	res, err := Evaluate(context.Background(), h, list, Options{})
	require.NoError(t, err)
	assert.Equal(t, h.Shape(), res.Shape())
	assert.Equal(t, 60, outcomeScore(t, res.Score()))
	assert.Len(t, res.Find("shared"), 2)
}

func TestEvaluate_TypeWhitespace(t *testing.T) {
	h := hierarchy.New(hierarchy.Aggregate("root", strategy.WeightedAverage,
		hierarchy.Weighted(1, hierarchy.Leaf(" signed_commits ")),
		hierarchy.Weighted(1, hierarchy.Leaf(" technical_lag", hierarchy.Threshold{Label: "days", Value: 10})),
	))
	list := []*measurement.Measurement{
		{Type: "signed_commits\t", Score: 60},
		{Type: transform.TechnicalLagType, Score: 15},
	}

	res, err := Evaluate(context.Background(), h, list, Options{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 60, outcomeScore(t, res.Find(" signed_commits ")[0].Outcome))
	assert.Equal(t, 50, outcomeScore(t, res.Find(" technical_lag")[0].Outcome))
	assert.Equal(t, 55, outcomeScore(t, res.Score()))
}

func TestBind(t *testing.T) {
	set, err := measurement.NewSet(testMeasurements()[:1], measurement.FirstWins)
	require.NoError(t, err)

	b := Bind(testHierarchy().Root, set)
	require.Len(t, b.Children, 2)
	assert.InDelta(t, 3.0, b.Children[0].Weight, 0.0001)
	sec := b.Children[0].Node
	require.NotNil(t, sec.Children[0].Node.Raw)
	assert.Equal(t, "m-signed", sec.Children[0].Node.Raw.ID)
	assert.Nil(t, sec.Raw)
	assert.Equal(t, []string{"secret_scan", transform.TechnicalLagType}, b.Unresolved())

	assert.Nil(t, Bind(nil, set))
}

// randomTree builds a random valid hierarchy and a matching (partial) set of
// measurements.
func randomTree(r *rand.Rand) (*hierarchy.Hierarchy, []*measurement.Measurement) {
	strategies := []hierarchy.StrategyID{strategy.WeightedAverage, strategy.WeightedSum, strategy.Minimum, strategy.Maximum}
	list := make([]*measurement.Measurement, 0)
	leaves := 0

	var build func(depth int) *hierarchy.Node
	build = func(depth int) *hierarchy.Node {
		if depth > 3 || r.IntN(3) == 0 {
			leaves++
			typ := fmt.Sprintf("leaf_%d", leaves)
			if r.IntN(4) != 0 {
				list = append(list, &measurement.Measurement{Type: typ, Score: r.IntN(140) - 20, ID: typ})
			}
			return hierarchy.Leaf(typ)
		}
		n := hierarchy.Aggregate(fmt.Sprintf("node_%d_%d", depth, r.IntN(1000)), strategies[r.IntN(len(strategies))])
		for range 1 + r.IntN(4) {
			n.Edges = append(n.Edges, hierarchy.Weighted(float64(r.IntN(4)), build(depth+1)))
		}
		return n
	}

	return hierarchy.New(build(0)), list
}

func TestEvaluate_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	ignoreIDs := cmpopts.IgnoreFields(result.Node{}, "ID")

	for i := 0; i < 200; i++ {
		h, list := randomTree(r)
		for _, strict := range []bool{false, true} {
			seq, err := Evaluate(context.Background(), h, list, Options{Strict: strict})
			require.NoError(t, err)
			par, err := Evaluate(context.Background(), h, list, Options{Strict: strict, Parallel: true})
			require.NoError(t, err)

			// structure mirrors the definition
			assert.Equal(t, h.Shape(), seq.Shape())

			// outcomes do not depend on traversal order
			if diff := cmp.Diff(seq, par, ignoreIDs, cmp.AllowUnexported(result.Outcome{})); diff != "" {
				t.Fatalf("sequential and parallel results differ (-seq +par):\n%s", diff)
			}

			seq.Walk(func(path []string, n *result.Node) {
				if v, ok := n.Outcome.Score(); ok {
					assert.GreaterOrEqual(t, v, result.MinScore, "%v", path)
					assert.LessOrEqual(t, v, result.MaxScore, "%v", path)
				}
			})
		}
	}
}
