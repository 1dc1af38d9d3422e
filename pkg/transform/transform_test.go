package transform

import (
	"math"
	"testing"

	"github.com/mchmarny/healthscore/pkg/hierarchy"
	"github.com/mchmarny/healthscore/pkg/measurement"
	"github.com/mchmarny/healthscore/pkg/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lagNode(thresholds ...int) *hierarchy.Node {
	n := hierarchy.Leaf(TechnicalLagType)
	for _, v := range thresholds {
		n.Thresholds = append(n.Thresholds, hierarchy.Threshold{Label: "t", Value: v})
	}
	return n
}

func TestTechnicalLag(t *testing.T) {
	tests := []struct {
		lag  int
		want int
	}{
		{0, 100},
		{10, 100},
		{15, 50},
		{12, 80},
		{19, 10},
		{20, 0},
		{21, 0},
	}

	n := lagNode(10)
	for _, tt := range tests {
		o := TechnicalLag(n, &measurement.Measurement{Type: TechnicalLagType, Score: tt.lag})
		v, ok := o.Score()
		require.True(t, ok, "lag %d: %s", tt.lag, o)
		assert.Equal(t, tt.want, v, "lag %d", tt.lag)
	}
}

func TestTechnicalLag_UsesMaxThreshold(t *testing.T) {
	o := TechnicalLag(lagNode(2, 10, 5), &measurement.Measurement{Score: 15})
	v, ok := o.Score()
	require.True(t, ok)
	assert.Equal(t, 50, v)
}

func TestTechnicalLag_Errors(t *testing.T) {
	o := TechnicalLag(lagNode(10), &measurement.Measurement{Score: -1})
	assert.False(t, o.OK())
	assert.Contains(t, o.Err(), "negative")

	o = TechnicalLag(lagNode(), &measurement.Measurement{Score: 5})
	assert.False(t, o.OK())
	assert.Contains(t, o.Err(), "no thresholds")

	o = TechnicalLag(lagNode(10), nil)
	assert.False(t, o.OK())
	assert.Equal(t, "missing value for technical_lag", o.Err())
}

func TestLagScore_NonPositiveThreshold(t *testing.T) {
	v, _ := LagScore(0, 0).Score()
	assert.Equal(t, 100, v)
	v, _ = LagScore(3, 0).Score()
	assert.Equal(t, 0, v)
}

func TestLagScore_Bounded(t *testing.T) {
	for threshold := 1; threshold <= 20; threshold++ {
		for lag := 0; lag <= 50; lag++ {
			v, ok := LagScore(lag, threshold).Score()
			require.True(t, ok)
			assert.GreaterOrEqual(t, v, result.MinScore)
			assert.LessOrEqual(t, v, result.MaxScore)
		}
	}
}

func TestLagScore_LargeThreshold(t *testing.T) {
	threshold := math.MaxInt/2 + 10

	v, ok := LagScore(threshold+5, threshold).Score()
	require.True(t, ok)
	assert.Equal(t, 100, v)

	v, ok = LagScore(math.MaxInt, threshold).Score()
	require.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{LibyearType, TechnicalLagType}, r.Types())

	_, ok := r.Lookup(TechnicalLagType)
	assert.True(t, ok)
	_, ok = r.Lookup("signed_commits")
	assert.False(t, ok)

	require.NoError(t, r.Register("dependency_drift", TechnicalLag))
	_, ok = r.Lookup("dependency_drift")
	assert.True(t, ok)
	assert.Error(t, r.Register("", nil))

	var nilReg *Registry
	_, ok = nilReg.Lookup(TechnicalLagType)
	assert.False(t, ok)
}
