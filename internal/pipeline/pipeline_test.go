package pipeline

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Evergreen/internal/cluster"
	"github.com/MikeSquared-Agency/Evergreen/internal/scoring"
	"github.com/MikeSquared-Agency/Evergreen/internal/store"
)

func f(v float64) *float64 { return &v }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dataset() []store.Record {
	return []store.Record{
		{Category: "Cotton", Brand: "a", Carbon: f(10), Water: f(100), Waste: f(1), Price: f(20), Rating: "A", Recycling: "yes", EcoFlag: "yes"},
		{Category: "Cotton", Brand: "b", Carbon: f(12), Water: f(120), Waste: f(2), Price: f(25), Rating: "B", Recycling: "yes", EcoFlag: "no"},
		{Category: "Polyester", Brand: "c", Carbon: f(40), Water: f(300), Waste: f(8), Price: f(15), Rating: "D", Recycling: "no", EcoFlag: "no"},
		{Category: "Polyester", Brand: "d", Carbon: f(38), Water: f(280), Waste: f(7), Price: f(18), Rating: "C", Recycling: "no", EcoFlag: "yes"},
		{Category: "Hemp", Brand: "e", Carbon: f(5), Water: f(50), Waste: f(1), Price: f(60), Rating: "A", Recycling: "yes", EcoFlag: "yes"},
		{Category: "", Brand: "f", Water: f(200), Waste: f(4), Rating: "", Recycling: "maybe"},
	}
}

func run(t *testing.T, opts Options, records []store.Record, seed int64) *Result {
	t.Helper()
	p, err := New(opts, testLogger())
	require.NoError(t, err)
	res, err := p.Run(context.Background(), records, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	res.Duration = 0
	return res
}

func TestRunProducesEveryOutput(t *testing.T) {
	res := run(t, Options{}, dataset(), 1)

	require.Len(t, res.Records, 6)
	require.Len(t, res.Pareto, 6)
	require.Len(t, res.Weights.Values, 2)
	assert.NoError(t, res.Weights.Validate())

	require.Len(t, res.Categories, 4)
	names := []string{}
	for _, c := range res.Categories {
		names = append(names, c.Category)
		assert.GreaterOrEqual(t, c.Cluster, 0)
		assert.Less(t, c.Cluster, res.Clustering.K)
	}
	assert.Equal(t, []string{"Cotton", "Hemp", "Polyester", scoring.UnknownCategory}, names)

	assert.Equal(t, cluster.StrategyGeometric, res.Elbow.Strategy)
	assert.Len(t, res.Elbow.Curve, 4)
	assert.Equal(t, res.Elbow.BestK, res.Clustering.K)

	for _, r := range res.Records {
		assert.GreaterOrEqual(t, r.SIS, 0.0)
		assert.LessOrEqual(t, r.SIS, 1.0)
	}

	assert.Equal(t, scoring.ModeRanked, res.Recommendations.Mode)
	assert.Len(t, res.Recommendations.Ranked, 6)
}

func TestRunIsDeterministic(t *testing.T) {
	a := run(t, Options{}, dataset(), 42)
	b := run(t, Options{}, dataset(), 42)
	assert.Equal(t, a, b)
}

func TestRunCategoriesIgnoreInputOrder(t *testing.T) {
	recs := dataset()
	reversed := make([]store.Record, len(recs))
	for i, r := range recs {
		reversed[len(recs)-1-i] = r
	}

	a := run(t, Options{}, recs, 3)
	b := run(t, Options{}, reversed, 3)
	require.Len(t, b.Categories, len(a.Categories))
	for i := range a.Categories {
		assert.Equal(t, a.Categories[i].Category, b.Categories[i].Category)
		assert.Equal(t, a.Categories[i].Count, b.Categories[i].Count)
		assert.InDelta(t, a.Categories[i].SIS, b.Categories[i].SIS, 1e-12)
	}
}

func TestRunDoesNotModifyInput(t *testing.T) {
	recs := dataset()
	before := dataset()
	run(t, Options{}, recs, 5)
	assert.Equal(t, before, recs)
}

func TestRunFixedK(t *testing.T) {
	res := run(t, Options{K: 2}, dataset(), 9)
	assert.Equal(t, 2, res.Clustering.K)
	assert.Len(t, res.Clustering.Assignments, 4)

	clamped := run(t, Options{K: 50}, dataset(), 9)
	assert.Equal(t, 4, clamped.Clustering.K)
}

func TestRunEmpty(t *testing.T) {
	res := run(t, Options{Recommend: scoring.RecommendOptions{Mode: scoring.ModeCategorized}}, nil, 1)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Categories)
	assert.Empty(t, res.Pareto)
	assert.Empty(t, res.Elbow.Curve)
	assert.Empty(t, res.Recommendations.MaxSustainability)
	assert.Equal(t, []float64{0.5, 0.5}, res.Weights.Values)
}

func TestRunModes(t *testing.T) {
	cat := run(t, Options{Recommend: scoring.RecommendOptions{Mode: scoring.ModeCategorized, Priority: 0.7, TopN: 2}}, dataset(), 1)
	assert.NotEmpty(t, cat.Recommendations.MaxSustainability)
	assert.LessOrEqual(t, len(cat.Recommendations.BestValue), 2)
	for _, r := range cat.Recommendations.Balanced {
		assert.True(t, r.IsPareto)
	}

	first := run(t, Options{Pareto: scoring.ParetoSweep, Recommend: scoring.RecommendOptions{Mode: scoring.ModeParetoFirst}}, dataset(), 1)
	seenRest := false
	for _, r := range first.Recommendations.Ranked {
		if !r.IsPareto {
			seenRest = true
		} else {
			assert.False(t, seenRest, "pareto records must come first")
		}
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	p, err := New(Options{}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, dataset(), rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsUnknownEnums(t *testing.T) {
	_, err := New(Options{
		Indicators: []scoring.Indicator{"price"},
		Basis:      "log",
		Elbow:      cluster.ElbowOptions{Strategy: "gap"},
		Recommend:  scoring.RecommendOptions{Mode: "random"},
	}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log")
	assert.Contains(t, err.Error(), "gap")
	assert.Contains(t, err.Error(), "random")
}

func TestNewAppliesDefaults(t *testing.T) {
	p, err := New(Options{}, nil)
	require.NoError(t, err)
	opts := p.Options()
	assert.Equal(t, scoring.BasisNormalized, opts.Basis)
	assert.Equal(t, scoring.DefaultFeatures(), opts.Features)
	assert.Equal(t, scoring.ParetoPairwise, opts.Pareto)
}
