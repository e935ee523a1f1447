// Package pipeline chains scoring, weighting, clustering, Pareto filtering and
// recommendation into one deterministic run over a batch of records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/MikeSquared-Agency/Evergreen/internal/cluster"
	"github.com/MikeSquared-Agency/Evergreen/internal/scoring"
	"github.com/MikeSquared-Agency/Evergreen/internal/store"
)

// Options selects every configurable behaviour of a run. The zero value is
// usable: all three policy indicators, normalized SIS basis, default cluster
// features, elbow-chosen k, pairwise Pareto and ranked recommendations.
type Options struct {
	Indicators []scoring.Indicator
	Basis      scoring.Basis
	Features   []scoring.Feature
	// K fixes the cluster count; 0 takes the elbow's best k.
	K         int
	Elbow     cluster.ElbowOptions
	Pareto    scoring.ParetoAlgorithm
	Recommend scoring.RecommendOptions
}

// Validate rejects enum values the core would panic on.
func (o Options) Validate() error {
	var errs []error
	for _, ind := range o.Indicators {
		if _, err := scoring.ParseIndicator(string(ind)); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := scoring.ParseBasis(string(o.Basis)); err != nil {
		errs = append(errs, err)
	}
	for _, f := range o.Features {
		if _, err := scoring.ParseFeature(string(f)); err != nil {
			errs = append(errs, err)
		}
	}
	if o.K < 0 {
		errs = append(errs, fmt.Errorf("cluster k must not be negative, got %d", o.K))
	}
	if _, err := cluster.ParseStrategy(string(o.Elbow.Strategy)); err != nil {
		errs = append(errs, err)
	}
	if _, err := scoring.ParseParetoAlgorithm(string(o.Pareto)); err != nil {
		errs = append(errs, err)
	}
	if _, err := scoring.ParseMode(string(o.Recommend.Mode)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Result is everything a run produces.
type Result struct {
	Records         []scoring.ScoredRecord      `json:"records"`
	Weights         scoring.Weights             `json:"weights"`
	Categories      []scoring.CategoryAggregate `json:"categories"`
	Elbow           cluster.ElbowResult         `json:"elbow"`
	Clustering      cluster.Result              `json:"clustering"`
	Pareto          []bool                      `json:"pareto"`
	Recommendations scoring.RecommendationSet   `json:"recommendations"`
	Duration        time.Duration               `json:"duration_ns"`
}

// Pipeline runs the full scoring chain with fixed options.
type Pipeline struct {
	opts   Options
	scorer *scoring.Scorer
	logger *slog.Logger
}

// New validates opts and builds a Pipeline.
func New(opts Options, logger *slog.Logger) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline options: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Basis == "" {
		opts.Basis = scoring.BasisNormalized
	}
	if len(opts.Features) == 0 {
		opts.Features = scoring.DefaultFeatures()
	}
	if opts.Pareto == "" {
		opts.Pareto = scoring.ParetoPairwise
	}
	return &Pipeline{
		opts:   opts,
		scorer: scoring.NewScorer(opts.Indicators, logger),
		logger: logger,
	}, nil
}

// Options returns the effective options after defaults were applied.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run scores records and derives clusters, Pareto flags and recommendations.
// records are not modified. The outcome depends only on records, the options
// and the state of rng; ctx is checked between stages so a superseded run
// stops early.
func (p *Pipeline) Run(ctx context.Context, records []store.Record, rng *rand.Rand) (*Result, error) {
	if rng == nil {
		panic("pipeline: nil random source")
	}
	start := time.Now()

	// Drawn up front so the clustering stage sees the same seeds whether or
	// not K is fixed.
	elbowSeed, kmeansSeed := rng.Int63(), rng.Int63()

	scored := p.scorer.Score(records)

	env, policy := scoring.SubScores(scored, scoring.BasisNormalized)
	weights := scoring.EntropyWeights(env, policy)
	scoring.ApplySIS(scored, weights, p.opts.Basis)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aggs := scoring.AggregateByCategory(scored)
	points := scoring.FeatureVectors(aggs, p.opts.Features)

	elbow := cluster.Elbow(points, p.opts.Elbow, rand.New(rand.NewSource(elbowSeed)))
	clustering := elbow.Best()
	if p.opts.K > 0 && len(points) > 0 {
		clustering = cluster.KMeans(points, p.opts.K, cluster.Options{MaxIter: p.opts.Elbow.MaxIter},
			rand.New(rand.NewSource(kmeansSeed)))
	}
	for i := range aggs {
		aggs[i].Cluster = clustering.Assignments[i]
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flags := p.opts.Pareto.Flags(scoring.Candidates(scored))
	recs := scoring.Recommend(scored, flags, p.opts.Recommend)

	res := &Result{
		Records:         scored,
		Weights:         weights,
		Categories:      aggs,
		Elbow:           elbow,
		Clustering:      clustering,
		Pareto:          flags,
		Recommendations: recs,
		Duration:        time.Since(start),
	}
	p.logger.Debug("pipeline run finished",
		"records", len(records),
		"categories", len(aggs),
		"k", clustering.K,
		"pareto", countTrue(flags),
		"duration", res.Duration,
	)
	return res, nil
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
