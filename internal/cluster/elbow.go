package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxK          = 10
	DefaultTrials        = 3
	DefaultRateThreshold = 0.1
)

// Strategy selects how the elbow sweep picks k from the inertia curve.
type Strategy string

const (
	// StrategyGeometric picks the curve point farthest from the chord joining
	// the first and last points.
	StrategyGeometric Strategy = "geometric"
	// StrategyRate picks the first k after which adding a cluster reduces
	// inertia by less than RateThreshold (relative).
	StrategyRate Strategy = "rate"
	// StrategyFixed ignores the curve and uses FixedK.
	StrategyFixed Strategy = "fixed"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyGeometric, StrategyRate, StrategyFixed:
		return st, nil
	case "":
		return StrategyGeometric, nil
	default:
		return "", fmt.Errorf("unknown elbow strategy %q", s)
	}
}

// ElbowOptions configures the k sweep.
type ElbowOptions struct {
	MaxK          int
	Trials        int
	MaxIter       int
	Strategy      Strategy
	RateThreshold float64
	FixedK        int
}

// CurvePoint is one (k, inertia) sample.
type CurvePoint struct {
	K       int     `json:"k"`
	Inertia float64 `json:"inertia"`
}

// ElbowResult is the inertia curve and the chosen k. Runs holds the best
// run for each k, indexed by k-1.
type ElbowResult struct {
	BestK    int          `json:"best_k"`
	Strategy Strategy     `json:"strategy"`
	Curve    []CurvePoint `json:"curve"`
	Runs     []Result     `json:"-"`
}

// Best returns the run for BestK.
func (e ElbowResult) Best() Result {
	if e.BestK < 1 || e.BestK > len(e.Runs) {
		return Result{Centroids: [][]float64{}, Assignments: []int{}, Converged: true}
	}
	return e.Runs[e.BestK-1]
}

// Elbow runs k-means for k = 1..min(MaxK, len(points)), keeping the lowest
// inertia of Trials restarts per k, then applies the configured strategy.
// One seed per k is drawn from rng up front so the k values can run
// concurrently and still reproduce for a fixed seed.
func Elbow(points [][]float64, opts ElbowOptions, rng *rand.Rand) ElbowResult {
	if rng == nil {
		panic("cluster: nil random source")
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyGeometric
	}
	maxK := opts.MaxK
	if maxK <= 0 {
		maxK = DefaultMaxK
	}
	if maxK > len(points) {
		maxK = len(points)
	}
	trials := opts.Trials
	if trials <= 0 {
		trials = DefaultTrials
	}

	res := ElbowResult{Strategy: strategy, Curve: []CurvePoint{}}
	if maxK == 0 {
		return res
	}

	seeds := make([]int64, maxK)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	runs := make([]Result, maxK)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := 1; k <= maxK; k++ {
		g.Go(func() error {
			local := rand.New(rand.NewSource(seeds[k-1]))
			var best Result
			for t := 0; t < trials; t++ {
				r := KMeans(points, k, Options{MaxIter: opts.MaxIter}, local)
				if t == 0 || r.Inertia < best.Inertia {
					best = r
				}
			}
			runs[k-1] = best
			return nil
		})
	}
	_ = g.Wait()

	res.Runs = runs
	res.Curve = make([]CurvePoint, maxK)
	for i, r := range runs {
		res.Curve[i] = CurvePoint{K: i + 1, Inertia: r.Inertia}
	}

	switch strategy {
	case StrategyGeometric:
		res.BestK = GeometricKnee(res.Curve)
	case StrategyRate:
		threshold := opts.RateThreshold
		if threshold <= 0 {
			threshold = DefaultRateThreshold
		}
		res.BestK = RateKnee(res.Curve, threshold)
	case StrategyFixed:
		res.BestK = clampK(opts.FixedK, maxK)
	default:
		panic(fmt.Sprintf("cluster: unknown elbow strategy %q", strategy))
	}
	return res
}

// GeometricKnee returns the k whose point lies farthest from the line through
// the first and last curve points. Ties go to the lowest k, so a straight
// curve or one shorter than three points yields the first k.
func GeometricKnee(curve []CurvePoint) int {
	if len(curve) == 0 {
		return 0
	}
	first, last := curve[0], curve[len(curve)-1]
	x1, y1 := float64(first.K), first.Inertia
	x2, y2 := float64(last.K), last.Inertia
	norm := math.Hypot(y2-y1, x2-x1)

	best, bestD := first.K, 0.0
	if norm == 0 {
		return best
	}
	for _, p := range curve {
		x0, y0 := float64(p.K), p.Inertia
		d := math.Abs((y2-y1)*x0-(x2-x1)*y0+x2*y1-y2*x1) / norm
		if d > bestD {
			best, bestD = p.K, d
		}
	}
	return best
}

// RateKnee returns the smallest k whose relative inertia drop to the next k
// is below threshold, or the last k when every step drops by more.
func RateKnee(curve []CurvePoint, threshold float64) int {
	if len(curve) == 0 {
		return 0
	}
	for i := 0; i+1 < len(curve); i++ {
		cur := curve[i].Inertia
		drop := 0.0
		if cur > 0 {
			drop = (cur - curve[i+1].Inertia) / cur
		}
		if drop < threshold {
			return curve[i].K
		}
	}
	return curve[len(curve)-1].K
}

func clampK(k, maxK int) int {
	if k < 1 {
		return 1
	}
	if k > maxK {
		return maxK
	}
	return k
}
