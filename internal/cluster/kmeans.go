// Package cluster partitions small sets of feature vectors with k-means and
// picks k from the inertia curve.
package cluster

import (
	"math"
	"math/rand"
)

// DefaultMaxIter bounds the assign/update loop when Options.MaxIter is unset.
const DefaultMaxIter = 50

// Options configures a single k-means run.
type Options struct {
	MaxIter int
}

// Result is the outcome of one k-means run.
type Result struct {
	K           int         `json:"k"`
	Centroids   [][]float64 `json:"centroids"`
	Assignments []int       `json:"assignments"`
	Inertia     float64     `json:"inertia"`
	Iterations  int         `json:"iterations"`
	Converged   bool        `json:"converged"`
}

// KMeans clusters points into k groups. k is clamped to [1, len(points)].
// Initial centroids are k distinct points drawn with rng; rng must not be nil.
//
// Each iteration assigns every point to its nearest centroid (ties go to the
// lower index) and moves each centroid to the mean of its members. A centroid
// left without members is re-seeded to a random point. The loop stops once
// no assignment changes or after MaxIter iterations; in the latter case the
// points are assigned once more against the final centroids.
func KMeans(points [][]float64, k int, opts Options, rng *rand.Rand) Result {
	if rng == nil {
		panic("cluster: nil random source")
	}
	n := len(points)
	if n == 0 {
		return Result{Centroids: [][]float64{}, Assignments: []int{}, Converged: true}
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}

	centroids := make([][]float64, k)
	for c, idx := range rng.Perm(n)[:k] {
		centroids[c] = clone(points[idx])
	}

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}

	res := Result{K: k}
	for iter := 0; iter < maxIter; iter++ {
		res.Iterations = iter + 1

		changed := false
		for i, p := range points {
			c := nearest(p, centroids)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed {
			res.Converged = true
			break
		}

		update(points, assign, centroids, rng)
	}
	if !res.Converged {
		// The last update moved the centroids; re-assign so every point
		// belongs to its nearest returned centroid.
		for i, p := range points {
			assign[i] = nearest(p, centroids)
		}
	}

	res.Centroids = centroids
	res.Assignments = assign
	res.Inertia = Inertia(points, assign, centroids)
	return res
}

// Inertia sums the squared distance from each point to its assigned centroid.
func Inertia(points [][]float64, assign []int, centroids [][]float64) float64 {
	var total float64
	for i, p := range points {
		total += sqDist(p, centroids[assign[i]])
	}
	return total
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centroids {
		if d := sqDist(p, ctr); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func update(points [][]float64, assign []int, centroids [][]float64, rng *rand.Rand) {
	dim := len(points[0])
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, p := range points {
		c := assign[i]
		counts[c]++
		for d, v := range p {
			sums[c][d] += v
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			centroids[c] = clone(points[rng.Intn(len(points))])
			continue
		}
		for d := range sums[c] {
			sums[c][d] /= float64(counts[c])
		}
		centroids[c] = sums[c]
	}
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(p []float64) []float64 {
	return append([]float64(nil), p...)
}
