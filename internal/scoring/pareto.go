package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// ParetoCandidate is a record reduced to the two objectives.
type ParetoCandidate struct {
	Index int     `json:"index"`
	SIS   float64 `json:"sis"`   // higher is better
	Price float64 `json:"price"` // lower is better
}

// Candidates projects scored records onto (SIS, normalized price). Missing
// prices sit at the neutral 0.5; finite prices keep their order.
func Candidates(records []ScoredRecord) []ParetoCandidate {
	out := make([]ParetoCandidate, len(records))
	for i, r := range records {
		out[i] = ParetoCandidate{Index: i, SIS: r.SIS, Price: r.PriceNorm}
	}
	return out
}

// ParetoAlgorithm selects how non-dominated records are flagged.
type ParetoAlgorithm string

const (
	// ParetoPairwise is the exact O(n^2) dominance check.
	ParetoPairwise ParetoAlgorithm = "pairwise"
	// ParetoSweep is the O(n log n) price-sorted running-max approximation.
	ParetoSweep ParetoAlgorithm = "sweep"
)

// ParseParetoAlgorithm validates a configured algorithm name.
func ParseParetoAlgorithm(s string) (ParetoAlgorithm, error) {
	switch a := ParetoAlgorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case ParetoPairwise, ParetoSweep:
		return a, nil
	case "":
		return ParetoPairwise, nil
	default:
		return "", fmt.Errorf("unknown pareto algorithm %q", s)
	}
}

// Flags runs the selected algorithm.
func (a ParetoAlgorithm) Flags(candidates []ParetoCandidate) []bool {
	switch a {
	case ParetoSweep:
		return SweepFlags(candidates)
	case ParetoPairwise, "":
		return ParetoFlags(candidates)
	default:
		panic(fmt.Sprintf("scoring: unknown pareto algorithm %q", a))
	}
}

// ParetoFlags marks every candidate that no other candidate dominates.
// O(n^2) dominance check.
func ParetoFlags(candidates []ParetoCandidate) []bool {
	flags := make([]bool, len(candidates))
	for i := range candidates {
		dominated := false
		for j := range candidates {
			if i == j {
				continue
			}
			if dominates(candidates[j], candidates[i]) {
				dominated = true
				break
			}
		}
		flags[i] = !dominated
	}
	return flags
}

// ComputeFrontier returns the Pareto-optimal candidates in input order.
func ComputeFrontier(candidates []ParetoCandidate) []ParetoCandidate {
	var frontier []ParetoCandidate
	for i, ok := range ParetoFlags(candidates) {
		if ok {
			frontier = append(frontier, candidates[i])
		}
	}
	return frontier
}

// SweepFlags visits candidates by ascending price (higher SIS first on equal
// price) and flags each one whose SIS beats every cheaper candidate. It is
// a single-objective approximation: of several candidates sharing both
// price and SIS only the first in input order is flagged.
func SweepFlags(candidates []ParetoCandidate) []bool {
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := candidates[order[a]], candidates[order[b]]
		if ca.Price != cb.Price {
			return ca.Price < cb.Price
		}
		return ca.SIS > cb.SIS
	})

	flags := make([]bool, len(candidates))
	first := true
	var best float64
	for _, i := range order {
		if first || candidates[i].SIS > best {
			flags[i] = true
			best = candidates[i].SIS
			first = false
		}
	}
	return flags
}

// dominates returns true if a dominates b: at least as good on both
// objectives and strictly better on one.
func dominates(a, b ParetoCandidate) bool {
	if a.SIS < b.SIS || a.Price > b.Price {
		return false
	}
	return a.SIS > b.SIS || a.Price < b.Price
}
