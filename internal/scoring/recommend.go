package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Mode is the recommendation output shape. A deployment picks exactly one.
type Mode string

const (
	// ModeRanked is a single list ordered by final score.
	ModeRanked Mode = "ranked"
	// ModeParetoFirst lists Pareto-optimal records before the rest, each
	// partition ordered by final score.
	ModeParetoFirst Mode = "pareto_first"
	// ModeCategorized builds three lists from the Pareto-optimal subset.
	ModeCategorized Mode = "categorized"
)

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeRanked, ModeParetoFirst, ModeCategorized:
		return m, nil
	case "":
		return ModeRanked, nil
	default:
		return "", fmt.Errorf("unknown recommendation mode %q", s)
	}
}

// RecommendOptions configures the Recommender.
type RecommendOptions struct {
	Mode Mode
	// Priority weighs SIS against price: 1 ranks by SIS only, 0 by price only.
	Priority float64
	// TopN truncates every list; zero or negative keeps everything.
	TopN int
}

// Recommendation is a scored record ranked within one candidate set.
// PriceNorm is re-normalized over that candidate set.
type Recommendation struct {
	ScoredRecord
	Index        int     `json:"index"`
	PriceNorm    float64 `json:"price_norm"`
	FinalScore   float64 `json:"final_score"`
	IsPareto     bool    `json:"is_pareto"`
	BalanceScore float64 `json:"balance_score,omitempty"`
}

// RecommendationSet holds the lists for the selected mode only.
type RecommendationSet struct {
	Mode              Mode             `json:"mode"`
	Ranked            []Recommendation `json:"ranked,omitempty"`
	MaxSustainability []Recommendation `json:"max_sustainability,omitempty"`
	BestValue         []Recommendation `json:"best_value,omitempty"`
	Balanced          []Recommendation `json:"balanced,omitempty"`
}

// Recommend ranks records according to opts. flags are the Pareto flags for
// records; they may be nil in ranked mode and must match records otherwise.
func Recommend(records []ScoredRecord, flags []bool, opts RecommendOptions) RecommendationSet {
	mode := opts.Mode
	if mode == "" {
		mode = ModeRanked
	}
	if flags != nil && len(flags) != len(records) {
		panic(fmt.Sprintf("scoring: %d pareto flags for %d records", len(flags), len(records)))
	}
	if flags == nil && mode != ModeRanked {
		panic(fmt.Sprintf("scoring: recommendation mode %q needs pareto flags", mode))
	}

	w := clamp(opts.Priority, 0, 1)
	if math.IsNaN(opts.Priority) {
		w = neutral
	}
	set := RecommendationSet{Mode: mode}

	switch mode {
	case ModeRanked:
		recs := candidates(records, flags, allIndices(len(records)), w)
		sortByFinalScore(recs)
		set.Ranked = truncate(recs, opts.TopN)

	case ModeParetoFirst:
		recs := candidates(records, flags, allIndices(len(records)), w)
		var front, rest []Recommendation
		for _, r := range recs {
			if r.IsPareto {
				front = append(front, r)
			} else {
				rest = append(rest, r)
			}
		}
		sortByFinalScore(front)
		sortByFinalScore(rest)
		set.Ranked = truncate(append(front, rest...), opts.TopN)

	case ModeCategorized:
		var idx []int
		for i, ok := range flags {
			if ok {
				idx = append(idx, i)
			}
		}
		recs := candidates(records, flags, idx, w)

		bySIS := append([]Recommendation(nil), recs...)
		sort.SliceStable(bySIS, func(a, b int) bool { return bySIS[a].SIS > bySIS[b].SIS })

		byPrice := append([]Recommendation(nil), recs...)
		sort.SliceStable(byPrice, func(a, b int) bool { return byPrice[a].PriceNorm < byPrice[b].PriceNorm })

		balanced := append([]Recommendation(nil), recs...)
		for i := range balanced {
			balanced[i].BalanceScore = balanceScore(balanced[i].SIS, balanced[i].PriceNorm)
		}
		sort.SliceStable(balanced, func(a, b int) bool { return balanced[a].BalanceScore > balanced[b].BalanceScore })

		set.MaxSustainability = truncate(bySIS, opts.TopN)
		set.BestValue = truncate(byPrice, opts.TopN)
		set.Balanced = truncate(balanced, opts.TopN)

	default:
		panic(fmt.Sprintf("scoring: unknown recommendation mode %q", mode))
	}
	return set
}

func candidates(records []ScoredRecord, flags []bool, idx []int, w float64) []Recommendation {
	prices := make([]*float64, len(idx))
	for i, j := range idx {
		prices[i] = records[j].Price
	}
	priceN := Normalize(Values(prices)).Norm

	out := make([]Recommendation, len(idx))
	for i, j := range idx {
		out[i] = Recommendation{
			ScoredRecord: records[j],
			Index:        j,
			PriceNorm:    priceN[i],
			FinalScore:   w*records[j].SIS + (1-w)*(1-priceN[i]),
			IsPareto:     flags != nil && flags[j],
		}
	}
	return out
}

// balanceScore is 1 minus the distance to the ideal point (SIS=1, price=0),
// scaled so the worst corner scores 0.
func balanceScore(sis, price float64) float64 {
	d := math.Hypot(1-sis, price)
	return 1 - d/math.Sqrt2
}

func sortByFinalScore(recs []Recommendation) {
	sort.SliceStable(recs, func(a, b int) bool { return recs[a].FinalScore > recs[b].FinalScore })
}

func truncate(recs []Recommendation, n int) []Recommendation {
	if n > 0 && len(recs) > n {
		return recs[:n]
	}
	return recs
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
