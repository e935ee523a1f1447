package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// UnknownCategory collects records without a category label.
const UnknownCategory = "Unknown"

// Basis selects which sub-score variant the SIS is folded from.
type Basis string

const (
	// BasisNormalized folds the batch-normalized sub-scores, the same columns
	// the entropy weights are derived from.
	BasisNormalized Basis = "normalized"
	// BasisRaw folds the component means before batch normalization.
	BasisRaw Basis = "raw"
)

// ParseBasis validates a configured basis name.
func ParseBasis(s string) (Basis, error) {
	switch b := Basis(strings.ToLower(strings.TrimSpace(s))); b {
	case BasisNormalized, BasisRaw:
		return b, nil
	case "":
		return BasisNormalized, nil
	default:
		return "", fmt.Errorf("unknown sub-score basis %q", s)
	}
}

// SubScores returns the environmental and policy columns for the basis, in
// weight order.
func SubScores(records []ScoredRecord, basis Basis) (env, policy []float64) {
	env = make([]float64, len(records))
	policy = make([]float64, len(records))
	for i, r := range records {
		switch basis {
		case BasisRaw:
			env[i], policy[i] = r.EnvironmentalRaw, r.PolicyRaw
		default:
			env[i], policy[i] = r.Environmental, r.Policy
		}
	}
	return env, policy
}

// ApplySIS sets SIS = w_env*environmental + w_policy*policy on every record.
func ApplySIS(records []ScoredRecord, w Weights, basis Basis) {
	if len(w.Values) != 2 {
		panic(fmt.Sprintf("scoring: SIS needs 2 weights, got %d", len(w.Values)))
	}
	env, policy := SubScores(records, basis)
	for i := range records {
		records[i].SIS = w.Values[0]*env[i] + w.Values[1]*policy[i]
	}
}

// CategoryAggregate holds per-category means. Raw means are taken over the
// members that carry the field and are nil when none do.
type CategoryAggregate struct {
	Category string   `json:"category"`
	Count    int      `json:"count"`
	Carbon   *float64 `json:"carbon,omitempty"`
	Water    *float64 `json:"water,omitempty"`
	Waste    *float64 `json:"waste,omitempty"`
	Price    *float64 `json:"price,omitempty"`

	CarbonNorm    float64 `json:"carbon_norm"`
	WaterNorm     float64 `json:"water_norm"`
	WasteNorm     float64 `json:"waste_norm"`
	PriceNorm     float64 `json:"price_norm"`
	RatingNorm    float64 `json:"rating_norm"`
	RecyclingNorm float64 `json:"recycling_norm"`
	EcoFlagNorm   float64 `json:"eco_flag_norm"`

	EnvironmentalRaw float64 `json:"environmental_raw"`
	PolicyRaw        float64 `json:"policy_raw"`
	Environmental    float64 `json:"environmental_score"`
	Policy           float64 `json:"policy_score"`
	SIS              float64 `json:"sis"`

	Cluster int `json:"cluster"`
}

type optionalMean struct {
	sum float64
	n   int
}

func (m *optionalMean) add(p *float64) {
	if p == nil || !isFinite(*p) {
		return
	}
	m.sum += *p
	m.n++
}

func (m optionalMean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

type categoryAccumulator struct {
	agg                         CategoryAggregate
	carbon, water, waste, price optionalMean
}

// CategoryKey returns the grouping key for a category label.
func CategoryKey(category string) string {
	key := strings.TrimSpace(category)
	if key == "" {
		return UnknownCategory
	}
	return key
}

// AggregateByCategory groups records by CategoryKey and averages every
// numeric field. Aggregates come back sorted by key, so the result does not
// depend on input order. Cluster is -1 until a clustering is attached.
func AggregateByCategory(records []ScoredRecord) []CategoryAggregate {
	groups := make(map[string]*categoryAccumulator)
	for _, r := range records {
		key := CategoryKey(r.Category)
		acc, ok := groups[key]
		if !ok {
			acc = &categoryAccumulator{agg: CategoryAggregate{Category: key, Cluster: -1}}
			groups[key] = acc
		}
		a := &acc.agg
		a.Count++
		acc.carbon.add(r.Carbon)
		acc.water.add(r.Water)
		acc.waste.add(r.Waste)
		acc.price.add(r.Price)

		a.CarbonNorm += r.CarbonNorm
		a.WaterNorm += r.WaterNorm
		a.WasteNorm += r.WasteNorm
		a.PriceNorm += r.PriceNorm
		a.RatingNorm += r.RatingNorm
		a.RecyclingNorm += r.RecyclingNorm
		a.EcoFlagNorm += r.EcoFlagNorm
		a.EnvironmentalRaw += r.EnvironmentalRaw
		a.PolicyRaw += r.PolicyRaw
		a.Environmental += r.Environmental
		a.Policy += r.Policy
		a.SIS += r.SIS
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]CategoryAggregate, 0, len(keys))
	for _, k := range keys {
		acc := groups[k]
		a := acc.agg
		n := float64(a.Count)
		a.Carbon = acc.carbon.value()
		a.Water = acc.water.value()
		a.Waste = acc.waste.value()
		a.Price = acc.price.value()
		a.CarbonNorm /= n
		a.WaterNorm /= n
		a.WasteNorm /= n
		a.PriceNorm /= n
		a.RatingNorm /= n
		a.RecyclingNorm /= n
		a.EcoFlagNorm /= n
		a.EnvironmentalRaw /= n
		a.PolicyRaw /= n
		a.Environmental /= n
		a.Policy /= n
		a.SIS /= n
		out = append(out, a)
	}
	return out
}

// Feature names one category-level clustering dimension.
type Feature string

const (
	FeatureSIS           Feature = "sis"
	FeatureEnvironmental Feature = "environmental"
	FeaturePolicy        Feature = "policy"
	FeaturePrice         Feature = "price"
	FeatureCarbon        Feature = "carbon"
	FeatureWater         Feature = "water"
	FeatureWaste         Feature = "waste"
)

// DefaultFeatures is the clustering feature vector used when none is configured.
func DefaultFeatures() []Feature {
	return []Feature{FeatureSIS, FeatureEnvironmental, FeaturePolicy, FeaturePrice}
}

// ParseFeature validates a configured feature name.
func ParseFeature(s string) (Feature, error) {
	switch f := Feature(strings.ToLower(strings.TrimSpace(s))); f {
	case FeatureSIS, FeatureEnvironmental, FeaturePolicy, FeaturePrice,
		FeatureCarbon, FeatureWater, FeatureWaste:
		return f, nil
	default:
		return "", fmt.Errorf("unknown cluster feature %q", s)
	}
}

// FeatureVectors builds one point per aggregate from normalized means, so
// every dimension lives in [0,1].
func FeatureVectors(aggs []CategoryAggregate, features []Feature) [][]float64 {
	points := make([][]float64, len(aggs))
	for i, a := range aggs {
		p := make([]float64, len(features))
		for d, f := range features {
			switch f {
			case FeatureSIS:
				p[d] = a.SIS
			case FeatureEnvironmental:
				p[d] = a.Environmental
			case FeaturePolicy:
				p[d] = a.Policy
			case FeaturePrice:
				p[d] = a.PriceNorm
			case FeatureCarbon:
				p[d] = a.CarbonNorm
			case FeatureWater:
				p[d] = a.WaterNorm
			case FeatureWaste:
				p[d] = a.WasteNorm
			default:
				panic(fmt.Sprintf("scoring: unknown cluster feature %q", f))
			}
		}
		points[i] = p
	}
	return points
}
