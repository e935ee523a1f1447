package scoring

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/Evergreen/internal/store"
)

// Indicator names one policy sub-index term.
type Indicator string

const (
	IndicatorRating    Indicator = "rating"
	IndicatorRecycling Indicator = "recycling"
	IndicatorEcoFlag   Indicator = "eco_flag"
)

// DefaultIndicators is the policy indicator set used when none is configured:
// quality rating, recycling programme and eco-friendly manufacturing flag.
func DefaultIndicators() []Indicator {
	return []Indicator{IndicatorRating, IndicatorRecycling, IndicatorEcoFlag}
}

// ParseIndicator validates a configured indicator name.
func ParseIndicator(s string) (Indicator, error) {
	switch ind := Indicator(strings.ToLower(strings.TrimSpace(s))); ind {
	case IndicatorRating, IndicatorRecycling, IndicatorEcoFlag:
		return ind, nil
	default:
		return "", fmt.Errorf("unknown policy indicator %q", s)
	}
}

// NormalizedRecord carries one [0,1] value per scored field. Missing source
// values sit at the neutral 0.5.
type NormalizedRecord struct {
	store.Record
	CarbonNorm    float64 `json:"carbon_norm"`
	WaterNorm     float64 `json:"water_norm"`
	WasteNorm     float64 `json:"waste_norm"`
	PriceNorm     float64 `json:"price_norm"`
	RatingNorm    float64 `json:"rating_norm"`
	RecyclingNorm float64 `json:"recycling_norm"`
	EcoFlagNorm   float64 `json:"eco_flag_norm"`
}

// ScoredRecord adds the two sub-indices and the SIS. The *Raw scores are the
// component means; Environmental and Policy are those means min-max scaled
// across the batch.
type ScoredRecord struct {
	NormalizedRecord
	EnvironmentalRaw float64 `json:"environmental_raw"`
	PolicyRaw        float64 `json:"policy_raw"`
	Environmental    float64 `json:"environmental_score"`
	Policy           float64 `json:"policy_score"`
	SIS              float64 `json:"sis"`
}

// Scorer derives the environmental and policy sub-indices for a batch.
type Scorer struct {
	indicators []Indicator
	logger     *slog.Logger
}

// NewScorer creates a Scorer for the given policy indicators. An empty list
// selects DefaultIndicators.
func NewScorer(indicators []Indicator, logger *slog.Logger) *Scorer {
	if len(indicators) == 0 {
		indicators = DefaultIndicators()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{indicators: indicators, logger: logger}
}

// Indicators returns the policy indicators in the order they are averaged.
func (s *Scorer) Indicators() []Indicator {
	return append([]Indicator(nil), s.indicators...)
}

// Score normalizes every scored field across the batch and computes both
// sub-indices. SIS is left at zero; see ApplySIS.
func (s *Scorer) Score(records []store.Record) []ScoredRecord {
	n := len(records)
	out := make([]ScoredRecord, n)
	if n == 0 {
		return out
	}

	carbon := make([]*float64, n)
	water := make([]*float64, n)
	waste := make([]*float64, n)
	price := make([]*float64, n)
	rating := make([]float64, n)
	recycling := make([]float64, n)
	eco := make([]float64, n)
	for i, r := range records {
		carbon[i], water[i], waste[i], price[i] = r.Carbon, r.Water, r.Waste, r.Price
		rating[i] = RatingValue(r.Rating)
		recycling[i] = FlagValue(r.Recycling)
		eco[i] = FlagValue(r.EcoFlag)
	}

	carbonN := Normalize(Values(carbon)).Norm
	waterN := Normalize(Values(water)).Norm
	wasteN := Normalize(Values(waste)).Norm
	priceN := Normalize(Values(price)).Norm
	ratingN := Normalize(rating).Norm
	recyclingN := Normalize(recycling).Norm
	ecoN := Normalize(eco).Norm

	envRaw := make([]float64, n)
	policyRaw := make([]float64, n)
	terms := make([]float64, len(s.indicators))
	for i, r := range records {
		out[i].NormalizedRecord = NormalizedRecord{
			Record:        r,
			CarbonNorm:    carbonN[i],
			WaterNorm:     waterN[i],
			WasteNorm:     wasteN[i],
			PriceNorm:     priceN[i],
			RatingNorm:    ratingN[i],
			RecyclingNorm: recyclingN[i],
			EcoFlagNorm:   ecoN[i],
		}

		envRaw[i] = mean(1-carbonN[i], 1-waterN[i], 1-wasteN[i])
		for t, ind := range s.indicators {
			switch ind {
			case IndicatorRating:
				terms[t] = ratingN[i]
			case IndicatorRecycling:
				terms[t] = recyclingN[i]
			case IndicatorEcoFlag:
				terms[t] = ecoN[i]
			default:
				panic(fmt.Sprintf("scoring: unknown policy indicator %q", ind))
			}
		}
		policyRaw[i] = mean(terms...)

		out[i].EnvironmentalRaw = envRaw[i]
		out[i].PolicyRaw = policyRaw[i]
	}

	envN := Normalize(envRaw).Norm
	policyN := Normalize(policyRaw).Norm
	for i := range out {
		out[i].Environmental = envN[i]
		out[i].Policy = policyN[i]
	}

	s.logger.Debug("scored records", "count", n, "indicators", s.indicators)
	return out
}

// RatingValue maps a letter grade onto the four-level scale divided by 4:
// A=1.0, B=0.75, C=0.5, D=0.25, anything else 0.625.
func RatingValue(grade string) float64 {
	switch strings.ToUpper(strings.TrimSpace(grade)) {
	case "A":
		return 4.0 / 4
	case "B":
		return 3.0 / 4
	case "C":
		return 2.0 / 4
	case "D":
		return 1.0 / 4
	default:
		return 2.5 / 4
	}
}

// FlagValue maps yes/no style answers to 1.0 / 0.0, anything else to 0.5.
func FlagValue(v string) float64 {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "true", "t", "1":
		return 1.0
	case "no", "n", "false", "f", "0":
		return 0.0
	default:
		return neutral
	}
}
