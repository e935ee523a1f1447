package scoring

import "math"

// neutral is the normalized value used for anything that cannot be measured.
const neutral = 0.5

// Normalized is the min-max scaling of one column.
type Normalized struct {
	Min  float64   `json:"min"`
	Max  float64   `json:"max"`
	Norm []float64 `json:"norm"`
}

// Normalize min-max scales values into [0,1]. Min and max are taken over
// finite values only; non-finite entries map to 0.5. A column with no finite
// values reports Min=0, Max=1 and is 0.5 throughout. A zero range is treated
// as 1 so constant columns normalize to 0.
func Normalize(values []float64) Normalized {
	out := Normalized{Norm: make([]float64, len(values))}

	lo, hi := math.Inf(1), math.Inf(-1)
	finite := 0
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		finite++
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if finite == 0 {
		out.Min, out.Max = 0, 1
		for i := range out.Norm {
			out.Norm[i] = neutral
		}
		return out
	}

	out.Min, out.Max = lo, hi
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for i, v := range values {
		if !isFinite(v) {
			out.Norm[i] = neutral
			continue
		}
		out.Norm[i] = clamp((v-lo)/span, 0, 1)
	}
	return out
}

// Values flattens optional fields into a slice with NaN for missing entries.
func Values(ptrs []*float64) []float64 {
	out := make([]float64, len(ptrs))
	for i, p := range ptrs {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func mean(xs ...float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
