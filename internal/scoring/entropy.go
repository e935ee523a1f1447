package scoring

import "math"

// entropyEpsilon stands in for non-positive entries so every log is defined.
const entropyEpsilon = 1e-10

// diversityFloor treats rounding noise in Σ d_j as no diversity at all.
const diversityFloor = 1e-12

// EntropyWeights derives objective weights for the given columns with the
// entropy weight method. Each column is one indicator across all records;
// columns are expected to have equal length.
//
//	p_ij = x_ij / Σ_i x_ij
//	E_j  = -(1/ln m) Σ_i p_ij ln p_ij
//	d_j  = 1 - E_j
//	w_j  = d_j / Σ_j d_j
//
// Fewer than two records, or no diversity in any column, yields equal weights.
func EntropyWeights(columns ...[]float64) Weights {
	n := len(columns)
	if n == 0 {
		return Weights{Values: []float64{}}
	}

	m := len(columns[0])
	for _, c := range columns[1:] {
		if len(c) < m {
			m = len(c)
		}
	}
	if m <= 1 {
		return EqualWeights(n)
	}

	k := 1 / math.Log(float64(m))
	w := Weights{
		Values:    make([]float64, n),
		Entropy:   make([]float64, n),
		Diversity: make([]float64, n),
	}

	var totalDiversity float64
	for j, col := range columns {
		x := make([]float64, m)
		var sum float64
		for i := 0; i < m; i++ {
			v := col[i]
			if !isFinite(v) || v <= 0 {
				v = entropyEpsilon
			}
			x[i] = v
			sum += v
		}

		var h float64
		for i := 0; i < m; i++ {
			p := 1 / float64(m)
			if sum > 0 {
				p = x[i] / sum
			}
			if p == 0 {
				continue
			}
			h += p * math.Log(p)
		}

		e := clamp(-k*h, 0, 1)
		w.Entropy[j] = e
		w.Diversity[j] = 1 - e
		totalDiversity += 1 - e
	}

	if totalDiversity <= diversityFloor {
		eq := EqualWeights(n)
		w.Values = eq.Values
		return w
	}
	for j := range w.Values {
		w.Values[j] = w.Diversity[j] / totalDiversity
	}
	return w
}
