package scoring

import (
	"fmt"
	"math"
)

// Weights is the objective weight vector for the sub-indices, in column
// order. Entropy and Diversity are per-column diagnostics from the entropy
// weight method and are empty when the weights were not derived from data.
type Weights struct {
	Values    []float64 `json:"values"`
	Entropy   []float64 `json:"entropy,omitempty"`
	Diversity []float64 `json:"diversity,omitempty"`
}

// EqualWeights returns n weights of 1/n each.
func EqualWeights(n int) Weights {
	w := Weights{Values: make([]float64, n)}
	for i := range w.Values {
		w.Values[i] = 1 / float64(n)
	}
	return w
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	var s float64
	for _, v := range w.Values {
		s += v
	}
	return s
}

// Validate checks that weights sum to 1.0 and none are negative.
func (w Weights) Validate() error {
	if len(w.Values) == 0 {
		return nil
	}
	if math.Abs(w.Sum()-1.0) > 0.001 {
		return fmt.Errorf("weights sum to %.4f, must sum to 1.0", w.Sum())
	}
	for _, v := range w.Values {
		if v < 0 {
			return fmt.Errorf("negative weight: %f", v)
		}
	}
	return nil
}
