// tuner/eval.go
package tuner

import "math"

func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Evaluate sums White's active weights minus Black's and tapers by phase.
func Evaluate(p *DataPoint, w Params) float64 {
	var score S
	for _, id := range p.Active[White] {
		score = score.Add(w[id])
	}
	for _, id := range p.Active[Black] {
		score = score.Sub(w[id])
	}
	return score.Taper(p.Phase)
}

// SquaredError is (result - sigmoid(k*eval))^2.
func SquaredError(p *DataPoint, w Params, k float64) float64 {
	d := p.Result - Sigmoid(k*Evaluate(p, w))
	return d * d
}

// accumulateGradient adds the error gradient of every point into grad.
// Summed over a dataset and scaled by -2k this is the derivative of the
// summed squared error with respect to each weight.
func accumulateGradient(grad, w Params, data []DataPoint, k float64) {
	for i := range data {
		p := &data[i]
		s := Sigmoid(k * Evaluate(p, w))
		term := (p.Result - s) * (1 - s) * s
		adj := S{term * p.Phase, term * (1 - p.Phase)}
		for _, id := range p.Active[White] {
			grad[id] = grad[id].Add(adj)
		}
		for _, id := range p.Active[Black] {
			grad[id] = grad[id].Sub(adj)
		}
	}
}
