// tuner/opt_adam.go
package tuner

// Adam keeps per-parameter first and second moments. There is no bias
// correction; the moments start at zero and persist across epochs.
type Adam struct {
	M, V  Params // First and second moment estimates
	Beta1 float64
	Beta2 float64
	Eps   float64
	T     int // Steps taken

	Frozen []bool // parameters Step leaves alone, nil for none
}

func NewAdam(numParams int) *Adam {
	return &Adam{
		M:     make(Params, numParams),
		V:     make(Params, numParams),
		Beta1: 0.9,
		Beta2: 0.999,
		Eps:   1e-8,
	}
}

// Step applies one update where the effective gradient of parameter i is
// scale*grads[i].
func (opt *Adam) Step(params, grads Params, scale, rate float64) {
	opt.T++
	eps := S{opt.Eps, opt.Eps}
	for i := range params {
		if opt.Frozen != nil && opt.Frozen[i] {
			continue
		}
		adj := grads[i].Scale(scale)
		opt.M[i] = opt.M[i].Scale(opt.Beta1).Add(adj.Scale(1 - opt.Beta1))
		opt.V[i] = opt.V[i].Scale(opt.Beta2).Add(adj.Mul(adj).Scale(1 - opt.Beta2))

		den := opt.V[i].Sqrt().Add(eps)
		params[i] = params[i].Sub(S{
			rate * opt.M[i].MG / den.MG,
			rate * opt.M[i].EG / den.EG,
		})
	}
}
