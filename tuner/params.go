// tuner/params.go
package tuner

// Params is the flat parameter vector indexed by feature id.
type Params []S

func NewParams() Params { return make(Params, NumParams) }

// Add accumulates o into p elementwise.
func (p Params) Add(o Params) {
	for i := range p {
		p[i] = p[i].Add(o[i])
	}
}

func (p Params) Clone() Params {
	out := make(Params, len(p))
	copy(out, p)
	return out
}

func (p Params) Family(f Family) Params { return p[f.Start:f.End()] }
