// tuner/score.go
package tuner

import (
	"fmt"
	"math"
)

// S is a tapered (midgame, endgame) pair.
type S struct {
	MG float64 `json:"mg"`
	EG float64 `json:"eg"`
}

func (s S) Add(o S) S { return S{s.MG + o.MG, s.EG + o.EG} }

func (s S) Sub(o S) S { return S{s.MG - o.MG, s.EG - o.EG} }

func (s S) Scale(f float64) S { return S{s.MG * f, s.EG * f} }

// Mul multiplies componentwise.
func (s S) Mul(o S) S { return S{s.MG * o.MG, s.EG * o.EG} }

func (s S) Sqrt() S { return S{math.Sqrt(s.MG), math.Sqrt(s.EG)} }

// Taper interpolates by phase: 1 is pure midgame, 0 pure endgame.
func (s S) Taper(phase float64) float64 {
	return phase*s.MG + (1-phase)*s.EG
}

// Rounded renders the pair the way evaluation source code spells it.
func (s S) Rounded() string {
	return fmt.Sprintf("S(%d, %d)", int(math.Round(s.MG)), int(math.Round(s.EG)))
}

func (s S) String() string {
	return fmt.Sprintf("S(%.3f, %.3f)", s.MG, s.EG)
}
