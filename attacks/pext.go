// attacks/pext.go
package attacks

import "math/bits"

type direction struct{ dr, df int }

var (
	rookDirs   = [4]direction{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs = [4]direction{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// Walk computes slider attacks by stepping along each ray. Slow; used to
// build the Pext tables and as a reference in tests.
type Walk struct{}

func (Walk) Bishop(sq int, occ uint64) uint64 { return walk(sq, occ, bishopDirs) }

func (Walk) Rook(sq int, occ uint64) uint64 { return walk(sq, occ, rookDirs) }

func walk(sq int, occ uint64, dirs [4]direction) uint64 {
	var att uint64
	for _, d := range dirs {
		r, f := sq/8+d.dr, sq%8+d.df
		for onBoard(r, f) {
			bit := uint64(1) << (r*8 + f)
			att |= bit
			if occ&bit != 0 {
				break
			}
			r, f = r+d.dr, f+d.df
		}
	}
	return att
}

// relevant returns the squares whose occupancy can change the attack set:
// every ray square except the last one before the edge.
func relevant(sq int, dirs [4]direction) uint64 {
	var mask uint64
	for _, d := range dirs {
		r, f := sq/8+d.dr, sq%8+d.df
		for onBoard(r+d.dr, f+d.df) {
			mask |= uint64(1) << (r*8 + f)
			r, f = r+d.dr, f+d.df
		}
	}
	return mask
}

// Pext indexes per-square attack tables with a software parallel bit
// extract of the relevant occupancy.
type Pext struct {
	rookMask   [64]uint64
	bishopMask [64]uint64
	rook       [64][]uint64
	bishop     [64][]uint64
}

// NewPext builds the tables (about 800 KiB).
func NewPext() *Pext {
	p := &Pext{}
	for sq := 0; sq < 64; sq++ {
		p.rookMask[sq] = relevant(sq, rookDirs)
		p.bishopMask[sq] = relevant(sq, bishopDirs)
		p.rook[sq] = fill(sq, p.rookMask[sq], rookDirs)
		p.bishop[sq] = fill(sq, p.bishopMask[sq], bishopDirs)
	}
	return p
}

func fill(sq int, mask uint64, dirs [4]direction) []uint64 {
	n := 1 << bits.OnesCount64(mask)
	table := make([]uint64, n)
	for idx := 0; idx < n; idx++ {
		table[idx] = walk(sq, pdep(uint64(idx), mask), dirs)
	}
	return table
}

func (p *Pext) Bishop(sq int, occ uint64) uint64 {
	return p.bishop[sq][pext(occ, p.bishopMask[sq])]
}

func (p *Pext) Rook(sq int, occ uint64) uint64 {
	return p.rook[sq][pext(occ, p.rookMask[sq])]
}

// pext gathers the bits of x selected by mask into the low bits.
func pext(x, mask uint64) uint64 {
	var res uint64
	for i := uint(0); mask != 0; i++ {
		bit := uint(bits.TrailingZeros64(mask))
		res |= (x >> bit & 1) << i
		mask &= mask - 1
	}
	return res
}

// pdep scatters the low bits of x into the positions selected by mask.
func pdep(x, mask uint64) uint64 {
	var res uint64
	for i := uint(0); mask != 0; i++ {
		bit := uint(bits.TrailingZeros64(mask))
		res |= (x >> i & 1) << bit
		mask &= mask - 1
	}
	return res
}
