// tuner/offsets.go
package tuner

// Feature id layout. Every family owns one contiguous range; the order
// below is also the export order.
const (
	PSTStart        = 0
	SemiOpenStart   = PSTStart + 6*64
	FullOpenStart   = SemiOpenStart + 8
	IsolatedStart   = FullOpenStart + 8
	PassedStart     = IsolatedStart + 8
	KnightMobStart  = PassedStart + 64
	BishopMobStart  = KnightMobStart + 9
	RookMobStart    = BishopMobStart + 14
	QueenMobStart   = RookMobStart + 15
	BishopPairStart = QueenMobStart + 28
	NumParams       = BishopPairStart + 1
)

// Family describes one range of the parameter vector.
type Family struct {
	Name   string
	Start  int
	Size   int
	Blocks int // nested tables when exported; PST has one per piece kind
}

func (f Family) End() int { return f.Start + f.Size }

// Families lists the layout in declared order.
var Families = computeFamilies()

func computeFamilies() []Family {
	layout := []struct {
		name   string
		size   int
		blocks int
	}{
		{"PST", 6 * 64, 6},
		{"SemiOpenFile", 8, 1},
		{"FullOpenFile", 8, 1},
		{"IsolatedPawn", 8, 1},
		{"PassedPawn", 64, 1},
		{"KnightMobility", 9, 1},
		{"BishopMobility", 14, 1},
		{"RookMobility", 15, 1},
		{"QueenMobility", 28, 1},
		{"BishopPair", 1, 1},
	}
	out := make([]Family, 0, len(layout))
	off := 0
	for _, s := range layout {
		out = append(out, Family{Name: s.name, Start: off, Size: s.size, Blocks: s.blocks})
		off += s.size
	}
	if off != NumParams {
		panic("tuner: family table does not cover NumParams")
	}
	return out
}

// FamilyByName returns the family with the given name.
func FamilyByName(name string) (Family, bool) {
	for _, f := range Families {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}
