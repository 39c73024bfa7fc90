// attacks/attacks.go
package attacks

import "github.com/pkg/errors"

// Table answers slider queries. An attacked set includes the first blocker
// in every direction, whichever side owns it.
type Table interface {
	Bishop(sq int, occ uint64) uint64
	Rook(sq int, occ uint64) uint64
}

const (
	FileA uint64 = 0x0101010101010101
	FileH uint64 = FileA << 7
)

// Default is the table used when a caller does not pick one.
var Default Table = Magic{}

// ByName maps a command-line name to a table: "magic", "pext" or "walk".
func ByName(name string) (Table, error) {
	switch name {
	case "", "magic":
		return Magic{}, nil
	case "pext":
		return NewPext(), nil
	case "walk":
		return Walk{}, nil
	}
	return nil, errors.Errorf("unknown attack table %q", name)
}

// Precomputed leaper masks from each square.
var knightMoves [64]uint64
var kingMoves [64]uint64

func init() {
	knightOffsets := [8][2]int{
		{2, 1}, {2, -1}, {-2, 1}, {-2, -1},
		{1, 2}, {1, -2}, {-1, 2}, {-1, -2},
	}
	kingOffsets := [8][2]int{
		{1, 0}, {-1, 0}, {0, 1}, {0, -1},
		{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
	}
	for sq := 0; sq < 64; sq++ {
		knightMoves[sq] = leap(sq, knightOffsets)
		kingMoves[sq] = leap(sq, kingOffsets)
	}
}

func leap(sq int, offsets [8][2]int) uint64 {
	var mask uint64
	rank, file := sq/8, sq%8
	for _, off := range offsets {
		r, f := rank+off[0], file+off[1]
		if onBoard(r, f) {
			mask |= uint64(1) << (r*8 + f)
		}
	}
	return mask
}

func onBoard(r, f int) bool { return r >= 0 && r < 8 && f >= 0 && f < 8 }

func Knight(sq int) uint64 { return knightMoves[sq] }

func King(sq int) uint64 { return kingMoves[sq] }

func Queen(t Table, sq int, occ uint64) uint64 {
	return t.Bishop(sq, occ) | t.Rook(sq, occ)
}

// WhitePawns returns every square attacked by the white pawns in bb.
func WhitePawns(bb uint64) uint64 {
	return (bb&^FileA)<<7 | (bb&^FileH)<<9
}

// BlackPawns returns every square attacked by the black pawns in bb.
func BlackPawns(bb uint64) uint64 {
	return (bb&^FileA)>>9 | (bb&^FileH)>>7
}

// Pawns dispatches on side: 0 for White, 1 for Black.
func Pawns(side int, bb uint64) uint64 {
	if side == 0 {
		return WhitePawns(bb)
	}
	return BlackPawns(bb)
}
