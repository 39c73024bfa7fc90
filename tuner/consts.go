// tuner/consts.go
package tuner

// Piece order
const (
	P = 0
	N = 1
	B = 2
	R = 3
	Q = 4
	K = 5
)

// Sides, also used as array indexes.
const (
	White = 0
	Black = 1
)

var pieceIndex = map[byte]int{
	'P': P, 'N': N, 'B': B, 'R': R, 'Q': Q, 'K': K,
	'p': P, 'n': N, 'b': B, 'r': R, 'q': Q, 'k': K,
}

// Phase constants
const (
	PawnPhase   = 0
	KnightPhase = 1
	BishopPhase = 1
	RookPhase   = 2
	QueenPhase  = 4
	KingPhase   = 0
	TotalPhase  = PawnPhase*16 + KnightPhase*4 + BishopPhase*4 + RookPhase*4 + QueenPhase*2
)

var phaseWeight = [6]int{PawnPhase, KnightPhase, BishopPhase, RookPhase, QueenPhase, KingPhase}

// Seed values for the piece-square slots, by kind.
var seedMaterial = [6]float64{100, 300, 300, 500, 900, 0}

// Normalization of the k-calibration slope.
const kSlopeScale = 5000
