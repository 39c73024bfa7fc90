// attacks/magic.go
package attacks

import "github.com/dylhunn/dragontoothmg"

// Magic looks sliders up in dragontoothmg's magic bitboard tables.
type Magic struct{}

func (Magic) Bishop(sq int, occ uint64) uint64 {
	return dragontoothmg.CalculateBishopMoveBitboard(uint8(sq), occ)
}

func (Magic) Rook(sq int, occ uint64) uint64 {
	return dragontoothmg.CalculateRookMoveBitboard(uint8(sq), occ)
}
