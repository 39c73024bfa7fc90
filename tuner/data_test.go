package tuner

import (
	"context"
	"math/bits"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/dylhunn/dragontoothmg"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"texel-tuner/attacks"
)

func mustParse(t *testing.T, record string) DataPoint {
	t.Helper()
	p, err := Parse(record)
	require.NoError(t, err, record)
	return p
}

func count(ids []uint16, id int) int {
	n := 0
	for _, x := range ids {
		if int(x) == id {
			n++
		}
	}
	return n
}

// mirrorFiles reflects a placement field across the d/e file boundary.
func mirrorFiles(placement string) string {
	ranks := strings.Split(placement, "/")
	for i, r := range ranks {
		b := []byte(r)
		for lo, hi := 0, len(b)-1; lo < hi; lo, hi = lo+1, hi-1 {
			b[lo], b[hi] = b[hi], b[lo]
		}
		ranks[i] = string(b)
	}
	return strings.Join(ranks, "/")
}

// swapColors reflects the placement across the middle rank and swaps the
// colors of all pieces.
func swapColors(placement string) string {
	ranks := strings.Split(placement, "/")
	out := make([]string, len(ranks))
	for i, r := range ranks {
		b := []byte(r)
		for j, ch := range b {
			switch {
			case ch >= 'a' && ch <= 'z':
				b[j] = ch - 'a' + 'A'
			case ch >= 'A' && ch <= 'Z':
				b[j] = ch - 'A' + 'a'
			}
		}
		out[len(ranks)-1-i] = string(b)
	}
	return strings.Join(out, "/")
}

var positions = []string{
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR",
	"r1bqkbnr/pppp1ppp/2n5/4p3/1b1P4/5NP1/PPPNPPBP/R1BQK2R",
	"r2q1rk1/pp1nbppp/2p1bn2/3p2B1/3P4/2N1PN2/PPQ2PPP/R3KB1R",
	"r4rk1/1bqnbppp/p1n1p3/1pppP3/3P1P2/2PBBN2/PP1QN1PP/2KR3R",
	"8/5pk1/6p1/3P4/8/1r6/5PPP/2R3K1",
	"2kr4/ppp5/8/8/4P3/8/PP3BBB/5K2",
}

func TestFamilies(t *testing.T) {
	assert.Equal(t, 539, NumParams)
	want := []struct {
		name        string
		start, size int
	}{
		{"PST", 0, 384},
		{"SemiOpenFile", 384, 8},
		{"FullOpenFile", 392, 8},
		{"IsolatedPawn", 400, 8},
		{"PassedPawn", 408, 64},
		{"KnightMobility", 472, 9},
		{"BishopMobility", 481, 14},
		{"RookMobility", 495, 15},
		{"QueenMobility", 510, 28},
		{"BishopPair", 538, 1},
	}
	require.Len(t, Families, len(want))
	for i, w := range want {
		assert.Equal(t, w.name, Families[i].Name)
		assert.Equal(t, w.start, Families[i].Start, w.name)
		assert.Equal(t, w.size, Families[i].Size, w.name)
	}
	f, ok := FamilyByName("RookMobility")
	require.True(t, ok)
	assert.Equal(t, RookMobStart, f.Start)
}

func TestMasks(t *testing.T) {
	e4 := 28
	assert.Equal(t, 12, bits.OnesCount64(spans[White][e4]))
	assert.Equal(t, 9, bits.OnesCount64(spans[Black][e4]))
	assert.Zero(t, spans[White][e4]&(uint64(0xff)<<24), "rank of the pawn itself is excluded")
	assert.Equal(t, 2, bits.OnesCount64(spans[White][48])) // a7: a8 and b8
	assert.Zero(t, spans[White][60])
	assert.Zero(t, spans[Black][4])
	assert.Equal(t, attacks.FileA<<1, rails[0])
	assert.Equal(t, attacks.FileA<<3|attacks.FileA<<5, rails[4])
}

func TestPhase(t *testing.T) {
	tests := []struct {
		record string
		phase  float64
	}{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1 ce 0.5", 0},
		{"rnbqk3/8/8/8/8/8/8/RNBQK3 w - - 0 1 ce 0.5", 16.0 / 24},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1 ce 0.5", 1},
		{"qqqqk3/8/8/8/8/8/8/QQQQK3 w - - 0 1 ce 0.5", 1},
		{"4k3/pppppppp/8/8/8/8/PPPPPPPP/4K3 w - - 0 1 ce 0.5", 0},
	}
	for _, tc := range tests {
		p := mustParse(t, tc.record)
		assert.InDelta(t, tc.phase, p.Phase, 1e-12, tc.record)
	}
}

func TestBareKings(t *testing.T) {
	p := mustParse(t, "8/8/8/8/4k3/8/4K3/8 w - - 0 1 ce 0.5")
	assert.Zero(t, p.Phase)
	assert.Equal(t, 0.5, p.Result)
	require.Len(t, p.Active[White], 1)
	require.Len(t, p.Active[Black], 1)
	for side := White; side <= Black; side++ {
		id := int(p.Active[side][0])
		assert.GreaterOrEqual(t, id, PSTStart+64*K)
		assert.Less(t, id, PSTStart+64*K+64)
	}

	// Only king weights can move the evaluation.
	rng := rand.New(rand.NewPCG(3, 4))
	w := NewParams()
	for i := range w {
		w[i] = S{rng.NormFloat64() * 50, rng.NormFloat64() * 50}
	}
	before := Evaluate(&p, w)
	for i := range w {
		if i < PSTStart+64*K || i >= PSTStart+64*K+64 {
			w[i] = S{rng.NormFloat64() * 50, rng.NormFloat64() * 50}
		}
	}
	assert.Equal(t, before, Evaluate(&p, w))
}

func TestKnownFeatures(t *testing.T) {
	tests := []struct {
		record       string
		white, black []uint16
	}{
		{
			// e2 pawn: mirrored to 51, isolated on file 3, passed.
			"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1 ce 0.5",
			[]uint16{51, 403, 459, 379},
			[]uint16{379},
		},
		{
			// a1 rook on an open file sees a2-a8 and b1-e1.
			"4k3/8/8/8/8/8/8/R3K3 w - - 0 1 ce 0.5",
			[]uint16{255, 391, 399, 506, 379},
			[]uint16{379},
		},
		{
			// b4 pawn guards a3 and c3, leaving the b1 knight only d2.
			"4k3/8/8/8/1p6/8/8/1N2K3 w - - 0 1 ce 0.5",
			[]uint16{126, 473, 379},
			[]uint16{30, 406, 438, 379},
		},
		{
			// Queenside king: no horizontal mirror for White.
			"4k3/8/8/8/8/8/8/1K6 w - - 0 1 ce 0.5",
			[]uint16{320 + (1 ^ 56)},
			[]uint16{379},
		},
	}
	for _, tc := range tests {
		p := mustParse(t, tc.record)
		assert.Equal(t, tc.white, p.Active[White], tc.record)
		assert.Equal(t, tc.black, p.Active[Black], tc.record)
	}
}

func TestBishopPair(t *testing.T) {
	tests := []struct {
		placement string
		want      int
	}{
		{"4k3/8/8/8/8/8/8/2B1K3", 0},
		{"4k3/8/8/8/8/8/8/2B1KB2", 1},
		{"4k3/8/8/8/8/3B4/8/2B1KB2", 1},
	}
	for _, tc := range tests {
		p := mustParse(t, tc.placement+" w - - 0 1 ce 0.5")
		assert.Equal(t, tc.want, count(p.Active[White], BishopPairStart), tc.placement)
		assert.Zero(t, count(p.Active[Black], BishopPairStart), tc.placement)
		if tc.want > 0 {
			assert.Equal(t, uint16(BishopPairStart), p.Active[White][0])
		}
	}
}

func TestBlackToMoveFlipsResult(t *testing.T) {
	w := mustParse(t, "4k3/8/8/8/8/8/8/4K3 w - - 0 1 ce 0.25")
	b := mustParse(t, "4k3/8/8/8/8/8/8/4K3 b - - 0 1 ce 0.25")
	assert.Equal(t, 0.25, w.Result)
	assert.Equal(t, 0.75, b.Result)
}

func TestHorizontalMirror(t *testing.T) {
	for _, pl := range positions {
		p := mustParse(t, pl+" w - - 0 1 ce 0.5")
		m := mustParse(t, mirrorFiles(pl)+" w - - 0 1 ce 0.5")
		for side := White; side <= Black; side++ {
			assert.ElementsMatch(t, p.Active[side], m.Active[side], "%s side %d", pl, side)
		}
		assert.Equal(t, p.Phase, m.Phase)
	}
}

func TestColorSwap(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	w := NewParams()
	for i := range w {
		w[i] = S{rng.NormFloat64() * 100, rng.NormFloat64() * 100}
	}
	for _, pl := range positions {
		p := mustParse(t, pl+" w - - 0 1 ce 0.3")
		s := mustParse(t, swapColors(pl)+" b - - 0 1 ce 0.3")
		assert.ElementsMatch(t, p.Active[White], s.Active[Black], pl)
		assert.ElementsMatch(t, p.Active[Black], s.Active[White], pl)
		assert.InDelta(t, 1-p.Result, s.Result, 1e-12)
		assert.InDelta(t, -Evaluate(&p, w), Evaluate(&s, w), 1e-9, pl)
	}
}

func TestScanMatchesDragontooth(t *testing.T) {
	for _, pl := range positions {
		fen := pl + " b - - 0 1"
		b, fe := scanBoard(fen)
		require.Nil(t, fe)
		assert.True(t, b.blackToMove)

		ref := dragontoothmg.ParseFen(fen)
		sides := [2]*dragontoothmg.Bitboards{&ref.White, &ref.Black}
		for side, bb := range sides {
			assert.Equal(t, bb.Pawns, b.bbs[side][P], pl)
			assert.Equal(t, bb.Knights, b.bbs[side][N], pl)
			assert.Equal(t, bb.Bishops, b.bbs[side][B], pl)
			assert.Equal(t, bb.Rooks, b.bbs[side][R], pl)
			assert.Equal(t, bb.Queens, b.bbs[side][Q], pl)
			assert.Equal(t, bb.Kings, b.bbs[side][K], pl)
			assert.Equal(t, bb.All, b.occ[side], pl)
		}
	}
}

func TestCodecTablesAgree(t *testing.T) {
	magic, pext := NewCodec(attacks.Magic{}), NewCodec(attacks.NewPext())
	for _, pl := range positions {
		rec := pl + " w - - 0 1 ce 0.5"
		a, err := magic.Parse(rec)
		require.NoError(t, err)
		b, err := pext.Parse(rec)
		require.NoError(t, err)
		assert.Equal(t, a, b, pl)
	}
}

func TestFormatErrors(t *testing.T) {
	tests := []struct {
		record string
		reason string
	}{
		{"8/8/8/8/4k3/8/4K3/8 w - - 0 1", "separator"},
		{"8/8/8/8/4x3/8/4K3/8 w - - 0 1 ce 0.5", "unrecognized board character"},
		{"8/8/8/8/4k3/8/4K3/8 w - - 0 1 ce draw", "unparsable score"},
		{"8/8/8/8/4k3/8/4K3/8 ce 0.5", "missing side to move"},
		{"8/8/8/8/4k3/8/4K3/8/K7 w - - 0 1 ce 0.5", "outside the board"},
	}
	for _, tc := range tests {
		_, err := Parse(tc.record)
		var fe *FormatError
		require.True(t, errors.As(err, &fe), tc.record)
		assert.Contains(t, fe.Reason, tc.reason)
		assert.Equal(t, tc.record, fe.Record)
		assert.Zero(t, fe.Line)
	}
}

func TestLoadDataset(t *testing.T) {
	input := "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1 ce 0.6\r\n" +
		"\n" +
		"4k3/8/8/8/8/8/8/R3K3 b - - 0 1 ce 0.4\n"
	data, err := LoadDataset(context.Background(), strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.InDelta(t, 0.6, data[0].Result, 1e-12)
	assert.InDelta(t, 0.6, data[1].Result, 1e-12)
}

func TestLoadDatasetStopsAtFirstBadRecord(t *testing.T) {
	input := "4k3/8/8/8/8/8/8/4K3 w - - 0 1 ce 0.5\n" +
		"\n" +
		"4k3/8/8/8/8/8/8/4K3 w - - 0 1 ce oops\n" +
		"4k3/8/8/8/8/8/8/4Z3 w - - 0 1 ce 0.5\n"
	tn := New(Config{Threads: 2})
	n, err := tn.AddData(context.Background(), strings.NewReader(input))
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 3, fe.Line)
	assert.Contains(t, fe.Error(), "line 3")
	assert.Zero(t, n)
	assert.Zero(t, tn.NumDataPoints())
}
