// tuner/data.go
package tuner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/bits"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"texel-tuner/attacks"
)

// DataPoint is one decoded training record.
type DataPoint struct {
	Active [2][]uint16 // feature ids per side, duplicates allowed
	Phase  float64     // 1 = full middlegame material, 0 = bare endgame
	Result float64     // target win probability from White's view
}

// FormatError reports a record the codec could not decode.
type FormatError struct {
	Line   int // 1-based, 0 when the record did not come from a file
	Record string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Record)
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Record)
}

const scoreSeparator = " ce "

// rails[f] holds the files adjacent to f; spans[side][sq] every square in
// front of sq on its own and adjacent files.
var (
	rails [8]uint64
	spans [2][64]uint64
)

func init() {
	for f := 0; f < 8; f++ {
		if f > 0 {
			rails[f] |= attacks.FileA << (f - 1)
		}
		if f < 7 {
			rails[f] |= attacks.FileA << (f + 1)
		}
	}
	for sq := 0; sq < 64; sq++ {
		bb := uint64(1) << sq << 8
		bb |= bb << 8
		bb |= bb << 16
		bb |= bb << 32
		bb |= (bb&^attacks.FileH)<<1 | (bb&^attacks.FileA)>>1
		spans[White][sq] = bb
	}
	for sq := 0; sq < 64; sq++ {
		spans[Black][sq] = bits.ReverseBytes64(spans[White][sq^56])
	}
}

// Codec decodes dataset records into data points.
type Codec struct {
	table attacks.Table
}

// NewCodec returns a codec using t for slider lookups, or attacks.Default
// when t is nil.
func NewCodec(t attacks.Table) *Codec {
	if t == nil {
		t = attacks.Default
	}
	return &Codec{table: t}
}

var defaultCodec = NewCodec(nil)

// Parse decodes record with the default codec.
func Parse(record string) (DataPoint, error) { return defaultCodec.Parse(record) }

// Parse decodes "<placement> <stm> ... ce <score>".
func (c *Codec) Parse(record string) (DataPoint, error) {
	position, score, ok := strings.Cut(record, scoreSeparator)
	if !ok {
		return DataPoint{}, &FormatError{Record: record, Reason: "missing \"ce\" separator"}
	}
	result, err := strconv.ParseFloat(strings.TrimSpace(score), 64)
	if err != nil {
		return DataPoint{}, &FormatError{Record: record, Reason: fmt.Sprintf("unparsable score %q", strings.TrimSpace(score))}
	}
	b, fe := scanBoard(position)
	if fe != nil {
		fe.Record = record
		return DataPoint{}, fe
	}

	var p DataPoint
	all := b.occ[White] | b.occ[Black]
	pawns := b.bbs[White][P] | b.bbs[Black][P]
	for side := White; side <= Black; side++ {
		p.Active[side] = c.features(side, &b.bbs, all, pawns, bits.OnesCount64(b.occ[side]))
	}

	p.Phase = float64(clamp(b.phase, 0, TotalPhase)) / TotalPhase
	p.Result = result
	if b.blackToMove {
		p.Result = 1 - result
	}
	return p, nil
}

// board is the scanned placement field of a record.
type board struct {
	bbs         [2][6]uint64 // [side][kind]
	occ         [2]uint64
	phase       int // unclamped
	blackToMove bool
}

// scanBoard reads the placement field and the side-to-move character.
func scanBoard(position string) (board, *FormatError) {
	var b board
	rank, file := 7, 0
	i := 0
scan:
	for ; i < len(position); i++ {
		ch := position[i]
		switch {
		case ch == ' ':
			break scan
		case ch == '/':
			rank--
			file = 0
		case ch >= '1' && ch <= '8':
			file += int(ch - '0')
		default:
			kind, ok := pieceIndex[ch]
			if !ok {
				return b, &FormatError{Reason: fmt.Sprintf("unrecognized board character %q", ch)}
			}
			if rank < 0 || file > 7 {
				return b, &FormatError{Reason: fmt.Sprintf("piece %q outside the board", ch)}
			}
			side := White
			if ch >= 'a' {
				side = Black
			}
			bit := uint64(1) << (rank*8 + file)
			b.bbs[side][kind] |= bit
			b.occ[side] |= bit
			b.phase += phaseWeight[kind]
			file++
		}
	}
	if i+1 >= len(position) {
		return b, &FormatError{Reason: "missing side to move"}
	}
	b.blackToMove = position[i+1] == 'b'
	return b, nil
}

// features lists the active ids of one side. Squares are mirrored so the
// side's own king sits on files a-d and its pieces start on the top ranks.
func (c *Codec) features(side int, bbs *[2][6]uint64, all, pawns uint64, pieces int) []uint16 {
	own, enemy := bbs[side], bbs[side^1]

	flip := 0
	if side == White {
		flip = 56
	}
	// A missing king scans as square 64, file 0.
	if bits.TrailingZeros64(own[K])%8 > 3 {
		flip ^= 7
	}
	safe := ^attacks.Pawns(side^1, enemy[P])

	active := make([]uint16, 0, 2*pieces+1)
	if bits.OnesCount64(own[B]) > 1 {
		active = append(active, BishopPairStart)
	}
	for kind := P; kind <= K; kind++ {
		for bb := own[kind]; bb != 0; bb &= bb - 1 {
			sq := bits.TrailingZeros64(bb)
			fsq := sq ^ flip
			active = append(active, uint16(PSTStart+64*kind+fsq))

			switch kind {
			case P:
				if rails[sq%8]&own[P] == 0 {
					active = append(active, uint16(IsolatedStart+fsq%8))
				}
				if spans[side][sq]&enemy[P] == 0 {
					active = append(active, uint16(PassedStart+fsq))
				}
			case N:
				mob := bits.OnesCount64(attacks.Knight(sq) & safe)
				active = append(active, uint16(KnightMobStart+mob))
			case B:
				mob := bits.OnesCount64(c.table.Bishop(sq, all) & safe)
				active = append(active, uint16(BishopMobStart+mob))
			case R:
				file := attacks.FileA << (sq % 8)
				if file&own[P] == 0 {
					active = append(active, uint16(SemiOpenStart+fsq%8))
				}
				if file&pawns == 0 {
					active = append(active, uint16(FullOpenStart+fsq%8))
				}
				mob := bits.OnesCount64(c.table.Rook(sq, all) & safe)
				active = append(active, uint16(RookMobStart+mob))
			case Q:
				mob := bits.OnesCount64(attacks.Queen(c.table, sq, all) & safe)
				active = append(active, uint16(QueenMobStart+mob))
			}
		}
	}
	return active
}

type numberedLine struct {
	n    int
	text string
}

// LoadDataset decodes every record of r. A reader goroutine feeds the
// decoder; the first bad record aborts the load. Blank lines are skipped.
func LoadDataset(ctx context.Context, r io.Reader, codec *Codec) ([]DataPoint, error) {
	if codec == nil {
		codec = defaultCodec
	}
	g, ctx := errgroup.WithContext(ctx)
	lines := make(chan numberedLine, 1024)

	g.Go(func() error {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		n := 0
		for sc.Scan() {
			n++
			text := strings.TrimRight(sc.Text(), "\r")
			if strings.TrimSpace(text) == "" {
				continue
			}
			select {
			case lines <- numberedLine{n, text}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return errors.Wrap(sc.Err(), "reading dataset")
	})

	var out []DataPoint
	g.Go(func() error {
		for ln := range lines {
			p, err := codec.Parse(ln.text)
			if err != nil {
				var fe *FormatError
				if errors.As(err, &fe) {
					fe.Line = ln.n
				}
				return err
			}
			out = append(out, p)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
