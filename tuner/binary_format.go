// tuner/binary_format.go
package tuner

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// binaryHeader precedes the feature ids of every point in the cache.
type binaryHeader struct {
	NWhite uint16
	NBlack uint16
	Phase  float64
	Result float64
}

// preallocPoints bounds the capacity reserved from the count header; a
// corrupt header then fails on a short read instead of a huge allocation.
const preallocPoints = 1 << 20

// WriteBinary writes a count header followed by every point. Points read
// back by ReadBinary are identical to the ones written.
func WriteBinary(w io.Writer, data []DataPoint) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(data))); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i := range data {
		p := &data[i]
		h := binaryHeader{
			NWhite: uint16(len(p.Active[White])),
			NBlack: uint16(len(p.Active[Black])),
			Phase:  p.Phase,
			Result: p.Result,
		}
		if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
			return errors.Wrapf(err, "write point %d", i)
		}
		for side := White; side <= Black; side++ {
			if err := binary.Write(bw, binary.LittleEndian, p.Active[side]); err != nil {
				return errors.Wrapf(err, "write point %d", i)
			}
		}
	}
	return errors.Wrap(bw.Flush(), "flush")
}

// ReadBinary reads a cache written by WriteBinary.
func ReadBinary(r io.Reader) ([]DataPoint, error) {
	br := bufio.NewReader(r)
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	out := make([]DataPoint, 0, min(count, preallocPoints))
	for i := uint64(0); i < count; i++ {
		var h binaryHeader
		if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
			return nil, errors.Wrapf(err, "read point %d", i)
		}
		ids := make([]uint16, int(h.NWhite)+int(h.NBlack))
		if err := binary.Read(br, binary.LittleEndian, ids); err != nil {
			return nil, errors.Wrapf(err, "read point %d", i)
		}
		for _, id := range ids {
			if id >= NumParams {
				return nil, errors.Wrapf(ErrLayoutMismatch, "point %d: feature id %d, want below %d", i, id, NumParams)
			}
		}
		var p DataPoint
		p.Phase, p.Result = h.Phase, h.Result
		p.Active[White] = ids[:h.NWhite:h.NWhite]
		p.Active[Black] = ids[h.NWhite:]
		out = append(out, p)
	}
	return out, nil
}

// SaveBinary writes data to path.
func SaveBinary(path string, data []DataPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := WriteBinary(f, data); err != nil {
		f.Close()
		return err
	}
	return errors.WithStack(f.Close())
}

// LoadBinary reads all points from path.
func LoadBinary(path string) ([]DataPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return ReadBinary(f)
}
