// tuner/export.go
package tuner

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const exportRowWidth = 8

// WriteWeights prints every family in layout order as S(mg, eg) tables,
// eight values per row. The piece-square family nests one table per kind.
func WriteWeights(w io.Writer, params Params) error {
	if len(params) != NumParams {
		return errors.Wrapf(ErrLayoutMismatch, "got %d weights, want %d", len(params), NumParams)
	}
	bw := bufio.NewWriter(w)
	for _, f := range Families {
		writeFamily(bw, f, params.Family(f))
	}
	return errors.Wrap(bw.Flush(), "writing weights")
}

// WriteFamily prints a single family.
func WriteFamily(w io.Writer, f Family, params Params) error {
	if len(params) != NumParams {
		return errors.Wrapf(ErrLayoutMismatch, "got %d weights, want %d", len(params), NumParams)
	}
	bw := bufio.NewWriter(w)
	writeFamily(bw, f, params.Family(f))
	return errors.Wrap(bw.Flush(), "writing weights")
}

func writeFamily(w *bufio.Writer, f Family, vals Params) {
	fmt.Fprintf(w, "// %s\n", f.Name)
	if f.Size == 1 {
		fmt.Fprintf(w, "%s,\n\n", vals[0].Rounded())
		return
	}
	if f.Blocks == 1 {
		writeTable(w, vals, "")
		fmt.Fprintln(w)
		return
	}
	per := f.Size / f.Blocks
	fmt.Fprintln(w, "[")
	for b := 0; b < f.Blocks; b++ {
		writeTable(w, vals[b*per:(b+1)*per], "    ")
	}
	fmt.Fprint(w, "]\n\n")
}

func writeTable(w *bufio.Writer, vals Params, indent string) {
	fmt.Fprintf(w, "%s[\n", indent)
	for lo := 0; lo < len(vals); lo += exportRowWidth {
		row := vals[lo:min(lo+exportRowWidth, len(vals))]
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.Rounded() + ","
		}
		fmt.Fprintf(w, "%s    %s\n", indent, strings.Join(cells, " "))
	}
	fmt.Fprintf(w, "%s],\n", indent)
}
