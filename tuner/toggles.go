// tuner/toggles.go
package tuner

import (
	"strings"

	"github.com/pkg/errors"
)

// Freeze stops the named families from being trained. Frozen weights still
// take part in evaluation and keep their optimizer moments. Calling Freeze
// with no names unfreezes everything.
func (t *Tuner) Freeze(names ...string) error {
	if len(names) == 0 {
		t.adam.Frozen = nil
		return nil
	}
	mask := make([]bool, NumParams)
	for _, name := range names {
		f, ok := FamilyByName(name)
		if !ok {
			return errors.Errorf("unknown family %q", name)
		}
		for i := f.Start; i < f.End(); i++ {
			mask[i] = true
		}
	}
	t.adam.Frozen = mask
	return nil
}

// SplitFamilies parses a comma separated family list, e.g. "PST,BishopPair".
func SplitFamilies(list string) []string {
	var out []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
