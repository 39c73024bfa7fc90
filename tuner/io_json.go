// tuner/io_json.go
package tuner

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

const modelLayoutTag = "texel_v1_539"

type familyJSON struct {
	Name  string    `json:"name"`
	Start int       `json:"start"`
	MG    []float64 `json:"mg"`
	EG    []float64 `json:"eg"`
}

// Model serialization keeps families grouped for readability.
type modelJSON struct {
	Layout   string       `json:"layout"`
	K        float64      `json:"k"`
	Families []familyJSON `json:"families"`
}

// WriteModelJSON encodes params and k.
func WriteModelJSON(w io.Writer, params Params, k float64) error {
	if len(params) != NumParams {
		return errors.Wrapf(ErrLayoutMismatch, "got %d weights, want %d", len(params), NumParams)
	}
	payload := modelJSON{Layout: modelLayoutTag, K: k}
	for _, f := range Families {
		fj := familyJSON{Name: f.Name, Start: f.Start, MG: make([]float64, f.Size), EG: make([]float64, f.Size)}
		for i, s := range params.Family(f) {
			fj.MG[i], fj.EG[i] = s.MG, s.EG
		}
		payload.Families = append(payload.Families, fj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(payload), "encoding model")
}

// ReadModelJSON decodes a model written by WriteModelJSON.
func ReadModelJSON(r io.Reader) (Params, float64, error) {
	var m modelJSON
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, 0, errors.Wrap(err, "decoding model")
	}
	if m.Layout != modelLayoutTag {
		return nil, 0, errors.Wrapf(ErrLayoutMismatch, "model layout %q, want %q", m.Layout, modelLayoutTag)
	}
	if len(m.Families) != len(Families) {
		return nil, 0, errors.Wrapf(ErrLayoutMismatch, "model has %d families, want %d", len(m.Families), len(Families))
	}
	params := NewParams()
	for i, fj := range m.Families {
		f := Families[i]
		if fj.Name != f.Name || fj.Start != f.Start || len(fj.MG) != f.Size || len(fj.EG) != f.Size {
			return nil, 0, errors.Wrapf(ErrLayoutMismatch, "family %d is %s@%d, want %s@%d", i, fj.Name, fj.Start, f.Name, f.Start)
		}
		for j := range fj.MG {
			params[f.Start+j] = S{fj.MG[j], fj.EG[j]}
		}
	}
	return params, m.K, nil
}

// SaveModelJSON writes path.tmp and renames it over path.
func SaveModelJSON(path string, params Params, k float64) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := WriteModelJSON(f, params, k); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmp, path))
}

func LoadModelJSON(path string) (Params, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	defer f.Close()
	return ReadModelJSON(f)
}
