package tuner

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rampParams() Params {
	w := NewParams()
	for i := range w {
		w[i] = S{float64(i), -float64(i) / 2}
	}
	return w
}

func TestWriteWeights(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWeights(&buf, rampParams()))
	out := buf.String()

	assert.Equal(t, NumParams, strings.Count(out, "S("))
	last := -1
	for _, f := range Families {
		at := strings.Index(out, "// "+f.Name+"\n")
		require.GreaterOrEqual(t, at, 0, f.Name)
		assert.Greater(t, at, last, "%s out of order", f.Name)
		last = at
	}
	assert.Contains(t, out, "// BishopPair\nS(538, -269),\n")
	assert.Contains(t, out, "    S(0, 0), S(1, -1), S(2, -1), S(3, -2),")
	assert.Equal(t, 6, strings.Count(out, "    [\n"), "one nested table per piece kind")

	assert.True(t, errors.Is(WriteWeights(&buf, NewParams()[:10]), ErrLayoutMismatch))
}

func TestWriteFamily(t *testing.T) {
	var buf bytes.Buffer
	f, ok := FamilyByName("KnightMobility")
	require.True(t, ok)
	require.NoError(t, WriteFamily(&buf, f, rampParams()))
	assert.Equal(t, "// KnightMobility\n[\n"+
		"    S(472, -236), S(473, -237), S(474, -237), S(475, -238), S(476, -238), S(477, -239), S(478, -239), S(479, -240),\n"+
		"    S(480, -240),\n"+
		"],\n\n", buf.String())
}

func TestModelJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	w := rampParams()
	require.NoError(t, SaveModelJSON(path, w, 0.0071))

	got, k, err := LoadModelJSON(path)
	require.NoError(t, err)
	assert.Equal(t, w, got)
	assert.Equal(t, 0.0071, k)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestModelJSONRejectsOtherLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteModelJSON(&buf, rampParams(), 0.006))
	doc := strings.Replace(buf.String(), modelLayoutTag, "texel_v0", 1)
	_, _, err := ReadModelJSON(strings.NewReader(doc))
	assert.True(t, errors.Is(err, ErrLayoutMismatch))

	doc = strings.Replace(buf.String(), `"name": "PassedPawn"`, `"name": "Passers"`, 1)
	_, _, err = ReadModelJSON(strings.NewReader(doc))
	assert.True(t, errors.Is(err, ErrLayoutMismatch))
}

func TestBinaryRoundTrip(t *testing.T) {
	var data []DataPoint
	for i, pl := range positions {
		stm := "w"
		if i%2 == 1 {
			stm = "b"
		}
		data = append(data, mustParse(t, pl+" "+stm+" - - 0 1 ce 0.25"))
	}
	data = append(data, DataPoint{Phase: 0.5, Result: 1})

	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, SaveBinary(path, data))
	got, err := LoadBinary(path)
	require.NoError(t, err)
	require.Len(t, got, len(data))
	for i := range data {
		assert.Equal(t, data[i].Phase, got[i].Phase)
		assert.Equal(t, data[i].Result, got[i].Result)
		for side := White; side <= Black; side++ {
			assert.Equal(t, len(data[i].Active[side]), len(got[i].Active[side]))
			if len(data[i].Active[side]) > 0 {
				assert.Equal(t, data[i].Active[side], got[i].Active[side])
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, data))
	_, err = ReadBinary(bytes.NewReader(buf.Bytes()[:buf.Len()-3]))
	assert.Error(t, err)
}

func TestReadBinaryRejectsCorruptCache(t *testing.T) {
	t.Run("huge count", func(t *testing.T) {
		var hdr [8]byte
		binary.LittleEndian.PutUint64(hdr[:], 1<<32)
		_, err := ReadBinary(bytes.NewReader(hdr[:]))
		assert.ErrorContains(t, err, "read point 0")
	})

	t.Run("feature id out of range", func(t *testing.T) {
		p := mustParse(t, imbalanced[1])
		p.Active[Black] = append(p.Active[Black], 60000)
		var buf bytes.Buffer
		require.NoError(t, WriteBinary(&buf, []DataPoint{p}))
		_, err := ReadBinary(&buf)
		assert.True(t, errors.Is(err, ErrLayoutMismatch))
		assert.ErrorContains(t, err, "feature id 60000")
	})
}
