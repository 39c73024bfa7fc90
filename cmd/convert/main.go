// cmd/convert/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
	"texel-tuner/attacks"
	"texel-tuner/tuner"
)

var (
	input     = flag.String("in", "", "Input dataset, one \"<fen> ce <score>\" record per line")
	output    = flag.String("out", "", "Output binary cache")
	attackTbl = flag.String("attacks", "magic", `Slider table used to decode records: "magic", "pext" or "walk"`)
	showBar   = flag.Bool("bar", false, "Show a progress bar while reading")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: convert -in <dataset.epd> -out <dataset.bin>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	must.M(os.MkdirAll(filepath.Dir(*output), 0o755))

	start := time.Now()
	data := must.M1(decode(context.Background()))
	must.M(tuner.SaveBinary(*output, data))

	st := must.M1(os.Stat(*output))
	klog.Infof("Converted %s positions to %s (%s) in %s",
		humanize.Comma(int64(len(data))), *output, humanize.Bytes(uint64(st.Size())),
		time.Since(start).Round(time.Millisecond))
}

func decode(ctx context.Context) ([]tuner.DataPoint, error) {
	table, err := attacks.ByName(*attackTbl)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(*input)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %q for reading", *input)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if *showBar {
		st, err := f.Stat()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		bar := progressbar.DefaultBytes(st.Size(), "converting")
		defer func() { _ = bar.Finish() }()
		r = io.TeeReader(f, bar)
	}
	return tuner.LoadDataset(ctx, r, tuner.NewCodec(table))
}
