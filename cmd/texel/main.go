// cmd/texel/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
	"texel-tuner/attacks"
	"texel-tuner/checkpoint"
	"texel-tuner/tuner"
)

var (
	dataPath  = flag.String("data", "", "Dataset with one \"<fen> ce <score>\" record per line")
	binPath   = flag.String("bin", "", "Binary dataset cache written by convert (alternative to -data)")
	threads   = flag.Int("threads", tuner.DefaultConfig().Threads, "Worker goroutines per pass")
	epochs    = flag.Int("epochs", tuner.DefaultTrainConfig().Epochs, "Training epochs")
	lr        = flag.Float64("lr", tuner.DefaultTrainConfig().Rate, "Adam learning rate")
	report    = flag.Int("report", tuner.DefaultTrainConfig().ReportEvery, "Epochs between error reports (0 = never)")
	kScale    = flag.Float64("k", 0, "Logistic scale; 0 calibrates it on the dataset")
	kIter     = flag.Int("kiter", 10000, "Cap on k calibration iterations (0 = unbounded)")
	initModel = flag.String("init", "", "JSON model to start from instead of material seeds")
	outJSON   = flag.String("out", "", "Where to write the tuned model as JSON (optional)")
	ckptDir   = flag.String("checkpoint", "", "Directory of the checkpoint store (optional)")
	ckptEvery = flag.Int("checkpoint_every", tuner.DefaultTrainConfig().CheckpointEvery, "Epochs between checkpoints")
	ckptKeep  = flag.Int("checkpoint_keep", 3, "Checkpoints retained (0 = all)")
	resume    = flag.Bool("resume", false, "Continue from the latest checkpoint")
	attackTbl = flag.String("attacks", "magic", `Slider table used to decode records: "magic", "pext" or "walk"`)
	showBar   = flag.Bool("bar", false, "Show a progress bar while loading")
	freeze    = flag.String("freeze", "", "Comma separated families left untrained (e.g. PST,BishopPair)")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if (*dataPath == "") == (*binPath == "") {
		fmt.Fprintln(os.Stderr, "Usage: exactly one of -data or -bin is required")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *resume && *ckptDir == "" {
		klog.Fatalf("-resume requires -checkpoint")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	table := must.M1(attacks.ByName(*attackTbl))
	tn := tuner.New(tuner.Config{Threads: *threads, Table: table, KMaxIter: *kIter})

	start := time.Now()
	n := must.M1(loadData(ctx, tn))
	klog.Infof("Loaded %s positions in %s", humanize.Comma(int64(n)), time.Since(start).Round(time.Millisecond))

	k := *kScale
	if *initModel != "" {
		w, modelK := must.M2(tuner.LoadModelJSON(*initModel))
		must.M(tn.SetWeights(w))
		if k == 0 {
			k = modelK
		}
		klog.Infof("Loaded initial weights from %s", *initModel)
	} else {
		tn.SeedWeights()
	}

	if names := tuner.SplitFamilies(*freeze); len(names) > 0 {
		must.M(tn.Freeze(names...))
		klog.Infof("Frozen families: %v", names)
	}

	fmt.Printf("Parameters: %d\n", tuner.NumParams)
	fmt.Printf("Positions : %d\n", tn.NumDataPoints())

	cfg := tuner.TrainConfig{
		Epochs:          *epochs,
		Rate:            *lr,
		K:               k,
		ReportEvery:     *report,
		CheckpointEvery: *ckptEvery,
	}
	if *ckptDir != "" {
		must.M(os.MkdirAll(*ckptDir, 0o755))
		store := must.M1(checkpoint.Open(*ckptDir, *ckptKeep))
		defer func() { _ = store.Close() }()
		cfg.Checkpointer = store
		if *resume {
			snap := must.M1(store.Latest())
			must.M(tn.Restore(snap))
			cfg.StartEpoch, cfg.K = snap.Epoch, snap.K
			klog.Infof("Resuming after epoch %d with k = %.7f", snap.Epoch, snap.K)
		}
	}

	start = time.Now()
	res, err := tn.Train(ctx, cfg)
	if errors.Is(err, context.Canceled) {
		klog.Warningf("Interrupted after epoch %d", res.Epochs)
	} else {
		must.M(err)
	}
	fmt.Printf("k = %.7f\n", res.K)

	must.M(tuner.WriteWeights(os.Stdout, tn.Weights()))
	if *outJSON != "" {
		must.M(os.MkdirAll(filepath.Dir(*outJSON), 0o755))
		must.M(tuner.SaveModelJSON(*outJSON, tn.Weights(), res.K))
		klog.Infof("Saved model to %s", *outJSON)
	}
	printSummary(res, time.Since(start), tn.NumDataPoints())
}

// loadData fills tn from -data or -bin and returns the number of points.
func loadData(ctx context.Context, tn *tuner.Tuner) (int, error) {
	if *binPath != "" {
		data, err := tuner.LoadBinary(*binPath)
		if err != nil {
			return 0, err
		}
		tn.AddPoints(data...)
		return len(data), nil
	}

	f, err := os.Open(*dataPath)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer f.Close()
	var r io.Reader = f
	if *showBar {
		st, err := f.Stat()
		if err != nil {
			return 0, errors.WithStack(err)
		}
		bar := progressbar.DefaultBytes(st.Size(), "loading")
		defer func() { _ = bar.Finish() }()
		r = io.TeeReader(f, bar)
	}
	return tn.AddData(ctx, r)
}

func printSummary(res tuner.TrainResult, elapsed time.Duration, positions int) {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("12")).
		Padding(0, 2)
	label := lipgloss.NewStyle().Bold(true)
	body := fmt.Sprintf("%s %d\n%s %s\n%s %.7f\n%s %.6f\n%s %s",
		label.Render("epochs   "), res.Epochs,
		label.Render("positions"), humanize.Comma(int64(positions)),
		label.Render("k        "), res.K,
		label.Render("error    "), res.Error,
		label.Render("elapsed  "), elapsed.Round(time.Second))
	fmt.Fprintln(os.Stderr, box.Render(body))
}
