// cmd/epochbench/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
	"texel-tuner/attacks"
	"texel-tuner/tuner"
)

func main() {
	klog.InitFlags(nil)
	dataFlag := flag.String("data", "", "dataset to train on (required)")
	epochsFlag := flag.Int("epochs", 20, "epochs to run")
	threadsFlag := flag.Int("threads", tuner.DefaultConfig().Threads, "worker goroutines")
	kFlag := flag.Float64("k", 0.006, "logistic scale, fixed for the run")
	attackFlag := flag.String("attacks", "magic", "slider table used to decode records")
	cpuProfile := flag.String("cpuprofile", "", "write CPU profile to file")
	memProfile := flag.String("memprofile", "", "write memory profile (heap) to file")
	flag.Parse()

	if *dataFlag == "" || *epochsFlag <= 0 {
		klog.Fatalf("need -data and a positive -epochs, got %q and %d", *dataFlag, *epochsFlag)
	}

	tn := tuner.New(tuner.Config{
		Threads: *threadsFlag,
		Table:   must.M1(attacks.ByName(*attackFlag)),
	})
	f := must.M1(os.Open(*dataFlag))
	loadStart := time.Now()
	must.M1(tn.AddData(context.Background(), f))
	_ = f.Close()
	tn.SeedWeights()
	fmt.Printf("epochbench: positions=%s threads=%d load=%v\n",
		humanize.Comma(int64(tn.NumDataPoints())), *threadsFlag, time.Since(loadStart).Round(time.Millisecond))

	if *cpuProfile != "" {
		cpuFile := must.M1(os.Create(*cpuProfile))
		must.M(pprof.StartCPUProfile(cpuFile))
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	startAll := time.Now()
	for i := 1; i <= *epochsFlag; i++ {
		iterStart := time.Now()
		must.M(tn.RunEpoch(*kFlag, tuner.DefaultTrainConfig().Rate))
		klog.V(1).Infof("epoch %d: %v", i, time.Since(iterStart))
	}
	total := time.Since(startAll)
	pps := float64(tn.NumDataPoints()**epochsFlag) / total.Seconds()
	e := must.M1(tn.Error(*kFlag))
	fmt.Printf("total time: %v  per epoch: %v  pos/sec: %s  error: %.6f\n",
		total, total/time.Duration(*epochsFlag), humanize.Comma(int64(pps)), e)

	if *memProfile != "" {
		mf := must.M1(os.Create(*memProfile))
		defer func() { _ = mf.Close() }()
		runtime.GC()
		must.M(pprof.WriteHeapProfile(mf))
	}
}
