// cmd/export_eval/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
	"texel-tuner/tuner"
)

var (
	modelPath = flag.String("model", "", "JSON model written by texel -out")
	family    = flag.String("family", "", "Print only this family (e.g. PassedPawn)")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *modelPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: export_eval -model <model.json> [-family NAME]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	params, k := must.M2(tuner.LoadModelJSON(*modelPath))
	klog.V(1).Infof("Loaded %s (k = %.7f)", *modelPath, k)

	if *family == "" {
		must.M(tuner.WriteWeights(os.Stdout, params))
		return
	}
	f, ok := tuner.FamilyByName(*family)
	if !ok {
		names := make([]string, len(tuner.Families))
		for i, f := range tuner.Families {
			names[i] = f.Name
		}
		klog.Fatalf("Unknown family %q, want one of %v", *family, names)
	}
	must.M(tuner.WriteFamily(os.Stdout, f, params))
}
