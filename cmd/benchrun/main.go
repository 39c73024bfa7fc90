// cmd/benchrun/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// goCmd runs the go tool with args, streaming its output to ours.
func goCmd(args ...string) error {
	klog.V(1).Infof("go %s", strings.Join(args, " "))
	cmd := exec.Command("go", args...)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	return errors.Wrapf(cmd.Run(), "go %s", args[0])
}

func main() {
	klog.InitFlags(nil)
	data := flag.String("data", "", "dataset for the epoch throughput run (optional)")
	flag.Parse()

	// Usage: go run ./cmd/benchrun [-data file.epd]
	fmt.Println("Columns: BENCHMARK  N  ns/op  B/op  allocs/op")
	err := goCmd("test", "./bench", "./tuner", "-run", "^$", "-bench", ".", "-benchmem", "-benchtime=1s")
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode())
	} else if err != nil {
		klog.Fatal(err)
	}
	if *data == "" {
		return
	}

	fmt.Println("\nEpoch throughput:")
	for _, table := range []string{"magic", "pext"} {
		if err := goCmd("run", "./cmd/epochbench", "-data", *data, "-epochs", "10", "-attacks", table); err != nil {
			klog.Errorf("%s: %v", table, err)
		}
	}
}
