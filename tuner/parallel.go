// tuner/parallel.go
package tuner

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// WorkerError reports a failed chunk of a parallel pass. Panics inside a
// worker are recovered into one.
type WorkerError struct {
	Chunk int
	Cause error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d: %v", e.Chunk, e.Cause)
}

func (e *WorkerError) Unwrap() error { return e.Cause }

// parallelReduce runs work over contiguous chunks of data, one goroutine per
// chunk, and returns the partial results in chunk order. Any failing chunk
// fails the whole pass.
func parallelReduce[T any](data []DataPoint, threads int, work func(chunk []DataPoint) (T, error)) ([]T, error) {
	bounds := chunkBounds(len(data), threads)
	parts := make([]T, len(bounds))
	var g errgroup.Group
	for i, b := range bounds {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &WorkerError{Chunk: i, Cause: errors.Errorf("panic: %v", r)}
				}
			}()
			start := time.Now()
			part, err := work(data[b[0]:b[1]])
			if err != nil {
				return &WorkerError{Chunk: i, Cause: err}
			}
			parts[i] = part
			klog.V(2).Infof("chunk %d: %d points in %s", i, b[1]-b[0], time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}
