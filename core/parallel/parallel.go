// Package parallel runs index ranges on a bounded set of goroutines.
//
// Forest prediction, histogram binning and SMOTE neighbour search split their
// outer loop with ParallelizeN or ParallelizeWithThreshold; forest fitting
// builds one tree per ForEach call.
package parallel

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// chunks splits [0, items) into at most workers contiguous ranges of nearly
// equal size.
func chunks(items, workers int) [][2]int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, items)
	if workers <= 0 {
		return nil
	}
	size := (items + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for start := 0; start < items; start += size {
		out = append(out, [2]int{start, min(start+size, items)})
	}
	return out
}

// ParallelizeN runs fn once per range on up to workers goroutines and returns
// when all ranges are done. workers <= 0 means one per CPU.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	var g errgroup.Group
	for _, c := range chunks(items, workers) {
		c := c
		g.Go(func() error {
			fn(c[0], c[1])
			return nil
		})
	}
	_ = g.Wait()
}

// ParallelizeWithThreshold calls fn(0, items) on the caller's goroutine when
// items <= threshold, and otherwise splits the range across all CPUs.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	ParallelizeN(items, 0, fn)
}

// ForEach runs fn(i) for every i in [0, items) with at most limit calls in
// flight and returns the first error. Calls not yet started when an error is
// seen are skipped. limit <= 0 means one per CPU.
func ForEach(items, limit int, fn func(i int) error) error {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	var (
		g    errgroup.Group
		stop atomic.Bool
	)
	g.SetLimit(limit)
	for i := 0; i < items && !stop.Load(); i++ {
		i := i
		g.Go(func() error {
			if stop.Load() {
				return nil
			}
			if err := fn(i); err != nil {
				stop.Store(true)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
