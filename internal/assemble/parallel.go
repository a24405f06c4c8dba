package assemble

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/inodb/makevcf/internal/vcf"
)

// WorkItem holds a raw input ready for building.
type WorkItem struct {
	Seq   int
	Input Input
}

// WorkResult holds the build output for a single input.
type WorkResult struct {
	Seq    int
	Input  Input
	Record *vcf.Record
	Err    error
}

// ParallelBuild builds records for inputs using a pool of workers that share
// the assembler's header. Results are sent to the returned channel in
// arrival order (not sequence order); use OrderedCollect to consume them in
// input order. If workers is 0, runtime.NumCPU() is used.
// Cancelling ctx stops the pool early, so fewer results than inputs may arrive.
func (a *Assembler) ParallelBuild(ctx context.Context, inputs []Input, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	items := make(chan WorkItem, 2*workers)
	results := make(chan WorkResult, 2*workers)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(items)
		for i, in := range inputs {
			select {
			case items <- WorkItem{Seq: i, Input: in}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			for item := range items {
				if err := ctx.Err(); err != nil {
					return err
				}
				rec, err := a.BuildInput(item.Seq, item.Input)
				select {
				case results <- WorkResult{Seq: item.Seq, Input: item.Input, Record: rec, Err: err}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
