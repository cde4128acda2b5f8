package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mgpai22/libersonora/internal/audio"
	"github.com/mgpai22/libersonora/internal/config"
)

// what a batch does when one file fails
type ErrorPolicy string

const (
	// cancel the remaining files and remove artifacts already written by the batch
	FailFast ErrorPolicy = "fail-fast"
	// record the failure and keep going
	Continue ErrorPolicy = "continue"
)

func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case FailFast, Continue:
		return ErrorPolicy(s), nil
	case "":
		return FailFast, nil
	}
	return "", fmt.Errorf("unknown error policy %q (want %q or %q)", s, FailFast, Continue)
}

type RunOptions struct {
	Policy ErrorPolicy
	// upper bound on files in flight; zero or less means one per file
	Concurrency int
}

// outcome of a batch, in input order
type BatchResult struct {
	Results []Result
	Failed  []*FileError
}

// returns every file path written by the batch
func (b BatchResult) Paths() []string {
	var paths []string
	for _, r := range b.Results {
		paths = append(paths, r.Names.Paths()...)
	}
	return paths
}

// RunConcurrent processes units in parallel.
// Results keep input order regardless of completion order.
func (p *Processor) RunConcurrent(ctx context.Context, units []audio.Unit, cfg *config.PipelineConfig, outDir string, opts RunOptions) (BatchResult, error) {
	policy := opts.Policy
	if policy == "" {
		policy = FailFast
	}

	var (
		g    *errgroup.Group
		gctx = ctx
	)
	if policy == FailFast {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = &errgroup.Group{}
	}
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	results := make([]*Result, len(units))
	failures := make([]*FileError, len(units))
	var mu sync.Mutex

	for i, u := range units {
		g.Go(func() error {
			res, err := p.Process(gctx, i, u, cfg, outDir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[i] = asFileError(err, i, u)
				if policy == FailFast {
					return failures[i]
				}
				return nil
			}
			results[i] = &res
			return nil
		})
	}
	firstErr := g.Wait()

	batch := collect(results, failures)
	if policy == FailFast && firstErr != nil {
		p.log.Warnw("Batch aborted, removing written artifacts", "error", firstErr, "written", len(batch.Results))
		removePaths(batch.Paths())
		batch.Results = nil
		return batch, firstErr
	}
	return batch, batch.err()
}

// RunSequential processes units one at a time in input order.
func (p *Processor) RunSequential(ctx context.Context, units []audio.Unit, cfg *config.PipelineConfig, outDir string, opts RunOptions) (BatchResult, error) {
	policy := opts.Policy
	if policy == "" {
		policy = FailFast
	}

	var batch BatchResult
	for i, u := range units {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		res, err := p.Process(ctx, i, u, cfg, outDir)
		if err != nil {
			fe := asFileError(err, i, u)
			batch.Failed = append(batch.Failed, fe)
			if policy == FailFast {
				removePaths(batch.Paths())
				batch.Results = nil
				return batch, fe
			}
			continue
		}
		batch.Results = append(batch.Results, res)
		p.log.Infow("Batch progress", "done", i+1, "total", len(units), "failed", len(batch.Failed))
	}
	return batch, batch.err()
}

func (b BatchResult) err() error {
	if len(b.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(b.Failed))
	for i, f := range b.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func collect(results []*Result, failures []*FileError) BatchResult {
	var b BatchResult
	for _, r := range results {
		if r != nil {
			b.Results = append(b.Results, *r)
		}
	}
	for _, f := range failures {
		if f != nil {
			b.Failed = append(b.Failed, f)
		}
	}
	return b
}

func asFileError(err error, index int, u audio.Unit) *FileError {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe
	}
	return &FileError{Index: index, Name: u.Name(), Err: err}
}
