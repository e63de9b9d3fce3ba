package pipeline

import (
	"context"
	"fmt"

	"github.com/ironsheep/orientation-mcp/internal/imaging"
	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome of one file in a batch. Exactly one of Error
// and Result is set.
type FileResult struct {
	Path   string  `json:"path"`
	Error  string  `json:"error,omitempty"`
	Result *Result `json:"result,omitempty"`
}

// AnalyzeFiles runs AnalyzeFile on every path with at most workers files
// in flight. Results keep the order of paths.
//
// A file that cannot be loaded or analysed is reported in its FileResult
// and does not stop the batch. done, when non-nil, is called from the
// worker goroutine for every successful file; an error from done cancels
// the files not yet started and is returned.
func AnalyzeFiles(ctx context.Context, cache *imaging.ImageCache, paths []string, p Params, workers int, done func(*FileResult) error) ([]FileResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, fmt.Errorf("workers must be >= 1, got %d", workers)
	}

	results := make([]FileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			fr := &results[i]
			fr.Path = path
			result, err := AnalyzeFile(cache, path, p)
			// Batches visit each file once; keep memory flat.
			cache.Evict(path)
			if err != nil {
				fr.Error = err.Error()
				return nil
			}
			fr.Result = result
			if done != nil {
				return done(fr)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
