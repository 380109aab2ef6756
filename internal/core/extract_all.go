package core

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of extracting one directory in ExtractAll
type Result struct {
	Dir  string
	Info *Info
	Err  error
}

// ExtractAll extracts several containers on a bounded worker pool.
// Results keep the order of dirs. A failing directory never stops the
// others; once ctx is done, directories not yet started report ctx.Err().
func (t *TData) ExtractAll(ctx context.Context, dirs []string, passcode []byte, workers int) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Result, len(dirs))
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i, dir := range dirs {
		results[i].Dir = dir
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			info, err := t.Extract(dir, passcode)
			results[i].Info = info
			results[i].Err = err
			if err != nil {
				t.logger.Warn("extraction failed", "dir", dir, "err", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
