package parse

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/expand"
)

// loadParallel loads target files on a pool of worker goroutines.
// This goroutine acts as the coordinator; it owns the returned data and decides what to load next.
// Each worker keeps its own cache of included files, so nothing is shared between them apart from
// the expansion engine.
func (l *Loader) loadParallel(ctx context.Context, files []string, vars expand.Variables) (map[string]core.Map, error) {
	n := l.opts.NumWorkers
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(n)
	loaders := make(chan *fileLoader, n)
	for i := 0; i < n; i++ {
		loaders <- l.newFileLoader()
	}
	results := make(chan *loadResult)
	q := newQueue(files)
	data := map[string]core.Map{}
	inflight := 0
	for q.Len() > 0 || inflight > 0 {
		for q.Len() > 0 && inflight < n {
			file, _ := q.Pop()
			fl := <-loaders
			inflight++
			g.Go(func() error {
				defer func() { loaders <- fl }()
				result, err := fl.LoadTargetFile(file, vars)
				if err != nil {
					return &loadError{file: file, err: err}
				}
				select {
				case results <- result:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}
		select {
		case result := <-results:
			inflight--
			q.Add(result)
			result.store(data)
		case <-ctx.Done():
			if err := g.Wait(); err != nil {
				return nil, q.errorContext(err)
			}
			return nil, ctx.Err()
		}
	}
	if err := g.Wait(); err != nil {
		return nil, q.errorContext(err)
	}
	log.Debug("Loaded %d files on %d workers", len(data), n)
	return data, nil
}

// A loadError is an error from a worker loading a single file.
// The coordinator adds the context of which files led to it, since only it can see that.
type loadError struct {
	file string
	err  error
}

func (err *loadError) Error() string {
	return err.err.Error()
}

func (err *loadError) Unwrap() error {
	return err.err
}

// errorContext adds context to an error returned from the worker pool.
func (q *queue) errorContext(err error) error {
	var le *loadError
	if errors.As(err, &le) {
		return q.AddContext(le.err, le.file)
	}
	return err
}
