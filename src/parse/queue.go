package parse

import (
	"github.com/please-build/descgen/src/core"
)

// A queue tracks the target files that remain to be loaded, and which file first needed each one.
type queue struct {
	pending []string
	seen    map[string]bool
	from    map[string]string
}

func newQueue(files []string) *queue {
	q := &queue{
		seen: make(map[string]bool, len(files)),
		from: map[string]string{},
	}
	for _, file := range files {
		if !q.seen[file] {
			q.seen[file] = true
			q.pending = append(q.pending, file)
		}
	}
	return q
}

// Pop returns the next file to load, or false if there aren't any.
func (q *queue) Pop() (string, bool) {
	if len(q.pending) == 0 {
		return "", false
	}
	file := q.pending[0]
	q.pending = q.pending[1:]
	return file, true
}

// Len returns the number of files waiting to be loaded.
func (q *queue) Len() int {
	return len(q.pending)
}

// Add adds the dependencies of a loaded file that haven't been seen before.
func (q *queue) Add(result *loadResult) {
	for _, dep := range result.Dependencies {
		if !q.seen[dep] {
			q.seen[dep] = true
			q.from[dep] = result.File
			q.pending = append(q.pending, dep)
		}
	}
}

// AddContext annotates an error from loading a file with the chain of files that led to it.
func (q *queue) AddContext(err error, file string) error {
	err = core.AddContext(err, "while loading %s", file)
	for f := q.from[file]; f != ""; f = q.from[f] {
		err = core.AddContext(err, "while loading dependencies of %s", f)
	}
	return err
}
