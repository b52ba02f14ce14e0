// Package taskgroup runs independent units of work concurrently and keeps
// one outcome per unit. A failing or panicking unit never cancels its siblings.
package taskgroup

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one unit.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// OK reports whether the unit succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// Group executes submitted units with an optional concurrency limit.
type Group[T any] struct {
	limit int
	units []func(context.Context) (T, error)
}

// New creates a group; limit <= 0 means unbounded.
func New[T any](limit int) *Group[T] {
	return &Group[T]{limit: limit}
}

// Go submits a unit. Units start when Wait is called.
func (g *Group[T]) Go(unit func(context.Context) (T, error)) {
	g.units = append(g.units, unit)
}

// Len reports how many units were submitted.
func (g *Group[T]) Len() int { return len(g.units) }

// Wait runs every unit and returns results in submission order.
func (g *Group[T]) Wait(ctx context.Context) []Result[T] {
	results := make([]Result[T], len(g.units))

	var eg errgroup.Group
	if g.limit > 0 {
		eg.SetLimit(g.limit)
	}

	for i, unit := range g.units {
		eg.Go(func() error {
			results[i] = run(ctx, i, unit)
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

func run[T any](ctx context.Context, index int, unit func(context.Context) (T, error)) (res Result[T]) {
	res.Index = index
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("task %d panicked: %v", index, r)
		}
	}()
	res.Value, res.Err = unit(ctx)
	return res
}

// Succeeded counts successful results.
func Succeeded[T any](results []Result[T]) int {
	n := 0
	for _, r := range results {
		if r.OK() {
			n++
		}
	}
	return n
}
