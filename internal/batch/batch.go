// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package batch drives operations that touch many Superset resources at once and
// reports an outcome for every item.
//
// A failing item is recorded and its siblings still run. A connection failure is the
// exception: it aborts the whole operation, and the partial result is returned along
// with the error. Dry runs go through a simulating session, so the result of a dry
// run has the same shape as a real one.
package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/toolkit"
)

// Options tunes an Orchestrator.
type Options struct {
	// Concurrency is the number of items processed at once. Values below 2 run items
	// one after another.
	Concurrency int
}

// Orchestrator runs batch operations over a session.
type Orchestrator struct {
	session *toolkit.Session
	opts    Options
	logger  *pterm.Logger
}

// New returns an orchestrator over s.
func New(s *toolkit.Session, opts Options) *Orchestrator {
	return &Orchestrator{session: s, opts: opts, logger: s.Logger()}
}

// Outcome is the result of one item.
type Outcome struct {
	Index int
	// Input describes the item, e.g. the chart name or "chart 12".
	Input string
	ID    int
	Err   error
	// Simulated is true when the mutation was only recorded.
	Simulated bool
}

// OK reports whether the item succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Result collects the outcomes of a batch in input order.
type Result struct {
	Items     []Outcome
	Succeeded int
	Failed    int
	Simulated bool
	// Aborted is true when a connection failure stopped the batch; Items then holds
	// only the items that were attempted.
	Aborted bool
}

// IDs returns the ids of the items that succeeded, in input order.
func (r Result) IDs() []int {
	var ids []int
	for _, o := range r.Items {
		if o.OK() {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Failures returns the items that failed.
func (r Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Items {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

func (r *Result) add(o Outcome) {
	r.Items = append(r.Items, o)
	if o.OK() {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

func (r *Result) merge(other Result) {
	for _, o := range other.Items {
		o.Index = len(r.Items)
		r.add(o)
	}
	r.Aborted = r.Aborted || other.Aborted
}

// task is one unit of work. do returns the id the item produced or acted on.
type task struct {
	input string
	do    func(ctx context.Context) (int, error)
}

// run executes tasks and records their outcomes. It returns a non-nil error only
// when a connection failure aborted the run.
func (o *Orchestrator) run(ctx context.Context, sess *toolkit.Session, tasks []task) (Result, error) {
	res := Result{Simulated: sess.DryRun()}
	outcomes := make([]Outcome, len(tasks))
	attempted := make([]bool, len(tasks))

	var (
		mu    sync.Mutex
		fatal error
	)
	exec := func(ctx context.Context, i int) error {
		if ctx.Err() != nil {
			return nil
		}
		id, err := tasks[i].do(ctx)
		out := Outcome{Index: i, Input: tasks[i].input, ID: id, Err: err, Simulated: err == nil && sess.DryRun()}
		mu.Lock()
		outcomes[i] = out
		attempted[i] = true
		mu.Unlock()
		if err != nil {
			o.logger.Warn("batch item failed", o.logger.Args("item", tasks[i].input, "error", err.Error()))
		}
		if apperr.IsConnection(err) {
			mu.Lock()
			if fatal == nil {
				fatal = err
			}
			mu.Unlock()
			return err
		}
		return nil
	}

	if o.opts.Concurrency < 2 {
		for i := range tasks {
			if err := exec(ctx, i); err != nil {
				break
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.opts.Concurrency)
		for i := range tasks {
			g.Go(func() error { return exec(gctx, i) })
		}
		_ = g.Wait()
	}

	for i, out := range outcomes {
		if attempted[i] {
			res.add(out)
		}
	}
	if fatal != nil {
		res.Aborted = true
		return res, apperr.Annotate(fmt.Sprintf("batch aborted after %d of %d items", len(res.Items), len(tasks)), fatal)
	}
	if err := ctx.Err(); err != nil {
		res.Aborted = true
		return res, err
	}
	return res, nil
}

// sessionFor returns the session to use for a call, simulated when dryRun is set.
func (o *Orchestrator) sessionFor(dryRun bool) *toolkit.Session {
	if dryRun {
		return o.session.Simulated()
	}
	return o.session
}
