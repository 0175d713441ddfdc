// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package batch

import (
	"context"

	"supersetctl/cli/internal/charts"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/toolkit"
)

// CreateChartsBatch ensures every chart in specs. Charts without an owner use
// ownerHint, and when that is empty too the session's own user. Each distinct owner
// is resolved once before any chart is touched.
func (o *Orchestrator) CreateChartsBatch(ctx context.Context, specs []charts.Spec, ownerHint string, dryRun bool) (Result, error) {
	sess := o.sessionFor(dryRun)
	owners, err := o.resolveOwners(ctx, sess, specs, ownerHint)
	if err != nil {
		return Result{Simulated: sess.DryRun(), Aborted: true}, err
	}

	tasks := make([]task, len(specs))
	for i, spec := range specs {
		owner := ownerOf(spec, ownerHint)
		tasks[i] = task{
			input: spec.Name,
			do: func(ctx context.Context) (int, error) {
				r := owners[owner]
				if r.err != nil {
					return 0, r.err
				}
				out, err := sess.EnsureChartFor(ctx, spec, r.id)
				return out.ID, err
			},
		}
	}
	res, err := o.run(ctx, sess, tasks)
	o.logger.Info("chart batch finished", o.logger.Args("charts", len(specs), "succeeded", res.Succeeded, "failed", res.Failed, "dry_run", res.Simulated))
	return res, err
}

type resolved struct {
	id  int
	err error
}

func ownerOf(spec charts.Spec, hint string) string {
	if spec.Owner != "" {
		return spec.Owner
	}
	return hint
}

// resolveOwners resolves every distinct owner once. Resolution failures are kept per
// owner so only that owner's items fail; a connection failure is returned.
func (o *Orchestrator) resolveOwners(ctx context.Context, sess *toolkit.Session, specs []charts.Spec, hint string) (map[string]resolved, error) {
	owners := make(map[string]resolved)
	for _, spec := range specs {
		name := ownerOf(spec, hint)
		if _, done := owners[name]; done {
			continue
		}
		id, err := sess.ResolveUserID(ctx, name)
		if apperr.IsConnection(err) {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		owners[name] = resolved{id: id, err: err}
	}
	return owners, nil
}
