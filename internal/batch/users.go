// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package batch

import (
	"context"
	"fmt"

	"supersetctl/cli/internal/backend"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/toolkit"
)

// MigrationResult reports an ownership transfer.
type MigrationResult struct {
	FromID int
	ToID   int
	// Migrated is the number of resources reassigned, or that would be in a dry run.
	Migrated     int
	ChartIDs     []int
	DashboardIDs []int
	Result       Result
}

// MigrateUserResources hands every chart and dashboard owned by from over to to.
// Co-owners are kept. With dryRun set the same ids are reported and nothing changes.
func (o *Orchestrator) MigrateUserResources(ctx context.Context, from, to string, dryRun bool) (MigrationResult, error) {
	sess := o.sessionFor(dryRun)
	var mr MigrationResult
	var err error
	if mr.FromID, err = sess.ResolveUserID(ctx, from); err != nil {
		return mr, err
	}
	if mr.ToID, err = sess.ResolveUserID(ctx, to); err != nil {
		return mr, err
	}
	if mr.FromID == mr.ToID {
		return mr, apperr.Newf(apperr.Validation, "cannot migrate %s to itself", from)
	}

	mr.Result.Simulated = sess.DryRun()
	for _, kind := range []backend.Kind{backend.KindChart, backend.KindDashboard} {
		owned, err := sess.OwnedBy(ctx, kind, mr.FromID)
		if err != nil {
			return mr, err
		}
		tasks := make([]task, len(owned))
		for i, r := range owned {
			owners := reassign(r.OwnerIDs, mr.FromID, mr.ToID)
			tasks[i] = task{
				input: fmt.Sprintf("%s %d", kind, r.ID),
				do: func(ctx context.Context) (int, error) {
					return r.ID, sess.Executor().Update(ctx, kind, r.ID, backend.Payload{"owners": owners})
				},
			}
		}
		res, err := o.run(ctx, sess, tasks)
		mr.Result.merge(res)
		for _, out := range res.Items {
			if !out.OK() {
				continue
			}
			if kind == backend.KindChart {
				mr.ChartIDs = append(mr.ChartIDs, out.ID)
			} else {
				mr.DashboardIDs = append(mr.DashboardIDs, out.ID)
			}
		}
		if err != nil {
			mr.Migrated = mr.Result.Succeeded
			return mr, err
		}
	}
	mr.Migrated = mr.Result.Succeeded
	o.logger.Info("ownership migrated", o.logger.Args("from", from, "to", to, "migrated", mr.Migrated, "failed", mr.Result.Failed, "dry_run", mr.Result.Simulated))
	return mr, nil
}

// reassign replaces from with to in owners, keeping the order and other owners.
func reassign(owners []int, from, to int) []int {
	out := make([]int, 0, len(owners))
	hasTo := false
	for _, id := range owners {
		if id == to {
			hasTo = true
		}
	}
	for _, id := range owners {
		switch {
		case id == from && !hasTo:
			out = append(out, to)
			hasTo = true
		case id == from:
		default:
			out = append(out, id)
		}
	}
	return out
}

// CleanupResult reports what CleanupUser deleted.
type CleanupResult struct {
	UserID       int
	ChartIDs     []int
	DashboardIDs []int
	Result       Result
}

// CleanupUser deletes every chart and then every dashboard owned by username. With
// dryRun set it reports the same ids and deletes nothing.
func (o *Orchestrator) CleanupUser(ctx context.Context, username string, dryRun bool) (CleanupResult, error) {
	sess := o.sessionFor(dryRun)
	var cr CleanupResult
	id, err := sess.ResolveUserID(ctx, username)
	if err != nil {
		return cr, err
	}
	cr.UserID = id
	cr.Result.Simulated = sess.DryRun()

	for _, kind := range []backend.Kind{backend.KindChart, backend.KindDashboard} {
		owned, err := sess.OwnedBy(ctx, kind, id)
		if err != nil {
			return cr, err
		}
		res, err := o.run(ctx, sess, deleteTasks(sess, kind, owned))
		cr.Result.merge(res)
		if kind == backend.KindChart {
			cr.ChartIDs = res.IDs()
		} else {
			cr.DashboardIDs = res.IDs()
		}
		if err != nil {
			return cr, err
		}
	}
	o.logger.Info("user cleaned up", o.logger.Args("user", username, "charts", len(cr.ChartIDs), "dashboards", len(cr.DashboardIDs), "dry_run", cr.Result.Simulated))
	return cr, nil
}

// DeleteChartsBatch deletes the charts with the given ids.
func (o *Orchestrator) DeleteChartsBatch(ctx context.Context, ids []int, dryRun bool) (Result, error) {
	sess := o.sessionFor(dryRun)
	targets := make([]backend.Summary, len(ids))
	for i, id := range ids {
		targets[i] = backend.Summary{ID: id}
	}
	return o.run(ctx, sess, deleteTasks(sess, backend.KindChart, targets))
}

// DeleteByNamePattern deletes every resource of kind whose name contains pattern.
// The match is case-sensitive.
func (o *Orchestrator) DeleteByNamePattern(ctx context.Context, kind backend.Kind, pattern string, dryRun bool) (Result, error) {
	switch kind {
	case backend.KindChart, backend.KindDashboard, backend.KindDataset:
	default:
		return Result{}, apperr.Newf(apperr.Validation, "cannot delete %s resources by name", kind)
	}
	sess := o.sessionFor(dryRun)
	found, err := sess.MatchingName(ctx, kind, pattern)
	if err != nil {
		return Result{Simulated: sess.DryRun()}, err
	}
	return o.run(ctx, sess, deleteTasks(sess, kind, found))
}

func deleteTasks(sess *toolkit.Session, kind backend.Kind, targets []backend.Summary) []task {
	tasks := make([]task, len(targets))
	for i, r := range targets {
		input := fmt.Sprintf("%s %d", kind, r.ID)
		if r.Name != "" {
			input = fmt.Sprintf("%s %d %q", kind, r.ID, r.Name)
		}
		tasks[i] = task{
			input: input,
			do: func(ctx context.Context) (int, error) {
				return r.ID, sess.Executor().Delete(ctx, kind, r.ID)
			},
		}
	}
	return tasks
}
