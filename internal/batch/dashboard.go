// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package batch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"supersetctl/cli/internal/charts"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/layout"
	"supersetctl/cli/internal/toolkit"
)

// DashboardRequest describes a dashboard and the charts on it, in display order.
type DashboardRequest struct {
	Title string
	Slug  string
	// Owner owns the dashboard and every chart that names no owner.
	Owner  string
	Charts []charts.Spec
	// Layout tunes the grid. Its Title is replaced by the dashboard title and chart
	// sizes from the specs are added to its overrides.
	Layout layout.Options
}

// DashboardResult reports what CreateDashboardWithCharts did.
type DashboardResult struct {
	DashboardID int
	// ChartIDs lists the chart of every spec in input order.
	ChartIDs []int
	// Linked is the number of charts newly linked to the dashboard.
	Linked int
	// Created is true when the dashboard did not exist before.
	Created   bool
	Simulated bool
}

// Stages of CreateDashboardWithCharts reported by PartialError.
const (
	StageChart     = "chart"
	StageLayout    = "layout"
	StageDashboard = "dashboard"
	StageLink      = "link"
)

// PartialError is returned when a composite operation stops part way. Completed
// holds what was done before the failure; nothing is rolled back.
type PartialError struct {
	Stage string
	// Index is the chart position for the chart and link stages, -1 otherwise.
	Index     int
	Completed DashboardResult
	Err       error
}

func (e *PartialError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("dashboard stopped at %s %d (%d charts done): %v", e.Stage, e.Index, len(e.Completed.ChartIDs), e.Err)
	}
	return fmt.Sprintf("dashboard stopped at %s (%d charts done): %v", e.Stage, len(e.Completed.ChartIDs), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// CreateDashboardWithCharts ensures every chart, then the dashboard, lays the charts
// out in input order and links them. It stops at the first failure and returns a
// *PartialError describing how far it got.
func (o *Orchestrator) CreateDashboardWithCharts(ctx context.Context, req DashboardRequest, dryRun bool) (DashboardResult, error) {
	sess := o.sessionFor(dryRun)
	res := DashboardResult{Simulated: sess.DryRun()}
	if strings.TrimSpace(req.Title) == "" {
		return res, apperr.New(apperr.Validation, "dashboard title must not be empty")
	}
	specs := append([]charts.Spec(nil), req.Charts...)
	for i := range specs {
		if specs[i].Owner == "" {
			specs[i].Owner = req.Owner
		}
		if err := specs[i].Validate(); err != nil {
			return res, err
		}
	}

	fail := func(stage string, index int, err error) (DashboardResult, error) {
		return res, &PartialError{Stage: stage, Index: index, Completed: res, Err: err}
	}

	ownerID, err := sess.ResolveUserID(ctx, req.Owner)
	if err != nil {
		return res, err
	}
	overrides := make(map[int]layout.Size, len(req.Layout.Overrides))
	for id, sz := range req.Layout.Overrides {
		overrides[id] = sz
	}
	for i, spec := range specs {
		out, err := sess.EnsureChart(ctx, spec, "")
		if err != nil {
			return fail(StageChart, i, err)
		}
		res.ChartIDs = append(res.ChartIDs, out.ID)
		if spec.Width > 0 || spec.Height > 0 {
			sz := layout.Size{Width: spec.Width, Height: spec.Height}
			if sz.Width == 0 {
				sz.Width = layout.DefaultWidth
			}
			if sz.Height == 0 {
				sz.Height = layout.DefaultHeight
			}
			overrides[out.ID] = sz
		}
	}

	if err := o.placeCharts(ctx, sess, &res, req.Title, req.Slug, ownerID, layoutFor(req.Layout, req.Title, overrides)); err != nil {
		return res, err
	}
	return res, nil
}

// ExistingChartsRequest describes a dashboard over charts that already exist.
type ExistingChartsRequest struct {
	Title string
	Slug  string
	// Owner owns the dashboard. When set, only charts owned by Owner are considered.
	Owner string
	// ChartNames are exact chart names in display order.
	ChartNames []string
	Layout     layout.Options
}

// CreateDashboard ensures a dashboard over existing charts found by name, lays them
// out in input order and links them. Every name must match a chart; the missing
// ones are reported together as a NotFound error before anything is created.
func (o *Orchestrator) CreateDashboard(ctx context.Context, req ExistingChartsRequest, dryRun bool) (DashboardResult, error) {
	sess := o.sessionFor(dryRun)
	res := DashboardResult{Simulated: sess.DryRun()}
	if strings.TrimSpace(req.Title) == "" {
		return res, apperr.New(apperr.Validation, "dashboard title must not be empty")
	}
	if len(req.ChartNames) == 0 {
		return res, apperr.New(apperr.Validation, "name at least one chart")
	}
	ownerID, err := sess.ResolveUserID(ctx, req.Owner)
	if err != nil {
		return res, err
	}
	chartOwner := 0
	if req.Owner != "" {
		chartOwner = ownerID
	}

	var missing []string
	for _, name := range req.ChartNames {
		c, err := sess.FindChart(ctx, name, chartOwner)
		if apperr.HasKind(err, apperr.NotFound) {
			missing = append(missing, strconv.Quote(name))
			continue
		}
		if err != nil {
			return res, err
		}
		res.ChartIDs = append(res.ChartIDs, c.ID)
	}
	if len(missing) > 0 {
		res.ChartIDs = nil
		return res, apperr.Newf(apperr.NotFound, "charts not found: %s", strings.Join(missing, ", "))
	}

	if err := o.placeCharts(ctx, sess, &res, req.Title, req.Slug, ownerID, layoutFor(req.Layout, req.Title, req.Layout.Overrides)); err != nil {
		return res, err
	}
	return res, nil
}

func layoutFor(base layout.Options, title string, overrides map[int]layout.Size) layout.Options {
	base.Title = title
	base.Overrides = overrides
	return base
}

// placeCharts composes the layout for res.ChartIDs, ensures the dashboard and links
// every chart to it. Failures are returned as *PartialError.
func (o *Orchestrator) placeCharts(ctx context.Context, sess *toolkit.Session, res *DashboardResult, title, slug string, ownerID int, lo layout.Options) error {
	fail := func(stage string, index int, err error) error {
		return &PartialError{Stage: stage, Index: index, Completed: *res, Err: err}
	}
	placed := unique(res.ChartIDs)
	doc, err := layout.Compose(placed, lo)
	if err != nil {
		return fail(StageLayout, -1, err)
	}

	dash, err := sess.EnsureDashboardFor(ctx, title, slug, ownerID, &doc)
	if err != nil {
		return fail(StageDashboard, -1, err)
	}
	res.DashboardID = dash.ID
	res.Created = dash.Created
	if !dash.Created {
		if err := sess.ApplyLayout(ctx, dash.ID, doc); err != nil {
			return fail(StageLayout, -1, err)
		}
	}

	for i, chartID := range placed {
		linked, err := sess.LinkChart(ctx, dash.ID, chartID)
		if err != nil {
			return fail(StageLink, i, err)
		}
		if linked {
			res.Linked++
		}
	}
	o.logger.Info("dashboard ready", o.logger.Args("dashboard", res.DashboardID, "charts", len(res.ChartIDs), "linked", res.Linked, "created", res.Created, "dry_run", res.Simulated))
	return nil
}

// unique drops repeated ids, keeping the first occurrence.
func unique(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
