// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package toolkit

import (
	"context"
	"fmt"

	"supersetctl/cli/internal/backend"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/executor"
	"supersetctl/cli/internal/layout"
	"supersetctl/cli/internal/resource"
)

// EnsureDashboard returns the dashboard with the given slug, or titled title and owned
// by owner when slug is empty, creating it when missing. doc, when not nil, is stored
// as the layout of a newly created dashboard.
func (s *Session) EnsureDashboard(ctx context.Context, title, slug, owner string, doc *layout.Document) (resource.Outcome, error) {
	ownerID, err := s.ResolveUserID(ctx, owner)
	if err != nil {
		return resource.Outcome{}, err
	}
	return s.EnsureDashboardFor(ctx, title, slug, ownerID, doc)
}

// EnsureDashboardFor is EnsureDashboard with the owner already resolved.
func (s *Session) EnsureDashboardFor(ctx context.Context, title, slug string, ownerID int, doc *layout.Document) (resource.Outcome, error) {
	c := resource.Criteria{Name: title, Slug: slug, OwnerID: ownerID}
	return s.ensurer.Ensure(ctx, backend.KindDashboard, c, func(ctx context.Context) (backend.Payload, error) {
		p := backend.Payload{
			"dashboard_title": title,
			"owners":          []int{ownerID},
			"published":       false,
		}
		if slug != "" {
			p["slug"] = slug
		}
		if doc != nil {
			for k, v := range layoutFields(doc) {
				p[k] = v
			}
		}
		return p, nil
	})
}

// ApplyLayout replaces the layout of an existing dashboard.
func (s *Session) ApplyLayout(ctx context.Context, dashboardID int, doc layout.Document) error {
	p := backend.Payload{}
	for k, v := range layoutFields(&doc) {
		p[k] = v
	}
	if err := s.exec.Update(ctx, backend.KindDashboard, dashboardID, p); err != nil {
		return apperr.Annotate(fmt.Sprintf("apply layout to dashboard %d", dashboardID), err)
	}
	return nil
}

func layoutFields(doc *layout.Document) map[string]any {
	f := map[string]any{
		"position_json": string(doc.Position),
		"json_metadata": string(doc.Metadata),
	}
	if doc.CSS != "" {
		f["css"] = doc.CSS
	}
	return f
}

// LinkChart adds the chart to the dashboard. It reports false without mutating
// anything when the chart is already linked.
func (s *Session) LinkChart(ctx context.Context, dashboardID, chartID int) (bool, error) {
	dashboards := []int{dashboardID}
	if !executor.IsPlaceholder(chartID) {
		chart, err := s.api.Get(ctx, backend.KindChart, chartID)
		if err != nil {
			return false, apperr.Annotate(fmt.Sprintf("read chart %d", chartID), err)
		}
		for _, id := range chart.DashboardIDs {
			if id == dashboardID {
				return false, nil
			}
		}
		dashboards = append(append([]int(nil), chart.DashboardIDs...), dashboardID)
	}
	if err := s.exec.Update(ctx, backend.KindChart, chartID, backend.Payload{"dashboards": dashboards}); err != nil {
		return false, apperr.Annotate(fmt.Sprintf("link chart %d to dashboard %d", chartID, dashboardID), err)
	}
	return true, nil
}
