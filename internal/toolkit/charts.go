// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package toolkit

import (
	"context"

	"supersetctl/cli/internal/backend"
	"supersetctl/cli/internal/charts"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/executor"
	"supersetctl/cli/internal/resource"
)

// EnsureChart returns the chart named spec.Name on the spec's dataset owned by owner,
// creating the dataset and the chart as needed. A non-empty owner overrides spec.Owner;
// when both are empty the session's own user owns the chart.
func (s *Session) EnsureChart(ctx context.Context, spec charts.Spec, owner string) (resource.Outcome, error) {
	if owner != "" {
		spec.Owner = owner
	}
	if err := spec.Validate(); err != nil {
		return resource.Outcome{}, err
	}
	ownerID, err := s.ResolveUserID(ctx, spec.Owner)
	if err != nil {
		return resource.Outcome{}, err
	}
	return s.EnsureChartFor(ctx, spec, ownerID)
}

// EnsureChartFor is EnsureChart with the owner already resolved.
func (s *Session) EnsureChartFor(ctx context.Context, spec charts.Spec, ownerID int) (resource.Outcome, error) {
	if err := spec.Validate(); err != nil {
		return resource.Outcome{}, err
	}
	ds, err := s.EnsureDataset(ctx, spec.Table, spec.Schema)
	if err != nil {
		return resource.Outcome{}, err
	}
	c := resource.Criteria{Name: spec.Name, DatasetID: ds.ID, OwnerID: ownerID}
	return s.ensurer.Ensure(ctx, backend.KindChart, c, func(ctx context.Context) (backend.Payload, error) {
		src := charts.Source{DatasetID: ds.ID, Simulated: executor.IsPlaceholder(ds.ID)}
		if spec.KindOrDefault() == charts.KindTable && len(spec.Columns) == 0 {
			cols, err := s.DatasetColumns(ctx, ds.ID)
			if err != nil {
				return nil, err
			}
			src.Columns = cols
		}
		built, err := charts.Build(spec, src)
		if err != nil {
			return nil, err
		}
		params, err := built.JSON()
		if err != nil {
			return nil, err
		}
		return backend.Payload{
			"slice_name":      spec.Name,
			"viz_type":        built.VizType,
			"datasource_id":   ds.ID,
			"datasource_type": "table",
			"params":          params,
			"owners":          []int{ownerID},
		}, nil
	})
}

// FindChart returns the existing chart named name. A positive ownerID limits the
// search to that user's charts. A missing chart is a NotFound error.
func (s *Session) FindChart(ctx context.Context, name string, ownerID int) (backend.Summary, error) {
	found, ok, err := s.ensurer.Matcher().Find(ctx, backend.KindChart, resource.Criteria{Name: name, OwnerID: ownerID})
	if err != nil {
		return backend.Summary{}, err
	}
	if !ok {
		return backend.Summary{}, apperr.Newf(apperr.NotFound, "no chart named %q", name)
	}
	return found, nil
}
