// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package toolkit

import (
	"context"
	"fmt"
	"strings"

	"supersetctl/cli/internal/backend"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/executor"
	"supersetctl/cli/internal/resource"
)

// DatabaseID returns the id of the configured Superset database.
func (s *Session) DatabaseID(ctx context.Context) (int, error) {
	name := s.opts.DatabaseName
	if id, ok := s.databases.get(name); ok {
		return id, nil
	}
	var filters []backend.Filter
	if name != "" {
		filters = []backend.Filter{backend.Eq(backend.KindDatabase.NameColumn(), name)}
	}
	found, err := s.api.List(ctx, backend.KindDatabase, filters)
	if err != nil {
		return 0, apperr.Annotate("list databases", err)
	}
	var id int
	switch {
	case name == "" && len(found) == 1:
		id = found[0].ID
	case name == "" && len(found) == 0:
		return 0, apperr.New(apperr.NotFound, "no database is registered in Superset")
	case name == "":
		return 0, apperr.Newf(apperr.Validation, "%d databases are registered; set database_name to pick one", len(found))
	default:
		for _, d := range found {
			if d.Name == name {
				id = d.ID
				break
			}
		}
		if id == 0 {
			return 0, apperr.Newf(apperr.NotFound, "database %q not found", name)
		}
	}
	s.databases.put(name, id)
	return id, nil
}

// EnsureDataset returns the dataset for schema.table in the configured database,
// creating it when missing. An empty schema uses the session default.
func (s *Session) EnsureDataset(ctx context.Context, table, schema string) (resource.Outcome, error) {
	if schema == "" {
		schema = s.opts.Schema
	}
	key := schema + "." + table
	if id, ok := s.datasets.get(key); ok {
		return resource.Outcome{ID: id, Simulated: executor.IsPlaceholder(id)}, nil
	}
	if strings.TrimSpace(table) == "" {
		return resource.Outcome{}, apperr.New(apperr.Validation, "dataset name must not be empty")
	}
	v, err, _ := s.flights.Do(key, func() (any, error) {
		if id, ok := s.datasets.get(key); ok {
			return resource.Outcome{ID: id, Simulated: executor.IsPlaceholder(id)}, nil
		}
		out, err := s.ensureDataset(ctx, table, schema)
		if err != nil {
			return nil, err
		}
		s.datasets.put(key, out.ID)
		return out, nil
	})
	if err != nil {
		return resource.Outcome{}, err
	}
	return v.(resource.Outcome), nil
}

func (s *Session) ensureDataset(ctx context.Context, table, schema string) (resource.Outcome, error) {
	dbID, err := s.DatabaseID(ctx)
	if err != nil {
		return resource.Outcome{}, err
	}
	c := resource.Criteria{Name: table, Schema: schema, DatabaseID: dbID}
	return s.ensurer.Ensure(ctx, backend.KindDataset, c, func(ctx context.Context) (backend.Payload, error) {
		if s.probe != nil {
			if _, err := s.probe.TableColumns(ctx, schema, table); err != nil {
				return nil, err
			}
		}
		p := backend.Payload{"database": dbID, "table_name": table}
		if schema != "" {
			p["schema"] = schema
		}
		return p, nil
	})
}

// DatasetColumns returns the column names Superset knows for a dataset. For a dataset
// that only exists in a dry run, the warehouse probe is asked instead.
func (s *Session) DatasetColumns(ctx context.Context, datasetID int) ([]string, error) {
	if executor.IsPlaceholder(datasetID) {
		return s.placeholderColumns(ctx, datasetID)
	}
	ds, err := s.api.Get(ctx, backend.KindDataset, datasetID)
	if err != nil {
		return nil, err
	}
	if len(ds.Columns) == 0 {
		return nil, apperr.Newf(apperr.NotFound, "no columns returned for dataset %d", datasetID)
	}
	return ds.Columns, nil
}

func (s *Session) placeholderColumns(ctx context.Context, datasetID int) ([]string, error) {
	if s.probe == nil {
		s.logger.Debug("columns of simulated dataset unknown", s.logger.Args("dataset", datasetID))
		return nil, nil
	}
	for key, id := range s.datasets.snapshot() {
		if id != datasetID {
			continue
		}
		schema, table, _ := strings.Cut(key, ".")
		return s.probe.TableColumns(ctx, schema, table)
	}
	return nil, apperr.Newf(apperr.NotFound, "simulated dataset %d", datasetID)
}

// RefreshDataset re-reads the dataset's columns from its table. It is skipped in a dry run.
func (s *Session) RefreshDataset(ctx context.Context, datasetID int) error {
	if s.DryRun() || executor.IsPlaceholder(datasetID) {
		s.logger.Info("dataset refresh skipped", s.logger.Args("dataset", datasetID, "dry_run", true))
		return nil
	}
	if err := s.api.RefreshDataset(ctx, datasetID); err != nil {
		return apperr.Annotate(fmt.Sprintf("refresh dataset %d", datasetID), err)
	}
	return nil
}

// SetMainDatetimeColumn makes column the dataset's default time column. Servers that
// refuse the update only produce a warning; connection failures are returned.
func (s *Session) SetMainDatetimeColumn(ctx context.Context, datasetID int, column string) error {
	if strings.TrimSpace(column) == "" {
		return apperr.New(apperr.Validation, "datetime column must not be empty")
	}
	err := s.exec.Update(ctx, backend.KindDataset, datasetID, backend.Payload{"main_dttm_col": column})
	if err == nil {
		return nil
	}
	if apperr.IsConnection(err) {
		return err
	}
	s.logger.Warn("could not set main datetime column", s.logger.Args("dataset", datasetID, "column", column, "error", err.Error()))
	return nil
}
