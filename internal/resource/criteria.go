// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package resource finds existing Superset resources and creates them when absent.
//
// Matcher turns a Criteria into server-side list filters, narrows the result on the
// client with exact equality and picks the oldest match. Ensurer builds create-or-get
// on top of it: the creation payload is only built when nothing matched.
package resource

import (
	"fmt"
	"strings"

	"supersetctl/cli/internal/backend"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/executor"
)

// Criteria identifies a resource for matching. Zero fields are ignored.
//
//   - dataset:   Name (table name), Schema, DatabaseID
//   - chart:     Name, DatasetID, OwnerID
//   - dashboard: Name (title) and OwnerID, or Slug, which alone identifies a dashboard
//   - database:  Name
type Criteria struct {
	Name       string
	Slug       string
	Schema     string
	DatabaseID int
	DatasetID  int
	OwnerID    int
}

func (c Criteria) String() string {
	parts := []string{fmt.Sprintf("name=%q", c.Name)}
	if c.Slug != "" {
		parts = append(parts, fmt.Sprintf("slug=%q", c.Slug))
	}
	if c.Schema != "" {
		parts = append(parts, fmt.Sprintf("schema=%q", c.Schema))
	}
	if c.DatabaseID != 0 {
		parts = append(parts, fmt.Sprintf("database=%d", c.DatabaseID))
	}
	if c.DatasetID != 0 {
		parts = append(parts, fmt.Sprintf("dataset=%d", c.DatasetID))
	}
	if c.OwnerID != 0 {
		parts = append(parts, fmt.Sprintf("owner=%d", c.OwnerID))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Validate rejects criteria that would match unpredictably or that mix fields
// belonging to another kind. It never touches the network.
func (c Criteria) Validate(kind backend.Kind) error {
	if !kind.Valid() {
		return apperr.Newf(apperr.Validation, "unknown resource kind %q", kind)
	}
	if strings.TrimSpace(c.Name) == "" {
		return apperr.Newf(apperr.Validation, "%s name must not be empty", kind)
	}
	conflict := func(field string) error {
		return apperr.Newf(apperr.Validation, "conflicting criteria: %s does not apply to a %s", field, kind)
	}
	if c.Slug != "" && kind != backend.KindDashboard {
		return conflict("slug")
	}
	if c.DatasetID != 0 && kind != backend.KindChart {
		return conflict("dataset")
	}
	if (c.Schema != "" || c.DatabaseID != 0) && kind != backend.KindDataset {
		return conflict("schema/database")
	}
	if c.OwnerID != 0 && kind != backend.KindChart && kind != backend.KindDashboard {
		return conflict("owner")
	}
	if c.OwnerID < 0 || c.DatabaseID < 0 {
		return apperr.Newf(apperr.Validation, "invalid criteria %s: ids must be positive", c)
	}
	if c.DatasetID < 0 && !executor.IsPlaceholder(c.DatasetID) {
		return apperr.Newf(apperr.Validation, "invalid criteria %s: dataset id must be positive", c)
	}
	return nil
}

// filters returns the server-side predicates for the non-zero fields.
func (c Criteria) filters(kind backend.Kind) []backend.Filter {
	if kind == backend.KindDashboard && c.Slug != "" {
		return []backend.Filter{backend.Eq("slug", c.Slug)}
	}
	fs := []backend.Filter{backend.Eq(kind.NameColumn(), c.Name)}
	switch kind {
	case backend.KindDataset:
		if c.Schema != "" {
			fs = append(fs, backend.Eq("schema", c.Schema))
		}
		if c.DatabaseID != 0 {
			fs = append(fs, backend.Filter{Column: "database", Operator: backend.OpRelOneMany, Value: c.DatabaseID})
		}
	case backend.KindChart:
		if c.DatasetID != 0 {
			fs = append(fs, backend.Eq("datasource_id", c.DatasetID))
		}
	}
	if c.OwnerID != 0 {
		fs = append(fs, backend.Filter{Column: "owners", Operator: backend.OpRelManyMany, Value: c.OwnerID})
	}
	return fs
}

// accept applies the client-side narrowing: exact, case-sensitive name (or slug)
// plus equality on every other non-zero field.
func (c Criteria) accept(kind backend.Kind, s backend.Summary) bool {
	if kind == backend.KindDashboard && c.Slug != "" {
		return s.Slug == c.Slug
	}
	if s.Name != c.Name {
		return false
	}
	if c.Schema != "" && s.Schema != c.Schema {
		return false
	}
	if c.DatabaseID != 0 && s.DatabaseID != c.DatabaseID {
		return false
	}
	if c.DatasetID != 0 && s.DatasetID != c.DatasetID {
		return false
	}
	if c.OwnerID != 0 && !s.HasOwner(c.OwnerID) {
		return false
	}
	return true
}
