// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides interfaces and implementations for communicating with the
// Superset REST API (v1). It defines the API contract used by the toolkit: login,
// filtered listing, and create/update/delete of datasets, charts, dashboards and
// databases, plus the permission-gated user directory.
// The package includes both interface definitions and an HTTP-based implementation.
package backend

import "context"

// Kind names a Superset resource collection.
type Kind string

const (
	KindDataset   Kind = "dataset"
	KindChart     Kind = "chart"
	KindDashboard Kind = "dashboard"
	KindDatabase  Kind = "database"
)

// Path returns the REST collection segment for the kind.
func (k Kind) Path() string { return string(k) }

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDataset, KindChart, KindDashboard, KindDatabase:
		return true
	}
	return false
}

// NameColumn returns the column holding the human name of a resource of this kind.
func (k Kind) NameColumn() string {
	switch k {
	case KindChart:
		return "slice_name"
	case KindDataset:
		return "table_name"
	case KindDashboard:
		return "dashboard_title"
	case KindDatabase:
		return "database_name"
	}
	return ""
}

// Filter operators understood by the list endpoints.
const (
	OpEqual       = "eq"
	OpContains    = "ct"
	OpRelOneMany  = "rel_o_m"
	OpRelManyMany = "rel_m_m"
)

// Filter is a single server-side list predicate.
type Filter struct {
	Column   string
	Operator string
	Value    any
}

// Eq is shorthand for an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Operator: OpEqual, Value: value}
}

// Summary is the normalized view of any resource kind returned by List and Get.
// Fields that do not apply to a kind are left zero.
type Summary struct {
	ID   int
	Name string
	// Slug is set for dashboards only.
	Slug   string
	Schema string
	// DatabaseID is set for datasets.
	DatabaseID int
	// DatasetID is the datasource of a chart.
	DatasetID    int
	VizType      string
	OwnerIDs     []int
	DashboardIDs []int
	// Columns and TemporalColumns are only populated by Get on a dataset.
	Columns            []string
	TemporalColumns    []string
	MainDatetimeColumn string
}

// HasOwner reports whether id is among the resource owners.
func (s Summary) HasOwner(id int) bool {
	for _, o := range s.OwnerIDs {
		if o == id {
			return true
		}
	}
	return false
}

// Payload is a create or update body.
type Payload map[string]any

// Session holds the tokens returned by a successful login.
type Session struct {
	AccessToken  string
	RefreshToken string
	Username     string
}

// API defines the Superset operations the toolkit depends on.
// Implementations may call the real REST endpoints or provide in-memory fakes for tests.
// Errors are classified with internal/errors kinds: transport failures are
// Connection, 401/403 are Permission, 404 is NotFound and the rest are Remote.
type API interface {
	// Login authenticates with the database provider and keeps the access token
	// for subsequent calls.
	Login(ctx context.Context, username, password string) (Session, error)
	// List returns every resource of kind matching all filters, across pages.
	List(ctx context.Context, kind Kind, filters []Filter) ([]Summary, error)
	// Count returns the number of resources matching filters without fetching them.
	Count(ctx context.Context, kind Kind, filters []Filter) (int, error)
	Get(ctx context.Context, kind Kind, id int) (Summary, error)
	// Create posts payload and returns the id assigned by the server.
	Create(ctx context.Context, kind Kind, payload Payload) (int, error)
	Update(ctx context.Context, kind Kind, id int, payload Payload) error
	Delete(ctx context.Context, kind Kind, id int) error
	// LookupUser resolves a username through the security users endpoint.
	// Servers commonly restrict it to admins, in which case a Permission error is returned.
	LookupUser(ctx context.Context, username string) (int, error)
	// RefreshDataset re-reads the column metadata of a dataset from its source table.
	RefreshDataset(ctx context.Context, id int) error
}
