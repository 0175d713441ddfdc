// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package toolkit

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supersetctl/cli/internal/backend"
	"supersetctl/cli/internal/backend/backendtest"
	"supersetctl/cli/internal/charts"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/executor"
	"supersetctl/cli/internal/layout"
)

const selfID = 1

type probe map[string][]string

func (p probe) TableColumns(ctx context.Context, schema, table string) ([]string, error) {
	cols, ok := p[schema+"."+table]
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "table %s.%s does not exist", schema, table)
	}
	return cols, nil
}

func newFake() *backendtest.Fake {
	fake := backendtest.New(selfID)
	fake.Users["admin"] = selfID
	fake.Users["analyst"] = 7
	fake.Seed(backend.KindDatabase, backend.Summary{ID: 2, Name: "warehouse"})
	return fake
}

func newSession(fake *backendtest.Fake, opts Options) *Session {
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.DatabaseName == "" {
		opts.DatabaseName = "warehouse"
	}
	return New(fake, backend.Session{AccessToken: backendtest.Token(selfID), Username: "admin"}, opts)
}

func TestEnsureChart_TwiceCreatesOnce(t *testing.T) {
	fake := newFake()
	s := newSession(fake, Options{})
	ctx := context.Background()
	spec := charts.Spec{Name: "Orders", Table: "orders", Columns: []string{"id", "total"}}

	first, err := s.EnsureChart(ctx, spec, "")
	require.NoError(t, err)
	second, err := s.EnsureChart(ctx, spec, "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, 1, fake.Calls("create:chart"))
	assert.Equal(t, 1, fake.Calls("create:dataset"))

	rec, ok := fake.Record(backend.KindChart, first.ID)
	require.True(t, ok)
	assert.Equal(t, "table", rec.Payload["datasource_type"])
	assert.Equal(t, []int{selfID}, rec.Payload["owners"])
	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.Payload["params"].(string)), &params))
	assert.Equal(t, []any{"id", "total"}, params["all_columns"])

	ds, ok := fake.Record(backend.KindDataset, rec.Summary.DatasetID)
	require.True(t, ok)
	assert.Equal(t, backend.Payload{"database": 2, "schema": "public", "table_name": "orders"}, ds.Payload)
}

func TestEnsureChart_OwnerIsPartOfIdentity(t *testing.T) {
	fake := newFake()
	s := newSession(fake, Options{})
	ctx := context.Background()
	spec := charts.Spec{Name: "Orders", Table: "orders", Columns: []string{"id"}}

	mine, err := s.EnsureChart(ctx, spec, "")
	require.NoError(t, err)
	theirs, err := s.EnsureChart(ctx, spec, "analyst")
	require.NoError(t, err)
	assert.NotEqual(t, mine.ID, theirs.ID)
	assert.Equal(t, 2, fake.Calls("create:chart"))
}

func TestEnsureChart_InvalidSpecNeverCallsServer(t *testing.T) {
	fake := newFake()
	s := newSession(fake, Options{})
	_, err := s.EnsureChart(context.Background(), charts.Spec{Table: "orders"}, "")
	assert.True(t, apperr.HasKind(err, apperr.Validation))
	assert.Equal(t, 0, fake.TotalCalls("list"))
	assert.Equal(t, 0, fake.TotalCalls("lookup"))
}

func TestEnsureChart_TableColumnsFromDataset(t *testing.T) {
	fake := newFake()
	fake.Seed(backend.KindDataset, backend.Summary{ID: 40, Name: "orders", Schema: "public", DatabaseID: 2, Columns: []string{"id", "status"}})
	s := newSession(fake, Options{})

	out, err := s.EnsureChart(context.Background(), charts.Spec{Name: "All", Table: "orders"}, "")
	require.NoError(t, err)
	rec, _ := fake.Record(backend.KindChart, out.ID)
	assert.Contains(t, rec.Payload["params"], `"all_columns":["id","status"]`)
	assert.Equal(t, 0, fake.Calls("create:dataset"))
}

func TestEnsureDataset_MissingTableIsNotFound(t *testing.T) {
	fake := newFake()
	s := newSession(fake, Options{Probe: probe{"public.orders": {"id"}}})

	_, err := s.EnsureDataset(context.Background(), "ghost", "")
	assert.True(t, apperr.HasKind(err, apperr.NotFound), "got %v", err)
	assert.Equal(t, 0, fake.TotalCalls("create"))

	out, err := s.EnsureDataset(context.Background(), "orders", "")
	require.NoError(t, err)
	assert.True(t, out.Created)

	// Cached for the rest of the run.
	lists := fake.Calls("list:dataset")
	_, err = s.EnsureDataset(context.Background(), "orders", "public")
	require.NoError(t, err)
	assert.Equal(t, lists, fake.Calls("list:dataset"))
}

func TestDatabaseID(t *testing.T) {
	fake := backendtest.New(selfID)
	fake.Seed(backend.KindDatabase, backend.Summary{ID: 3, Name: "only"})
	s := New(fake, backend.Session{AccessToken: backendtest.Token(selfID)}, Options{})
	id, err := s.DatabaseID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	fake.Seed(backend.KindDatabase, backend.Summary{ID: 4, Name: "second"})
	s = New(fake, backend.Session{AccessToken: backendtest.Token(selfID)}, Options{})
	_, err = s.DatabaseID(context.Background())
	assert.True(t, apperr.HasKind(err, apperr.Validation))

	s = New(fake, backend.Session{AccessToken: backendtest.Token(selfID)}, Options{DatabaseName: "missing"})
	_, err = s.DatabaseID(context.Background())
	assert.True(t, apperr.HasKind(err, apperr.NotFound))
}

func TestLinkChart_IsIdempotent(t *testing.T) {
	fake := newFake()
	chartID := fake.Seed(backend.KindChart, backend.Summary{Name: "A", DatasetID: 1, DashboardIDs: []int{9}})
	s := newSession(fake, Options{})
	ctx := context.Background()

	linked, err := s.LinkChart(ctx, 12, chartID)
	require.NoError(t, err)
	assert.True(t, linked)
	rec, _ := fake.Record(backend.KindChart, chartID)
	assert.Equal(t, []int{9, 12}, rec.Summary.DashboardIDs)

	linked, err = s.LinkChart(ctx, 12, chartID)
	require.NoError(t, err)
	assert.False(t, linked)
	assert.Equal(t, 1, fake.Calls("update:chart"))
}

func TestEnsureDashboard_BySlugWithLayout(t *testing.T) {
	fake := newFake()
	s := newSession(fake, Options{})
	doc, err := layout.Compose([]int{5, 6}, layout.Options{Title: "Exec"})
	require.NoError(t, err)

	out, err := s.EnsureDashboard(context.Background(), "Exec", "exec", "", &doc)
	require.NoError(t, err)
	rec, _ := fake.Record(backend.KindDashboard, out.ID)
	assert.Equal(t, string(doc.Position), rec.Payload["position_json"])
	assert.Equal(t, "exec", rec.Summary.Slug)

	again, err := s.EnsureDashboard(context.Background(), "Renamed", "exec", "", nil)
	require.NoError(t, err)
	assert.Equal(t, out.ID, again.ID)
	assert.Equal(t, 1, fake.Calls("create:dashboard"))
}

func TestSimulated_NeverMutates(t *testing.T) {
	fake := newFake()
	live := newSession(fake, Options{})
	s := live.Simulated()
	require.True(t, s.DryRun())
	assert.Same(t, s, s.Simulated())
	ctx := context.Background()

	out, err := s.EnsureChart(ctx, charts.Spec{Name: "A", Table: "orders", Columns: []string{"id"}}, "")
	require.NoError(t, err)
	assert.True(t, out.Simulated)
	assert.True(t, executor.IsPlaceholder(out.ID))

	linked, err := s.LinkChart(ctx, 3, out.ID)
	require.NoError(t, err)
	assert.True(t, linked)
	require.NoError(t, s.RefreshDataset(ctx, 40))

	assert.Equal(t, 0, fake.TotalCalls("create"))
	assert.Equal(t, 0, fake.TotalCalls("update"))
	assert.Equal(t, 0, fake.TotalCalls("refresh"))
	assert.Len(t, s.Executor().(*executor.Simulate).Ops(), 3)

	// The live session did not pick up the placeholder dataset.
	ds, err := live.EnsureDataset(ctx, "orders", "")
	require.NoError(t, err)
	assert.Positive(t, ds.ID)
}

func TestSimulated_TableColumnsComeFromProbe(t *testing.T) {
	fake := newFake()
	s := newSession(fake, Options{DryRun: true, Probe: probe{"public.orders": {"id", "total"}}})

	out, err := s.EnsureChart(context.Background(), charts.Spec{Name: "All", Table: "orders"}, "")
	require.NoError(t, err)
	ops := s.Executor().(*executor.Simulate).Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, out.ID, ops[1].ID)
	assert.Contains(t, ops[1].Payload["params"], `"all_columns":["id","total"]`)
}

func TestValidateConnection(t *testing.T) {
	fake := newFake()
	fake.Seed(backend.KindChart, backend.Summary{Name: "A"})
	fake.Seed(backend.KindChart, backend.Summary{Name: "B"})
	fake.Seed(backend.KindDashboard, backend.Summary{Name: "D"})
	s := newSession(fake, Options{URL: "http://superset:8088"})

	st := s.ValidateConnection(context.Background())
	require.NoError(t, st.Err)
	assert.True(t, st.Connected)
	assert.Equal(t, selfID, st.UserID)
	assert.Equal(t, 2, st.Charts)
	assert.Equal(t, 1, st.Dashboards)
	assert.Equal(t, "http://superset:8088", st.URL)
	assert.Equal(t, 0, fake.Calls("lookup"))

	fake.Fail["count:dashboard"] = apperr.New(apperr.Connection, "connection refused")
	st = s.ValidateConnection(context.Background())
	assert.False(t, st.Connected)
	assert.True(t, apperr.IsConnection(st.Err))
}

func TestQueries(t *testing.T) {
	fake := newFake()
	orders := fake.Seed(backend.KindDataset, backend.Summary{Name: "orders", Schema: "public", DatabaseID: 2})
	users := fake.Seed(backend.KindDataset, backend.Summary{Name: "users", Schema: "public", DatabaseID: 2})
	fake.Seed(backend.KindChart, backend.Summary{Name: "Orders A", DatasetID: orders, VizType: "table", OwnerIDs: []int{7}})
	fake.Seed(backend.KindChart, backend.Summary{Name: "Orders B", DatasetID: orders, VizType: "pie", OwnerIDs: []int{1}})
	fake.Seed(backend.KindChart, backend.Summary{Name: "Users", DatasetID: users, VizType: "table", OwnerIDs: []int{7}})
	fake.Seed(backend.KindDashboard, backend.Summary{Name: "Team", OwnerIDs: []int{7, 1}})
	s := newSession(fake, Options{})
	ctx := context.Background()

	got, err := s.Charts(ctx, Query{Owner: "analyst", Table: "orders"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Orders A", got[0].Name)

	sum, err := s.UserSummary(ctx, "analyst")
	require.NoError(t, err)
	assert.Equal(t, 7, sum.UserID)
	assert.Len(t, sum.Charts, 2)
	assert.Len(t, sum.Dashboards, 1)
	assert.Equal(t, []VizCount{{VizType: "table", Count: 2}}, sum.VizTypes())

	named, err := s.MatchingName(ctx, backend.KindChart, "Orders")
	require.NoError(t, err)
	assert.Len(t, named, 2)
	named, err = s.MatchingName(ctx, backend.KindChart, "orders")
	require.NoError(t, err)
	assert.Empty(t, named)
}

func TestSetMainDatetimeColumn_RefusalOnlyWarns(t *testing.T) {
	fake := newFake()
	id := fake.Seed(backend.KindDataset, backend.Summary{Name: "orders"})
	s := newSession(fake, Options{})
	ctx := context.Background()

	require.NoError(t, s.SetMainDatetimeColumn(ctx, id, "created_at"))
	rec, _ := fake.Record(backend.KindDataset, id)
	assert.Equal(t, "created_at", rec.Summary.MainDatetimeColumn)

	fake.Fail["update:dataset"] = apperr.WithStatus(apperr.Remote, 422, "not temporal")
	assert.NoError(t, s.SetMainDatetimeColumn(ctx, id, "name"))

	fake.Fail["update:dataset"] = apperr.New(apperr.Connection, "timeout")
	assert.Error(t, s.SetMainDatetimeColumn(ctx, id, "name"))
}
