// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package resource

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supersetctl/cli/internal/backend"
	"supersetctl/cli/internal/backend/backendtest"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/executor"
)

func chartPayload(name string, datasetID, owner int) PayloadFunc {
	return func(ctx context.Context) (backend.Payload, error) {
		return backend.Payload{"slice_name": name, "datasource_id": datasetID, "datasource_type": "table", "owners": []int{owner}}, nil
	}
}

func TestCriteriaValidate(t *testing.T) {
	tests := []struct {
		name string
		kind backend.Kind
		c    Criteria
		ok   bool
	}{
		{name: "chart ok", kind: backend.KindChart, c: Criteria{Name: "A", DatasetID: 3, OwnerID: 1}, ok: true},
		{name: "empty name", kind: backend.KindChart, c: Criteria{DatasetID: 3}},
		{name: "blank name", kind: backend.KindDataset, c: Criteria{Name: "  "}},
		{name: "slug on chart", kind: backend.KindChart, c: Criteria{Name: "A", Slug: "a"}},
		{name: "dataset on dashboard", kind: backend.KindDashboard, c: Criteria{Name: "D", DatasetID: 2}},
		{name: "schema on chart", kind: backend.KindChart, c: Criteria{Name: "A", Schema: "public"}},
		{name: "owner on dataset", kind: backend.KindDataset, c: Criteria{Name: "t", OwnerID: 4}},
		{name: "negative owner", kind: backend.KindChart, c: Criteria{Name: "A", OwnerID: -1}},
		{name: "placeholder dataset", kind: backend.KindChart, c: Criteria{Name: "A", DatasetID: -2}, ok: true},
		{name: "unknown kind", kind: backend.Kind("report"), c: Criteria{Name: "r"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate(tt.kind)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.HasKind(err, apperr.Validation), "got %v", err)
		})
	}
}

func TestMatcher_EmptyNameNeverCallsServer(t *testing.T) {
	fake := backendtest.New(1)
	m := NewMatcher(fake, nil)
	_, _, err := m.Find(context.Background(), backend.KindChart, Criteria{DatasetID: 1})
	assert.True(t, apperr.HasKind(err, apperr.Validation))
	assert.Equal(t, 0, fake.TotalCalls("list"))
}

func TestMatcher_NarrowsAndPicksOldest(t *testing.T) {
	fake := backendtest.New(1)
	fake.Seed(backend.KindChart, backend.Summary{ID: 30, Name: "Revenue", DatasetID: 5, OwnerIDs: []int{1}})
	fake.Seed(backend.KindChart, backend.Summary{ID: 20, Name: "Revenue", DatasetID: 5, OwnerIDs: []int{1, 2}})
	fake.Seed(backend.KindChart, backend.Summary{ID: 10, Name: "Revenue", DatasetID: 6, OwnerIDs: []int{1}})
	fake.Seed(backend.KindChart, backend.Summary{ID: 5, Name: "revenue", DatasetID: 5, OwnerIDs: []int{1}})
	m := NewMatcher(fake, nil)
	ctx := context.Background()

	got, ok, err := m.Find(ctx, backend.KindChart, Criteria{Name: "Revenue", DatasetID: 5, OwnerID: 1})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 20, got.ID)

	_, ok, err = m.Find(ctx, backend.KindChart, Criteria{Name: "Revenue", DatasetID: 5, OwnerID: 3})
	require.NoError(t, err)
	assert.False(t, ok, "different owner is a different chart")
}

func TestMatcher_DashboardBySlug(t *testing.T) {
	fake := backendtest.New(1)
	fake.Seed(backend.KindDashboard, backend.Summary{ID: 8, Name: "Old title", Slug: "exec", OwnerIDs: []int{9}})
	m := NewMatcher(fake, nil)

	got, ok, err := m.Find(context.Background(), backend.KindDashboard, Criteria{Name: "Exec", Slug: "exec", OwnerID: 1})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 8, got.ID)
}

func TestMatcher_PlaceholderDatasetSkipsServer(t *testing.T) {
	fake := backendtest.New(1)
	m := NewMatcher(fake, nil)
	_, ok, err := m.Find(context.Background(), backend.KindChart, Criteria{Name: "A", DatasetID: -1})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, fake.TotalCalls("list"))
}

func TestEnsure_SequentialCallsCreateOnce(t *testing.T) {
	fake := backendtest.New(1)
	e := NewEnsurer(NewMatcher(fake, nil), executor.NewLive(fake), nil)
	ctx := context.Background()
	c := Criteria{Name: "Revenue", DatasetID: 5, OwnerID: 1}

	first, err := e.Ensure(ctx, backend.KindChart, c, chartPayload("Revenue", 5, 1))
	require.NoError(t, err)
	second, err := e.Ensure(ctx, backend.KindChart, c, chartPayload("Revenue", 5, 1))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, 1, fake.Calls("create:chart"))
}

func TestEnsure_HitDoesNotBuildPayload(t *testing.T) {
	fake := backendtest.New(1)
	id := fake.Seed(backend.KindDataset, backend.Summary{Name: "orders", Schema: "public", DatabaseID: 2})
	e := NewEnsurer(NewMatcher(fake, nil), executor.NewLive(fake), nil)

	built := 0
	out, err := e.Ensure(context.Background(), backend.KindDataset, Criteria{Name: "orders", Schema: "public", DatabaseID: 2},
		func(ctx context.Context) (backend.Payload, error) {
			built++
			return backend.Payload{}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, id, out.ID)
	assert.Equal(t, 0, built)
	assert.Equal(t, 0, fake.TotalCalls("create"))
}

func TestEnsure_CreateFailureIsWrappedNotRetried(t *testing.T) {
	fake := backendtest.New(1)
	fake.Fail["create:chart"] = apperr.WithStatus(apperr.Remote, 422, "invalid params")
	e := NewEnsurer(NewMatcher(fake, nil), executor.NewLive(fake), nil)

	_, err := e.Ensure(context.Background(), backend.KindChart, Criteria{Name: "A", DatasetID: 1}, chartPayload("A", 1, 1))
	require.Error(t, err)
	assert.True(t, apperr.HasKind(err, apperr.Remote))
	assert.Contains(t, err.Error(), `create chart {name="A" dataset=1}`)
	assert.Equal(t, 1, fake.Calls("create:chart"))
}

func TestEnsure_DryRunReturnsPlaceholder(t *testing.T) {
	fake := backendtest.New(1)
	sim := executor.NewSimulate()
	e := NewEnsurer(NewMatcher(fake, nil), sim, nil)

	out, err := e.Ensure(context.Background(), backend.KindChart, Criteria{Name: "A", DatasetID: 1}, chartPayload("A", 1, 1))
	require.NoError(t, err)
	assert.True(t, out.Simulated)
	assert.True(t, executor.IsPlaceholder(out.ID))
	assert.Equal(t, 0, fake.TotalCalls("create"))
	assert.Len(t, sim.Ops(), 1)
}

// Concurrent ensures with identical criteria are not serialized: both callers may
// miss and both create. This pins down the documented weak idempotency.
func TestEnsure_ConcurrentCallsMayDuplicate(t *testing.T) {
	fake := backendtest.New(1)
	e := NewEnsurer(NewMatcher(fake, nil), executor.NewLive(fake), nil)
	c := Criteria{Name: "Race", DatasetID: 2}

	var ready, release sync.WaitGroup
	ready.Add(2)
	release.Add(1)
	build := func(ctx context.Context) (backend.Payload, error) {
		// Both goroutines have finished matching before either creates.
		ready.Done()
		release.Wait()
		return backend.Payload{"slice_name": "Race", "datasource_id": 2}, nil
	}

	var wg sync.WaitGroup
	ids := make([]int, 2)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := e.Ensure(context.Background(), backend.KindChart, c, build)
			assert.NoError(t, err)
			ids[i] = out.ID
		}(i)
	}
	ready.Wait()
	release.Done()
	wg.Wait()

	assert.Equal(t, 2, fake.Calls("create:chart"))
	assert.NotEqual(t, ids[0], ids[1])

	// Once the race is over, sequential use converges on the oldest duplicate.
	out, err := e.Ensure(context.Background(), backend.KindChart, c, build)
	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.Equal(t, min(ids[0], ids[1]), out.ID)
}
