package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logicsquare/konect-query-gateway/internal/catalog"
)

func seededMemory(t *testing.T) (*Memory, Collection) {
	t.Helper()

	m := NewMemory()
	m.Seed("vehicles",
		Document{"_id": "v1", "make": "Toyota", "model": "Corolla", "year": 2019, "dailyRate": 45, "host": "h1"},
		Document{"_id": "v2", "make": "Honda", "model": "Civic", "year": 2021, "dailyRate": 55, "host": "h1"},
		Document{"_id": "v3", "make": "Tesla", "model": "Model 3", "year": 2023, "dailyRate": 90, "host": "h2"},
	)
	m.Seed("hosts",
		Document{"_id": "h1", "companyName": "City Rides"},
		Document{"_id": "h2", "companyName": "EV Fleet"},
	)

	coll, err := m.Bind(&catalog.Schema{Name: "Vehicle", Collection: "vehicles"})
	require.NoError(t, err)

	return m, coll
}

func TestMemoryImplicitEquality(t *testing.T) {
	_, coll := seededMemory(t)

	docs, err := coll.Query().
		ApplyFilter(map[string]interface{}{"make": "Honda"}).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "v2", docs[0]["_id"])
}

func TestMemoryComparisonOperators(t *testing.T) {
	_, coll := seededMemory(t)

	tests := []struct {
		name    string
		filter  map[string]interface{}
		wantIDs []string
	}{
		{
			name:    "gt",
			filter:  map[string]interface{}{"year": map[string]interface{}{"$gt": 2019}},
			wantIDs: []string{"v2", "v3"},
		},
		{
			name:    "gte",
			filter:  map[string]interface{}{"year": map[string]interface{}{"$gte": 2021}},
			wantIDs: []string{"v2", "v3"},
		},
		{
			name:    "lt",
			filter:  map[string]interface{}{"dailyRate": map[string]interface{}{"$lt": 55}},
			wantIDs: []string{"v1"},
		},
		{
			name:    "ne",
			filter:  map[string]interface{}{"make": map[string]interface{}{"$ne": "Tesla"}},
			wantIDs: []string{"v1", "v2"},
		},
		{
			name: "in",
			filter: map[string]interface{}{
				"make": map[string]interface{}{"$in": []interface{}{"Toyota", "Tesla"}},
			},
			wantIDs: []string{"v1", "v3"},
		},
		{
			name: "or",
			filter: map[string]interface{}{
				"$or": []interface{}{
					map[string]interface{}{"make": "Toyota"},
					map[string]interface{}{"dailyRate": map[string]interface{}{"$gt": 80}},
				},
			},
			wantIDs: []string{"v1", "v3"},
		},
		{
			name: "and",
			filter: map[string]interface{}{
				"$and": []interface{}{
					map[string]interface{}{"host": "h1"},
					map[string]interface{}{"year": map[string]interface{}{"$gte": 2020}},
				},
			},
			wantIDs: []string{"v2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := coll.Query().
				ApplyFilter(tt.filter).
				ApplySort([]SortField{{Field: "_id"}}).
				Execute(context.Background())
			require.NoError(t, err)

			ids := make([]string, len(docs))
			for i, doc := range docs {
				ids[i] = doc["_id"].(string)
			}

			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestMemoryUnknownOperator(t *testing.T) {
	_, coll := seededMemory(t)

	_, err := coll.Query().
		ApplyFilter(map[string]interface{}{"year": map[string]interface{}{"$regex": ".*"}}).
		Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operator")
}

func TestMemorySortAndPagination(t *testing.T) {
	_, coll := seededMemory(t)

	docs, err := coll.Query().
		ApplySort([]SortField{{Field: "dailyRate", Descending: true}}).
		ApplyPagination(1, 1).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "v2", docs[0]["_id"])
}

func TestMemorySkipPastEnd(t *testing.T) {
	_, coll := seededMemory(t)

	docs, err := coll.Query().
		ApplyPagination(10, 5).
		Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryCountIgnoresPagination(t *testing.T) {
	_, coll := seededMemory(t)

	q := coll.Query().
		ApplyFilter(map[string]interface{}{"host": "h1"}).
		ApplyPagination(0, 1)

	count, err := q.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMemoryExpansion(t *testing.T) {
	_, coll := seededMemory(t)

	docs, err := coll.Query().
		ApplyFilter(map[string]interface{}{"_id": "v1"}).
		Expand("host", catalog.Relationship{Schema: "Host", Collection: "hosts", ForeignField: "_id"}).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	host, ok := docs[0]["host"].(Document)
	require.True(t, ok, "host field should be replaced by the resolved document")
	assert.Equal(t, "City Rides", host["companyName"])
}

func TestMemoryExpansionMissingTargetLeavesReference(t *testing.T) {
	m := NewMemory()
	m.Seed("vehicles", Document{"_id": "v9", "host": "missing"})

	coll, err := m.Bind(&catalog.Schema{Name: "Vehicle", Collection: "vehicles"})
	require.NoError(t, err)

	docs, err := coll.Query().
		Expand("host", catalog.Relationship{Schema: "Host", Collection: "hosts", ForeignField: "_id"}).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "missing", docs[0]["host"])
}

func TestMemoryProjectionInclude(t *testing.T) {
	_, coll := seededMemory(t)

	docs, err := coll.Query().
		ApplyFilter(map[string]interface{}{"_id": "v1"}).
		ApplyProjection(map[string]interface{}{"make": 1, "model": 1}).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "Toyota", docs[0]["make"])
	assert.Equal(t, "v1", docs[0]["_id"], "_id stays included by default")
	assert.NotContains(t, docs[0], "dailyRate")
}

func TestMemoryProjectionExclude(t *testing.T) {
	_, coll := seededMemory(t)

	docs, err := coll.Query().
		ApplyFilter(map[string]interface{}{"_id": "v1"}).
		ApplyProjection(map[string]interface{}{"dailyRate": 0}).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.NotContains(t, docs[0], "dailyRate")
	assert.Contains(t, docs[0], "make")
}

func TestMemoryProjectionIncludeWithoutID(t *testing.T) {
	_, coll := seededMemory(t)

	docs, err := coll.Query().
		ApplyFilter(map[string]interface{}{"_id": "v1"}).
		ApplyProjection(map[string]interface{}{"make": 1, "_id": 0}).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.NotContains(t, docs[0], "_id")
	assert.Equal(t, "Toyota", docs[0]["make"])
}

func TestMemorySnapshotsAreCopies(t *testing.T) {
	m, coll := seededMemory(t)

	docs, err := coll.Query().
		ApplyFilter(map[string]interface{}{"_id": "v1"}).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	docs[0]["make"] = "mutated"

	again, err := coll.Query().
		ApplyFilter(map[string]interface{}{"_id": "v1"}).
		Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Toyota", again[0]["make"])
	_ = m
}

func TestMemoryFailBind(t *testing.T) {
	m := NewMemory()
	m.FailBind("Vehicle", assert.AnError)

	_, err := m.Bind(&catalog.Schema{Name: "Vehicle", Collection: "vehicles"})
	assert.ErrorIs(t, err, assert.AnError)
}
