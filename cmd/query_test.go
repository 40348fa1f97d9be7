package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logicsquare/konect-query-gateway/internal/errors"
	"github.com/logicsquare/konect-query-gateway/internal/store"
)

func TestParseSortFlag(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []store.SortField
		wantErr bool
	}{
		{name: "empty spec", spec: ""},
		{
			name: "bare field sorts ascending",
			spec: "price",
			want: []store.SortField{{Field: "price"}},
		},
		{
			name: "explicit directions",
			spec: "price:desc,year:asc",
			want: []store.SortField{
				{Field: "price", Descending: true},
				{Field: "year"},
			},
		},
		{
			name: "numeric directions",
			spec: "price:-1,year:1",
			want: []store.SortField{
				{Field: "price", Descending: true},
				{Field: "year"},
			},
		},
		{name: "bad direction", spec: "price:down", wantErr: true},
		{name: "missing field name", spec: ":desc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSortFlag(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrTypeInvalidShape))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildQueryRequest(t *testing.T) {
	queryFilter = `{"year": {"$gte": 2020}}`
	queryProject = `{"make": 1}`
	querySort = "price:desc"
	queryExpand = []string{"host"}
	queryLimit = 25
	querySkip = 10

	t.Cleanup(func() {
		queryFilter, queryProject, querySort = "", "", ""
		queryExpand = nil
		queryLimit, querySkip = 0, 0
	})

	req, err := buildQueryRequest("Vehicle")
	require.NoError(t, err)

	assert.Equal(t, "Vehicle", req.Schema)
	assert.Equal(t, map[string]interface{}{"year": map[string]interface{}{"$gte": float64(2020)}}, req.Filter)
	assert.Equal(t, map[string]interface{}{"make": float64(1)}, req.Projection)
	assert.Equal(t, []store.SortField{{Field: "price", Descending: true}}, req.Sort)
	assert.Equal(t, []string{"host"}, req.Expand)
	require.NotNil(t, req.Limit)
	assert.Equal(t, int64(25), *req.Limit)
	assert.Equal(t, int64(10), req.Skip)
}

func TestBuildQueryRequestInvalidFilter(t *testing.T) {
	queryFilter = `{"year": `
	t.Cleanup(func() { queryFilter = "" })

	_, err := buildQueryRequest("Vehicle")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidShape))
}
