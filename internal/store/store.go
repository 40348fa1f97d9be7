// Package store abstracts the backing document store behind a narrow
// capability interface so the query engine never sees driver types. Filters
// pass through verbatim in the store's native query grammar.
package store

import (
	"context"

	"github.com/logicsquare/konect-query-gateway/internal/catalog"
)

// Document is a plain, non-live snapshot of a stored document
type Document map[string]interface{}

// SortField is one field/direction pair of a sort specification
type SortField struct {
	Field      string
	Descending bool
}

// Store binds catalog schemas to live collection handles. Implementations own
// exactly one underlying connection for the process.
type Store interface {
	Bind(schema *catalog.Schema) (Collection, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Collection is a registered schema's handle into the store
type Collection interface {
	Query() Query
}

// Query is a one-shot builder for a read query. Shaping calls return the
// builder; Execute and Count consume it. Count honors the filter alone.
type Query interface {
	ApplyFilter(filter map[string]interface{}) Query
	ApplyProjection(projection map[string]interface{}) Query
	ApplySort(sort []SortField) Query
	ApplyPagination(skip, limit int64) Query
	Expand(field string, rel catalog.Relationship) Query
	Execute(ctx context.Context) ([]Document, error)
	Count(ctx context.Context) (int64, error)
}
