// Package engine executes validated query requests against registered
// schemas. A request moves Received -> Validated -> Executed -> Assembled;
// any step can fail into a typed error that is returned as data, never as a
// panic.
package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/logicsquare/konect-query-gateway/internal/catalog"
	"github.com/logicsquare/konect-query-gateway/internal/errors"
	"github.com/logicsquare/konect-query-gateway/internal/logging"
	"github.com/logicsquare/konect-query-gateway/internal/registry"
	"github.com/logicsquare/konect-query-gateway/internal/store"
)

// Limits carries the pagination defaults and bounds the engine enforces
type Limits struct {
	DefaultLimit int64
	MaxLimit     int64
}

// DefaultLimits matches the documented clamp rules: limit defaults to 100
// and clamps into [1,1000]
func DefaultLimits() Limits {
	return Limits{DefaultLimit: 100, MaxLimit: 1000}
}

// Request is one incoming query call. Limit is a pointer so an absent value
// can default rather than clamp.
type Request struct {
	Schema     string
	Filter     map[string]interface{}
	Projection map[string]interface{}
	Sort       []store.SortField
	Limit      *int64
	Skip       int64
	Expand     []string
}

// Result is the uniform envelope assembled for every successful call
type Result struct {
	Schema        string           `json:"schemaName"`
	ReturnedCount int64            `json:"returnedCount"`
	TotalCount    int64            `json:"totalCount"`
	Skip          int64            `json:"skip"`
	Limit         int64            `json:"limit"`
	HasMore       bool             `json:"hasMore"`
	Documents     []store.Document `json:"results"`
}

// Engine executes query requests against the schema registry
type Engine struct {
	registry *registry.Registry
	limits   Limits
	logger   *logging.Logger
}

// New creates a query engine over an injected registry
func New(reg *registry.Registry, limits Limits, logger *logging.Logger) *Engine {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = DefaultLimits().DefaultLimit
	}

	if limits.MaxLimit < limits.DefaultLimit {
		limits.MaxLimit = DefaultLimits().MaxLimit
	}

	if logger == nil {
		logger = logging.GetLogger()
	}

	return &Engine{registry: reg, limits: limits, logger: logger}
}

// Execute validates the request, runs it against the store, and assembles
// the result envelope. All failures return as typed errors; store-level
// failures are never retried.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	requestID := uuid.New().String()
	log := e.logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"schema":     req.Schema,
	})

	// Lazy trigger: the first query loads the registry
	e.registry.EnsureLoaded(ctx)

	entry, ok := e.registry.Lookup(req.Schema)
	if !ok {
		log.Debug("rejected query for unregistered schema")
		return nil, errors.NewUnknownSchemaError(req.Schema)
	}

	if err := validateProjection(req.Projection); err != nil {
		return nil, err
	}

	if err := validateExpansions(&entry.Schema, req.Expand); err != nil {
		return nil, err
	}

	skip := req.Skip
	if skip < 0 {
		skip = 0
	}

	limit := e.clampLimit(req.Limit)

	q := entry.Collection.Query().
		ApplyFilter(req.Filter).
		ApplyProjection(req.Projection).
		ApplySort(req.Sort).
		ApplyPagination(skip, limit)

	for _, field := range req.Expand {
		rel, _ := entry.Schema.Relationship(field)
		q = q.Expand(field, rel)
	}

	docs, err := q.Execute(ctx)
	if err != nil {
		log.ErrorWithErr("store rejected query", err)
		return nil, errors.Wrap(err, errors.ErrTypeQueryExecution, "query execution failed")
	}

	// Total matches the filter alone, unaffected by shaping
	total, err := q.Count(ctx)
	if err != nil {
		log.ErrorWithErr("store rejected count", err)
		return nil, errors.Wrap(err, errors.ErrTypeQueryExecution, "result count failed")
	}

	returned := int64(len(docs))

	result := &Result{
		Schema:        req.Schema,
		ReturnedCount: returned,
		TotalCount:    total,
		Skip:          skip,
		Limit:         limit,
		HasMore:       skip+returned < total,
		Documents:     docs,
	}

	log.WithFields(map[string]interface{}{
		"returned": returned,
		"total":    total,
		"has_more": result.HasMore,
	}).Debug("query executed")

	return result, nil
}

// clampLimit applies the default for absent limits and clamps out-of-range
// values to the nearest bound instead of rejecting them
func (e *Engine) clampLimit(limit *int64) int64 {
	if limit == nil {
		return e.limits.DefaultLimit
	}

	if *limit < 1 {
		return 1
	}

	if *limit > e.limits.MaxLimit {
		return e.limits.MaxLimit
	}

	return *limit
}

// validateProjection enforces the single-mode rule: a projection either
// includes fields or excludes them, never both. _id is exempt, matching the
// store's native grammar.
func validateProjection(projection map[string]interface{}) error {
	includes := 0
	excludes := 0

	for field, v := range projection {
		if field == "_id" {
			continue
		}

		if isExclusion(v) {
			excludes++
		} else {
			includes++
		}
	}

	if includes > 0 && excludes > 0 {
		return errors.New(errors.ErrTypeInvalidShape,
			"projection cannot mix included and excluded fields").
			WithSuggestion("List only the fields to include, or only the fields to exclude")
	}

	return nil
}

// validateExpansions checks every requested expansion names a declared
// relationship field
func validateExpansions(schema *catalog.Schema, expand []string) error {
	for _, field := range expand {
		if _, ok := schema.Relationship(field); !ok {
			return errors.Newf(errors.ErrTypeInvalidShape,
				"schema %q has no relationship on field %q", schema.Name, field).
				WithSuggestion("Only fields declared as relationships can be expanded")
		}
	}

	return nil
}

func isExclusion(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return !val
	case float64:
		return val == 0
	case float32:
		return val == 0
	case int:
		return val == 0
	case int32:
		return val == 0
	case int64:
		return val == 0
	default:
		return false
	}
}
