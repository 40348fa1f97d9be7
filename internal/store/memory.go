package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/logicsquare/konect-query-gateway/internal/catalog"
)

// Memory is an in-memory Store used by tests and demo mode. It evaluates a
// useful subset of the native filter grammar: implicit equality, $eq, $ne,
// $gt, $gte, $lt, $lte, $in, and the logical $and/$or.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]Document
	bindErrs    map[string]error
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]Document),
		bindErrs:    make(map[string]error),
	}
}

// Seed loads documents into a collection
func (m *Memory) Seed(collection string, docs ...Document) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collections[collection] = append(m.collections[collection], docs...)
}

// FailBind forces Bind to fail for a schema name, simulating a registration
// failure in the underlying store
func (m *Memory) FailBind(schemaName string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bindErrs[schemaName] = err
}

// Bind registers a schema and returns its collection handle
func (m *Memory) Bind(schema *catalog.Schema) (Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.bindErrs[schema.Name]; ok {
		return nil, err
	}

	return &memoryCollection{store: m, name: schema.Collection}, nil
}

// Ping always succeeds
func (m *Memory) Ping(_ context.Context) error {
	return nil
}

// Close always succeeds
func (m *Memory) Close(_ context.Context) error {
	return nil
}

func (m *Memory) snapshot(collection string) []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.collections[collection]
	out := make([]Document, len(docs))

	for i, doc := range docs {
		out[i] = copyDocument(doc)
	}

	return out
}

func (m *Memory) resolve(collection, foreignField string, value interface{}) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, doc := range m.collections[collection] {
		if equalValues(doc[foreignField], value) {
			return copyDocument(doc), true
		}
	}

	return nil, false
}

type memoryCollection struct {
	store *Memory
	name  string
}

func (c *memoryCollection) Query() Query {
	return &memoryQuery{store: c.store, collection: c.name}
}

type memoryQuery struct {
	store      *Memory
	collection string
	filter     map[string]interface{}
	projection map[string]interface{}
	sort       []SortField
	skip       int64
	limit      int64
	expansions []expansion
}

func (q *memoryQuery) ApplyFilter(filter map[string]interface{}) Query {
	q.filter = filter
	return q
}

func (q *memoryQuery) ApplyProjection(projection map[string]interface{}) Query {
	q.projection = projection
	return q
}

func (q *memoryQuery) ApplySort(sortSpec []SortField) Query {
	q.sort = sortSpec
	return q
}

func (q *memoryQuery) ApplyPagination(skip, limit int64) Query {
	q.skip = skip
	q.limit = limit

	return q
}

func (q *memoryQuery) Expand(field string, rel catalog.Relationship) Query {
	q.expansions = append(q.expansions, expansion{field: field, rel: rel})
	return q
}

func (q *memoryQuery) Execute(_ context.Context) ([]Document, error) {
	matched, err := q.matchedDocuments()
	if err != nil {
		return nil, err
	}

	if len(q.sort) > 0 {
		sortDocuments(matched, q.sort)
	}

	if q.skip > 0 {
		if q.skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[q.skip:]
		}
	}

	if q.limit > 0 && int64(len(matched)) > q.limit {
		matched = matched[:q.limit]
	}

	for _, doc := range matched {
		for _, exp := range q.expansions {
			foreign := exp.rel.ForeignField
			if foreign == "" {
				foreign = "_id"
			}

			if target, ok := q.store.resolve(exp.rel.Collection, foreign, doc[exp.field]); ok {
				doc[exp.field] = target
			}
		}
	}

	if len(q.projection) > 0 {
		for i, doc := range matched {
			matched[i] = projectDocument(doc, q.projection)
		}
	}

	return matched, nil
}

func (q *memoryQuery) Count(_ context.Context) (int64, error) {
	matched, err := q.matchedDocuments()
	if err != nil {
		return 0, err
	}

	return int64(len(matched)), nil
}

func (q *memoryQuery) matchedDocuments() ([]Document, error) {
	var matched []Document

	for _, doc := range q.store.snapshot(q.collection) {
		ok, err := matchFilter(doc, q.filter)
		if err != nil {
			return nil, err
		}

		if ok {
			matched = append(matched, doc)
		}
	}

	return matched, nil
}

// matchFilter evaluates the filter subset against a document. Conditions at
// one level combine with AND, matching the native grammar.
func matchFilter(doc Document, filter map[string]interface{}) (bool, error) {
	for key, cond := range filter {
		switch key {
		case "$and", "$or":
			list, ok := cond.([]interface{})
			if !ok {
				return false, fmt.Errorf("value for %s must be a list", key)
			}

			anyMatched := false

			for _, item := range list {
				sub, ok := item.(map[string]interface{})
				if !ok {
					return false, fmt.Errorf("element of %s must be an object", key)
				}

				matched, err := matchFilter(doc, sub)
				if err != nil {
					return false, err
				}

				if key == "$and" && !matched {
					return false, nil
				}

				if matched {
					anyMatched = true
				}
			}

			if key == "$or" && !anyMatched {
				return false, nil
			}
		default:
			matched, err := matchField(doc[key], cond)
			if err != nil {
				return false, err
			}

			if !matched {
				return false, nil
			}
		}
	}

	return true, nil
}

func matchField(actual, cond interface{}) (bool, error) {
	condMap, ok := cond.(map[string]interface{})
	if !ok {
		// Implicit $eq
		return equalValues(actual, cond), nil
	}

	for op, expected := range condMap {
		switch op {
		case "$eq":
			if !equalValues(actual, expected) {
				return false, nil
			}
		case "$ne":
			if equalValues(actual, expected) {
				return false, nil
			}
		case "$gt":
			if compareValues(actual, expected) <= 0 {
				return false, nil
			}
		case "$gte":
			if compareValues(actual, expected) < 0 {
				return false, nil
			}
		case "$lt":
			if compareValues(actual, expected) >= 0 {
				return false, nil
			}
		case "$lte":
			if compareValues(actual, expected) > 0 {
				return false, nil
			}
		case "$in":
			list, ok := expected.([]interface{})
			if !ok {
				return false, fmt.Errorf("value for $in must be a list")
			}

			found := false

			for _, item := range list {
				if equalValues(actual, item) {
					found = true
					break
				}
			}

			if !found {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unknown operator: %s", op)
		}
	}

	return true, nil
}

func equalValues(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// compareValues returns -1, 0, or 1, comparing numerically when both sides
// coerce to float64 and lexically otherwise
func compareValues(a, b interface{}) int {
	f1, ok1 := toFloat(a)
	f2, ok2 := toFloat(b)

	if ok1 && ok2 {
		switch {
		case f1 > f2:
			return 1
		case f1 < f2:
			return -1
		default:
			return 0
		}
	}

	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}

	return 0, false
}

func sortDocuments(docs []Document, spec []SortField) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range spec {
			cmp := compareValues(docs[i][s.Field], docs[j][s.Field])
			if cmp == 0 {
				continue
			}

			if s.Descending {
				return cmp > 0
			}

			return cmp < 0
		}

		return false
	})
}

// projectDocument applies a single-mode projection. Values 0 or false mark
// exclusion; anything else marks inclusion. _id follows the native rule:
// included by default, excludable alongside inclusions.
func projectDocument(doc Document, projection map[string]interface{}) Document {
	include := false

	for field, v := range projection {
		if field == "_id" {
			continue
		}

		if !isExclusion(v) {
			include = true
			break
		}
	}

	out := make(Document)

	if include {
		for field, v := range projection {
			if isExclusion(v) {
				continue
			}

			if value, ok := doc[field]; ok {
				out[field] = value
			}
		}

		if v, ok := projection["_id"]; !ok || !isExclusion(v) {
			if id, ok := doc["_id"]; ok {
				out["_id"] = id
			}
		}

		return out
	}

	for field, value := range doc {
		if v, ok := projection[field]; ok && isExclusion(v) {
			continue
		}

		out[field] = value
	}

	return out
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

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}

	return out
}
