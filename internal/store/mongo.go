package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/logicsquare/konect-query-gateway/internal/catalog"
)

// Mongo implements Store over a single shared mongo client
type Mongo struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// NewMongo establishes the process-wide MongoDB connection and verifies it
// with a primary ping before returning.
func NewMongo(ctx context.Context, uri, database string, connectTimeout, queryTimeout time.Duration) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return &Mongo{
		client:  client,
		db:      client.Database(database),
		timeout: queryTimeout,
	}, nil
}

// Bind registers a schema against the shared connection and returns its
// collection handle
func (m *Mongo) Bind(schema *catalog.Schema) (Collection, error) {
	if schema.Collection == "" {
		return nil, fmt.Errorf("schema %q has no collection", schema.Name)
	}

	return &mongoCollection{
		coll:    m.db.Collection(schema.Collection),
		timeout: m.timeout,
	}, nil
}

// Ping verifies the connection is still live
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the shared client
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func (c *mongoCollection) Query() Query {
	return &mongoQuery{coll: c.coll, timeout: c.timeout}
}

type expansion struct {
	field string
	rel   catalog.Relationship
}

type mongoQuery struct {
	coll       *mongo.Collection
	timeout    time.Duration
	filter     map[string]interface{}
	projection map[string]interface{}
	sort       []SortField
	skip       int64
	limit      int64
	expansions []expansion
}

func (q *mongoQuery) ApplyFilter(filter map[string]interface{}) Query {
	q.filter = filter
	return q
}

func (q *mongoQuery) ApplyProjection(projection map[string]interface{}) Query {
	q.projection = projection
	return q
}

func (q *mongoQuery) ApplySort(sort []SortField) Query {
	q.sort = sort
	return q
}

func (q *mongoQuery) ApplyPagination(skip, limit int64) Query {
	q.skip = skip
	q.limit = limit

	return q
}

func (q *mongoQuery) Expand(field string, rel catalog.Relationship) Query {
	q.expansions = append(q.expansions, expansion{field: field, rel: rel})
	return q
}

// Execute materializes matching documents. Without expansions it runs a plain
// find; with expansions it runs an aggregation pipeline so referenced
// documents resolve inline.
func (q *mongoQuery) Execute(ctx context.Context) ([]Document, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	if len(q.expansions) == 0 {
		return q.executeFind(ctx)
	}

	return q.executeAggregate(ctx)
}

func (q *mongoQuery) executeFind(ctx context.Context) ([]Document, error) {
	findOpts := options.Find()

	if q.skip > 0 {
		findOpts.SetSkip(q.skip)
	}

	if q.limit > 0 {
		findOpts.SetLimit(q.limit)
	}

	if len(q.sort) > 0 {
		findOpts.SetSort(sortToBSON(q.sort))
	}

	if len(q.projection) > 0 {
		findOpts.SetProjection(toBSONDoc(q.projection))
	}

	cursor, err := q.coll.Find(ctx, q.filterDoc(), findOpts)
	if err != nil {
		return nil, fmt.Errorf("error finding documents: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeCursor(ctx, cursor)
}

func (q *mongoQuery) executeAggregate(ctx context.Context) ([]Document, error) {
	pipeline := []bson.D{
		{{Key: "$match", Value: q.filterDoc()}},
	}

	if len(q.sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sortToBSON(q.sort)}})
	}

	if q.skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: q.skip}})
	}

	if q.limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: q.limit}})
	}

	// One lookup per expanded field, each independent of the others
	for _, exp := range q.expansions {
		pipeline = append(pipeline,
			bson.D{{Key: "$lookup", Value: bson.D{
				{Key: "from", Value: exp.rel.Collection},
				{Key: "localField", Value: exp.field},
				{Key: "foreignField", Value: exp.rel.ForeignField},
				{Key: "as", Value: exp.field},
			}}},
			bson.D{{Key: "$unwind", Value: bson.D{
				{Key: "path", Value: "$" + exp.field},
				{Key: "preserveNullAndEmptyArrays", Value: true},
			}}},
		)
	}

	if len(q.projection) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: toBSONDoc(q.projection)}})
	}

	cursor, err := q.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error executing aggregation: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeCursor(ctx, cursor)
}

// Count counts by the filter alone, ignoring projection, sort, pagination,
// and expansion
func (q *mongoQuery) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	count, err := q.coll.CountDocuments(ctx, q.filterDoc())
	if err != nil {
		return 0, fmt.Errorf("error counting documents: %w", err)
	}

	return count, nil
}

func (q *mongoQuery) filterDoc() bson.D {
	if len(q.filter) == 0 {
		return bson.D{}
	}

	return toBSONDoc(q.filter)
}

func decodeCursor(ctx context.Context, cursor *mongo.Cursor) ([]Document, error) {
	var raw []map[string]interface{}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("error decoding documents: %w", err)
	}

	result := make([]Document, len(raw))

	for i := range raw {
		convertBSONTypes(raw[i])
		result[i] = Document(raw[i])
	}

	return result, nil
}

func sortToBSON(sort []SortField) bson.D {
	doc := bson.D{}

	for _, s := range sort {
		order := 1
		if s.Descending {
			order = -1
		}

		doc = append(doc, bson.E{Key: s.Field, Value: order})
	}

	return doc
}
