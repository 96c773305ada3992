package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mongo is the primary Backend.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo dials uri and selects database.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Mongo{client: client, db: client.Database(database)}, nil
}

func (m *Mongo) Name() string { return "mongo" }

func (m *Mongo) Collection(name string) Driver {
	return &mongoCollection{coll: m.db.Collection(name)}
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) FindOne(ctx context.Context, q Query) (bson.Raw, error) {
	raw, err := c.coll.FindOne(ctx, mongoFilter(q)).Raw()
	if err != nil {
		return nil, mongoErr(err)
	}
	return raw, nil
}

func (c *mongoCollection) Find(ctx context.Context, q Query, opts FindOptions) ([]bson.Raw, error) {
	findOpts := options.Find()
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	if len(opts.Sort) > 0 {
		sort := bson.D{}
		for _, s := range opts.Sort {
			dir := 1
			if s.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: s.Field, Value: dir})
		}
		findOpts.SetSort(sort)
	}

	cur, err := c.coll.Find(ctx, mongoFilter(q), findOpts)
	if err != nil {
		return nil, mongoErr(err)
	}
	defer cur.Close(ctx)

	var out []bson.Raw
	for cur.Next(ctx) {
		doc := make(bson.Raw, len(cur.Current))
		copy(doc, cur.Current)
		out = append(out, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, mongoErr(err)
	}
	return out, nil
}

func (c *mongoCollection) Count(ctx context.Context, q Query) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, mongoFilter(q))
	if err != nil {
		return 0, mongoErr(err)
	}
	return n, nil
}

func (c *mongoCollection) Insert(ctx context.Context, doc bson.Raw) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return mongoErr(err)
	}
	return nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, q Query, set bson.M) (bson.Raw, error) {
	delete(set, "_id")
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	raw, err := c.coll.FindOneAndUpdate(ctx, mongoFilter(q), bson.M{"$set": set}, opts).Raw()
	if err != nil {
		return nil, mongoErr(err)
	}
	return raw, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, q Query) (bool, error) {
	res, err := c.coll.DeleteOne(ctx, mongoFilter(q))
	if err != nil {
		return false, mongoErr(err)
	}
	return res.DeletedCount > 0, nil
}

func (c *mongoCollection) EnsureIndexes(ctx context.Context, indexes []Index) error {
	if len(indexes) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(indexes))
	for _, idx := range indexes {
		keys := bson.D{}
		for _, f := range idx.Fields {
			keys = append(keys, bson.E{Key: f, Value: 1})
		}
		opts := options.Index().SetName(idx.Name)
		if idx.Unique {
			opts.SetUnique(true)
		}
		if idx.Sparse {
			opts.SetSparse(true)
		}
		models = append(models, mongo.IndexModel{Keys: keys, Options: opts})
	}
	if _, err := c.coll.Indexes().CreateMany(ctx, models); err != nil {
		return mongoErr(err)
	}
	return nil
}

// mongoFilter renders q with every value wrapped in $eq.
func mongoFilter(q Query) bson.D {
	clauses := make([]bson.D, 0, len(q.All)+1)
	for _, f := range q.All {
		clauses = append(clauses, eqClause(f))
	}
	if len(q.Any) > 0 {
		or := make(bson.A, 0, len(q.Any))
		for _, f := range q.Any {
			or = append(or, eqClause(f))
		}
		clauses = append(clauses, bson.D{{Key: "$or", Value: or}})
	}

	switch len(clauses) {
	case 0:
		return bson.D{}
	case 1:
		return clauses[0]
	}
	and := make(bson.A, len(clauses))
	for i, c := range clauses {
		and[i] = c
	}
	return bson.D{{Key: "$and", Value: and}}
}

func eqClause(f Filter) bson.D {
	return bson.D{{Key: f.Field, Value: bson.D{{Key: "$eq", Value: f.Value}}}}
}

func mongoErr(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
