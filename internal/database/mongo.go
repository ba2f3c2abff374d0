package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/iliyamo/manufacturer-api/internal/repository"
)

// MongoStore is the primary document store. Ids are ObjectIDs on disk and
// hex strings everywhere else.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	tx     bool
}

// OpenMongo connects to uri, verifies the connection and returns a store over
// the named database. With tx, WithTx runs a session transaction, which
// requires a replica set or sharded cluster.
func OpenMongo(ctx context.Context, uri, dbName string, tx bool) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(dbName), tx: tx}, nil
}

// NewMongoStore wraps an existing database handle.
func NewMongoStore(db *mongo.Database, tx bool) *MongoStore {
	return &MongoStore{client: db.Client(), db: db, tx: tx}
}

// EnsureIndexes creates the lookup indexes used by the repositories. Email is
// indexed but deliberately not unique; users are deduplicated by upsert.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[string]string{
		repository.CollUsers:    "email",
		repository.CollOrders:   "email",
		repository.CollPayments: "transactionId",
	}
	for coll, field := range indexes {
		_, err := s.db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("mongo: index %s.%s: %w", coll, field, err)
		}
	}
	return nil
}

func (s *MongoStore) Collection(name string) repository.Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

func (s *MongoStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.tx || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

// filter converts a repository filter, turning the hex id into an ObjectID.
func (c *mongoCollection) filter(f repository.Filter) (bson.M, error) {
	m := bson.M{}
	for k, v := range f {
		if k == repository.IDField {
			s, ok := v.(string)
			if !ok {
				return nil, repository.ErrInvalidID
			}
			oid, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				return nil, repository.ErrInvalidID
			}
			v = oid
		}
		m[k] = v
	}
	return m, nil
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

func (c *mongoCollection) FindOne(ctx context.Context, f repository.Filter, out any) error {
	filter, err := c.filter(f)
	if err != nil {
		return err
	}
	err = c.coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

func (c *mongoCollection) Find(ctx context.Context, f repository.Filter, opts repository.FindOptions, out any) error {
	filter, err := c.filter(f)
	if err != nil {
		return err
	}
	findOpts := options.Find().SetSort(bson.D{{Key: repository.IDField, Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	cur, err := c.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc any) (repository.InsertResult, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return repository.InsertResult{}, err
	}
	return repository.InsertResult{Acknowledged: true, InsertedID: idString(res.InsertedID)}, nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, f repository.Filter, set map[string]any, upsert bool) (repository.UpdateResult, error) {
	filter, err := c.filter(f)
	if err != nil {
		return repository.UpdateResult{}, err
	}
	fields := bson.M{}
	for k, v := range set {
		if k != repository.IDField {
			fields[k] = v
		}
	}
	res, err := c.coll.UpdateOne(ctx, filter, bson.M{"$set": fields}, options.Update().SetUpsert(upsert))
	if err != nil {
		return repository.UpdateResult{}, err
	}
	return repository.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    idString(res.UpsertedID),
	}, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, f repository.Filter) (repository.DeleteResult, error) {
	filter, err := c.filter(f)
	if err != nil {
		return repository.DeleteResult{}, err
	}
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return repository.DeleteResult{}, err
	}
	return repository.DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}
