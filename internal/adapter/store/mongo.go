package store

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
	"semsearch/internal/domain"
)

// MongoOptions configures the MongoDB store.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	// Timeout bounds every store operation. Zero means no extra bound.
	Timeout time.Duration
}

// MongoStore keeps one document per record. Embeddings are stored as
// arrays of doubles so documents written by other clients stay readable.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.Timeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.Timeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, unavailable("open", fmt.Errorf("failed to connect to mongodb: %w", err))
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, unavailable("open", fmt.Errorf("failed to ping mongodb: %w", err))
	}

	return &MongoStore{
		client:  client,
		coll:    client.Database(opts.Database).Collection(opts.Collection),
		timeout: opts.Timeout,
	}, nil
}

type mongoRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Bio       string             `bson:"bio"`
	Embedding []float64          `bson:"embedding"`
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// InsertMany writes the batch unordered. MongoDB cannot roll back a
// partially applied batch, so on failure the documents that did land are
// deleted again and the failed indices are reported.
func (s *MongoStore) InsertMany(ctx context.Context, records []domain.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ids := make([]primitive.ObjectID, len(records))
	docs := make([]interface{}, len(records))
	for i, r := range records {
		ids[i] = primitive.NewObjectID()
		emb := make([]float64, len(r.Embedding))
		for j, x := range r.Embedding {
			emb[j] = float64(x)
		}
		docs[i] = mongoRecord{ID: ids[i], Name: r.Name, Email: r.Email, Bio: r.Bio, Embedding: emb}
	}

	_, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		return nil, s.insertError(ids, err)
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out, nil
}

func (s *MongoStore) insertError(ids []primitive.ObjectID, err error) error {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || len(bwe.WriteErrors) == 0 {
		if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
			return unavailable("insert_many", err)
		}
		return writeFailed("insert_many", err)
	}

	failed := make(map[int]bool, len(bwe.WriteErrors))
	indices := make([]int, 0, len(bwe.WriteErrors))
	for _, we := range bwe.WriteErrors {
		failed[we.Index] = true
		indices = append(indices, we.Index)
	}

	written := make([]primitive.ObjectID, 0, len(ids)-len(failed))
	for i, id := range ids {
		if !failed[i] {
			written = append(written, id)
		}
	}

	msg := fmt.Sprintf("%d of %d records failed", len(indices), len(ids))
	if len(written) > 0 {
		ctx, cancel := s.withTimeout(context.Background())
		defer cancel()
		if _, derr := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": written}}); derr != nil {
			msg += fmt.Sprintf("; %d written records could not be rolled back: %v", len(written), derr)
		}
	}

	return &domain.Error{
		Kind:   domain.KindStoreWrite,
		Op:     "insert_many",
		Msg:    msg,
		Err:    err,
		Failed: indices,
	}
}

func (s *MongoStore) FindAll(ctx context.Context) ([]domain.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, unavailable("find_all", err)
	}
	defer cur.Close(ctx)

	records := []domain.Record{}
	for cur.Next(ctx) {
		var doc mongoRecord
		if err := cur.Decode(&doc); err != nil {
			// Keep the record visible; a missing embedding is skipped by search.
			id, _ := cur.Current.Lookup("_id").ObjectIDOK()
			records = append(records, domain.Record{ID: id.Hex()})
			continue
		}

		rec := domain.Record{ID: doc.ID.Hex(), Name: doc.Name, Email: doc.Email, Bio: doc.Bio}
		if doc.Embedding != nil {
			rec.Embedding = make([]float32, len(doc.Embedding))
			for i, x := range doc.Embedding {
				rec.Embedding[i] = float32(x)
			}
		}
		records = append(records, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("find_all", err)
	}
	return records, nil
}

func (s *MongoStore) DeleteAll(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, unavailable("delete_all", fmt.Errorf("failed to delete records: %w", err))
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
