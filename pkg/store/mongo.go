package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RalXYZ/cc99/pkg/cache"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

// Default MongoDB names.
const (
	DefaultMongoDatabase   = "cc99vis"
	DefaultMongoCollection = "snapshots"
)

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore stores snapshots as MongoDB documents.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoDoc is the stored document. The tree is kept as its JSON text so
// attribute maps round-trip without BSON type conversion.
type mongoDoc struct {
	ID         string    `bson:"_id"`
	CreatedAt  time.Time `bson:"created_at"`
	SourceHash string    `bson:"source_hash"`
	NodeCount  int       `bson:"node_count"`
	Depth      int       `bson:"depth"`
	Tree       string    `bson:"tree,omitempty"`
}

// OpenMongo connects to MongoDB and verifies the connection.
// Connection failures are retried with backoff before giving up.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	err = cache.RetryWithBackoff(ctx, func() error {
		if err := client.Ping(ctx, nil); err != nil {
			return cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

// Save implements Store. Saving an existing id replaces the snapshot.
func (m *MongoStore) Save(ctx context.Context, s *Snapshot) error {
	data, err := prepare(s)
	if err != nil {
		return err
	}
	doc := mongoDoc{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		SourceHash: s.SourceHash,
		NodeCount:  s.NodeCount,
		Depth:      s.Depth,
		Tree:       string(data),
	}
	_, err = m.coll.ReplaceOne(ctx, bson.M{"_id": s.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Get implements Store.
func (m *MongoStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	var doc mongoDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	s := doc.snapshot()
	s.Tree, err = vistree.UnmarshalTree([]byte(doc.Tree))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return s, nil
}

// List implements Store.
func (m *MongoStore) List(ctx context.Context, limit int) ([]*Snapshot, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limitOrDefault(limit))).
		SetProjection(bson.M{"tree": 0})

	cursor, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var docs []mongoDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	out := make([]*Snapshot, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.snapshot())
	}
	return out, nil
}

// Delete implements Store.
func (m *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (d mongoDoc) snapshot() *Snapshot {
	return &Snapshot{
		ID:         d.ID,
		CreatedAt:  d.CreatedAt.UTC(),
		SourceHash: d.SourceHash,
		NodeCount:  d.NodeCount,
		Depth:      d.Depth,
	}
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
