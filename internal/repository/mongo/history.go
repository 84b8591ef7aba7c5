package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clipstream/internal/domain"
)

// Connect establishes a client for the given URI.
func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type historyDoc struct {
	ID          string `bson:"_id"`
	URL         string `bson:"url"`
	Fallback    bool   `bson:"fallback"`
	Succeeded   bool   `bson:"succeeded"`
	Reason      string `bson:"reason,omitempty"`
	DurationSec int    `bson:"durationSec"`
	BitrateKbps int    `bson:"bitrateKbps"`
	Width       int    `bson:"width"`
	Height      int    `bson:"height"`
	ReducedKbps int    `bson:"reducedKbps,omitempty"`
	TookMs      int64  `bson:"tookMs"`
	FinishedAt  int64  `bson:"finishedAt"`
}

func toDoc(e domain.HistoryEntry) historyDoc {
	return historyDoc{
		ID:          e.TaskID,
		URL:         e.URL,
		Fallback:    e.Fallback,
		Succeeded:   e.Succeeded,
		Reason:      e.Reason,
		DurationSec: e.Metadata.DurationSeconds,
		BitrateKbps: e.Metadata.BitrateKbps,
		Width:       e.Metadata.Width,
		Height:      e.Metadata.Height,
		ReducedKbps: e.ReducedKbps,
		TookMs:      e.TookMs,
		FinishedAt:  e.FinishedAt.Unix(),
	}
}

func fromDoc(d historyDoc) domain.HistoryEntry {
	return domain.HistoryEntry{
		TaskID:    d.ID,
		URL:       d.URL,
		Fallback:  d.Fallback,
		Succeeded: d.Succeeded,
		Reason:    d.Reason,
		Metadata: domain.ProbeMetadata{
			DurationSeconds: d.DurationSec,
			BitrateKbps:     d.BitrateKbps,
			Width:           d.Width,
			Height:          d.Height,
		},
		ReducedKbps: d.ReducedKbps,
		TookMs:      d.TookMs,
		FinishedAt:  time.Unix(d.FinishedAt, 0).UTC(),
	}
}

// HistoryRepository stores finished-task records.
type HistoryRepository struct {
	collection *mongo.Collection
}

func NewHistoryRepository(client *mongo.Client, dbName string) *HistoryRepository {
	return &HistoryRepository{collection: client.Database(dbName).Collection("download_history")}
}

func (r *HistoryRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "finishedAt", Value: -1}}},
		{Keys: bson.D{{Key: "url", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *HistoryRepository) Insert(ctx context.Context, entry domain.HistoryEntry) error {
	_, err := r.collection.InsertOne(ctx, toDoc(entry))
	return err
}

func (r *HistoryRepository) Get(ctx context.Context, taskID string) (domain.HistoryEntry, error) {
	var doc historyDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.HistoryEntry{}, domain.ErrNotFound
		}
		return domain.HistoryEntry{}, err
	}
	return fromDoc(doc), nil
}

func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "finishedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []historyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, fromDoc(doc))
	}
	return entries, nil
}
