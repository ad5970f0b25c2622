package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/boa-platform/registration-ledger/internal/observability"
)

// ActivityLogger writes the admin activity feed the dashboard reads. It is a
// side-effect sink: callers treat failures as log-and-continue.
type ActivityLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewActivityLogger(db *mongo.Database, logger observability.Logger) *ActivityLogger {
	return &ActivityLogger{
		coll:   db.Collection("admin_activity"),
		logger: logger,
	}
}

type ActivityEntry struct {
	ID        uuid.UUID `bson:"_id"`
	EventType string    `bson:"event_type"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *ActivityLogger) Log(ctx context.Context, eventType string, data map[string]interface{}) error {
	entry := ActivityEntry{
		ID:        uuid.New(),
		EventType: eventType,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, entry)
	if err != nil {
		a.logger.Error("failed to insert activity entry", err)
		return err
	}
	return nil
}

// Recent returns the latest feed entries, newest first.
func (a *ActivityLogger) Recent(ctx context.Context, limit int64) ([]ActivityEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cur, err := a.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var entries []ActivityEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
