// Package history appends accepted readings to a MongoDB collection.
// The archive is best effort: failures are logged and never surfaced to
// the ingestion path, and a nil *Archiver is a valid no-op.
package history

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"iot-telemetry-backend/config"
	"iot-telemetry-backend/internal/store"
)

const writeTimeout = 2 * time.Second

type Archiver struct {
	collection *mongo.Collection
	log        *zap.Logger
}

// New connects to MongoDB and returns an Archiver, or (nil, nil) when the
// archive is disabled in config.
func New(ctx context.Context, cfg *config.HistoryConfig, log *zap.Logger) (*Archiver, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &Archiver{
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		log:        log,
	}, nil
}

// Append writes one document per reading. Errors are logged, not
// returned: the latest-value store is the source of truth and must not
// stall behind the archive.
func (a *Archiver) Append(ctx context.Context, deviceID int64, deviceName string, readings []store.ReadingInput) {
	if a == nil || len(readings) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(readings))
	for _, r := range readings {
		docs = append(docs, bson.M{
			"device_id":   deviceID,
			"device_name": deviceName,
			"metric":      r.Metric,
			"value":       r.Value,
			"unit":        r.Unit,
			"timestamp":   now,
		})
	}

	if _, err := a.collection.InsertMany(ctx, docs); err != nil {
		a.log.Warn("history append failed",
			zap.Int64("device_id", deviceID),
			zap.Int("readings", len(readings)),
			zap.Error(err))
	}
}

// Close releases the underlying client. Safe on a nil Archiver.
func (a *Archiver) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	return a.collection.Database().Client().Disconnect(ctx)
}
