// internal/repository/mongo/snapshot_repo.go
package mongo

import (
	"coachdesk/coaching-app/internal/domain"
	"coachdesk/coaching-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const snapshotCollectionName = "publish_snapshots"

// mongoSnapshotRepository implements repository.SnapshotRepository.
// Snapshots are immutable once written; the only mutation allowed is
// recording the archive key after a successful object-storage upload.
type mongoSnapshotRepository struct {
	collection *mongo.Collection
}

// NewMongoSnapshotRepository creates a new Snapshot repository.
func NewMongoSnapshotRepository(db *mongo.Database) repository.SnapshotRepository {
	return &mongoSnapshotRepository{
		collection: db.Collection(snapshotCollectionName),
	}
}

// Create inserts a new immutable publish snapshot.
func (r *mongoSnapshotRepository) Create(ctx context.Context, snapshot *domain.PublishSnapshot) (primitive.ObjectID, error) {
	if snapshot.PlanID == primitive.NilObjectID || snapshot.ContentHash == "" {
		return primitive.NilObjectID, errors.New("snapshot requires planId and contentHash")
	}
	snapshot.ID = primitive.NewObjectID()
	if snapshot.PublishedAt.IsZero() {
		snapshot.PublishedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, snapshot)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted snapshot ID")
	}
	return insertedID, nil
}

// GetLatestByPlanID returns the most recent snapshot for a plan.
func (r *mongoSnapshotRepository) GetLatestByPlanID(ctx context.Context, planID primitive.ObjectID) (*domain.PublishSnapshot, error) {
	var snapshot domain.PublishSnapshot
	filter := bson.M{"planId": planID}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "publishedAt", Value: -1}, {Key: "_id", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

// SetArchiveKey records where the serialized snapshot was archived.
func (r *mongoSnapshotRepository) SetArchiveKey(ctx context.Context, id primitive.ObjectID, key string) error {
	if id == primitive.NilObjectID || key == "" {
		return errors.New("snapshot ID and archive key are required")
	}

	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"archiveKey": key}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureSnapshotIndexes creates necessary indexes. Call during startup.
func EnsureSnapshotIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "publishedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Non-unique: a plan may legitimately revisit an earlier
			// content hash (undo then republish) as a new history row.
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "contentHash", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
