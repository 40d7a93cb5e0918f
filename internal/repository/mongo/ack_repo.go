// internal/repository/mongo/ack_repo.go
package mongo

import (
	"coachdesk/coaching-app/internal/domain"
	"coachdesk/coaching-app/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ackCollectionName = "publish_acks"

// mongoPublishAckRepository implements repository.PublishAckRepository
type mongoPublishAckRepository struct {
	collection *mongo.Collection
}

// NewMongoPublishAckRepository creates a new PublishAck repository.
func NewMongoPublishAckRepository(db *mongo.Database) repository.PublishAckRepository {
	return &mongoPublishAckRepository{
		collection: db.Collection(ackCollectionName),
	}
}

// Upsert records the last hash an athlete has seen for a plan. There
// is at most one ack row per (planId, athleteId).
func (r *mongoPublishAckRepository) Upsert(ctx context.Context, ack *domain.PublishAck) error {
	if ack.PlanID == primitive.NilObjectID || ack.AthleteID == primitive.NilObjectID {
		return errors.New("ack requires planId and athleteId")
	}

	filter := bson.M{
		"planId":    ack.PlanID,
		"athleteId": ack.AthleteID,
	}
	update := bson.M{
		"$set": bson.M{
			"lastSeenHash": ack.LastSeenHash,
			"ackedAt":      ack.AckedAt,
		},
		"$setOnInsert": bson.M{
			"planId":    ack.PlanID,
			"athleteId": ack.AthleteID,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// GetByPlanAndAthlete retrieves the athlete's ack record for a plan.
func (r *mongoPublishAckRepository) GetByPlanAndAthlete(ctx context.Context, planID, athleteID primitive.ObjectID) (*domain.PublishAck, error) {
	var ack domain.PublishAck
	filter := bson.M{
		"planId":    planID,
		"athleteId": athleteID,
	}

	err := r.collection.FindOne(ctx, filter).Decode(&ack)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &ack, nil
}

// EnsurePublishAckIndexes creates necessary indexes. Call during startup.
func EnsurePublishAckIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "athleteId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
