// internal/repository/mongo/calendar_repo.go
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

const calendarCollectionName = "calendar_entries"

// mongoCalendarRepository implements repository.CalendarRepository.
// Entries are addressed by (athleteId, originTag, sourceKey); the
// unique index on that triple plus key-based upserts guarantee that
// re-entrant materialization never creates duplicates.
type mongoCalendarRepository struct {
	collection *mongo.Collection
}

// NewMongoCalendarRepository creates a new Calendar repository.
func NewMongoCalendarRepository(db *mongo.Database) repository.CalendarRepository {
	return &mongoCalendarRepository{
		collection: db.Collection(calendarCollectionName),
	}
}

// GetByPlan retrieves every entry (including soft-deleted ones) under
// a plan's namespace for one athlete.
func (r *mongoCalendarRepository) GetByPlan(ctx context.Context, athleteID primitive.ObjectID, originTag string, planID primitive.ObjectID) ([]domain.CalendarEntry, error) {
	var entries []domain.CalendarEntry
	filter := bson.M{
		"athleteId": athleteID,
		"originTag": originTag,
		"planId":    planID,
	}
	findOptions := options.Find().SetSort(bson.D{
		{Key: "week", Value: 1},
		{Key: "dayOfWeek", Value: 1},
		{Key: "sourceKey", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetActiveByAthlete retrieves the athlete's visible (not soft-deleted)
// schedule across all plans materialized by this service.
func (r *mongoCalendarRepository) GetActiveByAthlete(ctx context.Context, athleteID primitive.ObjectID, originTag string) ([]domain.CalendarEntry, error) {
	var entries []domain.CalendarEntry
	filter := bson.M{
		"athleteId": athleteID,
		"originTag": originTag,
		"status":    domain.EntryScheduled,
	}
	findOptions := options.Find().SetSort(bson.D{
		{Key: "week", Value: 1},
		{Key: "dayOfWeek", Value: 1},
		{Key: "sourceKey", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Upsert writes an entry by its key. Creating and reviving go through
// the same path: the entry lands in the scheduled state with the
// materialized fields set.
func (r *mongoCalendarRepository) Upsert(ctx context.Context, entry *domain.CalendarEntry) error {
	if entry.AthleteID == primitive.NilObjectID || entry.OriginTag == "" || entry.SourceKey == "" {
		return errors.New("calendar entry requires athleteId, originTag, and sourceKey")
	}

	now := time.Now().UTC()
	filter := bson.M{
		"athleteId": entry.AthleteID,
		"originTag": entry.OriginTag,
		"sourceKey": entry.SourceKey,
	}
	update := bson.M{
		"$set": bson.M{
			"planId":          entry.PlanID,
			"title":           entry.Title,
			"week":            entry.Week,
			"dayOfWeek":       entry.DayOfWeek,
			"durationMinutes": entry.DurationMinutes,
			"notes":           entry.Notes,
			"status":          domain.EntryScheduled,
			"deletedAt":       nil,
			"updatedAt":       now,
		},
		"$setOnInsert": bson.M{
			"athleteId": entry.AthleteID,
			"originTag": entry.OriginTag,
			"sourceKey": entry.SourceKey,
			"createdAt": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// SoftDelete marks an entry removed without physically deleting it.
func (r *mongoCalendarRepository) SoftDelete(ctx context.Context, athleteID primitive.ObjectID, originTag, sourceKey string, at time.Time) error {
	filter := bson.M{
		"athleteId": athleteID,
		"originTag": originTag,
		"sourceKey": sourceKey,
	}
	update := bson.M{
		"$set": bson.M{
			"status":    domain.EntryRemoved,
			"deletedAt": at,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureCalendarIndexes creates necessary indexes. Call during startup.
func EnsureCalendarIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// The materialization key. Unique so concurrent upserts
			// converge on one entry per session.
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "originTag", Value: 1}, {Key: "sourceKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "originTag", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "planId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
