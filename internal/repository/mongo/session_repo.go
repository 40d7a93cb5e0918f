// internal/repository/mongo/session_repo.go
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

const sessionCollectionName = "draft_sessions"

// mongoDraftSessionRepository implements repository.DraftSessionRepository
type mongoDraftSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoDraftSessionRepository creates a new DraftSession repository.
func NewMongoDraftSessionRepository(db *mongo.Database) repository.DraftSessionRepository {
	return &mongoDraftSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts a new draft session.
func (r *mongoDraftSessionRepository) Create(ctx context.Context, session *domain.DraftSession) (primitive.ObjectID, error) {
	if session.PlanID == primitive.NilObjectID || session.CoachID == primitive.NilObjectID || session.AthleteID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("session requires planId, coachId, and athleteId")
	}
	session.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted session ID")
	}
	return insertedID, nil
}

// CreateMany inserts a batch of draft sessions (initial plan generation output).
func (r *mongoDraftSessionRepository) CreateMany(ctx context.Context, sessions []domain.DraftSession) ([]primitive.ObjectID, error) {
	if len(sessions) == 0 {
		return []primitive.ObjectID{}, nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, len(sessions))
	ids := make([]primitive.ObjectID, len(sessions))
	for i := range sessions {
		if sessions[i].PlanID == primitive.NilObjectID {
			return nil, errors.New("every session requires planId")
		}
		sessions[i].ID = primitive.NewObjectID()
		sessions[i].CreatedAt = now
		sessions[i].UpdatedAt = now
		ids[i] = sessions[i].ID
		docs[i] = sessions[i]
	}

	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetByID retrieves a single draft session by its ID.
func (r *mongoDraftSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DraftSession, error) {
	var session domain.DraftSession
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetByIDs retrieves multiple sessions at once. Missing ids are simply
// absent from the result; callers compare against what they asked for.
func (r *mongoDraftSessionRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.DraftSession, error) {
	if len(ids) == 0 {
		return []domain.DraftSession{}, nil
	}
	var sessions []domain.DraftSession
	filter := bson.M{"_id": bson.M{"$in": ids}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetByPlanID retrieves all sessions for a plan in canonical order
// (week, ordinal, id). The publish hash depends on this ordering.
func (r *mongoDraftSessionRepository) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.DraftSession, error) {
	var sessions []domain.DraftSession
	filter := bson.M{"planId": planID}
	findOptions := options.Find().SetSort(bson.D{
		{Key: "week", Value: 1},
		{Key: "ordinal", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Update saves a session's mutable fields and bumps updatedAt, which
// invalidates any proposal fingerprint captured before this write.
func (r *mongoDraftSessionRepository) Update(ctx context.Context, session *domain.DraftSession) error {
	if session.ID == primitive.NilObjectID {
		return errors.New("session ID is required for update")
	}

	// PlanID, CoachID, AthleteID are not changed via a simple update.
	filter := bson.M{"_id": session.ID}
	updateDoc := bson.M{
		"$set": bson.M{
			"week":            session.Week,
			"ordinal":         session.Ordinal,
			"dayOfWeek":       session.DayOfWeek,
			"discipline":      session.Discipline,
			"sessionType":     session.SessionType,
			"durationMinutes": session.DurationMinutes,
			"notes":           session.Notes,
			"detail":          session.Detail,
			"updatedAt":       time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetLocked flips a session's lock flag.
func (r *mongoDraftSessionRepository) SetLocked(ctx context.Context, sessionID primitive.ObjectID, locked bool) error {
	if sessionID == primitive.NilObjectID {
		return errors.New("session ID is required")
	}

	filter := bson.M{"_id": sessionID}
	update := bson.M{
		"$set": bson.M{
			"locked":    locked,
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

// Delete removes a session, enforcing coach ownership.
func (r *mongoDraftSessionRepository) Delete(ctx context.Context, sessionID, coachID primitive.ObjectID) error {
	if sessionID == primitive.NilObjectID || coachID == primitive.NilObjectID {
		return errors.New("session ID and coach ID are required for deletion")
	}

	filter := bson.M{
		"_id":     sessionID,
		"coachId": coachID,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		// Session not found OR not owned by this coach.
		return repository.ErrNotFound
	}
	return nil
}

// EnsureDraftSessionIndexes creates necessary indexes. Call during startup.
func EnsureDraftSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Index for the canonical per-plan listing
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "week", Value: 1}, {Key: "ordinal", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
