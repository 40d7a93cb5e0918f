// internal/repository/mongo/plan_repo.go
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

const planCollectionName = "draft_plans"

// mongoDraftPlanRepository implements repository.DraftPlanRepository
type mongoDraftPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoDraftPlanRepository creates a new DraftPlan repository.
func NewMongoDraftPlanRepository(db *mongo.Database) repository.DraftPlanRepository {
	return &mongoDraftPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new draft plan.
func (r *mongoDraftPlanRepository) Create(ctx context.Context, plan *domain.DraftPlan) (primitive.ObjectID, error) {
	if plan.AthleteID == primitive.NilObjectID || plan.CoachID == primitive.NilObjectID || plan.Title == "" {
		return primitive.NilObjectID, errors.New("plan requires athleteId, coachId, and title")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if plan.VisibilityStatus == "" {
		plan.VisibilityStatus = domain.VisibilityDraft
	}

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single draft plan by its ID.
func (r *mongoDraftPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DraftPlan, error) {
	var plan domain.DraftPlan
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByAthleteAndCoachID retrieves all plans for a specific athlete created by a specific coach.
func (r *mongoDraftPlanRepository) GetByAthleteAndCoachID(ctx context.Context, athleteID, coachID primitive.ObjectID) ([]domain.DraftPlan, error) {
	var plans []domain.DraftPlan
	// Filter ensures coach ownership and correct athlete association
	filter := bson.M{
		"athleteId": athleteID,
		"coachId":   coachID,
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

// Update saves the plan's mutable authoring fields. Publish state is
// written through SetPublishState, not here.
func (r *mongoDraftPlanRepository) Update(ctx context.Context, plan *domain.DraftPlan) error {
	if plan.ID == primitive.NilObjectID {
		return errors.New("draft plan ID is required for update")
	}

	filter := bson.M{"_id": plan.ID}
	updateDoc := bson.M{
		"$set": bson.M{
			"title":     plan.Title,
			"planDoc":   plan.PlanDoc,
			"updatedAt": time.Now().UTC(),
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

// SetPublishState records a successful publish on the plan.
func (r *mongoDraftPlanRepository) SetPublishState(ctx context.Context, planID primitive.ObjectID, hash string) error {
	if planID == primitive.NilObjectID || hash == "" {
		return errors.New("plan ID and content hash are required")
	}

	filter := bson.M{"_id": planID}
	update := bson.M{
		"$set": bson.M{
			"lastPublishedHash": hash,
			"visibilityStatus":  domain.VisibilityPublished,
			"updatedAt":         time.Now().UTC(),
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

// SetLockedWeeks replaces the plan's locked week list.
func (r *mongoDraftPlanRepository) SetLockedWeeks(ctx context.Context, planID primitive.ObjectID, weeks []int) error {
	if planID == primitive.NilObjectID {
		return errors.New("plan ID is required")
	}

	filter := bson.M{"_id": planID}
	update := bson.M{
		"$set": bson.M{
			"lockedWeeks": weeks,
			"updatedAt":   time.Now().UTC(),
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

// EnsureDraftPlanIndexes creates necessary indexes. Call during startup.
func EnsureDraftPlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Compound index for the main query pattern: plans for an athlete by a coach
			Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "athleteId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "visibilityStatus", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
