// internal/repository/mongo/proposal_repo.go
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

const proposalCollectionName = "plan_change_proposals"

// mongoProposalRepository implements repository.ProposalRepository
type mongoProposalRepository struct {
	collection *mongo.Collection
}

// NewMongoProposalRepository creates a new Proposal repository.
func NewMongoProposalRepository(db *mongo.Database) repository.ProposalRepository {
	return &mongoProposalRepository{
		collection: db.Collection(proposalCollectionName),
	}
}

// Create inserts a new proposal in the proposed state.
func (r *mongoProposalRepository) Create(ctx context.Context, proposal *domain.PlanChangeProposal) (primitive.ObjectID, error) {
	if proposal.PlanID == primitive.NilObjectID || proposal.CoachID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("proposal requires planId and coachId")
	}
	if len(proposal.Patches) == 0 {
		return primitive.NilObjectID, errors.New("proposal requires at least one patch")
	}
	proposal.ID = primitive.NewObjectID()
	proposal.Status = domain.ProposalProposed
	proposal.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, proposal)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted proposal ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single proposal by its ID.
func (r *mongoProposalRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanChangeProposal, error) {
	var proposal domain.PlanChangeProposal
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&proposal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

// GetByPlanID retrieves all proposals for a plan, newest first.
func (r *mongoProposalRepository) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanChangeProposal, error) {
	var proposals []domain.PlanChangeProposal
	filter := bson.M{"planId": planID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &proposals); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return proposals, nil
}

// MarkApplied transitions proposed -> applied. The status guard in the
// filter makes the transition safe under concurrent approvals: only
// one caller can win, the rest see ErrNotFound.
func (r *mongoProposalRepository) MarkApplied(ctx context.Context, id primitive.ObjectID, inverse []domain.SessionPatch, at time.Time) error {
	filter := bson.M{"_id": id, "status": domain.ProposalProposed}
	update := bson.M{
		"$set": bson.M{
			"status":         domain.ProposalApplied,
			"inversePatches": inverse,
			"appliedAt":      at,
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

// MarkRejected transitions proposed -> rejected.
func (r *mongoProposalRepository) MarkRejected(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	filter := bson.M{"_id": id, "status": domain.ProposalProposed}
	update := bson.M{
		"$set": bson.M{
			"status":     domain.ProposalRejected,
			"rejectedAt": at,
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

// EnsureProposalIndexes creates necessary indexes. Call during startup.
func EnsureProposalIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
