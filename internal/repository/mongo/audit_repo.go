// internal/repository/mongo/audit_repo.go
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

const auditCollectionName = "plan_change_audits"

// mongoAuditRepository implements repository.AuditRepository. The
// collection is append-only: there is no update or delete here.
type mongoAuditRepository struct {
	collection *mongo.Collection
}

// NewMongoAuditRepository creates a new Audit repository.
func NewMongoAuditRepository(db *mongo.Database) repository.AuditRepository {
	return &mongoAuditRepository{
		collection: db.Collection(auditCollectionName),
	}
}

// Create appends a new audit row.
func (r *mongoAuditRepository) Create(ctx context.Context, audit *domain.PlanChangeAudit) (primitive.ObjectID, error) {
	if audit.ProposalID == primitive.NilObjectID || audit.PlanID == primitive.NilObjectID || audit.Event == "" {
		return primitive.NilObjectID, errors.New("audit requires proposalId, planId, and event")
	}
	audit.ID = primitive.NewObjectID()
	audit.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, audit)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted audit ID")
	}
	return insertedID, nil
}

// GetByPlanID retrieves the audit trail for a plan, oldest first.
func (r *mongoAuditRepository) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanChangeAudit, error) {
	var audits []domain.PlanChangeAudit
	filter := bson.M{"planId": planID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &audits); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return audits, nil
}

// EnsureAuditIndexes creates necessary indexes. Call during startup.
func EnsureAuditIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "proposalId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
