package repository

import (
	"coachdesk/coaching-app/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TxRunner runs a function within a storage transaction so that
// multi-document mutations (session patches + proposal transition +
// audit row) commit atomically or not at all.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddAthleteIDToCoach(ctx context.Context, coachID, athleteID primitive.ObjectID) error
	GetAthletesByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)
	SetCoachForAthlete(ctx context.Context, athleteID, coachID primitive.ObjectID) error
}

// DraftPlanRepository defines the interface for interacting with draft plan data.
type DraftPlanRepository interface {
	Create(ctx context.Context, plan *domain.DraftPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DraftPlan, error)
	GetByAthleteAndCoachID(ctx context.Context, athleteID, coachID primitive.ObjectID) ([]domain.DraftPlan, error)
	Update(ctx context.Context, plan *domain.DraftPlan) error
	// SetPublishState records a successful publish: the new content
	// hash plus the published visibility status.
	SetPublishState(ctx context.Context, planID primitive.ObjectID, hash string) error
	SetLockedWeeks(ctx context.Context, planID primitive.ObjectID, weeks []int) error
}

// DraftSessionRepository defines the interface for interacting with draft session data.
type DraftSessionRepository interface {
	Create(ctx context.Context, session *domain.DraftSession) (primitive.ObjectID, error)
	CreateMany(ctx context.Context, sessions []domain.DraftSession) ([]primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DraftSession, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.DraftSession, error)
	// GetByPlanID returns the plan's sessions in canonical order
	// (week, ordinal, id).
	GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.DraftSession, error)
	Update(ctx context.Context, session *domain.DraftSession) error
	SetLocked(ctx context.Context, sessionID primitive.ObjectID, locked bool) error
	Delete(ctx context.Context, sessionID, coachID primitive.ObjectID) error
}

// ProposalRepository defines the interface for interacting with plan change proposals.
type ProposalRepository interface {
	Create(ctx context.Context, proposal *domain.PlanChangeProposal) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanChangeProposal, error)
	GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanChangeProposal, error)
	// MarkApplied transitions proposed -> applied, recording the
	// inverse patches captured at apply time. Returns ErrNotFound when
	// the proposal is not currently in the proposed state.
	MarkApplied(ctx context.Context, id primitive.ObjectID, inverse []domain.SessionPatch, at time.Time) error
	// MarkRejected transitions proposed -> rejected.
	MarkRejected(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// AuditRepository defines the interface for the append-only change audit log.
type AuditRepository interface {
	Create(ctx context.Context, audit *domain.PlanChangeAudit) (primitive.ObjectID, error)
	GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanChangeAudit, error)
}

// SnapshotRepository defines the interface for immutable publish snapshots.
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *domain.PublishSnapshot) (primitive.ObjectID, error)
	// GetLatestByPlanID returns the most recent snapshot for a plan,
	// or ErrNotFound when the plan has never been published.
	GetLatestByPlanID(ctx context.Context, planID primitive.ObjectID) (*domain.PublishSnapshot, error)
	SetArchiveKey(ctx context.Context, id primitive.ObjectID, key string) error
}

// PublishAckRepository tracks the last published hash each athlete has seen.
type PublishAckRepository interface {
	Upsert(ctx context.Context, ack *domain.PublishAck) error
	GetByPlanAndAthlete(ctx context.Context, planID, athleteID primitive.ObjectID) (*domain.PublishAck, error)
}

// CalendarRepository defines the interface for materialized calendar entries.
// Entries are keyed by (athleteId, originTag, sourceKey); writes go
// through key-based upserts so re-entrant materialization cannot
// produce duplicates.
type CalendarRepository interface {
	GetByPlan(ctx context.Context, athleteID primitive.ObjectID, originTag string, planID primitive.ObjectID) ([]domain.CalendarEntry, error)
	GetActiveByAthlete(ctx context.Context, athleteID primitive.ObjectID, originTag string) ([]domain.CalendarEntry, error)
	Upsert(ctx context.Context, entry *domain.CalendarEntry) error
	SoftDelete(ctx context.Context, athleteID primitive.ObjectID, originTag, sourceKey string, at time.Time) error
}
