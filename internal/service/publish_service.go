package service

import (
	"coachdesk/coaching-app/internal/domain"
	"coachdesk/coaching-app/internal/repository"
	"coachdesk/coaching-app/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrNotYetPublished   = errors.New("plan has not been published yet")
	ErrSnapshotNoArchive = errors.New("snapshot has no archived copy")
)

// PublishResult reports the outcome of a publish call. Published is
// false when the content hash matched the last published hash and the
// call was a no-op.
type PublishResult struct {
	Published  bool   `json:"published"`
	Hash       string `json:"hash"`
	SnapshotID string `json:"snapshotId,omitempty"`
}

// --- Service Interface ---
type PublishService interface {
	// Publish freezes the draft's current state into an immutable,
	// hashed snapshot. Idempotent per content: republishing unchanged
	// content returns published=false and the existing hash.
	Publish(ctx context.Context, coachID, planID primitive.ObjectID) (*PublishResult, error)

	// GetPublishedPlan is the athlete visibility gate: it returns only
	// the most recent snapshot, never live draft state.
	GetPublishedPlan(ctx context.Context, athleteID, planID primitive.ObjectID) (*domain.PublishSnapshot, error)

	// AckPublished records that the athlete has seen the currently
	// published hash.
	AckPublished(ctx context.Context, athleteID, planID primitive.ObjectID) (*domain.PublishAck, error)

	// HasUnseenChanges compares the athlete's last acked hash against
	// the plan's last published hash.
	HasUnseenChanges(ctx context.Context, athleteID, planID primitive.ObjectID) (bool, string, error)

	// ArchiveDownloadURL returns a presigned URL for the latest
	// snapshot's archived copy.
	ArchiveDownloadURL(ctx context.Context, coachID, planID primitive.ObjectID) (string, error)
}

// --- Service Implementation ---

// publishService implements the PublishService interface.
type publishService struct {
	planRepo     repository.DraftPlanRepository
	sessionRepo  repository.DraftSessionRepository
	snapshotRepo repository.SnapshotRepository
	ackRepo      repository.PublishAckRepository
	tx           repository.TxRunner
	archive      storage.SnapshotArchive // nil disables archival
}

// NewPublishService creates a new instance of publishService. The
// archive may be nil when snapshot archival is not configured.
func NewPublishService(
	planRepo repository.DraftPlanRepository,
	sessionRepo repository.DraftSessionRepository,
	snapshotRepo repository.SnapshotRepository,
	ackRepo repository.PublishAckRepository,
	tx repository.TxRunner,
	archive storage.SnapshotArchive,
) PublishService {
	return &publishService{
		planRepo:     planRepo,
		sessionRepo:  sessionRepo,
		snapshotRepo: snapshotRepo,
		ackRepo:      ackRepo,
		tx:           tx,
		archive:      archive,
	}
}

// Publish computes the content hash of the draft's publishable state
// and creates a new snapshot only when the hash differs from the last
// published one.
func (s *publishService) Publish(ctx context.Context, coachID, planID primitive.ObjectID) (*PublishResult, error) {
	plan, err := s.getOwnedPlan(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessionRepo.GetByPlanID(ctx, planID)
	if err != nil {
		return nil, err
	}

	hash := ContentHash(sessions)
	if hash == plan.LastPublishedHash {
		// Unchanged content: safe to call repeatedly, e.g. after a
		// batch approval or a retried request.
		return &PublishResult{Published: false, Hash: hash}, nil
	}

	snapshot := &domain.PublishSnapshot{
		PlanID:      planID,
		CoachID:     plan.CoachID,
		AthleteID:   plan.AthleteID,
		ContentHash: hash,
		Title:       plan.Title,
		Sessions:    publishedSessions(sessions),
		PublishedAt: time.Now().UTC(),
	}

	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if _, err := s.snapshotRepo.Create(txCtx, snapshot); err != nil {
			return err
		}
		return s.planRepo.SetPublishState(txCtx, planID, hash)
	})
	if err != nil {
		return nil, err
	}

	// Archival is best-effort; the publish is already the record of
	// intent and never rolls back on archive failure.
	s.archiveSnapshot(ctx, snapshot)

	return &PublishResult{
		Published:  true,
		Hash:       hash,
		SnapshotID: snapshot.ID.Hex(),
	}, nil
}

// archiveSnapshot uploads the serialized session list to object
// storage and records the key on the snapshot.
func (s *publishService) archiveSnapshot(ctx context.Context, snapshot *domain.PublishSnapshot) {
	if s.archive == nil {
		return
	}
	body, err := json.Marshal(snapshot.Sessions)
	if err != nil {
		log.Printf("WARN: failed to serialize snapshot %s for archival: %v", snapshot.ID.Hex(), err)
		return
	}
	key := fmt.Sprintf("snapshots/%s/%s.json", snapshot.PlanID.Hex(), uuid.NewString())
	if err := s.archive.Store(ctx, key, body, "application/json"); err != nil {
		log.Printf("WARN: failed to archive snapshot %s: %v", snapshot.ID.Hex(), err)
		return
	}
	if err := s.snapshotRepo.SetArchiveKey(ctx, snapshot.ID, key); err != nil {
		log.Printf("WARN: failed to record archive key for snapshot %s: %v", snapshot.ID.Hex(), err)
		return
	}
	snapshot.ArchiveKey = key
}

// GetPublishedPlan returns the most recent snapshot for the athlete.
// Draft edits pending since the last publish are never exposed.
func (s *publishService) GetPublishedPlan(ctx context.Context, athleteID, planID primitive.ObjectID) (*domain.PublishSnapshot, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.AthleteID != athleteID {
		return nil, ErrPlanAccessDenied
	}

	snapshot, err := s.snapshotRepo.GetLatestByPlanID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotYetPublished
		}
		return nil, err
	}
	return snapshot, nil
}

// AckPublished records the currently published hash as seen.
func (s *publishService) AckPublished(ctx context.Context, athleteID, planID primitive.ObjectID) (*domain.PublishAck, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.AthleteID != athleteID {
		return nil, ErrPlanAccessDenied
	}
	if plan.LastPublishedHash == "" {
		return nil, ErrNotYetPublished
	}

	ack := &domain.PublishAck{
		PlanID:       planID,
		AthleteID:    athleteID,
		LastSeenHash: plan.LastPublishedHash,
		AckedAt:      time.Now().UTC(),
	}
	if err := s.ackRepo.Upsert(ctx, ack); err != nil {
		return nil, err
	}
	return ack, nil
}

// HasUnseenChanges reports whether the plan was republished since the
// athlete's last ack, along with the current published hash.
func (s *publishService) HasUnseenChanges(ctx context.Context, athleteID, planID primitive.ObjectID) (bool, string, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, "", ErrPlanNotFound
		}
		return false, "", err
	}
	if plan.AthleteID != athleteID {
		return false, "", ErrPlanAccessDenied
	}
	if plan.LastPublishedHash == "" {
		return false, "", ErrNotYetPublished
	}

	ack, err := s.ackRepo.GetByPlanAndAthlete(ctx, planID, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Published but never acked: everything is unseen.
			return true, plan.LastPublishedHash, nil
		}
		return false, "", err
	}
	return ack.LastSeenHash != plan.LastPublishedHash, plan.LastPublishedHash, nil
}

// ArchiveDownloadURL returns a presigned link to the latest snapshot's
// archived copy.
func (s *publishService) ArchiveDownloadURL(ctx context.Context, coachID, planID primitive.ObjectID) (string, error) {
	if s.archive == nil {
		return "", ErrSnapshotNoArchive
	}
	if _, err := s.getOwnedPlan(ctx, coachID, planID); err != nil {
		return "", err
	}
	snapshot, err := s.snapshotRepo.GetLatestByPlanID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotYetPublished
		}
		return "", err
	}
	if snapshot.ArchiveKey == "" {
		return "", ErrSnapshotNoArchive
	}
	return s.archive.GeneratePresignedDownloadURL(ctx, snapshot.ArchiveKey, storage.DefaultPresignedURLExpiry)
}

// getOwnedPlan fetches a plan and enforces coach ownership.
func (s *publishService) getOwnedPlan(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.DraftPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.CoachID != coachID {
		return nil, ErrPlanAccessDenied
	}
	return plan, nil
}
