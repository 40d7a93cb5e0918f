package service

import (
	"coachdesk/coaching-app/internal/domain"
	"coachdesk/coaching-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrMaterializationFailed wraps any persistence failure during
// calendar reconciliation. Approval and publish state are never
// rolled back by a materialization failure; the caller reports it and
// the coach re-runs materialization.
var ErrMaterializationFailed = errors.New("calendar materialization failed")

// MaterializeResult reports what a reconciliation run changed.
type MaterializeResult struct {
	UpsertedCount    int    `json:"upsertedCount"`
	SoftDeletedCount int    `json:"softDeletedCount"`
	Hash             string `json:"hash"`
}

// --- Service Interface ---
type MaterializerService interface {
	// Materialize reconciles the athlete's calendar with the plan's
	// latest published snapshot. Idempotent: re-running against the
	// same snapshot changes nothing.
	Materialize(ctx context.Context, coachID, planID primitive.ObjectID) (*MaterializeResult, error)

	// AthleteCalendar lists the athlete's active (non-removed)
	// materialized entries.
	AthleteCalendar(ctx context.Context, athleteID primitive.ObjectID) ([]domain.CalendarEntry, error)
}

// --- Service Implementation ---

// materializerService reconciles published snapshots into calendar
// entries keyed by (athleteId, originTag, sourceKey).
type materializerService struct {
	planRepo     repository.DraftPlanRepository
	snapshotRepo repository.SnapshotRepository
	calendarRepo repository.CalendarRepository
	originTag    string
}

// NewMaterializerService creates a new instance of materializerService.
func NewMaterializerService(
	planRepo repository.DraftPlanRepository,
	snapshotRepo repository.SnapshotRepository,
	calendarRepo repository.CalendarRepository,
	originTag string,
) MaterializerService {
	if originTag == "" {
		originTag = "coach-plan"
	}
	return &materializerService{
		planRepo:     planRepo,
		snapshotRepo: snapshotRepo,
		calendarRepo: calendarRepo,
		originTag:    originTag,
	}
}

// Materialize diffs the latest snapshot against the existing entry set
// and applies only the needed upserts and soft deletes. Writes go
// through key-based upserts, so a concurrent run converges instead of
// duplicating entries.
func (s *materializerService) Materialize(ctx context.Context, coachID, planID primitive.ObjectID) (*MaterializeResult, error) {
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

	snapshot, err := s.snapshotRepo.GetLatestByPlanID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotYetPublished
		}
		return nil, err
	}

	existing, err := s.calendarRepo.GetByPlan(ctx, snapshot.AthleteID, s.originTag, planID)
	if err != nil {
		return nil, fmt.Errorf("%w: reading existing entries: %v", ErrMaterializationFailed, err)
	}
	byKey := make(map[string]*domain.CalendarEntry, len(existing))
	for i := range existing {
		byKey[existing[i].SourceKey] = &existing[i]
	}

	now := time.Now().UTC()
	result := &MaterializeResult{Hash: snapshot.ContentHash}

	inSnapshot := make(map[string]bool, len(snapshot.Sessions))
	for _, sess := range snapshot.Sessions {
		key := domain.CalendarSourceKey(sess.SessionID)
		inSnapshot[key] = true

		desired := domain.CalendarEntry{
			AthleteID:       snapshot.AthleteID,
			PlanID:          planID,
			OriginTag:       s.originTag,
			SourceKey:       key,
			Title:           entryTitle(sess),
			Week:            sess.Week,
			DayOfWeek:       sess.DayOfWeek,
			DurationMinutes: sess.DurationMinutes,
			Notes:           sess.Notes,
			Status:          domain.EntryScheduled,
		}

		if current, ok := byKey[key]; ok && entryMatches(current, &desired) {
			continue
		}
		if err := s.calendarRepo.Upsert(ctx, &desired); err != nil {
			return nil, fmt.Errorf("%w: upserting %s: %v", ErrMaterializationFailed, key, err)
		}
		result.UpsertedCount++
	}

	// Entries whose source session left the published set are
	// soft-deleted, never physically removed.
	for _, entry := range existing {
		if inSnapshot[entry.SourceKey] || entry.Status == domain.EntryRemoved {
			continue
		}
		if err := s.calendarRepo.SoftDelete(ctx, snapshot.AthleteID, s.originTag, entry.SourceKey, now); err != nil {
			return nil, fmt.Errorf("%w: removing %s: %v", ErrMaterializationFailed, entry.SourceKey, err)
		}
		result.SoftDeletedCount++
	}

	return result, nil
}

// AthleteCalendar returns the athlete's scheduled entries.
func (s *materializerService) AthleteCalendar(ctx context.Context, athleteID primitive.ObjectID) ([]domain.CalendarEntry, error) {
	return s.calendarRepo.GetActiveByAthlete(ctx, athleteID, s.originTag)
}

// entryTitle builds the athlete-facing title for a published session.
func entryTitle(sess domain.PublishedSession) string {
	return fmt.Sprintf("%s %s", sess.Discipline, sess.SessionType)
}

// entryMatches reports whether the stored entry already reflects the
// desired state, so the upsert can be skipped.
func entryMatches(current, desired *domain.CalendarEntry) bool {
	return current.Status == domain.EntryScheduled &&
		current.Title == desired.Title &&
		current.Week == desired.Week &&
		current.DayOfWeek == desired.DayOfWeek &&
		current.DurationMinutes == desired.DurationMinutes &&
		current.Notes == desired.Notes
}
