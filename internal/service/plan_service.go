package service

import (
	"coachdesk/coaching-app/internal/domain"
	"coachdesk/coaching-app/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrPlanNotFound        = errors.New("draft plan not found")
	ErrPlanAccessDenied    = errors.New("access denied to this draft plan")
	ErrSessionNotFound     = errors.New("draft session not found")
	ErrSessionAccessDenied = errors.New("access denied to this draft session")
)

// SessionInput describes one session of an initial plan. The plan
// generator upstream (deterministic or AI-assisted) is a black box
// producing this list.
type SessionInput struct {
	Week            int
	Ordinal         int
	DayOfWeek       int
	Discipline      string
	SessionType     string
	DurationMinutes int
	Notes           string
	Blocks          []domain.DetailBlock
}

// SessionUpdate carries a coach's direct edit; nil fields are left
// unchanged. A duration change re-flows the session's detail blocks.
type SessionUpdate struct {
	Week            *int
	Ordinal         *int
	DayOfWeek       *int
	Discipline      *string
	SessionType     *string
	DurationMinutes *int
	Notes           *string
}

// --- Service Interface ---
type PlanService interface {
	CreatePlan(ctx context.Context, coachID, athleteID primitive.ObjectID, title, planDoc string, sessions []SessionInput) (*domain.DraftPlan, []domain.DraftSession, error)
	GetPlan(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.DraftPlan, error)
	GetPlansForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) ([]domain.DraftPlan, error)
	GetSessions(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.DraftSession, error)
	UpdateSession(ctx context.Context, coachID, sessionID primitive.ObjectID, update SessionUpdate) (*domain.DraftSession, error)
	DeleteSession(ctx context.Context, coachID, sessionID primitive.ObjectID) error
	SetSessionLock(ctx context.Context, coachID, sessionID primitive.ObjectID, locked bool) (*domain.DraftSession, error)
	SetWeekLock(ctx context.Context, coachID, planID primitive.ObjectID, week int, locked bool) (*domain.DraftPlan, error)
}

// --- Service Implementation ---

// planService owns the mutable authoring-time plan: sessions, lock
// flags, and per-session structured detail.
type planService struct {
	userRepo      repository.UserRepository
	planRepo      repository.DraftPlanRepository
	sessionRepo   repository.DraftSessionRepository
	blockGranMins int
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	userRepo repository.UserRepository,
	planRepo repository.DraftPlanRepository,
	sessionRepo repository.DraftSessionRepository,
	blockGranularityMinutes int,
) PlanService {
	if blockGranularityMinutes <= 0 {
		blockGranularityMinutes = 5
	}
	return &planService{
		userRepo:      userRepo,
		planRepo:      planRepo,
		sessionRepo:   sessionRepo,
		blockGranMins: blockGranularityMinutes,
	}
}

// CreatePlan persists a new draft plan together with its initial
// session list.
func (s *planService) CreatePlan(ctx context.Context, coachID, athleteID primitive.ObjectID, title, planDoc string, sessions []SessionInput) (*domain.DraftPlan, []domain.DraftSession, error) {
	if coachID == primitive.NilObjectID || athleteID == primitive.NilObjectID || title == "" {
		return nil, nil, errors.New("coach ID, athlete ID, and title are required")
	}

	// Verify the athlete is managed by this coach
	athlete, err := s.userRepo.GetByID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrAthleteNotFound
		}
		return nil, nil, err
	}
	if athlete.CoachID == nil || *athlete.CoachID != coachID {
		return nil, nil, ErrAthleteNotManaged
	}

	plan := &domain.DraftPlan{
		CoachID:          coachID,
		AthleteID:        athleteID,
		Title:            title,
		PlanDoc:          planDoc,
		VisibilityStatus: domain.VisibilityDraft,
	}
	planID, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, nil, err
	}
	plan.ID = planID

	drafts := make([]domain.DraftSession, len(sessions))
	for i, in := range sessions {
		ds := domain.DraftSession{
			PlanID:      planID,
			CoachID:     coachID,
			AthleteID:   athleteID,
			Week:        in.Week,
			Ordinal:     in.Ordinal,
			DayOfWeek:   in.DayOfWeek,
			Discipline:  in.Discipline,
			SessionType: in.SessionType,
			Notes:       in.Notes,
			Detail:      domain.SessionDetail{Blocks: in.Blocks},
		}
		// SetDuration normalizes the blocks so the sum invariant
		// holds from the start and the objective text is populated.
		ds.SetDuration(in.DurationMinutes, s.blockGranMins)
		drafts[i] = ds
	}
	if len(drafts) > 0 {
		ids, err := s.sessionRepo.CreateMany(ctx, drafts)
		if err != nil {
			return nil, nil, err
		}
		for i := range drafts {
			drafts[i].ID = ids[i]
		}
	}

	return plan, drafts, nil
}

// GetPlan retrieves a plan, enforcing coach ownership.
func (s *planService) GetPlan(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.DraftPlan, error) {
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

// GetPlansForAthlete retrieves all plans this coach authored for an athlete.
func (s *planService) GetPlansForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) ([]domain.DraftPlan, error) {
	if coachID == primitive.NilObjectID || athleteID == primitive.NilObjectID {
		return nil, errors.New("coach ID and athlete ID are required")
	}
	return s.planRepo.GetByAthleteAndCoachID(ctx, athleteID, coachID)
}

// GetSessions retrieves a plan's sessions in canonical order.
func (s *planService) GetSessions(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.DraftSession, error) {
	if _, err := s.GetPlan(ctx, coachID, planID); err != nil {
		return nil, err
	}
	return s.sessionRepo.GetByPlanID(ctx, planID)
}

// UpdateSession applies a coach's direct edit to one session. A lock
// does not block direct edits; it only guards proposal-driven change.
func (s *planService) UpdateSession(ctx context.Context, coachID, sessionID primitive.ObjectID, update SessionUpdate) (*domain.DraftSession, error) {
	session, err := s.getOwnedSession(ctx, coachID, sessionID)
	if err != nil {
		return nil, err
	}

	if update.Week != nil {
		session.Week = *update.Week
	}
	if update.Ordinal != nil {
		session.Ordinal = *update.Ordinal
	}
	if update.DayOfWeek != nil {
		session.DayOfWeek = *update.DayOfWeek
	}
	if update.Discipline != nil {
		session.Discipline = *update.Discipline
	}
	if update.SessionType != nil {
		session.SessionType = *update.SessionType
	}
	if update.Notes != nil {
		session.Notes = *update.Notes
	}
	if update.DurationMinutes != nil {
		session.SetDuration(*update.DurationMinutes, s.blockGranMins)
	} else if update.SessionType != nil {
		// Keep the objective text in sync with the session type.
		session.SetDuration(session.DurationMinutes, s.blockGranMins)
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// DeleteSession removes a session from the draft. Its previously
// materialized calendar entry is soft-deleted on the next publish +
// materialization pass.
func (s *planService) DeleteSession(ctx context.Context, coachID, sessionID primitive.ObjectID) error {
	err := s.sessionRepo.Delete(ctx, sessionID, coachID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

// SetSessionLock flips a session's lock flag.
func (s *planService) SetSessionLock(ctx context.Context, coachID, sessionID primitive.ObjectID, locked bool) (*domain.DraftSession, error) {
	session, err := s.getOwnedSession(ctx, coachID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.SetLocked(ctx, sessionID, locked); err != nil {
		return nil, err
	}
	session.Locked = locked
	return session, nil
}

// SetWeekLock adds or removes a week from the plan's locked week list.
func (s *planService) SetWeekLock(ctx context.Context, coachID, planID primitive.ObjectID, week int, locked bool) (*domain.DraftPlan, error) {
	plan, err := s.GetPlan(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}

	if plan.IsWeekLocked(week) == locked {
		// Toggle is already in the requested state; skip the write.
		return plan, nil
	}

	weeks := make([]int, 0, len(plan.LockedWeeks)+1)
	for _, w := range plan.LockedWeeks {
		if w != week {
			weeks = append(weeks, w)
		}
	}
	if locked {
		weeks = append(weeks, week)
	}

	if err := s.planRepo.SetLockedWeeks(ctx, planID, weeks); err != nil {
		return nil, err
	}
	plan.LockedWeeks = weeks
	return plan, nil
}

// getOwnedSession fetches a session and enforces coach ownership.
func (s *planService) getOwnedSession(ctx context.Context, coachID, sessionID primitive.ObjectID) (*domain.DraftSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.CoachID != coachID {
		return nil, ErrSessionAccessDenied
	}
	return session, nil
}
