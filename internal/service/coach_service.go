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
	ErrAthleteNotFound        = errors.New("athlete user not found")
	ErrAthleteNotRole         = errors.New("user found but is not an athlete")
	ErrAthleteAlreadyAssigned = errors.New("athlete is already assigned to a coach")
	ErrAthleteNotManaged      = errors.New("athlete is not managed by this coach")
)

// --- Service Interface ---
type CoachService interface {
	// Roster Management
	AddAthleteByEmail(ctx context.Context, coachID primitive.ObjectID, athleteEmail string) (*domain.User, error)
	GetManagedAthletes(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)
}

// --- Service Implementation ---

// coachService implements the CoachService interface.
type coachService struct {
	userRepo repository.UserRepository
}

// NewCoachService creates a new instance of coachService.
func NewCoachService(userRepo repository.UserRepository) CoachService {
	return &coachService{
		userRepo: userRepo,
	}
}

// AddAthleteByEmail finds an athlete by email and assigns them to the coach.
func (s *coachService) AddAthleteByEmail(ctx context.Context, coachID primitive.ObjectID, athleteEmail string) (*domain.User, error) {
	if coachID == primitive.NilObjectID || athleteEmail == "" {
		return nil, errors.New("coach ID and athlete email are required")
	}

	athlete, err := s.userRepo.GetByEmail(ctx, athleteEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, err
	}

	if athlete.Role != domain.RoleAthlete {
		return nil, ErrAthleteNotRole
	}

	// Check if the athlete is already assigned to any coach
	if athlete.CoachID != nil && *athlete.CoachID != primitive.NilObjectID {
		if *athlete.CoachID == coachID {
			// Already managed by this coach; treat as success.
			return athlete, nil
		}
		return nil, ErrAthleteAlreadyAssigned
	}

	// Assign athlete to coach (update both records)
	err = s.userRepo.AddAthleteIDToCoach(ctx, coachID, athlete.ID)
	if err != nil {
		return nil, err
	}

	err = s.userRepo.SetCoachForAthlete(ctx, athlete.ID, coachID)
	if err != nil {
		return nil, err
	}

	athlete.CoachID = &coachID
	return athlete, nil
}

// GetManagedAthletes retrieves the list of athletes managed by the coach.
func (s *coachService) GetManagedAthletes(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error) {
	if coachID == primitive.NilObjectID {
		return nil, errors.New("coach ID is required")
	}
	athletes, err := s.userRepo.GetAthletesByCoachID(ctx, coachID)
	if err != nil {
		return nil, err
	}
	// Clear password hashes before returning
	for i := range athletes {
		athletes[i].PasswordHash = ""
	}
	return athletes, nil
}
