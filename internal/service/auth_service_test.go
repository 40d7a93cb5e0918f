package service

import (
	"coachdesk/coaching-app/internal/domain"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewAuthService(userRepo, "test-secret", time.Hour)

	user, err := svc.Register(context.Background(), "Sam Coach", "sam@example.com", "correcthorse", domain.RoleCoach)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCoach, user.Role)
	assert.Empty(t, user.PasswordHash, "hash must not leak out of Register")

	token, loggedIn, err := svc.Login(context.Background(), "sam@example.com", "correcthorse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewAuthService(userRepo, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "A", "dup@example.com", "password-1", domain.RoleAthlete)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "B", "dup@example.com", "password-2", domain.RoleAthlete)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginWrongPassword(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewAuthService(userRepo, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "Sam", "sam@example.com", "correcthorse", domain.RoleCoach)
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "sam@example.com", "wronghorse")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestAddAthleteByEmail(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewCoachService(userRepo)

	coach := &domain.User{Name: "Coach", Email: "coach@example.com", Role: domain.RoleCoach}
	_, err := userRepo.Create(context.Background(), coach)
	require.NoError(t, err)
	athlete := &domain.User{Name: "Athlete", Email: "athlete@example.com", Role: domain.RoleAthlete}
	_, err = userRepo.Create(context.Background(), athlete)
	require.NoError(t, err)

	added, err := svc.AddAthleteByEmail(context.Background(), coach.ID, "athlete@example.com")
	require.NoError(t, err)
	require.NotNil(t, added.CoachID)
	assert.Equal(t, coach.ID, *added.CoachID)

	roster, err := svc.GetManagedAthletes(context.Background(), coach.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 1)

	// Re-adding by the same coach is an idempotent success.
	_, err = svc.AddAthleteByEmail(context.Background(), coach.ID, "athlete@example.com")
	require.NoError(t, err)

	// A different coach cannot poach an assigned athlete.
	rival := &domain.User{Name: "Rival", Email: "rival@example.com", Role: domain.RoleCoach}
	_, err = userRepo.Create(context.Background(), rival)
	require.NoError(t, err)
	_, err = svc.AddAthleteByEmail(context.Background(), rival.ID, "athlete@example.com")
	assert.ErrorIs(t, err, ErrAthleteAlreadyAssigned)
}

func TestAddAthleteByEmailRejectsCoachUser(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewCoachService(userRepo)

	coach := &domain.User{Name: "Coach", Email: "coach@example.com", Role: domain.RoleCoach}
	_, err := userRepo.Create(context.Background(), coach)
	require.NoError(t, err)
	other := &domain.User{Name: "Other Coach", Email: "other@example.com", Role: domain.RoleCoach}
	_, err = userRepo.Create(context.Background(), other)
	require.NoError(t, err)

	_, err = svc.AddAthleteByEmail(context.Background(), coach.ID, "other@example.com")
	assert.ErrorIs(t, err, ErrAthleteNotRole)
}
