package service

import (
	"coachdesk/coaching-app/internal/domain"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type proposalFixture struct {
	planRepo     *fakePlanRepo
	sessionRepo  *fakeSessionRepo
	proposalRepo *fakeProposalRepo
	auditRepo    *fakeAuditRepo
	snapshotRepo *fakeSnapshotRepo
	ackRepo      *fakeAckRepo

	svc     ProposalService
	publish PublishService

	coachID   primitive.ObjectID
	athleteID primitive.ObjectID
	planID    primitive.ObjectID
	sessions  []domain.DraftSession
}

// newProposalFixture seeds a coach-owned plan with three sessions in
// weeks 1 and 2.
func newProposalFixture(t *testing.T) *proposalFixture {
	t.Helper()
	f := &proposalFixture{
		planRepo:     newFakePlanRepo(),
		sessionRepo:  newFakeSessionRepo(),
		proposalRepo: newFakeProposalRepo(),
		auditRepo:    newFakeAuditRepo(),
		snapshotRepo: newFakeSnapshotRepo(),
		ackRepo:      newFakeAckRepo(),
		coachID:      primitive.NewObjectID(),
		athleteID:    primitive.NewObjectID(),
	}

	f.publish = NewPublishService(f.planRepo, f.sessionRepo, f.snapshotRepo, f.ackRepo, fakeTxRunner{}, nil)
	f.svc = NewProposalService(f.planRepo, f.sessionRepo, f.proposalRepo, f.auditRepo, fakeTxRunner{}, f.publish, 5)

	plan := &domain.DraftPlan{
		CoachID:   f.coachID,
		AthleteID: f.athleteID,
		Title:     "Half marathon build",
	}
	_, err := f.planRepo.Create(context.Background(), plan)
	require.NoError(t, err)
	f.planID = plan.ID

	sessions := []domain.DraftSession{
		{PlanID: f.planID, CoachID: f.coachID, AthleteID: f.athleteID, Week: 1, Ordinal: 0, DayOfWeek: 1, Discipline: "run", SessionType: "endurance", DurationMinutes: 40,
			Detail: domain.SessionDetail{Blocks: []domain.DetailBlock{{Role: domain.BlockWarmup, Minutes: 10}, {Role: domain.BlockMain, Minutes: 25}, {Role: domain.BlockCooldown, Minutes: 5}}}},
		{PlanID: f.planID, CoachID: f.coachID, AthleteID: f.athleteID, Week: 1, Ordinal: 1, DayOfWeek: 4, Discipline: "run", SessionType: "intervals", DurationMinutes: 60},
		{PlanID: f.planID, CoachID: f.coachID, AthleteID: f.athleteID, Week: 2, Ordinal: 0, DayOfWeek: 2, Discipline: "bike", SessionType: "tempo", DurationMinutes: 90},
	}
	// Normalize detail the way plan creation does, so objectives and
	// blocks are on the granularity grid from the start.
	for i := range sessions {
		sessions[i].SetDuration(sessions[i].DurationMinutes, 5)
	}
	_, err = f.sessionRepo.CreateMany(context.Background(), sessions)
	require.NoError(t, err)
	f.sessions = sessions
	return f
}

func (f *proposalFixture) propose(t *testing.T, patches ...domain.SessionPatch) *domain.PlanChangeProposal {
	t.Helper()
	proposal, _, _, err := f.svc.Create(context.Background(), f.coachID, f.planID, patches, "")
	require.NoError(t, err)
	return proposal
}

func TestCreateProposalCapturesFingerprints(t *testing.T) {
	f := newProposalFixture(t)
	target := f.sessions[0]

	proposal, preview, locks, err := f.svc.Create(context.Background(), f.coachID, f.planID,
		[]domain.SessionPatch{{SessionID: target.ID, DurationMinutes: intPtr(50)}}, "build volume")
	require.NoError(t, err)

	assert.Equal(t, domain.ProposalProposed, proposal.Status)
	assert.True(t, proposal.RespectsLocks)
	assert.Equal(t, "build volume", proposal.Rationale)
	require.Len(t, proposal.Fingerprints, 1)
	assert.Equal(t, target.ID, proposal.Fingerprints[0].SessionID)
	assert.False(t, proposal.Fingerprints[0].UpdatedAt.IsZero())

	require.Len(t, preview.Sessions, 1)
	assert.False(t, locks.Blocked)

	events := f.auditRepo.eventsFor(proposal.ID)
	assert.Equal(t, []domain.AuditEvent{domain.EventProposalCreated}, events)
}

func TestCreateProposalRejectsEmptyDiff(t *testing.T) {
	f := newProposalFixture(t)

	_, _, _, err := f.svc.Create(context.Background(), f.coachID, f.planID,
		[]domain.SessionPatch{{SessionID: f.sessions[0].ID}}, "")

	assert.ErrorIs(t, err, ErrEmptyDiff)
}

func TestApproveAppliesPatchesAndReflowsDetail(t *testing.T) {
	f := newProposalFixture(t)
	target := f.sessions[0]
	proposal := f.propose(t, domain.SessionPatch{SessionID: target.ID, DurationMinutes: intPtr(50), Notes: strPtr("add strides")})

	applied, err := f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.ProposalApplied, applied.Status)
	require.NotNil(t, applied.AppliedAt)

	session, err := f.sessionRepo.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, session.DurationMinutes)
	assert.Equal(t, 50, session.Detail.TotalMinutes())
	assert.Equal(t, "add strides", session.Notes)

	// Inverse patches hold the pre-approval values.
	require.Len(t, applied.InversePatches, 1)
	assert.Equal(t, 40, *applied.InversePatches[0].DurationMinutes)
	assert.Equal(t, "", *applied.InversePatches[0].Notes)

	events := f.auditRepo.eventsFor(proposal.ID)
	assert.Equal(t, []domain.AuditEvent{domain.EventProposalCreated, domain.EventProposalApplied}, events)
}

// A duration change whose proportional rounding overshoots by more than
// any single block can give back must still persist blocks summing to
// the new duration.
func TestApproveReflowKeepsSumWithManySmallBlocks(t *testing.T) {
	f := newProposalFixture(t)
	session := &domain.DraftSession{
		PlanID: f.planID, CoachID: f.coachID, AthleteID: f.athleteID,
		Week: 2, Ordinal: 1, DayOfWeek: 5, Discipline: "run", SessionType: "fartlek",
		DurationMinutes: 10,
		Detail: domain.SessionDetail{Blocks: []domain.DetailBlock{
			{Minutes: 2}, {Minutes: 2}, {Minutes: 2}, {Minutes: 2}, {Minutes: 2},
		}},
	}
	_, err := f.sessionRepo.Create(context.Background(), session)
	require.NoError(t, err)

	proposal := f.propose(t, domain.SessionPatch{SessionID: session.ID, DurationMinutes: intPtr(13)})
	_, err = f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)

	stored, err := f.sessionRepo.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, stored.DurationMinutes)
	assert.Equal(t, 13, stored.Detail.TotalMinutes())
	for i, b := range stored.Detail.Blocks {
		assert.GreaterOrEqual(t, b.Minutes, 0, "block %d went negative", i)
	}
}

// Two proposals target the same session; the first approval changes the
// session, so the second must be detected as stale and apply nothing.
func TestApproveDetectsStaleProposal(t *testing.T) {
	f := newProposalFixture(t)
	target := f.sessions[0]
	p1 := f.propose(t, domain.SessionPatch{SessionID: target.ID, DurationMinutes: intPtr(50)})
	p2 := f.propose(t, domain.SessionPatch{SessionID: target.ID, DurationMinutes: intPtr(45)})

	_, err := f.svc.Approve(context.Background(), f.coachID, p1.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), f.coachID, p2.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStaleProposal)

	var staleErr *StaleProposalError
	require.ErrorAs(t, err, &staleErr)
	assert.Equal(t, []string{target.ID.Hex()}, staleErr.SessionIDs)

	// The losing proposal stays proposed and the session keeps the
	// first approval's value.
	stored, err := f.proposalRepo.GetByID(context.Background(), p2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalProposed, stored.Status)

	session, err := f.sessionRepo.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, session.DurationMinutes)
}

func TestApproveTreatsDeletedTargetAsStale(t *testing.T) {
	f := newProposalFixture(t)
	target := f.sessions[1]
	proposal := f.propose(t, domain.SessionPatch{SessionID: target.ID, DurationMinutes: intPtr(70)})

	require.NoError(t, f.sessionRepo.Delete(context.Background(), target.ID, f.coachID))

	_, err := f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	assert.ErrorIs(t, err, ErrStaleProposal)
}

func TestApproveBlockedByWeekLockAddedAfterCreation(t *testing.T) {
	f := newProposalFixture(t)
	target := f.sessions[0]
	proposal := f.propose(t, domain.SessionPatch{SessionID: target.ID, DurationMinutes: intPtr(50)})

	// Lock the target's week after the proposal was created; approval
	// re-evaluates and must refuse.
	require.NoError(t, f.planRepo.SetLockedWeeks(context.Background(), f.planID, []int{1}))

	_, err := f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockConflict)

	var lockErr *LockConflictError
	require.ErrorAs(t, err, &lockErr)
	require.Len(t, lockErr.Report.Reasons, 1)
	assert.Equal(t, 1, lockErr.Report.Reasons[0].Week)

	session, err := f.sessionRepo.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, session.DurationMinutes)
}

func TestApproveTwiceFails(t *testing.T) {
	f := newProposalFixture(t)
	proposal := f.propose(t, domain.SessionPatch{SessionID: f.sessions[0].ID, Notes: strPtr("x")})

	_, err := f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	assert.ErrorIs(t, err, ErrProposalNotProposed)
}

func TestRejectLeavesSessionsUntouched(t *testing.T) {
	f := newProposalFixture(t)
	target := f.sessions[0]
	proposal := f.propose(t, domain.SessionPatch{SessionID: target.ID, DurationMinutes: intPtr(55)})

	rejected, err := f.svc.Reject(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalRejected, rejected.Status)
	require.NotNil(t, rejected.RejectedAt)

	session, err := f.sessionRepo.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, session.DurationMinutes)

	events := f.auditRepo.eventsFor(proposal.ID)
	assert.Equal(t, []domain.AuditEvent{domain.EventProposalCreated, domain.EventProposalRejected}, events)
}

// Undo of an applied proposal produces a new proposed proposal whose
// approval restores the original values.
func TestUndoRoundTripRestoresOriginalState(t *testing.T) {
	f := newProposalFixture(t)
	target := f.sessions[0]
	proposal := f.propose(t, domain.SessionPatch{SessionID: target.ID, DurationMinutes: intPtr(50)})

	_, err := f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)

	undo, err := f.svc.Undo(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalProposed, undo.Status)
	assert.Contains(t, undo.Rationale, proposal.ID.Hex())

	_, err = f.svc.Approve(context.Background(), f.coachID, undo.ID)
	require.NoError(t, err)

	session, err := f.sessionRepo.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, session.DurationMinutes)
	assert.Equal(t, 40, session.Detail.TotalMinutes())
}

// The undo is unprivileged: if the session changed after the original
// approval, approving the undo hits the same staleness check.
func TestUndoIsNotPrivileged(t *testing.T) {
	f := newProposalFixture(t)
	target := f.sessions[0]
	proposal := f.propose(t, domain.SessionPatch{SessionID: target.ID, DurationMinutes: intPtr(50)})

	_, err := f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)

	undo, err := f.svc.Undo(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)

	// Another approved change lands in between.
	interloper := f.propose(t, domain.SessionPatch{SessionID: target.ID, Notes: strPtr("moved to track")})
	_, err = f.svc.Approve(context.Background(), f.coachID, interloper.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), f.coachID, undo.ID)
	assert.ErrorIs(t, err, ErrStaleProposal)
}

func TestUndoRequiresAppliedProposal(t *testing.T) {
	f := newProposalFixture(t)
	proposal := f.propose(t, domain.SessionPatch{SessionID: f.sessions[0].ID, Notes: strPtr("x")})

	_, err := f.svc.Undo(context.Background(), f.coachID, proposal.ID)
	assert.ErrorIs(t, err, ErrProposalNotApplied)
}

func TestBatchApproveIndependentOutcomes(t *testing.T) {
	f := newProposalFixture(t)
	good := f.propose(t, domain.SessionPatch{SessionID: f.sessions[2].ID, DurationMinutes: intPtr(100)})
	p1 := f.propose(t, domain.SessionPatch{SessionID: f.sessions[0].ID, DurationMinutes: intPtr(50)})
	stale := f.propose(t, domain.SessionPatch{SessionID: f.sessions[0].ID, DurationMinutes: intPtr(45)})

	result, err := f.svc.BatchApprove(context.Background(), f.coachID, f.planID,
		[]primitive.ObjectID{good.ID, p1.ID, stale.ID}, BatchApprove)
	require.NoError(t, err)
	require.Len(t, result.Results, 3)

	assert.True(t, result.Results[0].Approved)
	assert.True(t, result.Results[1].Approved)
	assert.False(t, result.Results[2].Approved)
	assert.Equal(t, "STALE_PROPOSAL_CONFLICT", result.Results[2].ErrorCode)
	assert.Nil(t, result.Publish)
}

func TestBatchApproveAndPublishPublishesOnce(t *testing.T) {
	f := newProposalFixture(t)
	p1 := f.propose(t, domain.SessionPatch{SessionID: f.sessions[0].ID, DurationMinutes: intPtr(50)})
	p2 := f.propose(t, domain.SessionPatch{SessionID: f.sessions[1].ID, DurationMinutes: intPtr(70)})

	result, err := f.svc.BatchApprove(context.Background(), f.coachID, f.planID,
		[]primitive.ObjectID{p1.ID, p2.ID}, BatchApproveAndPublish)
	require.NoError(t, err)

	require.NotNil(t, result.Publish)
	assert.True(t, result.Publish.Published)
	assert.Len(t, f.snapshotRepo.snapshots, 1)

	// Exactly one audit row per approval, none for the publish.
	audits, err := f.auditRepo.GetByPlanID(context.Background(), f.planID)
	require.NoError(t, err)
	applied := 0
	for _, a := range audits {
		if a.Event == domain.EventProposalApplied {
			applied++
		}
	}
	assert.Equal(t, 2, applied)
}

func TestBatchApproveUnknownMode(t *testing.T) {
	f := newProposalFixture(t)

	_, err := f.svc.BatchApprove(context.Background(), f.coachID, f.planID, nil, BatchMode("yolo"))
	assert.Error(t, err)
}

func TestProposalOwnershipEnforced(t *testing.T) {
	f := newProposalFixture(t)
	proposal := f.propose(t, domain.SessionPatch{SessionID: f.sessions[0].ID, Notes: strPtr("x")})

	stranger := primitive.NewObjectID()
	_, err := f.svc.Approve(context.Background(), stranger, proposal.ID)
	assert.ErrorIs(t, err, ErrPlanAccessDenied)
}

func TestPreviewReflectsCurrentDraftState(t *testing.T) {
	f := newProposalFixture(t)
	target := f.sessions[0]
	proposal := f.propose(t, domain.SessionPatch{SessionID: target.ID, DurationMinutes: intPtr(50)})

	// A direct edit after creation changes what the preview shows as
	// the "before" value.
	session, err := f.sessionRepo.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	session.DurationMinutes = 42
	require.NoError(t, f.sessionRepo.Update(context.Background(), session))

	preview, locks, err := f.svc.Preview(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)
	assert.False(t, locks.Blocked)
	require.Len(t, preview.Sessions, 1)
	require.Len(t, preview.Sessions[0].Changes, 1)
	assert.Equal(t, "42", preview.Sessions[0].Changes[0].Before)
}
