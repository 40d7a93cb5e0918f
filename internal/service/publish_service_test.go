package service

import (
	"coachdesk/coaching-app/internal/domain"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPublishCreatesSnapshotAndSetsHash(t *testing.T) {
	f := newProposalFixture(t)

	result, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	assert.True(t, result.Published)
	assert.NotEmpty(t, result.Hash)
	assert.NotEmpty(t, result.SnapshotID)
	require.Len(t, f.snapshotRepo.snapshots, 1)

	snap := f.snapshotRepo.snapshots[0]
	assert.Equal(t, result.Hash, snap.ContentHash)
	assert.Equal(t, f.athleteID, snap.AthleteID)
	assert.Len(t, snap.Sessions, 3)

	plan, err := f.planRepo.GetByID(context.Background(), f.planID)
	require.NoError(t, err)
	assert.Equal(t, result.Hash, plan.LastPublishedHash)
	assert.Equal(t, domain.VisibilityPublished, plan.VisibilityStatus)
}

func TestPublishUnchangedContentIsNoOp(t *testing.T) {
	f := newProposalFixture(t)

	first, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)
	require.True(t, first.Published)

	second, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	assert.False(t, second.Published)
	assert.Equal(t, first.Hash, second.Hash)
	assert.Len(t, f.snapshotRepo.snapshots, 1)
}

func TestPublishAfterChangeProducesNewSnapshot(t *testing.T) {
	f := newProposalFixture(t)

	first, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	proposal := f.propose(t, domain.SessionPatch{SessionID: f.sessions[0].ID, DurationMinutes: intPtr(50)})
	_, err = f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)

	second, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	assert.True(t, second.Published)
	assert.NotEqual(t, first.Hash, second.Hash)
	assert.Len(t, f.snapshotRepo.snapshots, 2)
}

// Apply a change, publish, undo it, approve the undo, publish again:
// the republished content hash must equal the original because the
// hash covers publishable content only, not edit history.
func TestUndoRoundTripRestoresContentHash(t *testing.T) {
	f := newProposalFixture(t)

	original, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	proposal := f.propose(t, domain.SessionPatch{SessionID: f.sessions[0].ID, DurationMinutes: intPtr(50)})
	_, err = f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)

	changed, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)
	require.NotEqual(t, original.Hash, changed.Hash)

	undo, err := f.svc.Undo(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), f.coachID, undo.ID)
	require.NoError(t, err)

	restored, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	assert.True(t, restored.Published)
	assert.Equal(t, original.Hash, restored.Hash)
	// The round trip is a third history row, not a dedup against the
	// first snapshot.
	assert.Len(t, f.snapshotRepo.snapshots, 3)
}

func TestPublishArchivesSnapshotBestEffort(t *testing.T) {
	f := newProposalFixture(t)
	archive := newFakeArchive()
	publish := NewPublishService(f.planRepo, f.sessionRepo, f.snapshotRepo, f.ackRepo, fakeTxRunner{}, archive)

	result, err := publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)
	require.True(t, result.Published)

	assert.Len(t, archive.stored, 1)
	assert.NotEmpty(t, f.snapshotRepo.snapshots[0].ArchiveKey)
}

func TestGetPublishedPlanGatesOnSnapshot(t *testing.T) {
	f := newProposalFixture(t)

	// Never published: the athlete sees nothing.
	_, err := f.publish.GetPublishedPlan(context.Background(), f.athleteID, f.planID)
	assert.ErrorIs(t, err, ErrNotYetPublished)

	_, err = f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	snap, err := f.publish.GetPublishedPlan(context.Background(), f.athleteID, f.planID)
	require.NoError(t, err)
	assert.Len(t, snap.Sessions, 3)
}

// Draft edits after a publish stay invisible until the next publish.
func TestGetPublishedPlanHidesPendingDraftEdits(t *testing.T) {
	f := newProposalFixture(t)

	_, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	proposal := f.propose(t, domain.SessionPatch{SessionID: f.sessions[0].ID, DurationMinutes: intPtr(55)})
	_, err = f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)

	snap, err := f.publish.GetPublishedPlan(context.Background(), f.athleteID, f.planID)
	require.NoError(t, err)
	for _, s := range snap.Sessions {
		if s.SessionID == f.sessions[0].ID {
			assert.Equal(t, 40, s.DurationMinutes)
		}
	}
}

func TestGetPublishedPlanEnforcesAthleteOwnership(t *testing.T) {
	f := newProposalFixture(t)
	_, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	stranger := primitive.NewObjectID()
	_, err = f.publish.GetPublishedPlan(context.Background(), stranger, f.planID)
	assert.ErrorIs(t, err, ErrPlanAccessDenied)
}

func TestAckAndUnseenChanges(t *testing.T) {
	f := newProposalFixture(t)

	_, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	// Published but never acked: unseen.
	unseen, hash, err := f.publish.HasUnseenChanges(context.Background(), f.athleteID, f.planID)
	require.NoError(t, err)
	assert.True(t, unseen)
	assert.NotEmpty(t, hash)

	ack, err := f.publish.AckPublished(context.Background(), f.athleteID, f.planID)
	require.NoError(t, err)
	assert.Equal(t, hash, ack.LastSeenHash)

	unseen, _, err = f.publish.HasUnseenChanges(context.Background(), f.athleteID, f.planID)
	require.NoError(t, err)
	assert.False(t, unseen)

	// A republish with new content flips it back.
	proposal := f.propose(t, domain.SessionPatch{SessionID: f.sessions[0].ID, DurationMinutes: intPtr(50)})
	_, err = f.svc.Approve(context.Background(), f.coachID, proposal.ID)
	require.NoError(t, err)
	_, err = f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	unseen, _, err = f.publish.HasUnseenChanges(context.Background(), f.athleteID, f.planID)
	require.NoError(t, err)
	assert.True(t, unseen)
}

func TestAckBeforePublishFails(t *testing.T) {
	f := newProposalFixture(t)

	_, err := f.publish.AckPublished(context.Background(), f.athleteID, f.planID)
	assert.ErrorIs(t, err, ErrNotYetPublished)
}

func TestContentHashIgnoresLockState(t *testing.T) {
	f := newProposalFixture(t)

	first, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)

	// Locking a session changes draft metadata, not publishable content.
	require.NoError(t, f.sessionRepo.SetLocked(context.Background(), f.sessions[0].ID, true))

	second, err := f.publish.Publish(context.Background(), f.coachID, f.planID)
	require.NoError(t, err)
	assert.False(t, second.Published)
	assert.Equal(t, first.Hash, second.Hash)
}
