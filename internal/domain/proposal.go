package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProposalStatus type for the proposal lifecycle
type ProposalStatus string

const (
	ProposalProposed ProposalStatus = "proposed"
	ProposalApplied  ProposalStatus = "applied" // Terminal; may seed an undo proposal
	ProposalRejected ProposalStatus = "rejected"
)

// SessionPatch is one "update session fields" operation within a
// proposal's diff. Only the non-nil fields change; the session is
// addressed by id and is not owned by the proposal.
type SessionPatch struct {
	SessionID       primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	SessionType     *string            `bson:"sessionType,omitempty" json:"sessionType,omitempty"`
	DurationMinutes *int               `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Notes           *string            `bson:"notes,omitempty" json:"notes,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SessionPatch) IsEmpty() bool {
	return p.SessionType == nil && p.DurationMinutes == nil && p.Notes == nil
}

// SessionFingerprint captures a target session's change marker at
// proposal-creation time. At approval the fingerprint is compared
// against a fresh read; any difference means the proposal is stale.
type SessionFingerprint struct {
	SessionID primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PlanChangeProposal is a reviewable set of proposed edits against a
// draft plan. Once applied it is immutable except as the source of an
// undo proposal.
type PlanChangeProposal struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID    primitive.ObjectID `bson:"planId" json:"planId"`
	CoachID   primitive.ObjectID `bson:"coachId" json:"coachId"`
	AthleteID primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	Status    ProposalStatus     `bson:"status" json:"status"`
	Patches   []SessionPatch     `bson:"patches" json:"patches"`
	// RespectsLocks is computed at creation time and is informational
	// only; lock safety is re-evaluated (and enforced) at approval.
	RespectsLocks bool                 `bson:"respectsLocks" json:"respectsLocks"`
	Rationale     string               `bson:"rationale,omitempty" json:"rationale,omitempty"`
	Fingerprints  []SessionFingerprint `bson:"fingerprints" json:"fingerprints"`
	// InversePatches hold the pre-patch field values recorded at apply
	// time; they are the diff of a subsequent undo proposal.
	InversePatches []SessionPatch `bson:"inversePatches,omitempty" json:"inversePatches,omitempty"`
	CreatedAt      time.Time      `bson:"createdAt" json:"createdAt"`
	AppliedAt      *time.Time     `bson:"appliedAt,omitempty" json:"appliedAt,omitempty"`
	RejectedAt     *time.Time     `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
}

// FingerprintFor returns the captured fingerprint for a session id.
func (p *PlanChangeProposal) FingerprintFor(sessionID primitive.ObjectID) (SessionFingerprint, bool) {
	for _, fp := range p.Fingerprints {
		if fp.SessionID == sessionID {
			return fp, true
		}
	}
	return SessionFingerprint{}, false
}
