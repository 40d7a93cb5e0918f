package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditEvent names a proposal lifecycle transition.
type AuditEvent string

const (
	EventProposalCreated  AuditEvent = "proposal_created"
	EventProposalApplied  AuditEvent = "proposal_applied"
	EventProposalRejected AuditEvent = "proposal_rejected"
)

// PlanChangeAudit is an append-only record of one lifecycle event.
// Exactly one row is written per state transition, even when approval
// and publish are combined in a single request. Rows are never
// mutated or deleted.
type PlanChangeAudit struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProposalID primitive.ObjectID `bson:"proposalId" json:"proposalId"`
	PlanID     primitive.ObjectID `bson:"planId" json:"planId"`
	Event      AuditEvent         `bson:"event" json:"event"`
	// Patches snapshot the diff as it stood at the transition.
	Patches   []SessionPatch     `bson:"patches,omitempty" json:"patches,omitempty"`
	ActorID   primitive.ObjectID `bson:"actorId" json:"actorId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
