package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VisibilityStatus tracks whether a plan has ever been published.
type VisibilityStatus string

const (
	VisibilityDraft     VisibilityStatus = "draft"
	VisibilityPublished VisibilityStatus = "published"
)

// DraftPlan is the coach-editable working copy of a training plan.
// The athlete never sees this record directly; they only see the most
// recent PublishSnapshot derived from it.
type DraftPlan struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID          primitive.ObjectID `bson:"coachId" json:"coachId"`
	AthleteID        primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	Title            string             `bson:"title" json:"title"`
	PlanDoc          string             `bson:"planDoc,omitempty" json:"planDoc,omitempty"` // Free-form plan narrative
	VisibilityStatus VisibilityStatus   `bson:"visibilityStatus" json:"visibilityStatus"`
	// LastPublishedHash is the content hash of the most recent publish;
	// empty until the plan is first published.
	LastPublishedHash string `bson:"lastPublishedHash,omitempty" json:"lastPublishedHash,omitempty"`
	// LockedWeeks lists week indexes whose sessions may not be touched
	// by proposal application.
	LockedWeeks []int     `bson:"lockedWeeks,omitempty" json:"lockedWeeks,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsWeekLocked reports whether the given week index is locked.
func (p *DraftPlan) IsWeekLocked(week int) bool {
	for _, w := range p.LockedWeeks {
		if w == week {
			return true
		}
	}
	return false
}
