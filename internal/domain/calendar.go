package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CalendarEntryStatus is the tagged status of a materialized calendar
// entry. Entries are soft-deleted (status flips to removed) rather
// than physically deleted.
type CalendarEntryStatus string

const (
	EntryScheduled CalendarEntryStatus = "scheduled"
	EntryRemoved   CalendarEntryStatus = "removed"
)

// CalendarEntry is the athlete-facing persisted schedule record,
// keyed by (athleteId, originTag, sourceKey). A given DraftSession
// maps to at most one entry for the lifetime of its identity.
type CalendarEntry struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	AthleteID       primitive.ObjectID  `bson:"athleteId" json:"athleteId"`
	PlanID          primitive.ObjectID  `bson:"planId" json:"planId"`
	OriginTag       string              `bson:"originTag" json:"originTag"`
	SourceKey       string              `bson:"sourceKey" json:"sourceKey"`
	Title           string              `bson:"title" json:"title"`
	Week            int                 `bson:"week" json:"week"`
	DayOfWeek       int                 `bson:"dayOfWeek" json:"dayOfWeek"`
	DurationMinutes int                 `bson:"durationMinutes" json:"durationMinutes"`
	Notes           string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Status          CalendarEntryStatus `bson:"status" json:"status"`
	DeletedAt       *time.Time          `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// CalendarSourceKey derives the calendar key for a draft session.
// The derivation is pure and deterministic so re-running
// materialization converges on the same entry set.
func CalendarSourceKey(sessionID primitive.ObjectID) string {
	return "session-" + sessionID.Hex()
}
